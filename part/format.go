package part

import (
	"strings"

	"github.com/adnsv/go-xlpatch/xlerr"
)

// Format is a partial cell format. Nil fields leave the corresponding
// property of the base format alone.
type Format struct {
	Bold      *bool    `yaml:"bold,omitempty"`
	Italic    *bool    `yaml:"italic,omitempty"`
	Strike    *bool    `yaml:"strike,omitempty"`
	Underline *string  `yaml:"underline,omitempty"` // single, double, singleAccounting, doubleAccounting or none
	FontName  *string  `yaml:"fontName,omitempty"`
	FontSize  *float64 `yaml:"fontSize,omitempty"`
	FontColor *string  `yaml:"fontColor,omitempty"` // RGB or ARGB hex

	FillColor   *string `yaml:"fillColor,omitempty"` // "" or "none" removes the fill
	FillPattern *string `yaml:"fillPattern,omitempty"`

	BorderStyle *string `yaml:"borderStyle,omitempty"` // applied to all four edges, "" or "none" removes them
	BorderColor *string `yaml:"borderColor,omitempty"`

	NumberFormat *string `yaml:"numberFormat,omitempty"`

	HAlign   *string `yaml:"hAlign,omitempty"`
	VAlign   *string `yaml:"vAlign,omitempty"`
	WrapText *bool   `yaml:"wrapText,omitempty"`
	Indent   *int    `yaml:"indent,omitempty"`
	Rotation *int    `yaml:"rotation,omitempty"`
}

func (f *Format) hasFont() bool {
	return f.Bold != nil || f.Italic != nil || f.Strike != nil || f.Underline != nil ||
		f.FontName != nil || f.FontSize != nil || f.FontColor != nil
}

func (f *Format) hasFill() bool {
	return f.FillColor != nil || f.FillPattern != nil
}

func (f *Format) hasBorder() bool {
	return f.BorderStyle != nil || f.BorderColor != nil
}

func (f *Format) hasAlignment() bool {
	return f.HAlign != nil || f.VAlign != nil || f.WrapText != nil || f.Indent != nil || f.Rotation != nil
}

// Empty reports whether the format sets nothing.
func (f *Format) Empty() bool {
	return !f.hasFont() && !f.hasFill() && !f.hasBorder() && !f.hasAlignment() && f.NumberFormat == nil
}

// Validate checks enumerated values and colors.
func (f *Format) Validate() error {
	for _, c := range []*string{f.FontColor, f.FillColor, f.BorderColor} {
		if c == nil || *c == "" || *c == "none" {
			continue
		}
		if _, err := NormalizeColor(*c); err != nil {
			return err
		}
	}
	if f.Underline != nil && !oneOf(*f.Underline, "", "none", "single", "double", "singleAccounting", "doubleAccounting") {
		return xlerr.New(xlerr.KindInvalidEdit, "unknown underline style %q", *f.Underline)
	}
	if f.BorderStyle != nil && !oneOf(*f.BorderStyle, "", "none", "thin", "medium", "thick", "dashed", "dotted",
		"double", "hair", "mediumDashed", "dashDot", "mediumDashDot", "dashDotDot", "mediumDashDotDot", "slantDashDot") {
		return xlerr.New(xlerr.KindInvalidEdit, "unknown border style %q", *f.BorderStyle)
	}
	if f.HAlign != nil && !oneOf(*f.HAlign, "general", "left", "center", "right", "fill", "justify", "centerContinuous", "distributed") {
		return xlerr.New(xlerr.KindInvalidEdit, "unknown horizontal alignment %q", *f.HAlign)
	}
	if f.VAlign != nil && !oneOf(*f.VAlign, "top", "center", "bottom", "justify", "distributed") {
		return xlerr.New(xlerr.KindInvalidEdit, "unknown vertical alignment %q", *f.VAlign)
	}
	if f.FontSize != nil && (*f.FontSize < 1 || *f.FontSize > 409) {
		return xlerr.New(xlerr.KindInvalidEdit, "font size %g outside 1..409", *f.FontSize)
	}
	if f.Rotation != nil && (*f.Rotation < 0 || *f.Rotation > 180) && *f.Rotation != 255 {
		return xlerr.New(xlerr.KindInvalidEdit, "text rotation %d outside 0..180", *f.Rotation)
	}
	if f.Indent != nil && *f.Indent < 0 {
		return xlerr.New(xlerr.KindInvalidEdit, "negative indent %d", *f.Indent)
	}
	return nil
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

// NormalizeColor turns "#f00", "FF0000" or "80FF0000" into an ARGB value
// such as "FFFF0000".
func NormalizeColor(s string) (string, error) {
	c := strings.ToUpper(strings.TrimPrefix(s, "#"))
	if len(c) == 3 {
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	}
	if len(c) == 6 {
		c = "FF" + c
	}
	if len(c) != 8 || strings.Trim(c, "0123456789ABCDEF") != "" {
		return "", xlerr.New(xlerr.KindInvalidEdit, "invalid color %q", s)
	}
	return c, nil
}
