package xl

import "github.com/adnsv/go-xlpatch/part"

// Font holds the font properties of a Style. The zero value keeps the
// workbook default font.
type Font struct {
	Name          string        // empty keeps the default face
	Size          float64       // points, 0 keeps the default of 11
	Color         string        // RGB or ARGB hex
	Bold          bool
	Italic        bool
	Underline     UnderlineType
	Strikethrough bool
}

// UnderlineType is one of the ST_UnderlineValues of ECMA-376.
type UnderlineType string

const (
	UnderlineNone             UnderlineType = ""
	UnderlineSingle           UnderlineType = "single"
	UnderlineDouble           UnderlineType = "double"
	UnderlineSingleAccounting UnderlineType = "singleAccounting"
	UnderlineDoubleAccounting UnderlineType = "doubleAccounting"
)

// IsDefault returns true if the font uses all default properties.
func (f *Font) IsDefault() bool {
	return *f == Font{}
}

func (f *Font) format(dst *part.Format) {
	if f.Name != "" {
		dst.FontName = &f.Name
	}
	if f.Size > 0 {
		dst.FontSize = &f.Size
	}
	if f.Color != "" {
		dst.FontColor = &f.Color
	}
	if f.Bold {
		dst.Bold = &f.Bold
	}
	if f.Italic {
		dst.Italic = &f.Italic
	}
	if f.Underline != UnderlineNone {
		u := string(f.Underline)
		dst.Underline = &u
	}
	if f.Strikethrough {
		dst.Strike = &f.Strikethrough
	}
}
