package xl

import "github.com/adnsv/go-xlpatch/part"

// Style is the look of a cell. Styles are compared by value when the
// workbook is written: any number of cells may share one, and equal styles
// built separately still produce a single cell format.
type Style struct {
	Font         Font
	Fill         string // solid fill color, RGB or ARGB hex
	Border       string // thin, medium, thick, dashed, ... on all four edges
	BorderColor  string
	NumberFormat string // format code such as "0.00%" or "yyyy-mm-dd"
	HAlign       string
	VAlign       string
	WrapText     bool
}

// Format converts s into the partial format understood by the style table.
func (s *Style) Format() part.Format {
	var f part.Format
	s.Font.format(&f)
	if s.Fill != "" {
		solid := "solid"
		f.FillColor, f.FillPattern = &s.Fill, &solid
	}
	if s.Border != "" {
		f.BorderStyle = &s.Border
	}
	if s.BorderColor != "" {
		f.BorderColor = &s.BorderColor
	}
	if s.NumberFormat != "" {
		f.NumberFormat = &s.NumberFormat
	}
	if s.HAlign != "" {
		f.HAlign = &s.HAlign
	}
	if s.VAlign != "" {
		f.VAlign = &s.VAlign
	}
	if s.WrapText {
		f.WrapText = &s.WrapText
	}
	return f
}
