// Package ref converts between A1-style labels and (row, column) pairs and
// moves references around when rows or columns are inserted or deleted.
//
// Rows and columns are 1-based. The conversions are total over valid input
// and exact inverses of each other.
package ref

import (
	"strconv"
	"strings"

	"github.com/adnsv/go-xlpatch/xlerr"
)

// Format holds the grid bounds of a spreadsheet file format.
type Format struct {
	Name    string
	MaxRows int
	MaxCols int
}

var (
	// Modern is the OOXML grid: 1,048,576 rows by 16,384 columns (A..XFD).
	Modern = Format{Name: "xlsx", MaxRows: 1 << 20, MaxCols: 1 << 14}

	// Legacy is the BIFF8 grid: 65,536 rows by 256 columns (A..IV).
	Legacy = Format{Name: "xls", MaxRows: 1 << 16, MaxCols: 1 << 8}
)

// Check fails with OutOfRangeReference when c lies outside the grid.
func (f Format) Check(c Cell) error {
	if c.Row < 1 || c.Row > f.MaxRows {
		return xlerr.New(xlerr.KindOutOfRangeReference, "row %d outside 1..%d", c.Row, f.MaxRows).WithRef(c.String())
	}
	if c.Col < 1 || c.Col > f.MaxCols {
		return xlerr.New(xlerr.KindOutOfRangeReference, "column %d outside 1..%d", c.Col, f.MaxCols).WithRef(c.String())
	}
	return nil
}

// Cell is a 1-based grid position.
type Cell struct {
	Row int
	Col int
}

// ColumnName returns the letters for a 1-based column number, "" if col < 1.
func ColumnName(col int) string {
	if col < 1 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for col > 0 {
		i--
		buf[i] = byte('A' + (col-1)%26)
		col = (col - 1) / 26
	}
	return string(buf[i:])
}

// ParseColumn converts column letters (case-insensitive) to a 1-based number.
func ParseColumn(s string) (int, error) {
	if s == "" || len(s) > 3 {
		return 0, xlerr.New(xlerr.KindInvalidEdit, "invalid column label").WithRef(s)
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			n = n*26 + int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			n = n*26 + int(ch-'a') + 1
		default:
			return 0, xlerr.New(xlerr.KindInvalidEdit, "invalid column label").WithRef(s)
		}
	}
	return n, nil
}

// String returns the A1 label, e.g. "B7".
func (c Cell) String() string {
	return ColumnName(c.Col) + strconv.Itoa(c.Row)
}

// ParseCell parses an A1 label. Absolute markers ("$B$7") are accepted and
// dropped.
func ParseCell(s string) (Cell, error) {
	t := strings.ReplaceAll(s, "$", "")
	i := 0
	for i < len(t) && isLetter(t[i]) {
		i++
	}
	if i == 0 || i == len(t) {
		return Cell{}, xlerr.New(xlerr.KindInvalidEdit, "invalid cell reference").WithRef(s)
	}
	col, err := ParseColumn(t[:i])
	if err != nil {
		return Cell{}, xlerr.New(xlerr.KindInvalidEdit, "invalid cell reference").WithRef(s)
	}
	digits := t[i:]
	if len(digits) > 9 || !allDigits(digits) {
		return Cell{}, xlerr.New(xlerr.KindInvalidEdit, "invalid cell reference").WithRef(s)
	}
	row, _ := strconv.Atoi(digits)
	if row < 1 {
		return Cell{}, xlerr.New(xlerr.KindOutOfRangeReference, "row must be >= 1").WithRef(s)
	}
	return Cell{Row: row, Col: col}, nil
}

// Less orders cells row-major.
func (c Cell) Less(o Cell) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Col < o.Col
}

// Range is an inclusive rectangle of cells with Min at the top-left.
type Range struct {
	Min Cell
	Max Cell
}

// ParseRange parses "A1:C3" or a single cell label.
func ParseRange(s string) (Range, error) {
	a, b, found := strings.Cut(s, ":")
	c1, err := ParseCell(a)
	if err != nil {
		return Range{}, err
	}
	if !found {
		return Range{Min: c1, Max: c1}, nil
	}
	c2, err := ParseCell(b)
	if err != nil {
		return Range{}, err
	}
	return NewRange(c1, c2), nil
}

// NewRange returns the normalized rectangle spanned by two corners.
func NewRange(a, b Cell) Range {
	return Range{
		Min: Cell{Row: min(a.Row, b.Row), Col: min(a.Col, b.Col)},
		Max: Cell{Row: max(a.Row, b.Row), Col: max(a.Col, b.Col)},
	}
}

func (r Range) String() string {
	if r.Min == r.Max {
		return r.Min.String()
	}
	return r.Min.String() + ":" + r.Max.String()
}

// Contains reports whether c lies inside r.
func (r Range) Contains(c Cell) bool {
	return c.Row >= r.Min.Row && c.Row <= r.Max.Row && c.Col >= r.Min.Col && c.Col <= r.Max.Col
}

// Union returns the smallest range covering both r and o.
func (r Range) Union(o Range) Range {
	return NewRange(
		Cell{Row: min(r.Min.Row, o.Min.Row), Col: min(r.Min.Col, o.Min.Col)},
		Cell{Row: max(r.Max.Row, o.Max.Row), Col: max(r.Max.Col, o.Max.Col)},
	)
}

// Single reports whether r covers exactly one cell.
func (r Range) Single() bool {
	return r.Min == r.Max
}

// ParseSqref parses a space separated range list as used by sqref attributes.
func ParseSqref(s string) ([]Range, error) {
	var out []Range
	for _, f := range strings.Fields(s) {
		r, err := ParseRange(f)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// FormatSqref joins ranges back into sqref form.
func FormatSqref(rs []Range) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " ")
}

func isLetter(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
