package xlread

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

// CellType represents the type of data in a cell.
type CellType int

const (
	// Empty is a cell without a value, possibly carrying a style.
	Empty CellType = iota
	// Number is a numeric value, dates included.
	Number
	// String is shared, inline or formula string text.
	String
	// Boolean renders as TRUE or FALSE.
	Boolean
	// Error is an error literal such as #N/A.
	Error
	// Formula is a formula without a cached result.
	Formula
)

func (t CellType) String() string {
	switch t {
	case Empty:
		return "empty"
	case Number:
		return "number"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case Error:
		return "error"
	case Formula:
		return "formula"
	default:
		return "unknown"
	}
}

// Cell is a resolved cell value.
type Cell struct {
	Ref     ref.Cell
	Type    CellType
	Value   string // display text: resolved strings, TRUE/FALSE, raw numbers
	Style   int    // cell format id
	NumFmt  string // number format code of Style
	Formula string
}

// IsEmpty reports whether the cell holds nothing to display.
func (c *Cell) IsEmpty() bool {
	return c.Type == Empty || c.Value == ""
}

// IsDate reports whether the cell is a number shown with a date or time
// format.
func (c *Cell) IsDate() bool {
	return c.Type == Number && part.IsDateFormat(c.NumFmt)
}

// Float parses a numeric value.
func (c *Cell) Float() (float64, error) {
	if c.Type != Number {
		return 0, xlerr.New(xlerr.KindInvalidEdit, "cell holds a %s, not a number", c.Type).WithRef(c.Ref.String())
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return 0, xlerr.Wrap(xlerr.KindMalformedXML, err, "bad number %q", c.Value).WithRef(c.Ref.String())
	}
	return v, nil
}

var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Time converts a date serial to a time. Serials below 61 in the 1900
// system sit before the phantom 29 Feb 1900 and are moved forward a day.
func (c *Cell) Time(date1904 bool) (time.Time, error) {
	v, err := c.Float()
	if err != nil {
		return time.Time{}, err
	}
	return SerialTime(v, date1904), nil
}

// SerialTime converts a spreadsheet date serial to UTC, rounded to the
// millisecond.
func SerialTime(v float64, date1904 bool) time.Time {
	base := epoch1900
	if date1904 {
		base = epoch1904
	} else if v < 61 {
		v++
	}
	days := math.Floor(v)
	ms := math.Round((v - days) * 86400e3)
	return base.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

// Sheet is a worksheet read into memory. Rows[i] holds row i+1 and is as
// long as its last stored cell; missing cells are Empty.
type Sheet struct {
	Name   string
	State  string
	Rows   [][]Cell
	Merged []ref.Range
}

// Cell returns the cell at c or nil when the sheet stores nothing there.
func (s *Sheet) Cell(c ref.Cell) *Cell {
	if c.Row < 1 || c.Row > len(s.Rows) {
		return nil
	}
	row := s.Rows[c.Row-1]
	if c.Col < 1 || c.Col > len(row) {
		return nil
	}
	return &row[c.Col-1]
}

// CellByRef is Cell for an A1-style label.
func (s *Sheet) CellByRef(label string) *Cell {
	c, err := ref.ParseCell(label)
	if err != nil {
		return nil
	}
	return s.Cell(c)
}

// ColCount returns the length of the longest row.
func (s *Sheet) ColCount() int {
	n := 0
	for _, row := range s.Rows {
		n = max(n, len(row))
	}
	return n
}

// Values returns the display text of every cell, row by row.
func (s *Sheet) Values() [][]string {
	out := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = make([]string, len(row))
		for j := range row {
			out[i][j] = row[j].Value
		}
	}
	return out
}

// Book is a workbook read into memory.
type Book struct {
	Sheets   []*Sheet
	Date1904 bool
}

// Sheet finds a sheet by name, ignoring case.
func (b *Book) Sheet(name string) (*Sheet, error) {
	for _, s := range b.Sheets {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return nil, xlerr.New(xlerr.KindUnknownSheet, "no sheet named %q", name)
}
