package xl

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/adnsv/go-xlpatch/ref"
)

// Cell holds one value, its formula and its style.
type Cell struct {
	row   *Row
	coord ref.Cell
	typ   CellType
	v     string
	f     string // formula, without the leading "="

	style   *Style
	picture *PictureInfo
}

// PictureInfo is an image placed in a cell.
type PictureInfo struct {
	Extension string
	Blob      []byte
}

// CellType is the type of cell value type.
type CellType int

// Cell value types enumeration.
const (
	CellTypeUnset CellType = iota
	CellTypeBool
	CellTypeError
	CellTypeNumber
	CellTypeSharedString
	CellTypeInlineString
	CellTypeFormula

	// internal
	cellTypePicture
)

// Ref returns the position of the cell.
func (c *Cell) Ref() ref.Cell {
	return c.coord
}

// SetBool stores a boolean.
func (c *Cell) SetBool(v bool) *Cell {
	c.typ = CellTypeBool
	if v {
		c.v = "1"
	} else {
		c.v = "0"
	}
	return c
}

func (c *Cell) SetInt(v int64) *Cell {
	c.typ = CellTypeNumber
	c.v = strconv.FormatInt(v, 10)
	return c
}

// SetFloat stores a number. NaN and infinities have no cell
// representation and become #NUM!.
func (c *Cell) SetFloat(v float64) *Cell {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return c.SetError("#NUM!")
	}
	c.typ = CellTypeNumber
	c.v = strconv.FormatFloat(v, 'g', -1, 64)
	return c
}

// SetStr stores text through the shared string table.
func (c *Cell) SetStr(v string) *Cell {
	c.typ = CellTypeSharedString
	c.v = v
	return c
}

// SetInlineStr stores text in the cell instead of the shared string table.
func (c *Cell) SetInlineStr(v string) *Cell {
	c.typ = CellTypeInlineString
	c.v = v
	return c
}

// SetError stores an error code such as #N/A.
func (c *Cell) SetError(code string) *Cell {
	c.typ = CellTypeError
	c.v = code
	return c
}

// SetFormula stores a formula without a cached value; the consuming
// application computes it on load.
func (c *Cell) SetFormula(f string) *Cell {
	c.typ = CellTypeFormula
	c.f = strings.TrimPrefix(strings.TrimSpace(f), "=")
	c.v = ""
	return c
}

// SetTime stores t as a date serial. A cell without a style gets a date
// format, with the clock when t has one.
func (c *Cell) SetTime(t time.Time) *Cell {
	c.typ = CellTypeNumber
	c.v = strconv.FormatFloat(TimeSerial(t, c.row.sheet.workbook.Date1904), 'g', -1, 64)
	if c.style == nil {
		code := "yyyy-mm-dd"
		if h, m, s := t.Clock(); h != 0 || m != 0 || s != 0 {
			code = "yyyy-mm-dd hh:mm:ss"
		}
		c.style = &Style{NumberFormat: code}
	}
	return c
}

// SetPicture places an image in the cell.
func (c *Cell) SetPicture(p *PictureInfo) *Cell {
	c.typ = cellTypePicture
	c.picture = p
	return c
}

// SetStyle formats the cell; styles are shared by value, so equal styles
// on different cells end up as one cell format.
func (c *Cell) SetStyle(s *Style) *Cell {
	c.style = s
	return c
}

var (
	epoch1900 = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
)

// TimeSerial converts t to a spreadsheet date serial in its own time zone.
func TimeSerial(t time.Time, date1904 bool) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	base := epoch1900
	if date1904 {
		base = epoch1904
	}
	v := wall.Sub(base).Hours() / 24
	if !date1904 && v < 61 {
		v--
	}
	return math.Round(v*86400e3) / 86400e3
}
