package xl

import (
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

// Sheet is a worksheet of a Workbook.
type Sheet struct {
	Name    string
	Rows    []*Row
	Columns map[int]*Column // 1-based
	Merged  []ref.Range
	Hidden  bool

	workbook      *Workbook
	nextRowNumber int // 1-based, incremented as we add rows
}

type Column struct {
	Width float32
}

// AddRow appends the next row.
func (s *Sheet) AddRow() *Row {
	r := &Row{
		sheet:            s,
		rowNumber:        s.nextRowNumber,
		nextColumnNumber: 1,
	}
	s.nextRowNumber++
	s.Rows = append(s.Rows, r)
	return r
}

// SkipRows leaves n rows empty before the next AddRow.
func (s *Sheet) SkipRows(n int) {
	if n > 0 {
		s.nextRowNumber += n
	}
}

// SetColumnWidth sets the width of a column in characters; a width of zero
// restores the default.
func (s *Sheet) SetColumnWidth(colNumber int, w float32) {
	if colNumber <= 0 {
		return
	}
	if w <= 0 {
		delete(s.Columns, colNumber)
		return
	}
	if c, ok := s.Columns[colNumber]; ok {
		c.Width = w
		return
	}
	s.Columns[colNumber] = &Column{Width: w}
}

// Merge joins the cells of an A1 range such as "A1:C1". Areas may not
// overlap.
func (s *Sheet) Merge(area string) error {
	rg, err := ref.ParseRange(area)
	if err != nil {
		return err
	}
	if rg.Single() {
		return xlerr.New(xlerr.KindInvalidEdit, "merged area %s is a single cell", area)
	}
	for _, m := range s.Merged {
		if rg.Min.Row <= m.Max.Row && m.Min.Row <= rg.Max.Row &&
			rg.Min.Col <= m.Max.Col && m.Min.Col <= rg.Max.Col {
			return xlerr.New(xlerr.KindInvalidEdit, "merged area %s overlaps %s", area, m)
		}
	}
	s.Merged = append(s.Merged, rg)
	return nil
}
