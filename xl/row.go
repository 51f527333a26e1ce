package xl

import "github.com/adnsv/go-xlpatch/ref"

// Row is one row of a sheet; cells are appended left to right.
type Row struct {
	Cells []*Cell

	Height float32 // points, 0 keeps the sheet default

	sheet            *Sheet
	rowNumber        int // 1-based
	nextColumnNumber int // 1-based, incremented as we add cells
}

// Number returns the 1-based row number.
func (r *Row) Number() int {
	return r.rowNumber
}

// AddCell appends a cell in the next free column.
func (r *Row) AddCell() *Cell {
	c := &Cell{
		row:   r,
		coord: ref.Cell{Row: r.rowNumber, Col: r.nextColumnNumber},
	}
	r.nextColumnNumber++
	r.Cells = append(r.Cells, c)
	return c
}

// SkipCells leaves n columns empty before the next AddCell.
func (r *Row) SkipCells(n int) {
	if n > 0 {
		r.nextColumnNumber += n
	}
}
