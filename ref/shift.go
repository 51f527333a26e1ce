package ref

// Axis selects rows or columns.
type Axis int

const (
	Rows Axis = iota
	Cols
)

func (a Axis) String() string {
	if a == Cols {
		return "cols"
	}
	return "rows"
}

// Shift describes a row or column insertion (N > 0, N lines inserted before
// At) or deletion (N < 0, -N lines removed starting at At).
type Shift struct {
	Axis Axis
	At   int
	N    int
}

// Map moves a single row or column index. It reports false when the index
// falls inside a deleted band.
func (s Shift) Map(i int) (int, bool) {
	if i < s.At {
		return i, true
	}
	if s.N >= 0 {
		return i + s.N, true
	}
	n := -s.N
	if i < s.At+n {
		return 0, false
	}
	return i - n, true
}

// Span moves an inclusive interval lo..hi. Insertions inside the interval
// grow it; deletions shrink it, and a fully deleted interval reports false.
func (s Shift) Span(lo, hi int) (int, int, bool) {
	if s.N >= 0 {
		nlo, _ := s.Map(lo)
		nhi, _ := s.Map(hi)
		return nlo, nhi, true
	}
	n := -s.N
	last := s.At + n - 1
	if lo >= s.At && hi <= last {
		return 0, 0, false
	}
	nlo, nhi := lo, hi
	switch {
	case lo >= s.At && lo <= last:
		nlo = s.At
	case lo > last:
		nlo = lo - n
	}
	switch {
	case hi >= s.At && hi <= last:
		nhi = s.At - 1
	case hi > last:
		nhi = hi - n
	}
	return nlo, nhi, true
}

// Cell moves a cell along the shift axis.
func (s Shift) Cell(c Cell) (Cell, bool) {
	if s.Axis == Rows {
		r, ok := s.Map(c.Row)
		return Cell{Row: r, Col: c.Col}, ok
	}
	col, ok := s.Map(c.Col)
	return Cell{Row: c.Row, Col: col}, ok
}

// Range moves a rectangle along the shift axis, following Span semantics.
func (s Shift) Range(r Range) (Range, bool) {
	if s.Axis == Rows {
		lo, hi, ok := s.Span(r.Min.Row, r.Max.Row)
		if !ok {
			return Range{}, false
		}
		return Range{Min: Cell{Row: lo, Col: r.Min.Col}, Max: Cell{Row: hi, Col: r.Max.Col}}, true
	}
	lo, hi, ok := s.Span(r.Min.Col, r.Max.Col)
	if !ok {
		return Range{}, false
	}
	return Range{Min: Cell{Row: r.Min.Row, Col: lo}, Max: Cell{Row: r.Max.Row, Col: hi}}, true
}

// Limit returns the axis bound of f.
func (s Shift) Limit(f Format) int {
	if s.Axis == Rows {
		return f.MaxRows
	}
	return f.MaxCols
}

// Touches reports whether the index i is moved or removed by s.
func (s Shift) Touches(i int) bool {
	return s.N != 0 && i >= s.At
}

// Splits reports whether s moves part of the interval lo..hi differently
// from the rest: an insertion strictly inside it, or a deletion that
// overlaps it.
func (s Shift) Splits(lo, hi int) bool {
	if s.N > 0 {
		return lo < s.At && s.At <= hi
	}
	if s.N < 0 {
		return lo < s.At-s.N && hi >= s.At
	}
	return false
}
