package part

import (
	"strconv"

	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/adnsv/go-xlpatch/xmltree"
)

// formulaGroup is a formula that spans more than its own cell: a shared
// formula with its dependents, an array formula or a data table.
type formulaGroup struct {
	kind    string
	si      string
	master  *Cell
	area    ref.Range
	members int
}

func (g *formulaGroup) multi() bool {
	if g.kind == "shared" {
		return g.members > 0
	}
	return !g.area.Single()
}

// formulaGroups scans the sheet for shared, array and data table formulas.
func (ws *Worksheet) formulaGroups() []*formulaGroup {
	if ws.scanned {
		return ws.groups
	}
	ws.groups = ws.groups[:0]
	shared := map[string]*formulaGroup{}
	var dependents []string
	for _, row := range ws.rows {
		for _, c := range row.cells {
			f := c.elem.First("f")
			if f == nil {
				continue
			}
			t := f.AttrOr("t", "normal")
			if t == "normal" {
				continue
			}
			area, hasRef := f.Attr("ref")
			if t == "shared" && !hasRef {
				dependents = append(dependents, f.AttrOr("si", ""))
				continue
			}
			if !hasRef {
				continue
			}
			r, err := ref.ParseRange(area)
			if err != nil {
				continue
			}
			g := &formulaGroup{kind: t, si: f.AttrOr("si", ""), master: c, area: r}
			if t == "shared" {
				shared[g.si] = g
			}
			ws.groups = append(ws.groups, g)
		}
	}
	for _, si := range dependents {
		if g := shared[si]; g != nil {
			g.members++
		}
	}
	ws.scanned = true
	return ws.groups
}

func (ws *Worksheet) invalidate() {
	ws.scanned = false
}

// CheckWritable fails with UnsupportedFeature when replacing the content of
// cell c would break a formula that spans several cells.
func (ws *Worksheet) CheckWritable(c ref.Cell) error {
	for _, g := range ws.formulaGroups() {
		if !g.multi() {
			continue
		}
		if g.kind == "shared" && g.master.Ref == c {
			return xlerr.New(xlerr.KindUnsupportedFeature, "cell is the master of a shared formula with %d dependents", g.members).
				WithPart(ws.name).WithRef(c.String())
		}
		if g.kind != "shared" && g.area.Contains(c) {
			return xlerr.New(xlerr.KindUnsupportedFeature, "cell is part of the %s formula %s", g.kind, g.area).
				WithPart(ws.name).WithRef(c.String())
		}
	}
	return nil
}

func axisSpan(r ref.Range, a ref.Axis) (int, int) {
	if a == ref.Rows {
		return r.Min.Row, r.Max.Row
	}
	return r.Min.Col, r.Max.Col
}

func axisOf(c ref.Cell, a ref.Axis) int {
	if a == ref.Rows {
		return c.Row
	}
	return c.Col
}

// covers reports whether a deletion removes all of lo..hi.
func covers(s ref.Shift, lo, hi int) bool {
	return s.N < 0 && lo >= s.At && hi < s.At-s.N
}

// CheckShift verifies that s can be applied to the sheet named target.
// home is the name of this sheet; when it differs from target only the
// shared formulas that reference target are checked.
func (ws *Worksheet) CheckShift(s ref.Shift, home, target string) error {
	own := home == target
	for _, g := range ws.formulaGroups() {
		if own && g.multi() {
			lo, hi := axisSpan(g.area, s.Axis)
			if s.Splits(lo, hi) && !covers(s, lo, hi) {
				return xlerr.New(xlerr.KindUnsupportedFeature, "%s %s cuts across the %s formula %s", s.Axis, shiftVerb(s), g.kind, g.area).
					WithPart(ws.name).WithRef(g.master.Ref.String())
			}
		}
		if g.kind != "shared" || g.members == 0 {
			continue
		}
		if own {
			lo, hi := axisSpan(g.area, s.Axis)
			if covers(s, lo, hi) {
				continue
			}
		}
		lo, hi := axisSpan(g.area, s.Axis)
		if !ref.SharedFormulaSafe(g.master.Formula(), home, target, s, hi-lo) {
			return xlerr.New(xlerr.KindUnsupportedFeature, "%s %s changes the relative references of shared formula %s", s.Axis, shiftVerb(s), g.area).
				WithPart(ws.name).WithRef(g.master.Ref.String())
		}
	}
	if !own {
		return nil
	}
	limit := s.Limit(ws.Format)
	if s.N > 0 {
		for _, row := range ws.rows {
			for _, c := range row.cells {
				if v := axisOf(c.Ref, s.Axis); v >= s.At && v+s.N > limit {
					return xlerr.New(xlerr.KindOutOfRangeReference, "%s insert pushes content past %d", s.Axis, limit).
						WithPart(ws.name).WithRef(c.Ref.String())
				}
			}
		}
	}
	if s.At < 1 || s.At > limit {
		return xlerr.New(xlerr.KindOutOfRangeReference, "%s %d outside 1..%d", s.Axis, s.At, limit).WithPart(ws.name)
	}
	return nil
}

func shiftVerb(s ref.Shift) string {
	if s.N > 0 {
		return "insert"
	}
	return "delete"
}

// Shift inserts or deletes rows or columns of this sheet, named home, and
// moves everything that refers to positions on it: cells, the used range,
// column records, merged areas, conditional formats, validations,
// hyperlinks, the auto filter and every formula. CheckShift must have
// passed.
func (ws *Worksheet) Shift(s ref.Shift, home string) error {
	if s.N == 0 {
		return nil
	}
	if err := ws.CheckShift(s, home, home); err != nil {
		return err
	}
	ws.materialize()
	limit := s.Limit(ws.Format)

	var rows []*Row
	for _, row := range ws.rows {
		if s.Axis == ref.Rows {
			n, ok := s.Map(row.Num)
			if !ok {
				ws.data.Remove(row.elem)
				continue
			}
			if n != row.Num {
				row.Num = n
				row.elem.SetAttr("r", strconv.Itoa(n), rowAttrOrder)
				for _, c := range row.cells {
					c.Ref.Row = n
					c.elem.SetAttr("r", c.Ref.String(), cellAttrOrder)
				}
			}
			rows = append(rows, row)
			continue
		}
		var cells []*Cell
		for _, c := range row.cells {
			col, ok := s.Map(c.Ref.Col)
			if !ok {
				row.elem.Remove(c.elem)
				continue
			}
			if col != c.Ref.Col {
				c.Ref.Col = col
				c.elem.SetAttr("r", c.Ref.String(), cellAttrOrder)
			}
			cells = append(cells, c)
		}
		row.cells = cells
		if v, ok := row.elem.Attr("spans"); ok {
			if lo, hi, ok := parseSpans(v); ok {
				if lo, hi, ok = s.Span(lo, hi); ok {
					row.elem.SetAttr("spans", strconv.Itoa(lo)+":"+strconv.Itoa(min(hi, limit)), rowAttrOrder)
				} else {
					row.elem.RemoveAttr("spans")
				}
			}
		}
		rows = append(rows, row)
	}
	ws.rows = rows

	root := ws.x.Root
	if d := root.First("dimension"); d != nil {
		if r, err := ref.ParseRange(d.AttrOr("ref", "")); err == nil {
			if r, ok := shiftRange(s, r, limit); ok {
				d.SetAttr("ref", r.String(), nil)
			} else {
				d.SetAttr("ref", "A1", nil)
			}
		}
	}
	if s.Axis == ref.Cols {
		ws.shiftCols(s, limit)
	}
	ws.shiftMerges(s, limit)
	ws.shiftSqrefs(s, limit, "conditionalFormatting", "", "sqref")
	ws.shiftSqrefs(s, limit, "dataValidations", "dataValidation", "sqref")
	ws.shiftSqrefs(s, limit, "hyperlinks", "hyperlink", "ref")
	if af := root.First("autoFilter"); af != nil {
		if r, err := ref.ParseRange(af.AttrOr("ref", "")); err == nil {
			if r, ok := shiftRange(s, r, limit); ok {
				af.SetAttr("ref", r.String(), nil)
			} else {
				root.Remove(af)
			}
		}
	}

	for _, row := range ws.rows {
		for _, c := range row.cells {
			f := c.elem.First("f")
			if f == nil {
				continue
			}
			if text := f.Text(); text != "" {
				f.SetText(ref.ShiftFormula(text, home, home, s, ws.Format))
			}
			if v, ok := f.Attr("ref"); ok {
				if r, err := ref.ParseRange(v); err == nil {
					if r, ok := shiftRange(s, r, limit); ok {
						f.SetAttr("ref", r.String(), nil)
					}
				}
			}
		}
	}
	ws.rewriteAuxFormulas(func(text string) string {
		return ref.ShiftFormula(text, home, home, s, ws.Format)
	})
	ws.invalidate()
	return nil
}

func shiftRange(s ref.Shift, r ref.Range, limit int) (ref.Range, bool) {
	r, ok := s.Range(r)
	if !ok {
		return r, false
	}
	lo, _ := axisSpan(r, s.Axis)
	if lo > limit {
		return r, false
	}
	if s.Axis == ref.Rows {
		r.Max.Row = min(r.Max.Row, limit)
	} else {
		r.Max.Col = min(r.Max.Col, limit)
	}
	return r, true
}

func (ws *Worksheet) shiftCols(s ref.Shift, limit int) {
	cols := ws.x.Root.First("cols")
	if cols == nil {
		return
	}
	for _, c := range cols.All("col") {
		lo, err1 := strconv.Atoi(c.AttrOr("min", ""))
		hi, err2 := strconv.Atoi(c.AttrOr("max", ""))
		if err1 != nil || err2 != nil {
			continue
		}
		nlo, nhi, ok := s.Span(lo, hi)
		if !ok || nlo > limit {
			cols.Remove(c)
			continue
		}
		nhi = min(nhi, limit)
		if nlo != lo {
			c.SetAttr("min", strconv.Itoa(nlo), nil)
		}
		if nhi != hi {
			c.SetAttr("max", strconv.Itoa(nhi), nil)
		}
	}
	if len(cols.All("col")) == 0 {
		ws.x.Root.Remove(cols)
	}
}

func (ws *Worksheet) shiftMerges(s ref.Shift, limit int) {
	mc := ws.x.Root.First("mergeCells")
	if mc == nil {
		return
	}
	for _, m := range mc.All("mergeCell") {
		r, err := ref.ParseRange(m.AttrOr("ref", ""))
		if err != nil {
			continue
		}
		nr, ok := shiftRange(s, r, limit)
		if !ok || nr.Single() {
			mc.Remove(m)
			continue
		}
		if nr != r {
			m.SetAttr("ref", nr.String(), nil)
		}
	}
	n := len(mc.All("mergeCell"))
	if n == 0 {
		ws.x.Root.Remove(mc)
		return
	}
	if _, ok := mc.Attr("count"); ok {
		mc.SetAttr("count", strconv.Itoa(n), nil)
	}
}

// shiftSqrefs moves the range list attribute of every item element. With
// an empty item the container elements themselves carry the attribute and
// appear repeatedly, as conditionalFormatting does.
func (ws *Worksheet) shiftSqrefs(s ref.Shift, limit int, container, item, attr string) {
	root := ws.x.Root
	var holders []*xmltree.Element
	var parent *xmltree.Element
	if item == "" {
		holders = root.All(container)
		parent = root
	} else {
		parent = root.First(container)
		if parent == nil {
			return
		}
		holders = parent.All(item)
	}
	for _, h := range holders {
		v, ok := h.Attr(attr)
		if !ok {
			continue
		}
		rs, err := ref.ParseSqref(v)
		if err != nil {
			continue
		}
		var out []ref.Range
		for _, r := range rs {
			if nr, ok := shiftRange(s, r, limit); ok {
				out = append(out, nr)
			}
		}
		if len(out) == 0 {
			parent.Remove(h)
			continue
		}
		if nv := ref.FormatSqref(out); nv != v {
			h.SetAttr(attr, nv, nil)
		}
	}
	if item == "" {
		return
	}
	n := len(parent.All(item))
	if n == 0 {
		root.Remove(parent)
		return
	}
	if _, ok := parent.Attr("count"); ok {
		parent.SetAttr("count", strconv.Itoa(n), nil)
	}
}

// rewriteAuxFormulas applies fn to formulas held outside cells:
// conditional format rules and data validation bounds.
func (ws *Worksheet) rewriteAuxFormulas(fn func(string) string) {
	root := ws.x.Root
	for _, cf := range root.All("conditionalFormatting") {
		for _, rule := range cf.All("cfRule") {
			for _, f := range rule.All("formula") {
				if text := f.Text(); text != "" {
					f.SetText(fn(text))
				}
			}
		}
	}
	if dvs := root.First("dataValidations"); dvs != nil {
		for _, dv := range dvs.All("dataValidation") {
			for _, local := range []string{"formula1", "formula2"} {
				if f := dv.First(local); f != nil && f.Text() != "" {
					f.SetText(fn(f.Text()))
				}
			}
		}
	}
}

// RewriteFormulas applies fn to the text of every formula on the sheet,
// including conditional formats and data validations.
func (ws *Worksheet) RewriteFormulas(fn func(string) string) {
	for _, row := range ws.rows {
		for _, c := range row.cells {
			if f := c.elem.First("f"); f != nil && f.Text() != "" {
				f.SetText(fn(f.Text()))
			}
		}
	}
	ws.rewriteAuxFormulas(fn)
}

// HasFormulas reports whether any cell holds a formula.
func (ws *Worksheet) HasFormulas() bool {
	for _, row := range ws.rows {
		for _, c := range row.cells {
			if c.elem.First("f") != nil {
				return true
			}
		}
	}
	return false
}
