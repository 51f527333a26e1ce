package part

import (
	"sort"
	"strconv"
	"strings"

	"github.com/adnsv/srw/xml"

	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/adnsv/go-xlpatch/xmltree"
)

var (
	worksheetOrder = []string{"sheetPr", "dimension", "sheetViews", "sheetFormatPr", "cols", "sheetData",
		"sheetCalcPr", "sheetProtection", "protectedRanges", "scenarios", "autoFilter", "sortState",
		"dataConsolidate", "customSheetViews", "mergeCells", "phoneticPr", "conditionalFormatting",
		"dataValidations", "hyperlinks", "printOptions", "pageMargins", "pageSetup", "headerFooter",
		"rowBreaks", "colBreaks", "customProperties", "cellWatches", "ignoredErrors", "smartTags",
		"drawing", "legacyDrawing", "legacyDrawingHF", "drawingHF", "picture", "oleObjects", "controls",
		"webPublishItems", "tableParts", "extLst"}
	rowAttrOrder  = []string{"r", "spans", "s", "customFormat", "ht", "hidden", "customHeight", "outlineLevel", "collapsed"}
	cellAttrOrder = []string{"r", "s", "t", "cm", "vm", "ph"}
)

// Row is a row element of sheetData.
type Row struct {
	Num   int
	elem  *xmltree.Element
	cells []*Cell
}

// Cell is a c element.
type Cell struct {
	Ref  ref.Cell
	elem *xmltree.Element
	ws   *Worksheet
}

// Worksheet models a worksheet part. Cells are addressed by position; rows
// and cells are created on demand in ascending order.
type Worksheet struct {
	doc
	Format ref.Format

	data     *xmltree.Element
	rows     []*Row
	implicit bool // some row or cell relies on positional numbering
	groups   []*formulaGroup
	scanned  bool
}

// ParseWorksheet parses a sheet part and indexes its rows. Rows and cells
// without an r attribute are numbered by position. f sets the bounds
// checked by later edits.
func ParseWorksheet(name string, data []byte, f ref.Format) (*Worksheet, error) {
	d, err := parseDoc(name, data, "worksheet")
	if err != nil {
		return nil, err
	}
	ws := &Worksheet{doc: d, Format: f}
	ws.data = ws.x.Root.First("sheetData")
	if err := ws.index(); err != nil {
		return nil, err
	}
	return ws, nil
}

func (ws *Worksheet) index() error {
	ws.rows = ws.rows[:0]
	ws.implicit = false
	if ws.data == nil {
		return nil
	}
	last := 0
	for _, re := range ws.data.All("row") {
		n := last + 1
		if v, ok := re.Attr("r"); ok {
			var err error
			if n, err = strconv.Atoi(v); err != nil || n < 1 {
				return xlerr.New(xlerr.KindMalformedXML, "bad row number %q", v).WithPart(ws.name)
			}
		} else {
			ws.implicit = true
		}
		if n <= last {
			return xlerr.New(xlerr.KindMalformedXML, "row %d follows row %d", n, last).WithPart(ws.name)
		}
		row := &Row{Num: n, elem: re}
		col := 0
		for _, ce := range re.All("c") {
			c := ref.Cell{Row: n, Col: col + 1}
			if v, ok := ce.Attr("r"); ok {
				var err error
				if c, err = ref.ParseCell(v); err != nil {
					return xlerr.Wrap(xlerr.KindMalformedXML, err, "bad cell reference").WithPart(ws.name).WithRef(v)
				}
				if c.Row != n {
					return xlerr.New(xlerr.KindMalformedXML, "cell outside its row %d", n).WithPart(ws.name).WithRef(v)
				}
			} else {
				ws.implicit = true
			}
			if c.Col <= col {
				return xlerr.New(xlerr.KindMalformedXML, "cells of row %d out of order", n).WithPart(ws.name).WithRef(c.String())
			}
			row.cells = append(row.cells, &Cell{Ref: c, elem: ce, ws: ws})
			col = c.Col
		}
		ws.rows = append(ws.rows, row)
		last = n
	}
	return nil
}

// materialize gives every row and cell an explicit reference so that
// positional numbering survives insertions.
func (ws *Worksheet) materialize() {
	if !ws.implicit {
		return
	}
	for _, row := range ws.rows {
		row.elem.SetAttr("r", strconv.Itoa(row.Num), rowAttrOrder)
		for _, c := range row.cells {
			c.elem.SetAttr("r", c.Ref.String(), cellAttrOrder)
		}
	}
	ws.implicit = false
}

// Rows returns the rows in document order.
func (ws *Worksheet) Rows() []*Row {
	return ws.rows
}

// Cells returns the cells of a row in document order.
func (r *Row) Cells() []*Cell {
	return r.cells
}

func (ws *Worksheet) row(n int) (*Row, int) {
	i := sort.Search(len(ws.rows), func(i int) bool { return ws.rows[i].Num >= n })
	if i < len(ws.rows) && ws.rows[i].Num == n {
		return ws.rows[i], i
	}
	return nil, i
}

func (r *Row) cell(col int) (*Cell, int) {
	i := sort.Search(len(r.cells), func(i int) bool { return r.cells[i].Ref.Col >= col })
	if i < len(r.cells) && r.cells[i].Ref.Col == col {
		return r.cells[i], i
	}
	return nil, i
}

// Cell returns the cell at c, nil if the sheet has none there.
func (ws *Worksheet) Cell(c ref.Cell) *Cell {
	row, _ := ws.row(c.Row)
	if row == nil {
		return nil
	}
	cell, _ := row.cell(c.Col)
	return cell
}

// EnsureCell returns the cell at c, creating the row and the cell in
// sorted position when they do not exist.
func (ws *Worksheet) EnsureCell(c ref.Cell) (*Cell, error) {
	if err := ws.Format.Check(c); err != nil {
		return nil, xlerr.InPart(err, ws.name)
	}
	if cell := ws.Cell(c); cell != nil {
		return cell, nil
	}
	ws.materialize()
	if ws.data == nil {
		ws.data = child(ws.x.Root, "sheetData", followers(worksheetOrder, "sheetData")...)
	}
	row, i := ws.row(c.Row)
	if row == nil {
		e := adopt(ws.data, render(func(x *xml.Writer) {
			x.OTag("row").Attr("r", c.Row).CTag()
		}))
		if i < len(ws.rows) {
			ws.data.Insert(ws.data.Index(ws.rows[i].elem), e)
		} else {
			ws.data.InsertBefore(e, "extLst")
		}
		row = &Row{Num: c.Row, elem: e}
		ws.rows = append(ws.rows, nil)
		copy(ws.rows[i+1:], ws.rows[i:])
		ws.rows[i] = row
	}
	_, j := row.cell(c.Col)
	e := adopt(row.elem, render(func(x *xml.Writer) {
		x.OTag("c").Attr("r", c.String()).CTag()
	}))
	if j < len(row.cells) {
		row.elem.Insert(row.elem.Index(row.cells[j].elem), e)
	} else {
		row.elem.InsertBefore(e, "extLst")
	}
	cell := &Cell{Ref: c, elem: e, ws: ws}
	row.cells = append(row.cells, nil)
	copy(row.cells[j+1:], row.cells[j:])
	row.cells[j] = cell
	row.widenSpans(c.Col)
	ws.extendDimension(c)
	return cell, nil
}

func (r *Row) widenSpans(col int) {
	v, ok := r.elem.Attr("spans")
	if !ok {
		return
	}
	lo, hi, ok := parseSpans(v)
	if !ok || (col >= lo && col <= hi) {
		return
	}
	r.elem.SetAttr("spans", strconv.Itoa(min(lo, col))+":"+strconv.Itoa(max(hi, col)), rowAttrOrder)
}

func parseSpans(v string) (int, int, bool) {
	a, b, ok := strings.Cut(v, ":")
	if !ok {
		return 0, 0, false
	}
	lo, err1 := strconv.Atoi(a)
	hi, err2 := strconv.Atoi(b)
	return lo, hi, err1 == nil && err2 == nil
}

// Dimension returns the used range recorded in the part.
func (ws *Worksheet) Dimension() (ref.Range, bool) {
	d := ws.x.Root.First("dimension")
	if d == nil {
		return ref.Range{}, false
	}
	r, err := ref.ParseRange(d.AttrOr("ref", ""))
	return r, err == nil
}

func (ws *Worksheet) extendDimension(c ref.Cell) {
	d := ws.x.Root.First("dimension")
	if d == nil {
		return
	}
	r, err := ref.ParseRange(d.AttrOr("ref", ""))
	if err != nil {
		return
	}
	if ws.isEmptyDimension(r) {
		d.SetAttr("ref", c.String(), nil)
		return
	}
	if !r.Contains(c) {
		d.SetAttr("ref", r.Union(ref.Range{Min: c, Max: c}).String(), nil)
	}
}

// isEmptyDimension tells the "A1" placeholder of an empty sheet apart from
// a sheet whose only cell is A1.
func (ws *Worksheet) isEmptyDimension(r ref.Range) bool {
	return r.Single() && r.Min == (ref.Cell{Row: 1, Col: 1}) && ws.Cell(r.Min) == nil
}

// Element exposes the underlying c element.
func (c *Cell) Element() *xmltree.Element {
	return c.elem
}

// Type returns the t attribute, "n" when absent.
func (c *Cell) Type() string {
	return c.elem.AttrOr("t", "n")
}

// Value returns the text of the v child.
func (c *Cell) Value() string {
	if v := c.elem.First("v"); v != nil {
		return v.Text()
	}
	return ""
}

// InlineText returns the text of an inline string cell.
func (c *Cell) InlineText() string {
	if is := c.elem.First("is"); is != nil {
		return richText(is)
	}
	return ""
}

// Formula returns the formula text, "" if the cell has none or is a
// dependent of a shared formula.
func (c *Cell) Formula() string {
	if f := c.elem.First("f"); f != nil {
		return f.Text()
	}
	return ""
}

// StyleID returns the cell format id.
func (c *Cell) StyleID() int {
	return attrInt(c.elem, "s")
}

// SetStyleID sets the cell format id; 0 removes the attribute.
func (c *Cell) SetStyleID(id int) {
	if id == 0 {
		c.elem.RemoveAttr("s")
		return
	}
	c.elem.SetAttr("s", strconv.Itoa(id), cellAttrOrder)
}

func (c *Cell) setType(t string) {
	if t == "" || t == "n" {
		c.elem.RemoveAttr("t")
		return
	}
	c.elem.SetAttr("t", t, cellAttrOrder)
}

func (c *Cell) drop(locals ...string) {
	if c.ws != nil {
		c.ws.invalidate()
	}
	for _, local := range locals {
		for _, e := range c.elem.All(local) {
			c.elem.Remove(e)
		}
	}
}

// SetValue stores a value of cell type t ("" for numbers) with v as the
// text of the v element. Any formula is removed.
func (c *Cell) SetValue(t, v string) {
	c.drop("f", "is")
	c.elem.RemoveAttr("cm")
	c.elem.RemoveAttr("vm")
	c.setType(t)
	child(c.elem, "v", "is", "extLst").SetText(v)
}

// SetInlineString stores text in the cell itself rather than in the shared
// string table.
func (c *Cell) SetInlineString(text string) {
	c.drop("f", "v", "is")
	c.elem.RemoveAttr("cm")
	c.elem.RemoveAttr("vm")
	c.setType("inlineStr")
	is := render(func(x *xml.Writer) {
		x.OTag("is")
		writeText(x, text)
		x.CTag()
	})
	c.elem.InsertBefore(adopt(c.elem, is), "extLst")
}

// SetFormula stores a formula with an optional cached result of type t.
func (c *Cell) SetFormula(formula, t, v string) {
	c.drop("f", "v", "is")
	c.elem.RemoveAttr("cm")
	c.elem.RemoveAttr("vm")
	f := xmltree.NewElement(c.elem.Qualify("f"))
	f.SetText(strings.TrimPrefix(formula, "="))
	c.elem.InsertBefore(f, "v", "is", "extLst")
	if v == "" {
		c.setType("")
		return
	}
	c.setType(t)
	child(c.elem, "v", "is", "extLst").SetText(v)
}

// Clear removes value and formula but keeps the cell and its format.
func (c *Cell) Clear() {
	c.drop("f", "v", "is")
	for _, name := range []string{"t", "cm", "vm"} {
		c.elem.RemoveAttr(name)
	}
}
