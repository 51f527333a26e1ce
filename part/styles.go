package part

import (
	"slices"
	"strconv"
	"strings"

	"github.com/adnsv/srw/xml"

	"github.com/adnsv/go-xlpatch/table"
	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/adnsv/go-xlpatch/xmltree"
)

// NumFmt is a number format record.
type NumFmt struct {
	ID   int
	Code string
}

// Styles models xl/styles.xml. Fonts, fills, borders, number formats and
// cell formats live in append-only tables keyed by structure, so applying
// the same format twice yields the same cell format id.
type Styles struct {
	doc
	numFmts *table.Arena[string, NumFmt]
	fonts   *table.Arena[string, *xmltree.Element]
	fills   *table.Arena[string, *xmltree.Element]
	borders *table.Arena[string, *xmltree.Element]
	xfs     *table.Arena[string, *xmltree.Element]

	nextNumFmt int
	flushed    map[string]int
}

var (
	styleSheetOrder = []string{"numFmts", "fonts", "fills", "borders", "cellStyleXfs", "cellXfs",
		"cellStyles", "dxfs", "tableStyles", "colors", "extLst"}
	fontOrder = []string{"b", "i", "strike", "condense", "extend", "outline", "shadow", "u",
		"vertAlign", "sz", "color", "name", "family", "charset", "scheme"}
	borderOrder = []string{"start", "end", "left", "right", "top", "bottom", "diagonal", "vertical", "horizontal"}
	xfAttrOrder = []string{"numFmtId", "fontId", "fillId", "borderId", "xfId", "quotePrefix", "pivotButton",
		"applyNumberFormat", "applyFont", "applyFill", "applyBorder", "applyAlignment", "applyProtection"}
	alignmentAttrOrder = []string{"horizontal", "vertical", "textRotation", "wrapText", "indent",
		"relativeIndent", "justifyLastLine", "shrinkToFit", "readingOrder"}
)

// followers returns the names that come after local in a schema sequence.
func followers(order []string, local string) []string {
	if i := slices.Index(order, local); i >= 0 {
		return order[i+1:]
	}
	return nil
}

// ParseStyles parses a style sheet and loads its number formats, fonts,
// fills, borders and cellXfs into dedup tables, keeping their ids.
func ParseStyles(name string, data []byte) (*Styles, error) {
	d, err := parseDoc(name, data, "styleSheet")
	if err != nil {
		return nil, err
	}
	s := &Styles{
		doc:        d,
		numFmts:    table.New[string, NumFmt]("number format"),
		fonts:      table.New[string, *xmltree.Element]("font"),
		fills:      table.New[string, *xmltree.Element]("fill"),
		borders:    table.New[string, *xmltree.Element]("border"),
		xfs:        table.New[string, *xmltree.Element]("cell format"),
		nextNumFmt: FirstCustomNumFmt,
		flushed:    map[string]int{},
	}
	root := d.x.Root
	if c := root.First("numFmts"); c != nil {
		for _, e := range c.All("numFmt") {
			id, err := strconv.Atoi(e.AttrOr("numFmtId", ""))
			if err != nil {
				return nil, xlerr.Wrap(xlerr.KindMalformedXML, err, "bad numFmtId").WithPart(name)
			}
			code := e.AttrOr("formatCode", "")
			s.numFmts.Load(code, NumFmt{ID: id, Code: code})
			s.nextNumFmt = max(s.nextNumFmt, id+1)
		}
	}
	load := func(container, item string, t *table.Arena[string, *xmltree.Element], key func(*xmltree.Element) string) {
		if c := root.First(container); c != nil {
			for _, e := range c.All(item) {
				t.Load(key(e), e)
			}
		}
	}
	load("fonts", "font", s.fonts, (*xmltree.Element).Canonical)
	load("fills", "fill", s.fills, (*xmltree.Element).Canonical)
	load("borders", "border", s.borders, (*xmltree.Element).Canonical)
	load("cellXfs", "xf", s.xfs, xfKey)
	return s, nil
}

// NewStyles creates a minimal style sheet holding the default font, the two
// reserved fills, an empty border and the default cell format.
func NewStyles(name string) *Styles {
	data := renderPart(func(x *xml.Writer) {
		x.OTag("styleSheet")
		x.Attr("xmlns", NSMain)

		x.OTag("fonts").Attr("count", 1)
		x.OTag("font")
		x.OTag("sz").Attr("val", 11).CTag()
		x.OTag("color").Attr("theme", 1).CTag()
		x.OTag("name").Attr("val", "Calibri").CTag()
		x.OTag("family").Attr("val", 2).CTag()
		x.OTag("scheme").Attr("val", "minor").CTag()
		x.CTag() // font
		x.CTag() // fonts

		x.OTag("fills").Attr("count", 2)
		x.OTag("fill").OTag("patternFill").Attr("patternType", "none").CTag()
		x.CTag()
		x.OTag("fill").OTag("patternFill").Attr("patternType", "gray125").CTag()
		x.CTag()
		x.CTag() // fills

		x.OTag("borders").Attr("count", 1)
		x.OTag("border")
		x.OTag("left").CTag()
		x.OTag("right").CTag()
		x.OTag("top").CTag()
		x.OTag("bottom").CTag()
		x.OTag("diagonal").CTag()
		x.CTag() // border
		x.CTag() // borders

		x.OTag("cellStyleXfs").Attr("count", 1)
		x.OTag("xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).CTag()
		x.CTag()

		x.OTag("cellXfs").Attr("count", 1)
		x.OTag("xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).Attr("xfId", 0).CTag()
		x.CTag()

		x.OTag("cellStyles").Attr("count", 1)
		x.OTag("cellStyle").Attr("name", "Normal").Attr("xfId", 0).Attr("builtinId", 0).CTag()
		x.CTag()

		x.CTag() // styleSheet
	})
	s, err := ParseStyles(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// xfKey is the structural key of a cell format. The apply* flags only
// tell a consumer which parts to honor and do not take part in identity.
func xfKey(xf *xmltree.Element) string {
	c := xf.Clone()
	for _, a := range xf.Attrs {
		if strings.HasPrefix(a.Name, "apply") {
			c.RemoveAttr(a.Name)
		}
	}
	for _, name := range []string{"numFmtId", "fontId", "fillId", "borderId"} {
		if _, ok := c.Attr(name); !ok {
			c.SetAttr(name, "0", nil)
		}
	}
	return c.Canonical()
}

func attrInt(e *xmltree.Element, name string) int {
	n, _ := strconv.Atoi(e.AttrOr(name, "0"))
	return n
}

// CellFormats returns the number of cell formats.
func (s *Styles) CellFormats() int {
	return s.xfs.Len()
}

// XfInfo describes a cell format.
type XfInfo struct {
	NumFmtID   int
	NumFmtCode string
	FontID     int
	FillID     int
	BorderID   int
	Font       *xmltree.Element
	Fill       *xmltree.Element
	Border     *xmltree.Element
	Alignment  *xmltree.Element
}

// Describe resolves the components of cell format id.
func (s *Styles) Describe(id int) (XfInfo, error) {
	xf, err := s.xfs.Resolve(id)
	if err != nil {
		return XfInfo{}, xlerr.InPart(err, s.name)
	}
	info := XfInfo{
		NumFmtID:  attrInt(xf, "numFmtId"),
		FontID:    attrInt(xf, "fontId"),
		FillID:    attrInt(xf, "fillId"),
		BorderID:  attrInt(xf, "borderId"),
		Alignment: xf.First("alignment"),
	}
	info.NumFmtCode = s.numFmtCode(info.NumFmtID)
	info.Font, _ = s.fonts.Resolve(info.FontID)
	info.Fill, _ = s.fills.Resolve(info.FillID)
	info.Border, _ = s.borders.Resolve(info.BorderID)
	return info, nil
}

// NumFmtCode returns the number format code of cell format id, "General"
// when it cannot be resolved.
func (s *Styles) NumFmtCode(id int) string {
	xf, err := s.xfs.Resolve(id)
	if err != nil {
		return "General"
	}
	return s.numFmtCode(attrInt(xf, "numFmtId"))
}

func (s *Styles) numFmtCode(numFmtID int) string {
	if code, ok := BuiltinNumFmt(numFmtID); ok {
		return code
	}
	for i := 0; i < s.numFmts.Len(); i++ {
		nf, _ := s.numFmts.Resolve(i)
		if nf.ID == numFmtID {
			return nf.Code
		}
	}
	return "General"
}

// Apply returns the id of the cell format that equals cell format base with
// f laid over it, appending records to the tables as needed.
func (s *Styles) Apply(base int, f Format) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	s.seed()
	xf, err := s.xfs.Resolve(base)
	if err != nil {
		return 0, xlerr.InPart(err, s.name)
	}
	if f.Empty() {
		return base, nil
	}

	nx := xf.Clone()
	if f.NumberFormat != nil {
		nx.SetAttr("numFmtId", strconv.Itoa(s.numFmtFor(*f.NumberFormat)), xfAttrOrder)
		nx.SetAttr("applyNumberFormat", "1", xfAttrOrder)
	}
	if f.hasFont() {
		id, err := s.fontFor(attrInt(nx, "fontId"), f)
		if err != nil {
			return 0, err
		}
		nx.SetAttr("fontId", strconv.Itoa(id), xfAttrOrder)
		nx.SetAttr("applyFont", "1", xfAttrOrder)
	}
	if f.hasFill() {
		id, err := s.fillFor(attrInt(nx, "fillId"), f)
		if err != nil {
			return 0, err
		}
		nx.SetAttr("fillId", strconv.Itoa(id), xfAttrOrder)
		nx.SetAttr("applyFill", "1", xfAttrOrder)
	}
	if f.hasBorder() {
		id, err := s.borderFor(attrInt(nx, "borderId"), f)
		if err != nil {
			return 0, err
		}
		nx.SetAttr("borderId", strconv.Itoa(id), xfAttrOrder)
		nx.SetAttr("applyBorder", "1", xfAttrOrder)
	}
	if f.hasAlignment() {
		applyAlignment(nx, f)
	}

	id, _ := s.xfs.GetOrInsert(xfKey(nx), nx)
	return id, nil
}

func (s *Styles) numFmtFor(code string) int {
	if id, ok := builtinNumFmtIDs[code]; ok {
		return id
	}
	if i, ok := s.numFmts.Lookup(code); ok {
		nf, _ := s.numFmts.Resolve(i)
		return nf.ID
	}
	nf := NumFmt{ID: s.nextNumFmt, Code: code}
	s.nextNumFmt++
	s.numFmts.GetOrInsert(code, nf)
	return nf.ID
}

// seed fills empty tables with the records every style sheet is expected
// to start with, so that id 0 keeps meaning "default".
func (s *Styles) seed() {
	root := s.x.Root
	if s.fonts.Len() == 0 {
		e := adopt(root, render(func(x *xml.Writer) {
			x.OTag("font")
			x.OTag("sz").Attr("val", 11).CTag()
			x.OTag("name").Attr("val", "Calibri").CTag()
			x.CTag()
		}))
		s.fonts.GetOrInsert(e.Canonical(), e)
	}
	if s.fills.Len() == 0 {
		for _, pattern := range []string{"none", "gray125"} {
			e := adopt(root, render(func(x *xml.Writer) {
				x.OTag("fill").OTag("patternFill").Attr("patternType", pattern).CTag()
				x.CTag()
			}))
			s.fills.GetOrInsert(e.Canonical(), e)
		}
	}
	if s.borders.Len() == 0 {
		e := adopt(root, render(func(x *xml.Writer) {
			x.OTag("border").CTag()
		}))
		s.borders.GetOrInsert(e.Canonical(), e)
	}
	if s.xfs.Len() == 0 {
		e := adopt(root, render(func(x *xml.Writer) {
			x.OTag("xf").Attr("numFmtId", 0).Attr("fontId", 0).Attr("fillId", 0).Attr("borderId", 0).Attr("xfId", 0).CTag()
		}))
		s.xfs.GetOrInsert(xfKey(e), e)
	}
}

// record returns a detached copy of record id of t.
func (s *Styles) record(t *table.Arena[string, *xmltree.Element], id int) (*xmltree.Element, error) {
	e, err := t.Resolve(id)
	if err != nil {
		return nil, xlerr.InPart(err, s.name)
	}
	return e.Clone(), nil
}

func (s *Styles) fontFor(id int, f Format) (int, error) {
	font, err := s.record(s.fonts, id)
	if err != nil {
		return 0, err
	}
	setFlag(font, "b", f.Bold)
	setFlag(font, "i", f.Italic)
	setFlag(font, "strike", f.Strike)
	if f.Underline != nil {
		if u := font.First("u"); u != nil {
			font.Remove(u)
		}
		switch *f.Underline {
		case "", "none":
		case "single":
			font.InsertBefore(xmltree.NewElement(font.Qualify("u")), followers(fontOrder, "u")...)
		default:
			u := xmltree.NewElement(font.Qualify("u"))
			u.SetAttr("val", *f.Underline, nil)
			font.InsertBefore(u, followers(fontOrder, "u")...)
		}
	}
	if f.FontSize != nil {
		child(font, "sz", followers(fontOrder, "sz")...).SetAttr("val", strconv.FormatFloat(*f.FontSize, 'f', -1, 64), nil)
	}
	if f.FontColor != nil {
		if err := setColor(font, "color", *f.FontColor, followers(fontOrder, "color")); err != nil {
			return 0, err
		}
	}
	if f.FontName != nil {
		child(font, "name", followers(fontOrder, "name")...).SetAttr("val", *f.FontName, nil)
	}
	id, _ = s.fonts.GetOrInsert(font.Canonical(), font)
	return id, nil
}

func setFlag(font *xmltree.Element, local string, v *bool) {
	if v == nil {
		return
	}
	e := font.First(local)
	switch {
	case !*v && e != nil:
		font.Remove(e)
	case *v && e == nil:
		font.InsertBefore(xmltree.NewElement(font.Qualify(local)), followers(fontOrder, local)...)
	case *v:
		e.RemoveAttr("val")
	}
}

// setColor replaces the named color child of e with an RGB one, or removes
// it when color is empty.
func setColor(e *xmltree.Element, local, color string, before []string) error {
	if c := e.First(local); c != nil {
		e.Remove(c)
	}
	if color == "" || color == "none" {
		return nil
	}
	rgb, err := NormalizeColor(color)
	if err != nil {
		return err
	}
	c := xmltree.NewElement(e.Qualify(local))
	c.SetAttr("rgb", rgb, nil)
	e.InsertBefore(c, before...)
	return nil
}

func (s *Styles) fillFor(id int, f Format) (int, error) {
	var fill *xmltree.Element
	if f.FillColor != nil {
		pattern := "solid"
		if f.FillPattern != nil {
			pattern = *f.FillPattern
		}
		color := *f.FillColor
		if color == "" || color == "none" {
			pattern = "none"
		}
		rgb := ""
		if pattern != "none" {
			var err error
			if rgb, err = NormalizeColor(color); err != nil {
				return 0, err
			}
		}
		fill = adopt(s.x.Root, render(func(x *xml.Writer) {
			x.OTag("fill")
			x.OTag("patternFill").Attr("patternType", pattern)
			if rgb != "" {
				x.OTag("fgColor").Attr("rgb", rgb).CTag()
				x.OTag("bgColor").Attr("indexed", 64).CTag()
			}
			x.CTag()
			x.CTag()
		}))
	} else {
		var err error
		fill, err = s.record(s.fills, id)
		if err != nil {
			return 0, err
		}
		child(fill, "patternFill", "gradientFill").SetAttr("patternType", *f.FillPattern, nil)
	}
	id, _ = s.fills.GetOrInsert(fill.Canonical(), fill)
	return id, nil
}

func (s *Styles) borderFor(id int, f Format) (int, error) {
	border, err := s.record(s.borders, id)
	if err != nil {
		return 0, err
	}
	for _, side := range []string{"left", "right", "top", "bottom"} {
		e := child(border, side, followers(borderOrder, side)...)
		if f.BorderStyle != nil {
			st := *f.BorderStyle
			if st == "" || st == "none" {
				e.RemoveAttr("style")
				if c := e.First("color"); c != nil {
					e.Remove(c)
				}
				continue
			}
			e.SetAttr("style", st, nil)
		}
		if f.BorderColor != nil {
			if _, ok := e.Attr("style"); !ok {
				continue
			}
			if err := setColor(e, "color", *f.BorderColor, nil); err != nil {
				return 0, err
			}
		}
	}
	id, _ = s.borders.GetOrInsert(border.Canonical(), border)
	return id, nil
}

func applyAlignment(xf *xmltree.Element, f Format) {
	al := child(xf, "alignment", "protection", "extLst")
	set := func(name string, v *string) {
		if v != nil {
			al.SetAttr(name, *v, alignmentAttrOrder)
		}
	}
	set("horizontal", f.HAlign)
	set("vertical", f.VAlign)
	if f.Rotation != nil {
		if *f.Rotation == 0 {
			al.RemoveAttr("textRotation")
		} else {
			al.SetAttr("textRotation", strconv.Itoa(*f.Rotation), alignmentAttrOrder)
		}
	}
	if f.WrapText != nil {
		if *f.WrapText {
			al.SetAttr("wrapText", "1", alignmentAttrOrder)
		} else {
			al.RemoveAttr("wrapText")
		}
	}
	if f.Indent != nil {
		if *f.Indent == 0 {
			al.RemoveAttr("indent")
		} else {
			al.SetAttr("indent", strconv.Itoa(*f.Indent), alignmentAttrOrder)
		}
	}
	if len(al.Attrs) == 0 {
		xf.Remove(al)
		xf.RemoveAttr("applyAlignment")
		return
	}
	xf.SetAttr("applyAlignment", "1", xfAttrOrder)
}

// Flush appends new records to their containers and updates the counts.
func (s *Styles) Flush() {
	root := s.x.Root
	if s.numFmts.Grew() {
		c := child(root, "numFmts", followers(styleSheetOrder, "numFmts")...)
		_, added := s.numFmts.Added()
		for _, nf := range added[s.flushed["numFmts"]:] {
			e := render(func(x *xml.Writer) {
				x.OTag("numFmt").Attr("numFmtId", nf.ID).Attr("formatCode", nf.Code).CTag()
			})
			c.Append(adopt(root, e))
		}
		s.flushed["numFmts"] = len(added)
		c.SetAttr("count", strconv.Itoa(s.numFmts.Len()), nil)
	}
	s.flushTable("fonts", s.fonts)
	s.flushTable("fills", s.fills)
	s.flushTable("borders", s.borders)
	s.flushTable("cellXfs", s.xfs)
}

func (s *Styles) flushTable(container string, t *table.Arena[string, *xmltree.Element]) {
	if !t.Grew() {
		return
	}
	root := s.x.Root
	c := child(root, container, followers(styleSheetOrder, container)...)
	_, added := t.Added()
	for _, e := range added[s.flushed[container]:] {
		c.Append(e)
	}
	s.flushed[container] = len(added)
	c.SetAttr("count", strconv.Itoa(t.Len()), nil)
}
