package xl

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adnsv/srw/xml"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"

	"github.com/adnsv/go-xlpatch/opc"
	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

const (
	typeWorkbook           = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	typeWorksheet          = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
	typeCoreProps          = "application/vnd.openxmlformats-package.core-properties+xml"
	typeAppProps           = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	typeMetadata           = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheetMetadata+xml"
	typeRichValueRel       = "application/vnd.ms-excel.richvaluerel+xml"
	typeRichValueStructure = "application/vnd.ms-excel.rdrichvaluestructure+xml"
	typeRichValue          = "application/vnd.ms-excel.rdrichvalue+xml"

	relCoreProps          = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	relAppProps           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	relMetadata           = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sheetMetadata"
	relImage              = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	relRichValueRel       = "http://schemas.microsoft.com/office/2022/10/relationships/richValueRel"
	relRichValueStructure = "http://schemas.microsoft.com/office/2017/06/relationships/rdRichValueStructure"
	relRichValue          = "http://schemas.microsoft.com/office/2017/06/relationships/rdRichValue"

	nsRichData    = "http://schemas.microsoft.com/office/spreadsheetml/2017/richdata"
	nsRichDataRel = "http://schemas.microsoft.com/office/spreadsheetml/2022/richvaluerel"
)

// Writer serializes one workbook into a Storage. Strings and styles go
// through the same tables the patcher uses, so the output is what the
// patcher expects to read.
type Writer struct {
	out     Storage
	written bool
	debug   bool

	packageRels  relSet
	workbookRels relSet
	richDataRels relSet
	defaults     map[string]string // extension -> content type
	overrides    map[string]string // part name -> content type

	sst      *part.SharedStrings
	styles   *part.Styles
	styleIDs map[Style]int

	media    []*MediaInfo
	mediaMap map[string]*MediaInfo // keyed by media name
}

// RelInfo is one relationship of a written part.
type RelInfo struct {
	Type   string
	Target string // relative to the source part
}

// relSet numbers the relationships of one source part.
type relSet struct {
	last  int
	items map[string]RelInfo
}

func (r *relSet) add(typ, target string) string {
	if r.items == nil {
		r.items = map[string]RelInfo{}
	}
	r.last++
	id := fmt.Sprintf("rId%d", r.last)
	r.items[id] = RelInfo{Type: typ, Target: target}
	return id
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDebugLog writes a Debug level summary of each workbook to the fiber
// logger.
func WithDebugLog(enabled bool) WriterOption {
	return func(w *Writer) {
		w.debug = enabled
	}
}

// NewWriter creates a writer that puts the parts of one workbook into s.
func NewWriter(s Storage, opts ...WriterOption) *Writer {
	w := &Writer{
		out: s,
		defaults: map[string]string{
			"xml":  "application/xml",
			"rels": "application/vnd.openxmlformats-package.relationships+xml",
		},
		overrides: map[string]string{},
		sst:       part.NewSharedStrings("xl/sharedStrings.xml"),
		styles:    part.NewStyles("xl/styles.xml"),
		styleIDs:  map[Style]int{},
		mediaMap:  map[string]*MediaInfo{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SharedString returns the index of s in the shared string table and
// counts one more reference to it.
func (w *Writer) SharedString(s string) int {
	w.sst.AddRefs(1)
	return w.sst.Intern(s)
}

// StyleID returns the cell format index for s.
func (w *Writer) StyleID(s Style) (int, error) {
	if id, ok := w.styleIDs[s]; ok {
		return id, nil
	}
	id, err := w.styles.Apply(0, s.Format())
	if err != nil {
		return 0, err
	}
	w.styleIDs[s] = id
	return id, nil
}

// Write serializes wb. A Writer writes a single workbook.
func (w *Writer) Write(wb *Workbook) error {
	if w.written {
		return errors.New("xl: writer already used")
	}
	w.written = true

	if len(wb.Sheets) == 0 {
		return xlerr.New(xlerr.KindInvalidEdit, "workbook has no sheets")
	}
	if !slices.ContainsFunc(wb.Sheets, func(sh *Sheet) bool { return !sh.Hidden }) {
		return xlerr.New(xlerr.KindInvalidEdit, "workbook has no visible sheet")
	}

	steps := []func() error{
		func() error { return w.writeWorkbook(wb) },
		w.writeRichData, // media is collected while the sheets are written
		func() error { return w.writeCoreProperties(wb.Created) },
		func() error { return w.writeExtendedProperties(wb.AppName) },
		func() error {
			if w.sst.Len() == 0 {
				return nil
			}
			return w.writePart(w.sst, part.TypeSharedStrings, part.RelSharedStrings)
		},
		func() error { return w.writePart(w.styles, part.TypeStyles, part.RelStyles) },
		func() error { return w.writeRels("xl/_rels/workbook.xml.rels", w.workbookRels) },
		func() error { return w.writeRels("_rels/.rels", w.packageRels) },
		w.writeContentTypes,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if w.debug {
		log.Debug(fmt.Sprintf("xl: wrote %d sheets, %d shared strings, %d cell formats, %d media",
			len(wb.Sheets), w.sst.Len(), w.styles.CellFormats(), len(w.media)))
	}
	return nil
}

// writeRichData stores the pictures of picture cells with the rich value
// parts that reference them.
func (w *Writer) writeRichData() error {
	if len(w.media) == 0 {
		return nil
	}
	for _, step := range []func() error{
		w.writeMedia,
		w.writeRichValueRel,
		func() error { return w.writeRels("xl/richData/_rels/richValueRel.xml.rels", w.richDataRels) },
		w.writeRichValueStructure,
		w.writeRichValueData,
		w.writeMetadata,
	} {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// emit writes one XML part and registers its content type.
func (w *Writer) emit(name, ctype string, body func(x *xml.Writer) error) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})
	x.XmlStandaloneDecl()
	if err := body(x); err != nil {
		return err
	}
	if ctype != "" {
		w.overrides["/"+name] = ctype
	}
	return w.out.WriteBlob(name, bb.Bytes())
}

func (w *Writer) writeCoreProperties(created time.Time) error {
	const name = "docProps/core.xml"
	w.packageRels.add(relCoreProps, name)
	if created.IsZero() {
		created = time.Now()
	}
	return w.emit(name, typeCoreProps, func(x *xml.Writer) error {
		x.OTag("cp:coreProperties")
		x.Attr("xmlns:cp", "http://schemas.openxmlformats.org/package/2006/metadata/core-properties")
		x.Attr("xmlns:dc", "http://purl.org/dc/elements/1.1/")
		x.Attr("xmlns:dcterms", "http://purl.org/dc/terms/")
		x.Attr("xmlns:dcmitype", "http://purl.org/dc/dcmitype/")
		x.Attr("xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance")
		x.OTag("+dcterms:created").Attr("xsi:type", "dcterms:W3CDTF")
		x.Write(created.UTC().Format(time.RFC3339)).CTag()
		x.CTag()
		return nil
	})
}

func (w *Writer) writeExtendedProperties(app string) error {
	const name = "docProps/app.xml"
	w.packageRels.add(relAppProps, name)
	return w.emit(name, typeAppProps, func(x *xml.Writer) error {
		x.OTag("Properties")
		x.Attr("xmlns", "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties")
		x.Attr("xmlns:vt", "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes")
		if app != "" {
			x.OTag("+Application").String(app).CTag()
		}
		x.CTag()
		return nil
	})
}

func (w *Writer) writeContentTypes() error {
	return w.emit("[Content_Types].xml", "", func(x *xml.Writer) error {
		x.OTag("Types").Attr("xmlns", part.NSContentTypes)
		enumerate(w.defaults, func(ext, ctype string) error {
			x.OTag("+Default").Attr("Extension", ext).Attr("ContentType", ctype).CTag()
			return nil
		})
		enumerate(w.overrides, func(name, ctype string) error {
			x.OTag("+Override").Attr("PartName", name).Attr("ContentType", ctype).CTag()
			return nil
		})
		x.CTag()
		return nil
	})
}

// writePart flushes a part model built during the sheet pass and links it
// from the workbook.
func (w *Writer) writePart(p interface {
	part.Part
	Flush()
}, ctype, reltype string) error {
	p.Flush()
	w.workbookRels.add(reltype, part.RelativeTarget("xl/workbook.xml", p.PartName()))
	w.overrides["/"+p.PartName()] = ctype
	return w.out.WriteBlob(p.PartName(), p.Bytes())
}

func (w *Writer) writeWorkbook(wb *Workbook) error {
	const name = "xl/workbook.xml"
	w.packageRels.add(part.RelOfficeDocument, name)
	return w.emit(name, typeWorkbook, func(x *xml.Writer) error {
		x.OTag("workbook")
		x.Attr("xmlns", part.NSMain)
		x.Attr("xmlns:r", part.NSRelationships)
		if wb.Date1904 {
			x.OTag("+workbookPr").Attr("date1904", 1).CTag()
		}

		x.OTag("+sheets")
		for i, sh := range wb.Sheets {
			target := fmt.Sprintf("worksheets/sheet%d.xml", i+1)
			rid := w.workbookRels.add(part.RelWorksheet, target)
			x.OTag("+sheet").Attr("name", sh.Name).Attr("sheetId", i+1)
			if sh.Hidden {
				x.Attr("state", "hidden")
			}
			x.Attr("r:id", rid).CTag()

			if err := w.writeSheet(sh, "xl/"+target); err != nil {
				return fmt.Errorf("sheet %q: %w", sh.Name, err)
			}
		}
		x.CTag() // sheets
		x.CTag()
		return nil
	})
}

// dimension returns the area covered by the cells of sh.
func (sh *Sheet) dimension() (ref.Range, bool) {
	var rg ref.Range
	found := false
	for _, row := range sh.Rows {
		for _, c := range row.Cells {
			if found {
				rg = rg.Union(ref.Range{Min: c.coord, Max: c.coord})
			} else {
				rg, found = ref.Range{Min: c.coord, Max: c.coord}, true
			}
		}
	}
	return rg, found
}

func (w *Writer) writeSheet(sh *Sheet, name string) error {
	return w.emit(name, typeWorksheet, func(x *xml.Writer) error {
		x.OTag("worksheet")
		x.Attr("xmlns", part.NSMain)
		x.Attr("xmlns:r", part.NSRelationships)

		if dim, ok := sh.dimension(); ok {
			x.OTag("+dimension").Attr("ref", dim.String()).CTag()
		}

		if len(sh.Columns) > 0 {
			x.OTag("+cols")
			enumerate(sh.Columns, func(n int, col *Column) error {
				x.OTag("+col").Attr("min", n).Attr("max", n)
				if col.Width > 0 {
					x.Attr("width", col.Width).Attr("customWidth", 1)
				}
				x.CTag()
				return nil
			})
			x.CTag()
		}

		x.OTag("+sheetData")
		for _, row := range sh.Rows {
			if len(row.Cells) == 0 && row.Height <= 0 {
				continue
			}
			x.OTag("+row").Attr("r", row.rowNumber)
			if row.Height > 0 {
				x.Attr("ht", row.Height).Attr("customHeight", 1)
			}
			for _, cell := range row.Cells {
				if err := w.writeCell(x, cell); err != nil {
					return err
				}
			}
			x.CTag() // row
		}
		x.CTag() // sheetData

		if len(sh.Merged) > 0 {
			x.OTag("+mergeCells").Attr("count", len(sh.Merged))
			for _, m := range sh.Merged {
				x.OTag("+mergeCell").Attr("ref", m.String()).CTag()
			}
			x.CTag()
		}

		x.CTag() // worksheet
		return nil
	})
}

func (w *Writer) writeCell(x *xml.Writer, cell *Cell) error {
	if cell.typ == CellTypeUnset && cell.style == nil {
		return nil
	}
	if err := ref.Modern.Check(cell.coord); err != nil {
		return err
	}

	x.OTag("+c").Attr("r", cell.coord.String())
	if cell.style != nil {
		id, err := w.StyleID(*cell.style)
		if err != nil {
			return xlerr.Wrap(xlerr.KindOf(err), err, "cell style").WithRef(cell.coord.String())
		}
		if id != 0 {
			x.Attr("s", id)
		}
	}

	switch cell.typ {
	case CellTypeBool:
		x.Attr("t", "b")
		x.OTag("v").Write(cell.v).CTag()
	case CellTypeNumber:
		x.OTag("v").Write(cell.v).CTag()
	case CellTypeError:
		x.Attr("t", "e")
		x.OTag("v").Write(cell.v).CTag()
	case CellTypeSharedString:
		x.Attr("t", "s")
		x.OTag("v").Write(w.SharedString(cell.v)).CTag()
	case CellTypeInlineString:
		x.Attr("t", "inlineStr")
		x.OTag("is").OTag("t")
		if strings.TrimSpace(cell.v) != cell.v {
			x.Attr("xml:space", "preserve")
		}
		x.Write(part.EncodeXString(cell.v)).CTag()
		x.CTag() // is
	case CellTypeFormula:
		x.OTag("f").Write(cell.f).CTag()
	case cellTypePicture:
		info, err := w.addPicture(cell.picture)
		if err != nil {
			return xlerr.Wrap(xlerr.KindInvalidEdit, err, "picture cell").WithRef(cell.coord.String())
		}
		// the cell shows #VALUE! where pictures in cells are not supported
		x.Attr("t", "e").Attr("vm", info.IId+1)
		x.OTag("v").Write("#VALUE!").CTag()
	}
	x.CTag() // c
	return nil
}

// writeMetadata links value metadata entry i+1 to rich value i, which is
// what the vm attribute of a picture cell points at.
func (w *Writer) writeMetadata() error {
	const name = "xl/metadata.xml"
	w.workbookRels.add(relMetadata, "metadata.xml")
	return w.emit(name, typeMetadata, func(x *xml.Writer) error {
		x.OTag("metadata")
		x.Attr("xmlns", part.NSMain)
		x.Attr("xmlns:xlrd", nsRichData)

		x.OTag("+metadataTypes").Attr("count", 1)
		x.OTag("+metadataType").Attr("name", "XLRICHVALUE").Attr("minSupportedVersion", "120000")
		for _, flag := range []xml.NameString{"copy", "pasteAll", "pasteValues", "merge", "splitFirst",
			"rowColShift", "clearFormats", "clearComments", "assign", "coerce"} {
			x.Attr(flag, 1)
		}
		x.CTag()
		x.CTag() // metadataTypes

		x.OTag("+futureMetadata").Attr("name", "XLRICHVALUE").Attr("count", len(w.media))
		for _, m := range w.media {
			x.OTag("+bk").OTag("extLst")
			x.OTag("ext").Attr("uri", "{3e2802c4-a4d2-4d8b-9148-e3be6c30e623}")
			x.OTag("xlrd:rvb").Attr("i", m.IId).CTag()
			x.CTag() // ext
			x.CTag() // extLst
			x.CTag() // bk
		}
		x.CTag() // futureMetadata

		x.OTag("+valueMetadata").Attr("count", len(w.media))
		for _, m := range w.media {
			x.OTag("+bk").OTag("rc").Attr("t", 1).Attr("v", m.IId).CTag()
			x.CTag()
		}
		x.CTag() // valueMetadata

		x.CTag()
		return nil
	})
}

func (w *Writer) writeRichValueRel() error {
	const name = "xl/richData/richValueRel.xml"
	w.workbookRels.add(relRichValueRel, "richData/richValueRel.xml")
	return w.emit(name, typeRichValueRel, func(x *xml.Writer) error {
		x.OTag("richValueRels")
		x.Attr("xmlns", nsRichDataRel)
		x.Attr("xmlns:r", part.NSRelationships)
		for _, m := range w.media {
			x.OTag("+rel").Attr("r:id", m.RId).CTag()
		}
		x.CTag()
		return nil
	})
}

func (w *Writer) writeRichValueStructure() error {
	const name = "xl/richData/rdrichvaluestructure.xml"
	w.workbookRels.add(relRichValueStructure, "richData/rdrichvaluestructure.xml")
	return w.emit(name, typeRichValueStructure, func(x *xml.Writer) error {
		x.OTag("rvStructures").Attr("xmlns", nsRichData).Attr("count", 1)
		x.OTag("+s").Attr("t", "_localImage")
		x.OTag("+k").Attr("n", "_rvRel:LocalImageIdentifier").Attr("t", "i").CTag()
		x.OTag("+k").Attr("n", "CalcOrigin").Attr("t", "i").CTag()
		x.CTag() // s
		x.CTag()
		return nil
	})
}

func (w *Writer) writeRichValueData() error {
	const name = "xl/richData/rdrichvalue.xml"
	w.workbookRels.add(relRichValue, "richData/rdrichvalue.xml")
	return w.emit(name, typeRichValue, func(x *xml.Writer) error {
		x.OTag("rvData").Attr("xmlns", nsRichData).Attr("count", len(w.media))
		for _, m := range w.media {
			x.OTag("+rv").Attr("s", 0)
			x.OTag("v").Write(m.IId).CTag() // LocalImageIdentifier
			x.OTag("v").Write(5).CTag()     // CalcOrigin
			x.CTag()
		}
		x.CTag()
		return nil
	})
}

func (w *Writer) writeRels(name string, rels relSet) error {
	return w.emit(name, "", func(x *xml.Writer) error {
		x.OTag("Relationships").Attr("xmlns", part.NSPackageRels)
		err := enumerate(rels.items, func(id string, rel RelInfo) error {
			x.OTag("+Relationship").Attr("Id", id).Attr("Type", rel.Type).Attr("Target", rel.Target).CTag()
			return nil
		})
		x.CTag()
		return err
	})
}

func enumerate[M ~map[K]V, K constraints.Ordered, V any](m M, callback func(k K, v V) error) error {
	keys := maps.Keys(m)
	slices.Sort(keys)
	for _, k := range keys {
		err := callback(k, m[k])
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes wb as an .xlsx file at path.
func WriteFile(wb *Workbook, path string, opts ...WriterOption) error {
	bb := bytes.Buffer{}
	zs := NewZipStorage(&bb)
	if err := NewWriter(zs, opts...).Write(wb); err != nil {
		return err
	}
	if err := zs.Close(); err != nil {
		return err
	}
	return opc.WriteFile(path, bb.Bytes())
}
