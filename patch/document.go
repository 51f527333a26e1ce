package patch

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/adnsv/go-xlpatch/opc"
	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

const defaultWorkbook = "xl/workbook.xml"

// Document is an opened workbook. Parts are parsed on first use and then
// mutated in place by Apply; a Document is meant for a single patch call.
type Document struct {
	Archive *opc.Archive
	Format  ref.Format

	// InlineStrings stores new text in the cells instead of the shared
	// string table.
	InlineStrings bool
	// ID prefixes log lines, which are only written with Debug set.
	ID    string
	Debug bool

	types    *part.ContentTypes
	workbook *part.Workbook
	wbRels   *part.Relationships
	sheets   map[string]*part.Worksheet
	sst      *part.SharedStrings
	styles   *part.Styles

	created map[string]bool
	removed map[string]bool
}

// OpenDocument parses the package-level parts of an archive: content
// types, package relationships, the workbook and its relationships.
func OpenDocument(a *opc.Archive, f ref.Format) (*Document, error) {
	doc := &Document{
		Archive: a,
		Format:  f,
		sheets:  map[string]*part.Worksheet{},
		created: map[string]bool{},
		removed: map[string]bool{},
	}
	data, err := a.Entry(opc.ContentTypesPart)
	if err != nil {
		return nil, err
	}
	if doc.types, err = part.ParseContentTypes(opc.ContentTypesPart, data); err != nil {
		return nil, err
	}

	wbName := defaultWorkbook
	if a.Has("_rels/.rels") {
		data, err := a.Entry("_rels/.rels")
		if err != nil {
			return nil, err
		}
		rels, err := part.ParseRelationships("_rels/.rels", "", data)
		if err != nil {
			return nil, err
		}
		if rel, ok := rels.ByType(part.RelOfficeDocument); ok {
			wbName = rels.Resolve(rel)
		}
	}
	if !a.Has(wbName) {
		return nil, xlerr.New(xlerr.KindCorruptArchive, "workbook part is missing").WithPart(wbName)
	}
	wbName = a.CanonicalName(wbName)

	relsName := part.RelsName(wbName)
	if a.Has(relsName) {
		data, err := a.Entry(relsName)
		if err != nil {
			return nil, err
		}
		if doc.wbRels, err = part.ParseRelationships(a.CanonicalName(relsName), wbName, data); err != nil {
			return nil, err
		}
	} else {
		doc.wbRels = part.NewRelationships(relsName, wbName)
	}

	data, err = a.Entry(wbName)
	if err != nil {
		return nil, err
	}
	if doc.workbook, err = part.ParseWorkbook(wbName, data, doc.wbRels); err != nil {
		return nil, err
	}
	return doc, nil
}

// Workbook returns the workbook part.
func (doc *Document) Workbook() *part.Workbook {
	return doc.workbook
}

// Worksheet returns the parsed worksheet of a sheet.
func (doc *Document) Worksheet(sh *part.Sheet) (*part.Worksheet, error) {
	if ws, ok := doc.sheets[sh.Part]; ok {
		return ws, nil
	}
	data, err := doc.Archive.Entry(sh.Part)
	if err != nil {
		return nil, err
	}
	ws, err := part.ParseWorksheet(doc.Archive.CanonicalName(sh.Part), data, doc.Format)
	if err != nil {
		return nil, err
	}
	doc.sheets[sh.Part] = ws
	return ws, nil
}

// mentions reports whether the raw bytes of a sheet part may refer to the
// named sheet. It lets renames and shifts skip sheets that cannot hold a
// qualified reference to it. Names that a formula or the XML may spell
// differently (quotes doubled, entities, character references, a legacy
// encoding) always count as mentioned.
func (doc *Document) mentions(sh *part.Sheet, name string) bool {
	if _, ok := doc.sheets[sh.Part]; ok {
		return true
	}
	if !literalName(name) {
		return true
	}
	data, err := doc.Archive.Entry(sh.Part)
	if err != nil {
		return true
	}
	head := data[:min(len(data), 64)]
	if !utf8.Valid(head[:min(len(head), 3)]) || bytes.IndexByte(head, 0) >= 0 {
		return true // UTF-16
	}
	if bytes.Contains(data, []byte("&#")) {
		return true
	}
	return bytes.Contains(bytes.ToLower(data), []byte(strings.ToLower(name)))
}

// literalName reports whether name appears byte for byte in any part that
// refers to it.
func literalName(name string) bool {
	for i := 0; i < len(name); i++ {
		switch ch := name[i]; {
		case ch >= utf8.RuneSelf, ch == '\'', ch == '"', ch == '&', ch == '<', ch == '>':
			return false
		}
	}
	return true
}

func (doc *Document) relatedPart(typ string) (string, bool) {
	rel, ok := doc.wbRels.ByType(typ)
	if !ok {
		return "", false
	}
	name := doc.wbRels.Resolve(rel)
	if !doc.Archive.Has(name) {
		return "", false
	}
	return doc.Archive.CanonicalName(name), true
}

// SharedStrings returns the shared string table, creating the part when
// create is set and the workbook has none.
func (doc *Document) SharedStrings(create bool) (*part.SharedStrings, error) {
	if doc.sst != nil || !create && !doc.hasPart(part.RelSharedStrings) {
		return doc.sst, nil
	}
	if name, ok := doc.relatedPart(part.RelSharedStrings); ok {
		data, err := doc.Archive.Entry(name)
		if err != nil {
			return nil, err
		}
		if doc.sst, err = part.ParseSharedStrings(name, data); err != nil {
			return nil, err
		}
		return doc.sst, nil
	}
	name := doc.newPartName("sharedStrings.xml")
	doc.sst = part.NewSharedStrings(name)
	doc.attach(name, part.RelSharedStrings, part.TypeSharedStrings)
	return doc.sst, nil
}

// Styles returns the style sheet, creating the part when create is set
// and the workbook has none.
func (doc *Document) Styles(create bool) (*part.Styles, error) {
	if doc.styles != nil || !create && !doc.hasPart(part.RelStyles) {
		return doc.styles, nil
	}
	if name, ok := doc.relatedPart(part.RelStyles); ok {
		data, err := doc.Archive.Entry(name)
		if err != nil {
			return nil, err
		}
		if doc.styles, err = part.ParseStyles(name, data); err != nil {
			return nil, err
		}
		return doc.styles, nil
	}
	name := doc.newPartName("styles.xml")
	doc.styles = part.NewStyles(name)
	doc.attach(name, part.RelStyles, part.TypeStyles)
	return doc.styles, nil
}

func (doc *Document) hasPart(typ string) bool {
	_, ok := doc.relatedPart(typ)
	return ok
}

// newPartName places a new part next to the workbook.
func (doc *Document) newPartName(file string) string {
	dir := ""
	if i := strings.LastIndexByte(doc.workbook.PartName(), '/'); i >= 0 {
		dir = doc.workbook.PartName()[:i+1]
	}
	return dir + file
}

func (doc *Document) attach(name, relType, contentType string) {
	doc.wbRels.Remove(relType)
	doc.wbRels.Add(relType, part.RelativeTarget(doc.workbook.PartName(), name))
	doc.types.SetOverride(name, contentType)
	doc.created[name] = true
}

// detach drops a part together with its relationship and override.
func (doc *Document) detach(relType string) {
	name, ok := doc.relatedPart(relType)
	if !ok {
		return
	}
	doc.wbRels.Remove(relType)
	doc.types.RemoveOverride(name)
	doc.removed[name] = true
}

// parts lists every modeled part in a stable order.
func (doc *Document) parts() []part.Part {
	out := []part.Part{doc.types, doc.wbRels, doc.workbook}
	for _, sh := range doc.workbook.Sheets {
		if ws, ok := doc.sheets[sh.Part]; ok {
			out = append(out, ws)
		}
	}
	if doc.sst != nil {
		out = append(out, doc.sst)
	}
	if doc.styles != nil {
		out = append(out, doc.styles)
	}
	return out
}
