package part

import (
	"strings"
	"unicode/utf8"

	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/adnsv/go-xlpatch/xmltree"
)

// Sheet is an entry of the workbook's sheet list.
type Sheet struct {
	Name    string
	SheetID string
	RelID   string
	Part    string // worksheet entry name, "" when the relationship is missing
	State   string

	elem *xmltree.Element
}

// Workbook models xl/workbook.xml.
type Workbook struct {
	doc
	Sheets   []*Sheet
	Date1904 bool
}

// ParseWorkbook reads the workbook part; rels are its relationships and
// are used to find the worksheet parts.
func ParseWorkbook(name string, data []byte, rels *Relationships) (*Workbook, error) {
	d, err := parseDoc(name, data, "workbook")
	if err != nil {
		return nil, err
	}
	wb := &Workbook{doc: d}
	if pr := d.x.Root.First("workbookPr"); pr != nil {
		v := pr.AttrOr("date1904", "")
		wb.Date1904 = v == "1" || v == "true"
	}
	sheets := d.x.Root.First("sheets")
	if sheets == nil {
		return nil, xlerr.New(xlerr.KindMalformedXML, "workbook has no sheet list").WithPart(name)
	}
	for _, e := range sheets.All("sheet") {
		sh := &Sheet{
			Name:    e.AttrOr("name", ""),
			SheetID: e.AttrOr("sheetId", ""),
			RelID:   relAttr(e, "id"),
			State:   e.AttrOr("state", "visible"),
			elem:    e,
		}
		if rels != nil {
			if rel, ok := rels.ByID(sh.RelID); ok {
				sh.Part = rels.Resolve(rel)
			}
		}
		wb.Sheets = append(wb.Sheets, sh)
	}
	return wb, nil
}

// relAttr finds a namespaced attribute by local name, e.g. r:id.
func relAttr(e *xmltree.Element, local string) string {
	for _, a := range e.Attrs {
		if i := strings.IndexByte(a.Name, ':'); i > 0 && a.Name[i+1:] == local && a.Name[:i] != "xmlns" {
			return a.Value
		}
	}
	return ""
}

// Sheet finds a sheet by name. Sheet names are case-insensitive.
func (wb *Workbook) Sheet(name string) (*Sheet, error) {
	for _, sh := range wb.Sheets {
		if strings.EqualFold(sh.Name, name) {
			if sh.Part == "" {
				return nil, xlerr.New(xlerr.KindCorruptArchive, "sheet %q has no worksheet relationship", sh.Name).WithPart(wb.name)
			}
			return sh, nil
		}
	}
	return nil, xlerr.New(xlerr.KindUnknownSheet, "no sheet named %q", name).WithPart(wb.name)
}

// Names lists the sheet names in workbook order.
func (wb *Workbook) Names() []string {
	out := make([]string, len(wb.Sheets))
	for i, sh := range wb.Sheets {
		out[i] = sh.Name
	}
	return out
}

// Rename changes a sheet name and rewrites every defined name that refers
// to it. Worksheet formulas are the caller's business.
func (wb *Workbook) Rename(sh *Sheet, name string) error {
	if err := ValidateSheetName(name); err != nil {
		return err
	}
	for _, other := range wb.Sheets {
		if other != sh && strings.EqualFold(other.Name, name) {
			return xlerr.New(xlerr.KindInvalidEdit, "duplicate sheet name %q", name)
		}
	}
	old := sh.Name
	if old == name {
		return nil
	}
	sh.elem.SetAttr("name", name, nil)
	sh.Name = name
	wb.RewriteDefinedNames(func(f string) string {
		return ref.RenameSheetInFormula(f, old, name)
	})
	return nil
}

// DefinedNames returns the definedName elements.
func (wb *Workbook) DefinedNames() []*xmltree.Element {
	dn := wb.x.Root.First("definedNames")
	if dn == nil {
		return nil
	}
	return dn.All("definedName")
}

// RewriteDefinedNames applies fn to the formula of every defined name.
func (wb *Workbook) RewriteDefinedNames(fn func(string) string) {
	for _, e := range wb.DefinedNames() {
		if f := e.Text(); f != "" {
			e.SetText(fn(f))
		}
	}
}

var calcPrFollowers = []string{"oleSize", "customWorkbookViews", "pivotCaches", "smartTagPr",
	"smartTagTypes", "webPublishing", "fileRecoveryPr", "webPublishObjects", "extLst"}

// ForceFullCalc asks the consuming application to recalculate every
// formula when the workbook is loaded.
func (wb *Workbook) ForceFullCalc() {
	pr := child(wb.x.Root, "calcPr", calcPrFollowers...)
	pr.SetAttr("fullCalcOnLoad", "1", nil)
}

// ValidateSheetName checks the naming rules the file format imposes on
// sheet names.
func ValidateSheetName(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return xlerr.New(xlerr.KindInvalidEdit, "empty sheet name is not allowed")
	case n > 31:
		return xlerr.New(xlerr.KindInvalidEdit, "sheet name %q is too long", s)
	case strings.HasPrefix(s, "'") || strings.HasSuffix(s, "'"):
		return xlerr.New(xlerr.KindInvalidEdit, "sheet name %q starts or ends with a single quote", s)
	case strings.ContainsAny(s, ":\\/?*[]"):
		return xlerr.New(xlerr.KindInvalidEdit, "sheet name %q contains one of :\\/?*[]", s)
	}
	return nil
}
