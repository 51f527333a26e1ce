// Package part models the workbook parts that edits touch: the workbook,
// its worksheets, the shared string table, the style sheet, content types
// and relationships. Each model wraps an xmltree.Document, so whatever it
// does not understand is carried through untouched.
package part

import (
	"bytes"
	"path"
	"strings"

	"github.com/adnsv/srw/xml"

	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/adnsv/go-xlpatch/xmltree"
)

const (
	NSMain          = "http://schemas.openxmlformats.org/spreadsheetml/2006/main"
	NSRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	NSContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"

	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelWorksheet      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet"
	RelSharedStrings  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings"
	RelStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelCalcChain      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/calcChain"

	TypeSharedStrings = "application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"
	TypeStyles        = "application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"
)

// Part is implemented by every modeled part.
type Part interface {
	PartName() string
	Dirty() bool
	Bytes() []byte
}

type doc struct {
	name string
	x    *xmltree.Document
}

func (d *doc) PartName() string { return d.name }
func (d *doc) Dirty() bool      { return d.x.Dirty() }
func (d *doc) Bytes() []byte    { return d.x.Bytes() }

// Document exposes the underlying tree.
func (d *doc) Document() *xmltree.Document { return d.x }

func parseDoc(name string, data []byte, root string) (doc, error) {
	x, err := xmltree.Parse(data)
	if err != nil {
		return doc{}, xlerr.InPart(err, name)
	}
	if x.Root.Local() != root {
		return doc{}, xlerr.New(xlerr.KindMalformedXML, "root element is <%s>, want <%s>", x.Root.Name, root).WithPart(name)
	}
	return doc{name: name, x: x}, nil
}

// render builds a detached element with the srw writer. Callers only use
// literal names, the element is qualified to match the part afterwards.
func render(fn func(x *xml.Writer)) *xmltree.Element {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{})
	fn(x)
	e, err := xmltree.ParseElement(bb.Bytes())
	if err != nil {
		// only reachable if the writer itself produced broken output
		panic(err)
	}
	return e
}

// renderPart builds a whole new part with an XML declaration.
func renderPart(fn func(x *xml.Writer)) []byte {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{})
	x.XmlStandaloneDecl()
	fn(x)
	return bb.Bytes()
}

// adopt qualifies a rendered fragment for insertion under parent.
func adopt(parent, e *xmltree.Element) *xmltree.Element {
	e.Rename(parent.Prefix())
	return e
}

// child returns the named child of e, creating it when missing. New children
// go before the first sibling listed in before.
func child(e *xmltree.Element, local string, before ...string) *xmltree.Element {
	if c := e.First(local); c != nil {
		return c
	}
	c := xmltree.NewElement(e.Qualify(local))
	e.InsertBefore(c, before...)
	return c
}

// RelsName returns the relationships part that belongs to name, e.g.
// "xl/_rels/workbook.xml.rels" for "xl/workbook.xml".
func RelsName(name string) string {
	dir, file := path.Split(name)
	return dir + "_rels/" + file + ".rels"
}

// ResolveTarget turns a relationship target into an archive entry name. An
// absolute target is rooted at the package, a relative one at the directory
// of the source part.
func ResolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(target)[1:]
	}
	return strings.TrimPrefix(path.Join(path.Dir(source), target), "/")
}

// RelativeTarget is the inverse of ResolveTarget for parts that live in
// or below the directory of source.
func RelativeTarget(source, name string) string {
	dir := path.Dir(source)
	if dir == "." {
		return name
	}
	if rest, ok := strings.CutPrefix(name, dir+"/"); ok {
		return rest
	}
	return "/" + name
}
