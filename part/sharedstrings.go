package part

import (
	"strconv"
	"strings"

	"github.com/adnsv/srw/xml"

	"github.com/adnsv/go-xlpatch/table"
	"github.com/adnsv/go-xlpatch/xmltree"
)

// SharedStrings models xl/sharedStrings.xml. Plain entries are indexed by
// their text; rich or phonetic entries keep their id but never match a
// lookup.
type SharedStrings struct {
	doc
	table   *table.Arena[string, string]
	refs    int // change to the total reference count
	flushed int
}

// ParseSharedStrings loads a shared string table. Rich text items keep
// their index but are never matched by a lookup.
func ParseSharedStrings(name string, data []byte) (*SharedStrings, error) {
	d, err := parseDoc(name, data, "sst")
	if err != nil {
		return nil, err
	}
	s := &SharedStrings{doc: d, table: table.New[string, string]("shared string")}
	for _, si := range d.x.Root.All("si") {
		t := si.First("t")
		if t != nil && len(si.Elements()) == 1 {
			text := DecodeXString(t.Text())
			s.table.Load(text, text)
			continue
		}
		s.table.LoadOpaque(richText(si))
	}
	return s, nil
}

// NewSharedStrings creates an empty table part.
func NewSharedStrings(name string) *SharedStrings {
	data := renderPart(func(x *xml.Writer) {
		x.OTag("sst")
		x.Attr("xmlns", NSMain)
		x.Attr("count", 0)
		x.Attr("uniqueCount", 0)
		x.CTag()
	})
	s, err := ParseSharedStrings(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// richText concatenates the text runs of an entry, skipping phonetic runs.
func richText(si *xmltree.Element) string {
	var sb strings.Builder
	if t := si.First("t"); t != nil {
		sb.WriteString(t.Text())
	}
	for _, r := range si.All("r") {
		if t := r.First("t"); t != nil {
			sb.WriteString(t.Text())
		}
	}
	return DecodeXString(sb.String())
}

// writeText emits a <t> element, preserving edge whitespace and escaping
// characters XML cannot carry.
func writeText(x *xml.Writer, text string) {
	x.OTag("t")
	if strings.TrimSpace(text) != text {
		x.Attr("xml:space", "preserve")
	}
	x.Write(EncodeXString(text))
	x.CTag()
}

// Len returns the number of entries.
func (s *SharedStrings) Len() int {
	return s.table.Len()
}

// Get returns the text of entry id.
func (s *SharedStrings) Get(id int) (string, error) {
	v, err := s.table.Resolve(id)
	if err != nil {
		return "", err
	}
	return v, nil
}

// Intern returns the id of a plain entry with the given text, appending one
// if needed.
func (s *SharedStrings) Intern(text string) int {
	id, _ := s.table.GetOrInsert(text, text)
	return id
}

// AddRefs adjusts the total reference count by delta.
func (s *SharedStrings) AddRefs(delta int) {
	s.refs += delta
}

// Flush writes appended entries and the adjusted counters into the tree.
func (s *SharedStrings) Flush() {
	root := s.x.Root
	_, added := s.table.Added()
	for _, text := range added[s.flushed:] {
		si := render(func(x *xml.Writer) {
			x.OTag("si")
			writeText(x, text)
			x.CTag()
		})
		root.InsertBefore(adopt(root, si), "extLst")
	}
	if len(added) > s.flushed {
		s.flushed = len(added)
		root.SetAttr("uniqueCount", strconv.Itoa(s.table.Len()), []string{"count", "uniqueCount"})
	}
	if s.refs != 0 {
		if v, ok := root.Attr("count"); ok {
			n, _ := strconv.Atoi(v)
			root.SetAttr("count", strconv.Itoa(max(n+s.refs, 0)), nil)
		}
		s.refs = 0
	}
}
