// Package xmltree holds XML parts as a tree of tagged nodes that remembers
// the exact bytes every node was parsed from.
//
// An Element is either untouched, in which case it re-emits its original
// bytes, or dirty, in which case its start tag and children are emitted
// individually and every untouched descendant still re-emits its own bytes.
// Anything that is not an element (text, comments, processing
// instructions, CDATA, directives) is kept as an opaque Raw node.
package xmltree

import (
	"slices"
	"sort"
	"strings"
)

// Node is either *Element or *Raw.
type Node interface {
	node()
}

// RawKind tells what an opaque node holds.
type RawKind int

const (
	RawText RawKind = iota
	RawComment
	RawProcInst
	RawDirective
)

// Raw is a verbatim fragment.
type Raw struct {
	Kind RawKind
	Data []byte // bytes as they appear in the serialized part
	Text string // decoded character data, RawText only
}

func (*Raw) node() {}

// IsSpace reports whether the node is whitespace-only character data.
func (r *Raw) IsSpace() bool {
	return r.Kind == RawText && strings.TrimSpace(r.Text) == ""
}

// Attr is an attribute in document order.
type Attr struct {
	Name  string // qualified name as written, e.g. "r" or "xr:uid"
	Value string // unescaped value

	lead []byte // whitespace preceding the attribute
	raw  []byte // original bytes without lead; nil once the value changes
}

// Element is a modeled XML element.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node

	parent *Element

	raw         []byte // whole original span, nil for new elements
	rawStart    []byte
	rawEnd      []byte // nil when the element was written as <x/>
	tail        []byte // bytes after the last attribute: whitespace and ">" or "/>"
	selfClosing bool

	dirty    bool // element or a descendant changed
	dirtyTag bool // start tag must be rebuilt
}

func (*Element) node() {}

// NewElement creates a detached element with no original bytes.
func NewElement(name string) *Element {
	return &Element{Name: name, dirty: true, dirtyTag: true, selfClosing: true}
}

// Local returns the name without its namespace prefix.
func (e *Element) Local() string {
	return localName(e.Name)
}

// Prefix returns the namespace prefix of the element name, "" if none.
func (e *Element) Prefix() string {
	if i := strings.IndexByte(e.Name, ':'); i >= 0 {
		return e.Name[:i]
	}
	return ""
}

// Qualify prefixes local with the element's own prefix, so that new
// children follow the naming of the part they are inserted into.
func (e *Element) Qualify(local string) string {
	if p := e.Prefix(); p != "" {
		return p + ":" + local
	}
	return local
}

// Rename changes the qualified name of e and, when prefix is not empty, of
// all of its descendants that carry no prefix yet.
func (e *Element) Rename(prefix string) {
	if prefix == "" {
		return
	}
	if e.Prefix() == "" {
		e.Name = prefix + ":" + e.Name
		e.rawEnd = nil
		e.touchTag()
	}
	for _, c := range e.Elements() {
		c.Rename(prefix)
	}
}

// Parent returns the enclosing element, nil for the root.
func (e *Element) Parent() *Element {
	return e.parent
}

// Dirty reports whether the element or one of its descendants changed.
func (e *Element) Dirty() bool {
	return e.dirty
}

func localName(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// touch marks e and its ancestors as needing re-serialization.
func (e *Element) touch() {
	for p := e; p != nil && !p.dirty; p = p.parent {
		p.dirty = true
	}
}

func (e *Element) touchTag() {
	e.dirtyTag = true
	e.touch()
}

// Attr returns the value of the named attribute.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// SetAttr sets an attribute value. An existing attribute keeps its position;
// a new one is placed before the first attribute that follows it in order,
// or appended when order says nothing about it.
func (e *Element) SetAttr(name, value string, order []string) {
	for i := range e.Attrs {
		a := &e.Attrs[i]
		if a.Name != name {
			continue
		}
		if a.Value == value && a.raw != nil {
			return
		}
		a.Value = value
		a.raw = nil
		e.touchTag()
		return
	}
	pos := len(e.Attrs)
	if k := slices.Index(order, name); k >= 0 {
		for i, a := range e.Attrs {
			if j := slices.Index(order, a.Name); j > k {
				pos = i
				break
			}
		}
	}
	e.Attrs = slices.Insert(e.Attrs, pos, Attr{Name: name, Value: value})
	e.touchTag()
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(name string) {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs = slices.Delete(e.Attrs, i, i+1)
			e.touchTag()
			return
		}
	}
}

// Elements returns the child elements in order.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok {
			out = append(out, c)
		}
	}
	return out
}

// First returns the first child element with the given local name.
func (e *Element) First(local string) *Element {
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok && c.Local() == local {
			return c
		}
	}
	return nil
}

// All returns the child elements with the given local name.
func (e *Element) All(local string) []*Element {
	var out []*Element
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok && c.Local() == local {
			out = append(out, c)
		}
	}
	return out
}

// Index returns the position of n among e's children, -1 if absent.
func (e *Element) Index(n Node) int {
	for i, c := range e.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// Insert places n at position i of the children list.
func (e *Element) Insert(i int, n Node) {
	if c, ok := n.(*Element); ok {
		c.parent = e
	}
	e.Children = slices.Insert(e.Children, i, n)
	if e.selfClosing {
		e.dirtyTag = true
	}
	e.touch()
}

// Append adds n as the last child.
func (e *Element) Append(n Node) {
	e.Insert(len(e.Children), n)
}

// InsertBefore places n before the first child element whose local name is
// one of locals, or at the end when none is present. It is used to respect
// schema child order when adding optional children.
func (e *Element) InsertBefore(n Node, locals ...string) {
	for i, c := range e.Children {
		if ce, ok := c.(*Element); ok && slices.Contains(locals, ce.Local()) {
			e.Insert(i, n)
			return
		}
	}
	e.Append(n)
}

// Remove detaches a child node.
func (e *Element) Remove(n Node) bool {
	i := e.Index(n)
	if i < 0 {
		return false
	}
	e.Children = slices.Delete(e.Children, i, i+1)
	if c, ok := n.(*Element); ok {
		c.parent = nil
	}
	e.touch()
	return true
}

// Text returns the concatenated character data of the element's direct
// text children.
func (e *Element) Text() string {
	var sb strings.Builder
	for _, n := range e.Children {
		if r, ok := n.(*Raw); ok && r.Kind == RawText {
			sb.WriteString(r.Text)
		}
	}
	return sb.String()
}

// SetText replaces all children with a single text node.
func (e *Element) SetText(s string) {
	if e.Text() == s && len(e.Children) == 1 {
		return
	}
	for _, n := range e.Children {
		if c, ok := n.(*Element); ok {
			c.parent = nil
		}
	}
	e.Children = []Node{&Raw{Kind: RawText, Data: []byte(textEscaper.Replace(s)), Text: s}}
	if e.selfClosing {
		e.dirtyTag = true
	}
	e.touch()
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Clone returns a detached deep copy that still re-emits the original bytes
// of every part that was not modified.
func (e *Element) Clone() *Element {
	c := *e
	c.parent = nil
	c.Attrs = slices.Clone(e.Attrs)
	c.Children = make([]Node, len(e.Children))
	for i, n := range e.Children {
		switch v := n.(type) {
		case *Element:
			cc := v.Clone()
			cc.parent = &c
			c.Children[i] = cc
		case *Raw:
			r := *v
			c.Children[i] = &r
		}
	}
	return &c
}

// Canonical returns a structural key for the element: local names, attributes
// sorted by name (namespace declarations excluded), and element children in
// order. Whitespace, comments and attribute order do not affect it, so two
// logically identical records share a key.
func (e *Element) Canonical() string {
	var sb strings.Builder
	e.canonical(&sb)
	return sb.String()
}

func (e *Element) canonical(sb *strings.Builder) {
	sb.WriteByte('<')
	sb.WriteString(e.Local())
	attrs := make([]Attr, 0, len(e.Attrs))
	for _, a := range e.Attrs {
		if a.Name == "xmlns" || strings.HasPrefix(a.Name, "xmlns:") {
			continue
		}
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool { return localName(attrs[i].Name) < localName(attrs[j].Name) })
	for _, a := range attrs {
		sb.WriteByte(' ')
		sb.WriteString(localName(a.Name))
		sb.WriteString(`="`)
		sb.WriteString(a.Value)
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	for _, n := range e.Children {
		switch v := n.(type) {
		case *Element:
			v.canonical(sb)
		case *Raw:
			if v.Kind == RawText && !v.IsSpace() {
				sb.WriteString(v.Text)
			}
		}
	}
	sb.WriteString("</>")
}
