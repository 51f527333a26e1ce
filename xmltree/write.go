package xmltree

import (
	"bytes"
	"encoding/xml"
)

// Bytes serializes the document. An unmodified document returns its input
// unchanged, including byte order mark and original encoding. A modified
// document is emitted as UTF-8; every unmodified node keeps its bytes.
func (doc *Document) Bytes() []byte {
	if !doc.Dirty() {
		return doc.raw
	}
	var buf bytes.Buffer
	if doc.encoding == "" {
		buf.Write(doc.bom)
	}
	for _, n := range doc.Children {
		writeNode(&buf, n)
	}
	return buf.Bytes()
}

// Dirty reports whether anything in the document changed.
func (doc *Document) Dirty() bool {
	return doc.Root.dirty
}

// Transcoded returns the declared encoding of a part that was converted to
// UTF-8 on parse, "" for UTF-8 input.
func (doc *Document) Transcoded() string {
	return doc.encoding
}

// Bytes serializes a single element.
func (e *Element) Bytes() []byte {
	var buf bytes.Buffer
	e.write(&buf)
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, n Node) {
	switch v := n.(type) {
	case *Element:
		v.write(buf)
	case *Raw:
		buf.Write(v.Data)
	}
}

func (e *Element) write(buf *bytes.Buffer) {
	if !e.dirty && e.raw != nil {
		buf.Write(e.raw)
		return
	}
	empty := len(e.Children) == 0
	if !e.dirtyTag && e.rawStart != nil {
		buf.Write(e.rawStart)
	} else {
		e.writeStart(buf, empty)
	}
	if empty && e.selfClosing {
		return
	}
	for _, c := range e.Children {
		writeNode(buf, c)
	}
	if e.rawEnd != nil {
		buf.Write(e.rawEnd)
		return
	}
	buf.WriteString("</")
	buf.WriteString(e.Name)
	buf.WriteByte('>')
}

func (e *Element) writeStart(buf *bytes.Buffer, empty bool) {
	buf.WriteByte('<')
	buf.WriteString(e.Name)
	for _, a := range e.Attrs {
		if a.raw != nil {
			buf.Write(a.lead)
			buf.Write(a.raw)
			continue
		}
		if len(a.lead) > 0 {
			buf.Write(a.lead)
		} else {
			buf.WriteByte(' ')
		}
		buf.WriteString(a.Name)
		buf.WriteString(`="`)
		xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	switch {
	case e.tail == nil:
		if empty && e.selfClosing {
			buf.WriteString("/>")
		} else {
			buf.WriteByte('>')
		}
	case e.selfClosing && !empty:
		// was <x/>, now has children
		buf.Write(bytes.TrimRight(bytes.TrimSuffix(e.tail, []byte("/>")), " \t\r\n"))
		buf.WriteByte('>')
	default:
		buf.Write(e.tail)
	}
}
