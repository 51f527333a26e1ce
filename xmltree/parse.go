package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/adnsv/go-xlpatch/xlerr"
)

// Document is a parsed XML part.
type Document struct {
	Children []Node // prolog, root element and epilog, in order
	Root     *Element

	raw      []byte // the part exactly as read
	bom      []byte
	encoding string // declared encoding when the part was transcoded to UTF-8
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}

	declEncoding = regexp.MustCompile(`^(<\?xml[^>]*?\sencoding\s*=\s*)(["'])([^"']*)(["'])`)
)

// Parse reads an XML part. It fails with MalformedXml only when the input is
// not well-formed; unknown namespaces, elements and attributes are kept.
func Parse(data []byte) (*Document, error) {
	doc := &Document{raw: data}
	buf := data
	switch {
	case bytes.HasPrefix(buf, bomUTF8):
		doc.bom = bomUTF8
		buf = buf[len(bomUTF8):]
	case bytes.HasPrefix(buf, bomUTF16LE):
		u, err := transcode(buf[2:], "utf-16le")
		if err != nil {
			return nil, err
		}
		doc.encoding = "UTF-16"
		buf = u
	case bytes.HasPrefix(buf, bomUTF16BE):
		u, err := transcode(buf[2:], "utf-16be")
		if err != nil {
			return nil, err
		}
		doc.encoding = "UTF-16"
		buf = u
	}
	if m := declEncoding.FindSubmatchIndex(buf); m != nil {
		label := string(buf[m[6]:m[7]])
		if !isUTF8Label(label) {
			if doc.encoding == "" {
				u, err := transcode(buf, label)
				if err != nil {
					return nil, err
				}
				buf = u
				doc.encoding = label
				m = declEncoding.FindSubmatchIndex(buf)
			}
			if m != nil {
				fixed := make([]byte, 0, len(buf))
				fixed = append(fixed, buf[:m[6]]...)
				fixed = append(fixed, "UTF-8"...)
				fixed = append(fixed, buf[m[7]:]...)
				buf = fixed
			}
		}
	}

	if err := doc.build(buf); err != nil {
		return nil, err
	}
	return doc, nil
}

// isUTF8Label matches only the spelling encoding/xml accepts without a
// CharsetReader; aliases such as "utf8" go through transcoding.
func isUTF8Label(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "utf-8")
}

func transcode(data []byte, label string) ([]byte, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, xlerr.Wrap(xlerr.KindMalformedXML, err, "unsupported encoding %q", label)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, xlerr.Wrap(xlerr.KindMalformedXML, err, "invalid %s content", label)
	}
	return out, nil
}

func malformed(err error, offset int64) error {
	return xlerr.Wrap(xlerr.KindMalformedXML, err, "at byte %d", offset)
}

func qualified(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

func (doc *Document) build(buf []byte) error {
	d := xml.NewDecoder(bytes.NewReader(buf))
	d.Strict = true

	var stack []*Element
	var starts []int64
	appendNode := func(n Node) {
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			top.Children = append(top.Children, n)
			if c, ok := n.(*Element); ok {
				c.parent = top
			}
			return
		}
		doc.Children = append(doc.Children, n)
	}

	for {
		off0 := d.InputOffset()
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return malformed(err, off0)
		}
		off1 := d.InputOffset()
		span := buf[off0:off1]

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && doc.Root != nil {
				return malformed(errors.New("more than one root element"), off0)
			}
			e := &Element{Name: qualified(t.Name), rawStart: span}
			if err := e.splitStartTag(span, t.Attr); err != nil {
				return malformed(err, off0)
			}
			appendNode(e)
			if len(stack) == 0 {
				doc.Root = e
			}
			stack = append(stack, e)
			starts = append(starts, off0)

		case xml.EndElement:
			if len(stack) == 0 {
				return malformed(fmt.Errorf("unexpected end tag </%s>", qualified(t.Name)), off0)
			}
			e := stack[len(stack)-1]
			if e.Name != qualified(t.Name) {
				return malformed(fmt.Errorf("end tag </%s> does not match <%s>", qualified(t.Name), e.Name), off0)
			}
			if off1 == off0 {
				e.selfClosing = true
			} else {
				e.rawEnd = span
			}
			e.raw = buf[starts[len(starts)-1]:off1]
			stack = stack[:len(stack)-1]
			starts = starts[:len(starts)-1]

		case xml.CharData:
			if len(stack) == 0 && len(bytes.TrimSpace(span)) > 0 {
				return malformed(errors.New("character data outside the root element"), off0)
			}
			appendNode(&Raw{Kind: RawText, Data: span, Text: string(t)})

		case xml.Comment:
			appendNode(&Raw{Kind: RawComment, Data: span})

		case xml.ProcInst:
			appendNode(&Raw{Kind: RawProcInst, Data: span})

		case xml.Directive:
			appendNode(&Raw{Kind: RawDirective, Data: span})
		}
	}
	if len(stack) > 0 {
		return malformed(fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name), d.InputOffset())
	}
	if doc.Root == nil {
		return malformed(errors.New("no root element"), 0)
	}
	return nil
}

// splitStartTag locates the bytes of every attribute inside the start tag so
// that unchanged attributes can be re-emitted exactly as written.
func (e *Element) splitStartTag(tag []byte, attrs []xml.Attr) error {
	i := 1 + len(e.Name)
	if i > len(tag) {
		return errors.New("truncated start tag")
	}
	for {
		lead := i
		for i < len(tag) && isSpace(tag[i]) {
			i++
		}
		if i >= len(tag) {
			return errors.New("truncated start tag")
		}
		if tag[i] == '>' || tag[i] == '/' {
			e.tail = tag[lead:]
			break
		}
		nameStart := i
		for i < len(tag) && tag[i] != '=' && !isSpace(tag[i]) {
			i++
		}
		name := string(tag[nameStart:i])
		for i < len(tag) && (isSpace(tag[i]) || tag[i] == '=') {
			i++
		}
		if i >= len(tag) {
			return errors.New("truncated attribute")
		}
		quote := tag[i]
		end := bytes.IndexByte(tag[i+1:], quote)
		if end < 0 {
			return errors.New("unterminated attribute value")
		}
		i += end + 2
		k := len(e.Attrs)
		if k >= len(attrs) || qualified(attrs[k].Name) != name {
			return fmt.Errorf("unexpected attribute %q", name)
		}
		e.Attrs = append(e.Attrs, Attr{
			Name:  name,
			Value: attrs[k].Value,
			lead:  tag[lead:nameStart],
			raw:   tag[nameStart:i],
		})
	}
	if len(e.Attrs) != len(attrs) {
		return errors.New("attribute count mismatch")
	}
	return nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// ParseElement parses a standalone fragment holding exactly one element and
// returns it detached. Undeclared namespace prefixes are allowed.
func ParseElement(data []byte) (*Element, error) {
	doc := &Document{raw: data}
	if err := doc.build(data); err != nil {
		return nil, err
	}
	root := doc.Root
	root.parent = nil
	return root, nil
}
