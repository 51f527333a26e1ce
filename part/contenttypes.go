package part

import (
	"path"
	"strings"

	"github.com/adnsv/srw/xml"
)

// ContentTypes models [Content_Types].xml.
type ContentTypes struct {
	doc
}

// ParseContentTypes parses the content types part.
func ParseContentTypes(name string, data []byte) (*ContentTypes, error) {
	d, err := parseDoc(name, data, "Types")
	if err != nil {
		return nil, err
	}
	return &ContentTypes{doc: d}, nil
}

// Lookup returns the content type of a part: its override if any,
// otherwise the default registered for its extension.
func (c *ContentTypes) Lookup(name string) (string, bool) {
	pn := "/" + strings.TrimPrefix(name, "/")
	for _, e := range c.x.Root.All("Override") {
		if strings.EqualFold(e.AttrOr("PartName", ""), pn) {
			return e.Attr("ContentType")
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, e := range c.x.Root.All("Default") {
		if strings.EqualFold(e.AttrOr("Extension", ""), ext) {
			return e.Attr("ContentType")
		}
	}
	return "", false
}

// SetOverride registers an override for a part unless one exists.
func (c *ContentTypes) SetOverride(name, ctype string) {
	pn := "/" + strings.TrimPrefix(name, "/")
	for _, e := range c.x.Root.All("Override") {
		if strings.EqualFold(e.AttrOr("PartName", ""), pn) {
			return
		}
	}
	e := render(func(x *xml.Writer) {
		x.OTag("Override").Attr("PartName", pn).Attr("ContentType", ctype).CTag()
	})
	c.x.Root.Append(adopt(c.x.Root, e))
}

// RemoveOverride drops the override of a part.
func (c *ContentTypes) RemoveOverride(name string) bool {
	pn := "/" + strings.TrimPrefix(name, "/")
	for _, e := range c.x.Root.All("Override") {
		if strings.EqualFold(e.AttrOr("PartName", ""), pn) {
			return c.x.Root.Remove(e)
		}
	}
	return false
}
