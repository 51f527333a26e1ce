package part

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/adnsv/srw/xml"
)

// Relationship is one entry of a relationships part.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// Relationships models a *.rels part.
type Relationships struct {
	doc
	Source string // part the relationships belong to, "" for the package
}

// ParseRelationships reads a relationships part. source is the part the
// relationships are attached to.
func ParseRelationships(name, source string, data []byte) (*Relationships, error) {
	d, err := parseDoc(name, data, "Relationships")
	if err != nil {
		return nil, err
	}
	return &Relationships{doc: d, Source: source}, nil
}

// NewRelationships creates an empty relationships part.
func NewRelationships(name, source string) *Relationships {
	data := renderPart(func(x *xml.Writer) {
		x.OTag("Relationships")
		x.Attr("xmlns", NSPackageRels)
		x.CTag()
	})
	r, err := ParseRelationships(name, source, data)
	if err != nil {
		panic(err)
	}
	return r
}

// List returns the relationships in document order.
func (r *Relationships) List() []Relationship {
	var out []Relationship
	for _, e := range r.x.Root.All("Relationship") {
		out = append(out, Relationship{
			ID:         e.AttrOr("Id", ""),
			Type:       e.AttrOr("Type", ""),
			Target:     e.AttrOr("Target", ""),
			TargetMode: e.AttrOr("TargetMode", ""),
		})
	}
	return out
}

// ByID finds a relationship by its id.
func (r *Relationships) ByID(id string) (Relationship, bool) {
	for _, rel := range r.List() {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ByType finds the first relationship of the given type.
func (r *Relationships) ByType(typ string) (Relationship, bool) {
	for _, rel := range r.List() {
		if rel.Type == typ {
			return rel, true
		}
	}
	return Relationship{}, false
}

// Resolve returns the archive entry a relationship points at.
func (r *Relationships) Resolve(rel Relationship) string {
	return ResolveTarget(r.Source, rel.Target)
}

// Add appends a relationship with the next free rId and returns the id.
func (r *Relationships) Add(typ, target string) string {
	last := 0
	for _, rel := range r.List() {
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > last {
			last = n
		}
	}
	id := fmt.Sprintf("rId%d", last+1)
	e := render(func(x *xml.Writer) {
		x.OTag("Relationship").Attr("Id", id).Attr("Type", typ).Attr("Target", target).CTag()
	})
	r.x.Root.Append(adopt(r.x.Root, e))
	return id
}

// Remove drops every relationship of the given type and returns how many
// were removed.
func (r *Relationships) Remove(typ string) int {
	n := 0
	for _, e := range r.x.Root.All("Relationship") {
		if e.AttrOr("Type", "") == typ {
			r.x.Root.Remove(e)
			n++
		}
	}
	return n
}
