// Package table provides the append-only indexed arena behind every shared
// resource table (strings, fonts, fills, borders, cell formats, number
// formats).
//
// Ids are dense, assigned in insertion order and never reused or renumbered;
// equal keys always resolve to the id of their first insertion.
package table

import (
	"github.com/adnsv/go-xlpatch/xlerr"
)

// Arena maps structural keys to stable dense ids and back to values.
type Arena[K comparable, V any] struct {
	name   string
	values []V
	keys   []K
	index  map[K]int
	base   int // number of entries loaded from the source document
}

// New creates an empty arena. The name is used in error messages.
func New[K comparable, V any](name string) *Arena[K, V] {
	return &Arena[K, V]{
		name:  name,
		index: map[K]int{},
	}
}

// Load appends an entry read from the source document. Unlike GetOrInsert
// it keeps duplicates, since the document may legitimately contain them and
// their ids are already referenced. The first occurrence of a key stays the
// canonical id for later lookups.
func (a *Arena[K, V]) Load(key K, value V) int {
	id := len(a.values)
	a.values = append(a.values, value)
	a.keys = append(a.keys, key)
	if _, exists := a.index[key]; !exists {
		a.index[key] = id
	}
	a.base = len(a.values)
	return id
}

// LoadOpaque appends an entry that must never match a lookup, e.g. a rich
// text string whose runs are not part of its key.
func (a *Arena[K, V]) LoadOpaque(value V) int {
	var zero K
	id := len(a.values)
	a.values = append(a.values, value)
	a.keys = append(a.keys, zero)
	a.base = len(a.values)
	return id
}

// GetOrInsert returns the id of key, appending value under a new id if the
// key is not present yet. The second result reports whether an insert
// happened.
func (a *Arena[K, V]) GetOrInsert(key K, value V) (int, bool) {
	if id, ok := a.index[key]; ok {
		return id, false
	}
	id := len(a.values)
	a.values = append(a.values, value)
	a.keys = append(a.keys, key)
	a.index[key] = id
	return id, true
}

// Lookup returns the id of key without inserting.
func (a *Arena[K, V]) Lookup(key K) (int, bool) {
	id, ok := a.index[key]
	return id, ok
}

// Resolve returns the value stored under id.
func (a *Arena[K, V]) Resolve(id int) (V, error) {
	if id < 0 || id >= len(a.values) {
		var zero V
		return zero, xlerr.New(xlerr.KindInvalidIndex, "%s id %d out of range 0..%d", a.name, id, len(a.values)-1)
	}
	return a.values[id], nil
}

// Len returns the number of entries.
func (a *Arena[K, V]) Len() int {
	return len(a.values)
}

// Added returns the entries appended since the source document was loaded,
// in id order, along with the id of the first one.
func (a *Arena[K, V]) Added() (first int, values []V) {
	return a.base, a.values[a.base:]
}

// Grew reports whether any entry was inserted after loading.
func (a *Arena[K, V]) Grew() bool {
	return len(a.values) > a.base
}
