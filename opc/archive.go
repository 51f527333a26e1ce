// Package opc reads and writes the zip container of an OOXML package.
//
// It never looks inside parts: it exposes them as named byte streams, keeps
// track of which ones were read or replaced, and on write copies every
// untouched entry with its original compressed bytes, method and CRC.
package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/exp/maps"

	"github.com/adnsv/go-xlpatch/xlerr"
)

// ContentTypesPart is the one part every package must carry.
const ContentTypesPart = "[Content_Types].xml"

// EntryState tracks what a patch session did with an entry.
type EntryState int

const (
	Untouched EntryState = iota
	Read
	Touched
)

func (s EntryState) String() string {
	switch s {
	case Read:
		return "read"
	case Touched:
		return "touched"
	default:
		return "untouched"
	}
}

// Entry is one named member of the archive.
type Entry struct {
	Name   string
	Method uint16
	CRC32  uint32
	Size   uint64

	file  *zip.File
	state EntryState
}

// Archive is an opened package. Entry order follows the central directory.
type Archive struct {
	src     []byte
	entries []*Entry
	byName  map[string]*Entry
	byFold  map[string]*Entry
}

// Open parses an in-memory package. It fails with CorruptArchive when the
// central directory is unreadable, names repeat, or the content types part
// is missing.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, xlerr.Wrap(xlerr.KindCorruptArchive, err, "reading central directory")
	}
	a := &Archive{
		src:    data,
		byName: make(map[string]*Entry, len(zr.File)),
		byFold: make(map[string]*Entry, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, dup := a.byName[f.Name]; dup {
			return nil, xlerr.New(xlerr.KindCorruptArchive, "duplicate entry").WithPart(f.Name)
		}
		e := &Entry{
			Name:   f.Name,
			Method: f.Method,
			CRC32:  f.CRC32,
			Size:   f.UncompressedSize64,
			file:   f,
		}
		a.entries = append(a.entries, e)
		a.byName[f.Name] = e
		a.byFold[strings.ToLower(f.Name)] = e
	}
	if !a.Has(ContentTypesPart) {
		return nil, xlerr.New(xlerr.KindCorruptArchive, "missing required part").WithPart(ContentTypesPart)
	}
	return a, nil
}

// OpenFile reads and opens a package from disk.
func OpenFile(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Open(data)
}

// Source returns the bytes the archive was opened from.
func (a *Archive) Source() []byte {
	return a.src
}

// Names lists entry names in archive order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns the entries in archive order.
func (a *Archive) Entries() []*Entry {
	return a.entries
}

func (a *Archive) lookup(name string) *Entry {
	name = strings.TrimPrefix(name, "/")
	if e, ok := a.byName[name]; ok {
		return e
	}
	// part names are case-insensitive in OPC
	return a.byFold[strings.ToLower(name)]
}

// Has reports whether a part exists.
func (a *Archive) Has(name string) bool {
	return a.lookup(name) != nil
}

// Entry returns the uncompressed bytes of a part, failing with PartNotFound
// when it is absent and CorruptArchive when it cannot be inflated or its
// checksum does not match.
func (a *Archive) Entry(name string) ([]byte, error) {
	e := a.lookup(name)
	if e == nil {
		return nil, xlerr.New(xlerr.KindPartNotFound, "no such entry").WithPart(name)
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, xlerr.Wrap(xlerr.KindCorruptArchive, err, "opening entry").WithPart(e.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, xlerr.Wrap(xlerr.KindCorruptArchive, err, "reading entry").WithPart(e.Name)
	}
	if e.state == Untouched {
		e.state = Read
	}
	return data, nil
}

// State returns what the session did with a part.
func (a *Archive) State(name string) EntryState {
	if e := a.lookup(name); e != nil {
		return e.state
	}
	return Untouched
}

// CanonicalName returns the stored spelling of a part name, or name itself
// for a part that does not exist yet.
func (a *Archive) CanonicalName(name string) string {
	if e := a.lookup(name); e != nil {
		return e.Name
	}
	return strings.TrimPrefix(name, "/")
}

// WriteOptions controls how replaced and added entries are stored.
type WriteOptions struct {
	// Method is used for entries that do not exist in the source archive.
	// Zero means zip.Deflate.
	Method uint16
}

// Write emits a new archive. Entries present in edited get the new bytes
// (recompressed with their original method, CRC recomputed); every other
// entry is copied raw. Names in edited that the source lacks are appended
// in sorted order. A nil value drops the entry.
func (a *Archive) Write(w io.Writer, edited map[string][]byte, opts WriteOptions) error {
	zw := zip.NewWriter(w)
	done := map[string]bool{}
	for _, e := range a.entries {
		data, ok := edited[e.Name]
		if !ok {
			if err := zw.Copy(e.file); err != nil {
				return xlerr.Wrap(xlerr.KindCorruptArchive, err, "copying entry").WithPart(e.Name)
			}
			continue
		}
		done[e.Name] = true
		e.state = Touched
		if data == nil {
			continue
		}
		method := e.Method
		if method != zip.Store && method != zip.Deflate {
			method = zip.Deflate
		}
		hdr := &zip.FileHeader{
			Name:          e.Name,
			Comment:       e.file.Comment,
			Method:        method,
			Modified:      e.file.Modified,
			ExternalAttrs: e.file.ExternalAttrs,
			NonUTF8:       e.file.NonUTF8,
		}
		if err := writeEntry(zw, hdr, data); err != nil {
			return err
		}
	}

	added := maps.Keys(edited)
	slices.Sort(added)
	method := opts.Method
	if method == 0 {
		method = zip.Deflate
	}
	for _, name := range added {
		if done[name] || edited[name] == nil {
			continue
		}
		if a.lookup(name) != nil {
			return xlerr.New(xlerr.KindInvalidEdit, "edited name differs from stored name only by case").WithPart(name)
		}
		hdr := &zip.FileHeader{Name: name, Method: method}
		if err := writeEntry(zw, hdr, edited[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}

func writeEntry(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", hdr.Name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("writing entry %s: %w", hdr.Name, err)
	}
	return nil
}

// Bytes builds the new archive in memory. With nothing edited it returns the
// source bytes unchanged.
func (a *Archive) Bytes(edited map[string][]byte, opts WriteOptions) ([]byte, error) {
	if len(edited) == 0 {
		return a.src, nil
	}
	var buf bytes.Buffer
	if err := a.Write(&buf, edited, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile replaces the file at path with data. The bytes go to a
// temporary file in the same directory first, so on error path is left as
// it was.
func WriteFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".xlpatch-*")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	tmp := f.Name()
	if _, err = f.Write(data); err == nil {
		err = f.Close()
	} else {
		f.Close()
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
