package patch

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"

	"github.com/adnsv/go-xlpatch/opc"
	"github.com/adnsv/go-xlpatch/ref"
)

type options struct {
	format        ref.Format
	sharedStrings bool
	method        uint16
	debug         bool
}

// Option is a functional option for Open and OpenBytes.
type Option func(*options)

// WithFormat sets the grid bounds references are checked against. The
// default is ref.Modern.
func WithFormat(f ref.Format) Option {
	return func(opts *options) {
		opts.format = f
	}
}

// WithSharedStrings selects where new text goes: the shared string table
// (the default) or, when disabled, inline strings in the cells themselves.
func WithSharedStrings(enabled bool) Option {
	return func(opts *options) {
		opts.sharedStrings = enabled
	}
}

// WithCompression sets the zip method for parts that did not exist in the
// source archive. Rewritten parts keep their original method.
func WithCompression(method uint16) Option {
	return func(opts *options) {
		opts.method = method
	}
}

// WithDebugLog sends Debug level lines about opening, planning and
// committing to the fiber logger. Sessions are silent by default.
func WithDebugLog(enabled bool) Option {
	return func(opts *options) {
		opts.debug = enabled
	}
}

// Session collects edits against one source workbook and produces patched
// copies of it. The source bytes are never modified.
type Session struct {
	id    uuid.UUID
	src   []byte
	path  string
	opts  options
	edits Edits
}

// Result is the outcome of a commit.
type Result struct {
	Bytes       []byte
	Parts       []string  // rewritten, created or dropped entries
	Fingerprint uuid.UUID // name-based UUID of Bytes
}

// Open reads a workbook file and starts a session on it.
func Open(path string, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	s, err := OpenBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// OpenBytes starts a session on an in-memory workbook. The archive and
// the workbook part are validated up front.
func OpenBytes(data []byte, opts ...Option) (*Session, error) {
	s := &Session{
		id:  uuid.New(),
		src: data,
		opts: options{
			format:        ref.Modern,
			sharedStrings: true,
		},
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if _, err := s.document(); err != nil {
		return nil, err
	}
	s.logf("opened %d bytes", len(data))
	return s, nil
}

func (s *Session) logf(format string, args ...any) {
	if s.opts.debug {
		debugf(s.id.String(), format, args...)
	}
}

func (s *Session) document() (*Document, error) {
	a, err := opc.Open(s.src)
	if err != nil {
		return nil, err
	}
	doc, err := OpenDocument(a, s.opts.format)
	if err != nil {
		return nil, err
	}
	doc.ID = s.id.String()
	doc.Debug = s.opts.debug
	doc.InlineStrings = !s.opts.sharedStrings
	return doc, nil
}

// ID identifies the session in log output.
func (s *Session) ID() uuid.UUID { return s.id }

// Path is the file the session was opened from, "" for OpenBytes.
func (s *Session) Path() string { return s.path }

// SheetNames lists the sheets of the source workbook.
func (s *Session) SheetNames() ([]string, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	return doc.Workbook().Names(), nil
}

// SetValue queues a typed value for a cell. Strings go to the shared
// string table unless the session was opened WithSharedStrings(false).
func (s *Session) SetValue(sheet, cell string, v Value) *Session {
	s.edits.AddSetValue(sheet, cell, v)
	return s
}

// SetFormula queues a formula, written without the leading "=". A non-nil
// cached value is stored as the last computed result.
func (s *Session) SetFormula(sheet, cell, formula string, cached *Value) *Session {
	s.edits.AddSetFormula(sheet, cell, formula, cached)
	return s
}

// SetFormat queues a format change. Unset fields keep the cell's current
// style.
func (s *Session) SetFormat(sheet, cell string, f Format) *Session {
	s.edits.AddSetFormat(sheet, cell, f)
	return s
}

// SetStyleID points a cell at an existing cellXfs entry.
func (s *Session) SetStyleID(sheet, cell string, id int) *Session {
	s.edits.AddSetStyleID(sheet, cell, id)
	return s
}

// InsertRows inserts n empty rows before row at (1-based).
func (s *Session) InsertRows(sheet string, at, n int) *Session {
	s.edits.AddInsertRows(sheet, at, n)
	return s
}

// DeleteRows removes n rows starting at row at. References into the
// removed rows become #REF!.
func (s *Session) DeleteRows(sheet string, at, n int) *Session {
	s.edits.AddDeleteRows(sheet, at, n)
	return s
}

// InsertCols inserts n empty columns before column at (1-based).
func (s *Session) InsertCols(sheet string, at, n int) *Session {
	s.edits.AddInsertCols(sheet, at, n)
	return s
}

// DeleteCols removes n columns starting at column at.
func (s *Session) DeleteCols(sheet string, at, n int) *Session {
	s.edits.AddDeleteCols(sheet, at, n)
	return s
}

// RenameSheet renames a sheet and rewrites references to it in formulas
// and defined names.
func (s *Session) RenameSheet(sheet, name string) *Session {
	s.edits.AddRenameSheet(sheet, name)
	return s
}

// SetValues writes a block of values with its top left corner at topLeft.
// A malformed corner is reported at commit time.
func (s *Session) SetValues(sheet, topLeft string, rows [][]Value) *Session {
	origin, err := ref.ParseCell(topLeft)
	if err != nil {
		s.edits.AddSetValue(sheet, topLeft, Empty())
		return s
	}
	for i, row := range rows {
		for j, v := range row {
			c := ref.Cell{Row: origin.Row + i, Col: origin.Col + j}
			s.edits.AddSetValue(sheet, c.String(), v)
		}
	}
	return s
}

// Add enqueues prepared edits.
func (s *Session) Add(edits ...Edit) *Session {
	s.edits.List = append(s.edits.List, edits...)
	return s
}

// Edits returns a copy of the queued edits.
func (s *Session) Edits() []Edit {
	return slices.Clone(s.edits.List)
}

// Reset drops every queued edit.
func (s *Session) Reset() {
	s.edits.List = nil
}

// Commit applies the queued edits to a fresh copy of the source and
// returns the patched archive. Either every edit is applied or an error is
// returned and no output exists. The session keeps its edits, so Commit
// can be called again and yields the same bytes.
func (s *Session) Commit() (*Result, error) {
	doc, err := s.document()
	if err != nil {
		return nil, err
	}
	plan, err := Plan(doc, s.edits.List)
	if err != nil {
		return nil, err
	}
	edited, err := Apply(doc, plan)
	if err != nil {
		return nil, err
	}

	res := &Result{Parts: maps.Keys(edited)}
	slices.Sort(res.Parts)
	if len(edited) == 0 {
		res.Bytes = bytes.Clone(s.src)
	} else {
		res.Bytes, err = doc.Archive.Bytes(edited, opc.WriteOptions{Method: s.opts.method})
		if err != nil {
			return nil, err
		}
	}
	res.Fingerprint = uuid.NewSHA1(uuid.NameSpaceOID, res.Bytes)
	s.logf("committed %d edits, %d parts, fingerprint %s", len(s.edits.List), len(res.Parts), res.Fingerprint)
	return res, nil
}

// CommitTo commits and writes the result to path. The file is replaced
// atomically; on error path is left as it was.
func (s *Session) CommitTo(path string) (*Result, error) {
	res, err := s.Commit()
	if err != nil {
		return nil, err
	}
	if err := opc.WriteFile(path, res.Bytes); err != nil {
		return nil, err
	}
	return res, nil
}
