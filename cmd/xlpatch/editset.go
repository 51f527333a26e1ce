package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/adnsv/go-xlpatch/patch"
	"github.com/adnsv/go-xlpatch/ref"
)

// editSet is the YAML form of a patch.Edits list:
//
//	grid: xlsx
//	sharedStrings: true
//	edits:
//	  - {sheet: Report, cell: B2, value: 12.5}
//	  - {sheet: Report, cell: B3, formula: "SUM(B1:B2)", cached: 20}
//	  - {sheet: Report, cell: A1, format: {bold: true}}
//	  - {sheet: Report, insertRows: {at: 4, count: 2}}
//	  - {sheet: Report, rename: Summary}
type editSet struct {
	Grid          string     `yaml:"grid,omitempty"` // xlsx (default) or xls
	SharedStrings *bool      `yaml:"sharedStrings,omitempty"`
	Edits         []editSpec `yaml:"edits"`
}

type editSpec struct {
	Sheet string `yaml:"sheet"`
	Cell  string `yaml:"cell,omitempty"`

	Value  *yaml.Node `yaml:"value,omitempty"` // typed by its YAML tag
	String *string    `yaml:"string,omitempty"`
	Inline *string    `yaml:"inline,omitempty"`
	Error  *string    `yaml:"error,omitempty"`
	Clear  bool       `yaml:"clear,omitempty"`

	Formula *string    `yaml:"formula,omitempty"`
	Cached  *yaml.Node `yaml:"cached,omitempty"`

	Format  *patch.Format `yaml:"format,omitempty"`
	StyleID *int          `yaml:"styleId,omitempty"`

	InsertRows *span `yaml:"insertRows,omitempty"`
	DeleteRows *span `yaml:"deleteRows,omitempty"`
	InsertCols *span `yaml:"insertCols,omitempty"`
	DeleteCols *span `yaml:"deleteCols,omitempty"`

	Rename *string `yaml:"rename,omitempty"`
}

// span is a row or column run. Columns may be given by letter.
type span struct {
	At    string `yaml:"at"`
	Count int    `yaml:"count"`
}

func loadEditSet(path string) (*editSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edit set: %w", err)
	}
	var set editSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(set.Edits) == 0 {
		return nil, fmt.Errorf("%s: no edits", path)
	}
	return &set, nil
}

func (s *editSet) options() ([]patch.Option, error) {
	var opts []patch.Option
	switch strings.ToLower(s.Grid) {
	case "", "xlsx":
	case "xls":
		opts = append(opts, patch.WithFormat(ref.Legacy))
	default:
		return nil, fmt.Errorf("unknown grid %q", s.Grid)
	}
	if s.SharedStrings != nil {
		opts = append(opts, patch.WithSharedStrings(*s.SharedStrings))
	}
	return opts, nil
}

func (s *editSet) edits() ([]patch.Edit, error) {
	out := make([]patch.Edit, 0, len(s.Edits))
	for i, spec := range s.Edits {
		e, err := spec.edit()
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// operations lists the operations an entry names.
func (spec *editSpec) operations() []string {
	var ops []string
	for _, op := range []struct {
		name string
		set  bool
	}{
		{"value", spec.Value != nil},
		{"string", spec.String != nil},
		{"inline", spec.Inline != nil},
		{"error", spec.Error != nil},
		{"clear", spec.Clear},
		{"formula", spec.Formula != nil},
		{"format", spec.Format != nil},
		{"styleId", spec.StyleID != nil},
		{"insertRows", spec.InsertRows != nil},
		{"deleteRows", spec.DeleteRows != nil},
		{"insertCols", spec.InsertCols != nil},
		{"deleteCols", spec.DeleteCols != nil},
		{"rename", spec.Rename != nil},
	} {
		if op.set {
			ops = append(ops, op.name)
		}
	}
	return ops
}

// edit converts one entry. Every entry names exactly one operation; a
// formula may carry a cached value.
func (spec *editSpec) edit() (patch.Edit, error) {
	e := patch.Edit{Sheet: spec.Sheet, Cell: spec.Cell}
	if spec.Sheet == "" {
		return e, errors.New("missing sheet")
	}
	ops := spec.operations()
	switch len(ops) {
	case 0:
		return e, errors.New("no operation")
	case 1:
	default:
		return e, fmt.Errorf("more than one operation: %s", strings.Join(ops, ", "))
	}

	var err error
	switch ops[0] {
	case "value":
		e.Op = patch.OpSetValue
		e.Value, err = scalarValue(spec.Value)
	case "string":
		e.Op, e.Value = patch.OpSetValue, patch.String(*spec.String)
	case "inline":
		e.Op, e.Value = patch.OpSetValue, patch.InlineString(*spec.Inline)
	case "error":
		e.Op, e.Value = patch.OpSetValue, patch.ErrorValue(*spec.Error)
	case "clear":
		e.Op, e.Value = patch.OpSetValue, patch.Empty()
	case "formula":
		e.Op, e.Formula = patch.OpSetFormula, *spec.Formula
	case "format":
		e.Op, e.Format = patch.OpSetFormat, *spec.Format
	case "styleId":
		e.Op, e.StyleID = patch.OpSetStyleID, *spec.StyleID
	case "insertRows":
		e.Op, e.Count = patch.OpInsertRows, spec.InsertRows.Count
		e.At, err = spec.InsertRows.at(false)
	case "deleteRows":
		e.Op, e.Count = patch.OpDeleteRows, spec.DeleteRows.Count
		e.At, err = spec.DeleteRows.at(false)
	case "insertCols":
		e.Op, e.Count = patch.OpInsertCols, spec.InsertCols.Count
		e.At, err = spec.InsertCols.at(true)
	case "deleteCols":
		e.Op, e.Count = patch.OpDeleteCols, spec.DeleteCols.Count
		e.At, err = spec.DeleteCols.at(true)
	case "rename":
		e.Op, e.Name = patch.OpRenameSheet, *spec.Rename
	}
	if err != nil {
		return e, err
	}

	cellEdit := e.Op <= patch.OpSetStyleID
	if cellEdit && spec.Cell == "" {
		return e, fmt.Errorf("%s needs a cell", ops[0])
	}
	if !cellEdit && spec.Cell != "" {
		return e, fmt.Errorf("%s takes no cell", ops[0])
	}
	if spec.Cached != nil {
		if e.Op != patch.OpSetFormula {
			return e, errors.New("cached without formula")
		}
		v, err := scalarValue(spec.Cached)
		if err != nil {
			return e, err
		}
		e.Cached = &v
	}
	return e, nil
}

func (s *span) at(cols bool) (int, error) {
	if n, err := strconv.Atoi(s.At); err == nil {
		return n, nil
	}
	if cols {
		return ref.ParseColumn(s.At)
	}
	return 0, fmt.Errorf("bad row number %q", s.At)
}

// scalarValue types a YAML scalar: numbers and booleans keep their type,
// null clears, anything else is text.
func scalarValue(n *yaml.Node) (patch.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return patch.Value{}, fmt.Errorf("line %d: value must be a scalar", n.Line)
	}
	switch n.ShortTag() {
	case "!!null":
		return patch.Empty(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return patch.Value{}, err
		}
		return patch.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return patch.Value{}, err
		}
		return patch.Number(f), nil
	}
	return patch.String(n.Value), nil
}
