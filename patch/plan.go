package patch

import (
	"fmt"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
	"golang.org/x/exp/maps"
)

// Step is a sheet-level edit: a row or column shift or a rename. Steps
// run in the order they were given, before any cell edit.
type Step struct {
	Op    OpType
	Sheet *part.Sheet
	Shift ref.Shift
	Name  string
}

// CellPatch collects every edit of one cell. Sub-fields set by different
// edits combine; a sub-field set twice keeps the last value.
type CellPatch struct {
	Sheet *part.Sheet
	Cell  ref.Cell

	Value   *Value
	Formula *string
	StyleID *int
	Format  *Format
}

func (cp *CellPatch) writesContent() bool {
	return cp.Value != nil || cp.Formula != nil
}

type cellKey struct {
	part string
	cell ref.Cell
}

// PatchPlan is the resolved form of an edit set.
type PatchPlan struct {
	Steps []Step
	Cells []*CellPatch // in order of first touch

	index map[cellKey]*CellPatch
	parts map[string]bool
}

// Parts lists the worksheet parts the plan edits directly. Shared parts
// (workbook, strings, styles, relationships) are decided when the plan
// is applied.
func (p *PatchPlan) Parts() []string {
	names := maps.Keys(p.parts)
	slices.Sort(names)
	return names
}

// Empty reports whether the plan changes nothing.
func (p *PatchPlan) Empty() bool {
	return len(p.Steps) == 0 && len(p.Cells) == 0
}

func (p *PatchPlan) cell(sh *part.Sheet, c ref.Cell) *CellPatch {
	k := cellKey{sh.Part, c}
	if cp, ok := p.index[k]; ok {
		return cp
	}
	cp := &CellPatch{Sheet: sh, Cell: c}
	p.index[k] = cp
	p.Cells = append(p.Cells, cp)
	p.parts[sh.Part] = true
	return cp
}

// sheetNames tracks sheet names as renames go by.
type sheetNames struct {
	wb      *part.Workbook
	current map[*part.Sheet]string
}

func (sn *sheetNames) lookup(name string) (*part.Sheet, error) {
	for _, sh := range sn.wb.Sheets {
		if strings.EqualFold(sn.current[sh], name) {
			if sh.Part == "" {
				return nil, xlerr.New(xlerr.KindCorruptArchive, "sheet %q has no worksheet relationship", name).WithPart(sn.wb.PartName())
			}
			return sh, nil
		}
	}
	return nil, xlerr.New(xlerr.KindUnknownSheet, "no sheet named %q", name).WithPart(sn.wb.PartName())
}

func (sn *sheetNames) rename(sh *part.Sheet, name string) error {
	if err := part.ValidateSheetName(name); err != nil {
		return err
	}
	for other, n := range sn.current {
		if other != sh && strings.EqualFold(n, name) {
			return xlerr.New(xlerr.KindInvalidEdit, "duplicate sheet name %q", name)
		}
	}
	sn.current[sh] = name
	return nil
}

// Plan validates edits against doc and resolves them into a PatchPlan.
// Nothing in doc is modified. The first invalid edit fails the whole plan.
func Plan(doc *Document, edits []Edit) (*PatchPlan, error) {
	p := &PatchPlan{
		index: map[cellKey]*CellPatch{},
		parts: map[string]bool{},
	}
	names := &sheetNames{wb: doc.workbook, current: map[*part.Sheet]string{}}
	for _, sh := range doc.workbook.Sheets {
		names.current[sh] = sh.Name
	}
	styles, err := doc.Styles(false)
	if err != nil {
		return nil, err
	}
	cellFormats := 1
	if styles != nil {
		cellFormats = max(styles.CellFormats(), 1)
	}

	for i, e := range edits {
		if err := planEdit(p, doc, names, cellFormats, e); err != nil {
			return nil, fmt.Errorf("edit %d (%s): %w", i, e.Op, err)
		}
	}
	return p, nil
}

func planEdit(p *PatchPlan, doc *Document, names *sheetNames, cellFormats int, e Edit) error {
	sh, err := names.lookup(e.Sheet)
	if err != nil {
		return err
	}

	switch {
	case e.Op == OpRenameSheet:
		if err := names.rename(sh, e.Name); err != nil {
			return err
		}
		p.Steps = append(p.Steps, Step{Op: e.Op, Sheet: sh, Name: e.Name})
		p.parts[doc.workbook.PartName()] = true
		return nil

	case e.Op.isShift():
		s := ref.Shift{Axis: ref.Rows, At: e.At, N: e.Count}
		if e.Op == OpInsertCols || e.Op == OpDeleteCols {
			s.Axis = ref.Cols
		}
		if e.Count < 1 {
			return xlerr.New(xlerr.KindInvalidEdit, "%s count must be at least 1, got %d", s.Axis, e.Count)
		}
		if e.Op == OpDeleteRows || e.Op == OpDeleteCols {
			s.N = -e.Count
		}
		if limit := s.Limit(doc.Format); e.At < 1 || e.At > limit {
			return xlerr.New(xlerr.KindOutOfRangeReference, "%s %d outside 1..%d", s.Axis, e.At, limit).WithPart(sh.Part)
		}
		p.Steps = append(p.Steps, Step{Op: e.Op, Sheet: sh, Shift: s})
		p.parts[sh.Part] = true
		return nil
	}

	c, err := ref.ParseCell(e.Cell)
	if err != nil {
		return err
	}
	if err := doc.Format.Check(c); err != nil {
		return xlerr.InPart(err, sh.Part)
	}
	cp := p.cell(sh, c)

	switch e.Op {
	case OpSetValue:
		if err := e.Value.validate(); err != nil {
			return err
		}
		v := e.Value
		cp.Value = &v
		if v.Kind == ValueEmpty {
			cp.Formula = nil
		}
	case OpSetFormula:
		f := strings.TrimPrefix(strings.TrimSpace(e.Formula), "=")
		if f == "" {
			return xlerr.New(xlerr.KindInvalidEdit, "empty formula").WithRef(e.Cell)
		}
		cp.Formula = &f
		if e.Cached != nil {
			if err := e.Cached.validate(); err != nil {
				return err
			}
			v := *e.Cached
			cp.Value = &v
		} else if cp.Value != nil && cp.Value.Kind == ValueEmpty {
			cp.Value = nil
		}
	case OpSetFormat:
		if err := e.Format.Validate(); err != nil {
			return err
		}
		if cp.Format == nil {
			cp.Format = &Format{}
		}
		if err := mergo.Merge(cp.Format, e.Format, mergo.WithOverride, mergo.WithoutDereference); err != nil {
			return xlerr.Wrap(xlerr.KindInvalidEdit, err, "merge format")
		}
	case OpSetStyleID:
		if e.StyleID < 0 || e.StyleID >= cellFormats {
			return xlerr.New(xlerr.KindInvalidIndex, "cell format %d outside 0..%d", e.StyleID, cellFormats-1).WithRef(e.Cell)
		}
		id := e.StyleID
		cp.StyleID = &id
		cp.Format = nil
	default:
		return xlerr.New(xlerr.KindInvalidEdit, "unknown edit kind %d", e.Op)
	}
	return nil
}
