package patch

import (
	"strconv"

	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/xlerr"
)

// OpType is the kind of an edit.
type OpType uint8

const (
	// OpSetValue stores a value in a cell, replacing any formula.
	OpSetValue OpType = iota
	// OpSetFormula stores a formula with an optional cached value.
	OpSetFormula
	// OpSetFormat lays a partial format over the cell's current one.
	OpSetFormat
	// OpSetStyleID assigns an existing cell format by id.
	OpSetStyleID
	// OpInsertRows inserts Count rows before row At.
	OpInsertRows
	// OpDeleteRows removes Count rows starting at row At.
	OpDeleteRows
	// OpInsertCols inserts Count columns before column At.
	OpInsertCols
	// OpDeleteCols removes Count columns starting at column At.
	OpDeleteCols
	// OpRenameSheet renames Sheet to Name.
	OpRenameSheet
)

func (t OpType) String() string {
	switch t {
	case OpSetValue:
		return "SetValue"
	case OpSetFormula:
		return "SetFormula"
	case OpSetFormat:
		return "SetFormat"
	case OpSetStyleID:
		return "SetStyleID"
	case OpInsertRows:
		return "InsertRows"
	case OpDeleteRows:
		return "DeleteRows"
	case OpInsertCols:
		return "InsertCols"
	case OpDeleteCols:
		return "DeleteCols"
	case OpRenameSheet:
		return "RenameSheet"
	default:
		return "Unknown"
	}
}

func (t OpType) isShift() bool {
	return t >= OpInsertRows && t <= OpDeleteCols
}

// Format is a partial cell format, see part.Format.
type Format = part.Format

// ValueKind tells what a Value holds.
type ValueKind uint8

const (
	ValueEmpty ValueKind = iota
	ValueNumber
	ValueString
	ValueBool
	ValueError
	ValueInlineString
)

// Value is a typed cell value.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string // string, inline string or error code
	Bool   bool
}

// Value constructors.
func Number(v float64) Value       { return Value{Kind: ValueNumber, Number: v} }
func String(s string) Value        { return Value{Kind: ValueString, Text: s} }
func InlineString(s string) Value  { return Value{Kind: ValueInlineString, Text: s} }
func Bool(b bool) Value            { return Value{Kind: ValueBool, Bool: b} }
func ErrorValue(code string) Value { return Value{Kind: ValueError, Text: code} }
func Empty() Value                 { return Value{} }

var errorCodes = []string{"#NULL!", "#DIV/0!", "#VALUE!", "#REF!", "#NAME?", "#NUM!", "#N/A", "#GETTING_DATA"}

func (v Value) validate() error {
	if v.Kind != ValueError {
		return nil
	}
	for _, c := range errorCodes {
		if v.Text == c {
			return nil
		}
	}
	return xlerr.New(xlerr.KindInvalidEdit, "unknown error code %q", v.Text)
}

// cellText returns the cell type and v text of a value that is stored
// directly in the cell. Strings are handled by the caller.
func (v Value) cellText() (string, string) {
	switch v.Kind {
	case ValueNumber:
		return "", strconv.FormatFloat(v.Number, 'g', -1, 64)
	case ValueBool:
		if v.Bool {
			return "b", "1"
		}
		return "b", "0"
	case ValueError:
		return "e", v.Text
	case ValueString, ValueInlineString:
		return "str", v.Text
	}
	return "", ""
}

// Edit is one requested change. Sheet names a sheet as it is called at the
// point the edit is reached, so edits that follow a rename use the new name.
// Cell coordinates refer to positions after every row and column shift of
// the same sheet has been applied.
type Edit struct {
	Op    OpType
	Sheet string

	Cell    string // A1 label for cell edits
	Value   Value
	Formula string
	Cached  *Value // cached result of a formula
	Format  Format
	StyleID int

	At    int // first row or column of a shift
	Count int // number of rows or columns

	Name string // new sheet name
}

// Edits is an ordered edit set with builder helpers.
type Edits struct {
	List []Edit
}

// AddSetValue appends an OpSetValue edit.
func (e *Edits) AddSetValue(sheet, cell string, v Value) {
	e.List = append(e.List, Edit{Op: OpSetValue, Sheet: sheet, Cell: cell, Value: v})
}

// AddSetFormula appends an OpSetFormula edit; cached may be nil.
func (e *Edits) AddSetFormula(sheet, cell, formula string, cached *Value) {
	e.List = append(e.List, Edit{Op: OpSetFormula, Sheet: sheet, Cell: cell, Formula: formula, Cached: cached})
}

// AddSetFormat appends an OpSetFormat edit.
func (e *Edits) AddSetFormat(sheet, cell string, f Format) {
	e.List = append(e.List, Edit{Op: OpSetFormat, Sheet: sheet, Cell: cell, Format: f})
}

// AddSetStyleID appends an OpSetStyleID edit.
func (e *Edits) AddSetStyleID(sheet, cell string, id int) {
	e.List = append(e.List, Edit{Op: OpSetStyleID, Sheet: sheet, Cell: cell, StyleID: id})
}

// AddInsertRows appends an OpInsertRows edit.
func (e *Edits) AddInsertRows(sheet string, at, n int) {
	e.List = append(e.List, Edit{Op: OpInsertRows, Sheet: sheet, At: at, Count: n})
}

// AddDeleteRows appends an OpDeleteRows edit.
func (e *Edits) AddDeleteRows(sheet string, at, n int) {
	e.List = append(e.List, Edit{Op: OpDeleteRows, Sheet: sheet, At: at, Count: n})
}

// AddInsertCols appends an OpInsertCols edit.
func (e *Edits) AddInsertCols(sheet string, at, n int) {
	e.List = append(e.List, Edit{Op: OpInsertCols, Sheet: sheet, At: at, Count: n})
}

// AddDeleteCols appends an OpDeleteCols edit.
func (e *Edits) AddDeleteCols(sheet string, at, n int) {
	e.List = append(e.List, Edit{Op: OpDeleteCols, Sheet: sheet, At: at, Count: n})
}

// AddRenameSheet appends an OpRenameSheet edit renaming sheet to name.
func (e *Edits) AddRenameSheet(sheet, name string) {
	e.List = append(e.List, Edit{Op: OpRenameSheet, Sheet: sheet, Name: name})
}

// Size returns the number of edits.
func (e *Edits) Size() int {
	return len(e.List)
}
