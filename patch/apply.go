package patch

import (
	"fmt"
	"strconv"

	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
	"github.com/gofiber/fiber/v2/log"
)

// Apply carries out plan on doc and returns the new bytes of every part
// that changed. A nil value marks a part to be dropped from the archive.
// On error doc is left half-edited and must be discarded.
func Apply(doc *Document, plan *PatchPlan) (map[string][]byte, error) {
	recalc := false

	for _, st := range plan.Steps {
		var err error
		if st.Op == OpRenameSheet {
			err = doc.renameSheet(st.Sheet, st.Name)
		} else {
			var touched bool
			touched, err = doc.shiftSheet(st.Sheet, st.Shift)
			recalc = recalc || touched
		}
		if err != nil {
			return nil, err
		}
	}

	for _, cp := range plan.Cells {
		changed, err := doc.applyCell(cp)
		if err != nil {
			return nil, err
		}
		recalc = recalc || changed
	}

	if doc.sst != nil {
		doc.sst.Flush()
	}
	if doc.styles != nil {
		doc.styles.Flush()
	}
	if recalc {
		doc.detach(part.RelCalcChain)
		doc.workbook.ForceFullCalc()
	}

	out := map[string][]byte{}
	for _, p := range doc.parts() {
		if p.Dirty() || doc.created[p.PartName()] {
			out[p.PartName()] = p.Bytes()
		}
	}
	for name := range doc.removed {
		out[name] = nil
	}
	doc.logf("%d steps, %d cells, %d parts rewritten", len(plan.Steps), len(plan.Cells), len(out))
	return out, nil
}

func debugf(id, format string, args ...any) {
	log.Debug(fmt.Sprintf("xlpatch %s: %s", id, fmt.Sprintf(format, args...)))
}

func (doc *Document) logf(format string, args ...any) {
	if doc.Debug {
		debugf(doc.ID, format, args...)
	}
}

// shiftSheet moves rows or columns of sh and every reference to them from
// other sheets and from defined names. It reports whether any formula
// was rewritten.
func (doc *Document) shiftSheet(sh *part.Sheet, s ref.Shift) (bool, error) {
	ws, err := doc.Worksheet(sh)
	if err != nil {
		return false, err
	}
	type foreign struct {
		name string
		ws   *part.Worksheet
	}
	var others []foreign
	for _, other := range doc.workbook.Sheets {
		if other == sh || other.Part == "" || !doc.mentions(other, sh.Name) {
			continue
		}
		ows, err := doc.Worksheet(other)
		if err != nil {
			return false, err
		}
		if err := ows.CheckShift(s, other.Name, sh.Name); err != nil {
			return false, err
		}
		others = append(others, foreign{other.Name, ows})
	}

	if err := ws.Shift(s, sh.Name); err != nil {
		return false, err
	}
	touched := ws.HasFormulas()
	for _, o := range others {
		o.ws.RewriteFormulas(func(text string) string {
			return ref.ShiftFormula(text, o.name, sh.Name, s, doc.Format)
		})
		touched = touched || o.ws.Dirty()
	}
	doc.workbook.RewriteDefinedNames(func(text string) string {
		return ref.ShiftFormula(text, "", sh.Name, s, doc.Format)
	})
	doc.logf("%s %s %d at %d", sh.Name, shiftVerb(s), abs(s.N), s.At)
	return touched, nil
}

func shiftVerb(s ref.Shift) string {
	if s.N > 0 {
		return "insert " + s.Axis.String()
	}
	return "delete " + s.Axis.String()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// renameSheet renames sh in the workbook and requalifies references to it
// on every sheet.
func (doc *Document) renameSheet(sh *part.Sheet, name string) error {
	old := sh.Name
	if err := doc.workbook.Rename(sh, name); err != nil {
		return err
	}
	for _, other := range doc.workbook.Sheets {
		if other.Part == "" || !doc.mentions(other, old) {
			continue
		}
		ws, err := doc.Worksheet(other)
		if err != nil {
			return err
		}
		ws.RewriteFormulas(func(text string) string {
			return ref.RenameSheetInFormula(text, old, name)
		})
	}
	doc.logf("sheet %q renamed to %q", old, name)
	return nil
}

// applyCell writes one cell patch. It reports whether a formula was added,
// replaced or removed.
func (doc *Document) applyCell(cp *CellPatch) (bool, error) {
	ws, err := doc.Worksheet(cp.Sheet)
	if err != nil {
		return false, err
	}
	if cp.writesContent() {
		if err := ws.CheckWritable(cp.Cell); err != nil {
			return false, err
		}
	}
	cell, err := ws.EnsureCell(cp.Cell)
	if err != nil {
		return false, err
	}

	formulas := false
	if cp.writesContent() {
		formulas = cell.Formula() != "" || cp.Formula != nil
		if cell.Type() == "s" {
			sst, err := doc.SharedStrings(false)
			if err != nil {
				return false, err
			}
			if sst != nil {
				sst.AddRefs(-1)
			}
		}
		if err := doc.writeContent(cell, cp); err != nil {
			return false, xlerr.InPart(err, ws.PartName())
		}
	}

	if cp.StyleID != nil || cp.Format != nil {
		base := cell.StyleID()
		if cp.StyleID != nil {
			base = *cp.StyleID
		}
		if cp.Format != nil && !cp.Format.Empty() {
			styles, err := doc.Styles(true)
			if err != nil {
				return false, err
			}
			id, err := styles.Apply(base, *cp.Format)
			if err != nil {
				return false, err
			}
			base = id
		}
		cell.SetStyleID(base)
	}
	return formulas, nil
}

func (doc *Document) writeContent(cell *part.Cell, cp *CellPatch) error {
	v := Value{}
	if cp.Value != nil {
		v = *cp.Value
	}
	if cp.Formula != nil {
		t, text := v.cellText()
		cell.SetFormula(*cp.Formula, t, text)
		return nil
	}
	switch v.Kind {
	case ValueEmpty:
		cell.Clear()
	case ValueInlineString:
		cell.SetInlineString(v.Text)
	case ValueString:
		if doc.InlineStrings {
			cell.SetInlineString(v.Text)
			return nil
		}
		sst, err := doc.SharedStrings(true)
		if err != nil {
			return err
		}
		id := sst.Intern(v.Text)
		sst.AddRefs(1)
		cell.SetValue("s", strconv.Itoa(id))
	default:
		t, text := v.cellText()
		cell.SetValue(t, text)
	}
	return nil
}
