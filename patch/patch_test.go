package patch

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

func ptr[T any](v T) *T { return &v }

// rawEntries returns the compressed bytes of every entry.
func rawEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.OpenRaw()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		out[f.Name] = b
	}
	return out
}

func TestCommitWithoutEditsIsIdentity(t *testing.T) {
	src := fixture(t, nil)
	res, err := open(t, src).Commit()
	require.NoError(t, err)
	assert.Equal(t, src, res.Bytes)
	assert.Empty(t, res.Parts)
}

func TestCommitIsDeterministic(t *testing.T) {
	src := fixture(t, nil)
	run := func() *Result {
		s := open(t, src)
		s.SetValue("Sheet1", "C5", String("new text")).
			SetFormat("Sheet1", "C5", Format{Bold: ptr(true), FillColor: ptr("#FFFF00")}).
			InsertRows("Sheet1", 2, 1).
			SetFormula("Data", "B1", "=SUM(Sheet1!A1:A4)", nil)
		res, err := s.Commit()
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Bytes, b.Bytes)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, a.Parts, b.Parts)
}

func TestCommitTwiceFromOneSession(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.SetValue("Sheet1", "B1", Number(1))
	a, err := s.Commit()
	require.NoError(t, err)
	b, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, a.Bytes, b.Bytes)
	assert.Len(t, s.Edits(), 1)

	s.Reset()
	c, err := s.Commit()
	require.NoError(t, err)
	assert.Empty(t, c.Parts)
}

func TestReplaceSharedString(t *testing.T) {
	src := fixture(t, nil)
	res, err := open(t, src).SetValue("Sheet1", "A1", String("world")).Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"xl/sharedStrings.xml", "xl/worksheets/sheet1.xml"}, res.Parts)

	sst, err := part.ParseSharedStrings("xl/sharedStrings.xml", []byte(entry(t, res.Bytes, "xl/sharedStrings.xml")))
	require.NoError(t, err)
	require.Equal(t, 3, sst.Len())
	got, err := sst.Get(2)
	require.NoError(t, err)
	assert.Equal(t, "world", got)
	got, err = sst.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", got, "existing ids are never renumbered")

	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<c r="A1" t="s"><v>2</v></c>`)
	assert.Contains(t, sheet, `<c r="B1"><v>42</v></c>`)

	raw := rawEntries(t, res.Bytes)
	orig := rawEntries(t, src)
	for _, name := range []string{"xl/workbook.xml", "xl/styles.xml", "xl/worksheets/sheet2.xml", "docProps/custom.xml"} {
		assert.Equal(t, orig[name], raw[name], name)
	}
}

func TestReuseExistingSharedString(t *testing.T) {
	res, err := open(t, fixture(t, nil)).SetValue("Data", "C1", String("footer")).Commit()
	require.NoError(t, err)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<c r="C1" t="s"><v>1</v></c>`)
	// no new entry, only the reference count moves
	assert.Contains(t, entry(t, res.Bytes, "xl/sharedStrings.xml"), `count="3" uniqueCount="2"`)
}

func TestInlineStrings(t *testing.T) {
	res, err := open(t, fixture(t, nil), WithSharedStrings(false)).SetValue("Sheet1", "B1", String("a & b")).Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"xl/worksheets/sheet1.xml"}, res.Parts)
	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<c r="B1" t="inlineStr"><is><t>a &amp; b</t></is></c>`)
}

func TestValueKinds(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.SetValues("Data", "B2", [][]Value{
		{Number(1.5), Bool(true), ErrorValue("#N/A")},
		{Empty(), InlineString("x")},
	})
	res, err := s.Commit()
	require.NoError(t, err)
	sheet := entry(t, res.Bytes, "xl/worksheets/sheet2.xml")
	assert.Contains(t, sheet, `<c r="B2"><v>1.5</v></c>`)
	assert.Contains(t, sheet, `<c r="C2" t="b"><v>1</v></c>`)
	assert.Contains(t, sheet, `<c r="D2" t="e"><v>#N/A</v></c>`)
	assert.Contains(t, sheet, `<c r="B3"`)
	assert.NotContains(t, sheet, `<c r="B3" t=`)
	assert.Contains(t, sheet, `<c r="C3" t="inlineStr"><is><t>x</t></is></c>`)
	assert.Contains(t, sheet, `<dimension ref="A1:D3"/>`)
}

func TestUnknownContentSurvivesEdits(t *testing.T) {
	src := fixture(t, nil)
	res, err := open(t, src).SetValue("Sheet1", "B1", Number(7)).Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"xl/worksheets/sheet1.xml"}, res.Parts)

	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<c r="B1"><v>7</v></c>`)
	assert.Contains(t, sheet, `<vendor:note xmlns:vendor="urn:example:vendor" keep="yes"><vendor:inner>opaque &amp; kept</vendor:inner></vendor:note>`)
	assert.Contains(t, sheet, "\n"+`  <row r="2" spans="1:2"><c r="A2"><f>B1*2</f><v>84</v></c></row>`+"\n")
	assert.Contains(t, sheet, `<pageMargins left="0.7" right="0.7" top="0.75" bottom="0.75" header="0.3" footer="0.3"/>`)
}

func TestFormatDeduplication(t *testing.T) {
	boldRed := Format{Bold: ptr(true), FontColor: ptr("FF0000")}
	s := open(t, fixture(t, nil))
	s.SetFormat("Sheet1", "B1", boldRed).SetFormat("Sheet1", "A2", boldRed)
	res, err := s.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"xl/styles.xml", "xl/worksheets/sheet1.xml"}, res.Parts)

	styles, err := part.ParseStyles("xl/styles.xml", []byte(entry(t, res.Bytes, "xl/styles.xml")))
	require.NoError(t, err)
	assert.Equal(t, 2, styles.CellFormats())
	info, err := styles.Describe(1)
	require.NoError(t, err)
	assert.Equal(t, 1, info.FontID)
	assert.NotNil(t, info.Font.First("b"))
	assert.Equal(t, "FFFF0000", info.Font.First("color").AttrOr("rgb", ""))

	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<c r="B1" s="1"><v>42</v></c>`)
	assert.Contains(t, sheet, `<c r="A2" s="1"><f>B1*2</f><v>84</v></c>`)

	// a later session sees the format in the table and reuses it
	again, err := open(t, res.Bytes).SetFormat("Data", "A1", boldRed).Commit()
	require.NoError(t, err)
	assert.NotContains(t, again.Parts, "xl/styles.xml")
	assert.Contains(t, entry(t, again.Bytes, "xl/worksheets/sheet2.xml"), `<c r="A1" s="1">`)
}

func TestFormatEditsMerge(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.SetFormat("Sheet1", "B1", Format{Bold: ptr(true)}).
		SetValue("Sheet1", "B1", Number(5)).
		SetFormat("Sheet1", "B1", Format{NumberFormat: ptr("0.000")})
	res, err := s.Commit()
	require.NoError(t, err)

	styles, err := part.ParseStyles("xl/styles.xml", []byte(entry(t, res.Bytes, "xl/styles.xml")))
	require.NoError(t, err)
	require.Equal(t, 2, styles.CellFormats(), "both format edits land in one record")
	info, err := styles.Describe(1)
	require.NoError(t, err)
	assert.NotNil(t, info.Font.First("b"))
	assert.Equal(t, part.FirstCustomNumFmt, info.NumFmtID)
	assert.Equal(t, "0.000", info.NumFmtCode)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet1.xml"), `<c r="B1" s="1"><v>5</v></c>`)
}

func TestSetStyleID(t *testing.T) {
	_, err := open(t, fixture(t, nil)).SetStyleID("Sheet1", "A1", 3).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrInvalidIndex))

	res, err := open(t, fixture(t, nil)).SetStyleID("Sheet1", "A1", 0).Commit()
	require.NoError(t, err)
	assert.Empty(t, res.Parts)
}

func TestOutOfRangeProducesNoOutput(t *testing.T) {
	for _, cell := range []string{"A2000000", "XFE1"} {
		t.Run(cell, func(t *testing.T) {
			s := open(t, fixture(t, nil))
			s.SetValue("Sheet1", "A1", Number(1)).SetValue("Sheet1", cell, Number(1))
			res, err := s.Commit()
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, xlerr.ErrOutOfRangeReference), "%v", err)
		})
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "out.xlsx")
	_, err := open(t, fixture(t, nil)).SetValue("Sheet1", "A2000000", Number(1)).CommitTo(out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLegacyBounds(t *testing.T) {
	_, err := open(t, fixture(t, nil), WithFormat(ref.Legacy)).SetValue("Sheet1", "IW1", Number(1)).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrOutOfRangeReference))
}

func TestUnknownSheet(t *testing.T) {
	_, err := open(t, fixture(t, nil)).SetValue("Missing", "A1", Number(1)).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrUnknownSheet))

	res, err := open(t, fixture(t, nil)).SetValue("sheet1", "B1", Number(1)).Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{"xl/worksheets/sheet1.xml"}, res.Parts)
}

func TestInvalidEdits(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
		kind xlerr.Kind
	}{
		{"bad cell", Edit{Op: OpSetValue, Sheet: "Sheet1", Cell: "1A"}, xlerr.KindInvalidEdit},
		{"bad error code", Edit{Op: OpSetValue, Sheet: "Sheet1", Cell: "A1", Value: ErrorValue("#OOPS")}, xlerr.KindInvalidEdit},
		{"zero count", Edit{Op: OpInsertRows, Sheet: "Sheet1", At: 2}, xlerr.KindInvalidEdit},
		{"row past the grid", Edit{Op: OpInsertRows, Sheet: "Sheet1", At: 1<<20 + 1, Count: 1}, xlerr.KindOutOfRangeReference},
		{"bad color", Edit{Op: OpSetFormat, Sheet: "Sheet1", Cell: "A1", Format: Format{FontColor: ptr("red")}}, xlerr.KindInvalidEdit},
		{"empty formula", Edit{Op: OpSetFormula, Sheet: "Sheet1", Cell: "A1", Formula: "="}, xlerr.KindInvalidEdit},
		{"bad sheet name", Edit{Op: OpRenameSheet, Sheet: "Sheet1", Name: "a/b"}, xlerr.KindInvalidEdit},
		{"duplicate sheet name", Edit{Op: OpRenameSheet, Sheet: "Sheet1", Name: "DATA"}, xlerr.KindInvalidEdit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := open(t, fixture(t, nil)).Add(tt.edit).Commit()
			require.Error(t, err)
			assert.Equal(t, tt.kind, xlerr.KindOf(err))
		})
	}
}

func TestInsertRows(t *testing.T) {
	res, err := open(t, fixture(t, nil)).InsertRows("Sheet1", 2, 1).Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"[Content_Types].xml",
		"xl/_rels/workbook.xml.rels",
		"xl/calcChain.xml",
		"xl/workbook.xml",
		"xl/worksheets/sheet1.xml",
		"xl/worksheets/sheet2.xml",
	}, res.Parts)

	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<dimension ref="A1:B4"/>`)
	assert.Contains(t, sheet, `<c r="A1" t="s"><v>0</v></c><c r="B1"><v>42</v></c>`)
	assert.Contains(t, sheet, `<c r="A3"><f>B1*2</f><v>84</v></c>`)
	assert.Contains(t, sheet, `<c r="A4" t="s"><v>1</v></c>`)
	assert.Contains(t, sheet, `<mergeCell ref="A4:B4"/>`)

	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<f>Sheet1!A3+1</f>`)
	wb := entry(t, res.Bytes, "xl/workbook.xml")
	assert.Contains(t, wb, `<definedName name="Total">Sheet1!$A$3</definedName>`)
	assert.Contains(t, wb, `<calcPr calcId="191029" fullCalcOnLoad="1"/>`)

	a, err := OpenBytes(res.Bytes)
	require.NoError(t, err)
	names, err := a.SheetNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Sheet1", "Data"}, names)
	assert.NotContains(t, entry(t, res.Bytes, "[Content_Types].xml"), "calcChain")
	assert.NotContains(t, entry(t, res.Bytes, "xl/_rels/workbook.xml.rels"), "calcChain")
	_, ok := rawEntries(t, res.Bytes)["xl/calcChain.xml"]
	assert.False(t, ok)
}

func TestDeleteRows(t *testing.T) {
	res, err := open(t, fixture(t, nil)).DeleteRows("Sheet1", 1, 1).Commit()
	require.NoError(t, err)

	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.NotContains(t, sheet, `<c r="B1"><v>42</v></c>`)
	assert.Contains(t, sheet, `<c r="A1"><f>#REF!*2</f><v>84</v></c>`)
	assert.Contains(t, sheet, `<c r="A2" t="s"><v>1</v></c>`)
	assert.Contains(t, sheet, `<mergeCell ref="A2:B2"/>`)
	assert.Contains(t, sheet, `<dimension ref="A1:B2"/>`)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<f>Sheet1!A1+1</f>`)
}

func TestShiftThenEditUsesShiftedCoordinates(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.SetValue("Sheet1", "B2", Number(9)).InsertRows("Sheet1", 1, 1)
	res, err := s.Commit()
	require.NoError(t, err)
	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	// B1 moved to B2 and was then overwritten
	assert.Contains(t, sheet, `<c r="B2"><v>9</v></c>`)
	assert.NotContains(t, sheet, `<v>42</v>`)
}

func TestInsertCols(t *testing.T) {
	res, err := open(t, fixture(t, nil)).InsertCols("Sheet1", 1, 2).Commit()
	require.NoError(t, err)
	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<row r="1" spans="3:4"><c r="C1" t="s"><v>0</v></c><c r="D1"><v>42</v></c></row>`)
	assert.Contains(t, sheet, `<c r="C2"><f>D1*2</f><v>84</v></c>`)
	assert.Contains(t, sheet, `<mergeCell ref="C3:D3"/>`)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<f>Sheet1!C2+1</f>`)
}

func TestDeleteCols(t *testing.T) {
	res, err := open(t, fixture(t, nil)).DeleteCols("Sheet1", 1, 1).Commit()
	require.NoError(t, err)
	sheet := entry(t, res.Bytes, "xl/worksheets/sheet1.xml")
	assert.Contains(t, sheet, `<c r="A1"><v>42</v></c>`)
	assert.NotContains(t, sheet, `<f>`)
	// A3:B3 shrinks to one cell, which is no merge
	assert.NotContains(t, sheet, `mergeCell`)
	assert.Contains(t, sheet, `<vendor:inner>opaque &amp; kept</vendor:inner>`)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<f>Sheet1!#REF!+1</f>`)
}

// formulas returns the formula of Data!A1 and the text of the defined name
// in a committed workbook.
func formulas(t *testing.T, data []byte) (string, string) {
	t.Helper()
	ws, err := part.ParseWorksheet("xl/worksheets/sheet2.xml", []byte(entry(t, data, "xl/worksheets/sheet2.xml")), ref.Modern)
	require.NoError(t, err)
	c := ws.Cell(ref.Cell{Row: 1, Col: 1})
	require.NotNil(t, c)
	wb, err := part.ParseWorkbook("xl/workbook.xml", []byte(entry(t, data, "xl/workbook.xml")), nil)
	require.NoError(t, err)
	names := wb.DefinedNames()
	require.Len(t, names, 1)
	return c.Formula(), names[0].Text()
}

func TestCrossSheetReferencesToUnusualNames(t *testing.T) {
	esc := strings.NewReplacer("&", "&amp;", "<", "&lt;", `"`, "&quot;")
	// src renames Sheet1 to name and points Data!A1 and the defined name
	// at it.
	src := func(t *testing.T, name string) []byte {
		q := esc.Replace(ref.QuoteSheet(name))
		return fixture(t, map[string]string{
			"xl/workbook.xml": strings.NewReplacer(
				`name="Sheet1"`, `name="`+esc.Replace(name)+`"`,
				"Sheet1!$A$2", q+"!$A$2",
			).Replace(fixturePart("xl/workbook.xml")),
			"xl/worksheets/sheet2.xml": strings.ReplaceAll(fixturePart("xl/worksheets/sheet2.xml"),
				"Sheet1!A2", q+"!A2"),
		})
	}

	for _, name := range []string{"O'Brien", "Données", "R&D", `Say "hi"`} {
		t.Run(name, func(t *testing.T) {
			q := ref.QuoteSheet(name)
			f, dn := formulas(t, src(t, name))
			require.Equal(t, q+"!A2+1", f)
			require.Equal(t, q+"!$A$2", dn)

			res, err := open(t, src(t, name)).InsertRows(name, 1, 1).Commit()
			require.NoError(t, err)
			assert.Contains(t, res.Parts, "xl/worksheets/sheet2.xml")
			f, dn = formulas(t, res.Bytes)
			assert.Equal(t, q+"!A3+1", f)
			assert.Equal(t, q+"!$A$3", dn)

			res, err = open(t, src(t, name)).RenameSheet(name, "Other").Commit()
			require.NoError(t, err)
			f, dn = formulas(t, res.Bytes)
			assert.Equal(t, "Other!A2+1", f)
			assert.Equal(t, "Other!$A$2", dn)
		})
	}
}

func TestRenameSheet(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.RenameSheet("Sheet1", "My Data").SetValue("My Data", "B1", Number(1))
	res, err := s.Commit()
	require.NoError(t, err)

	wb := entry(t, res.Bytes, "xl/workbook.xml")
	assert.Contains(t, wb, `<sheet name="My Data" sheetId="1" r:id="rId1"/>`)
	assert.Contains(t, wb, `<definedName name="Total">'My Data'!$A$2</definedName>`)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<f>'My Data'!A2+1</f>`)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet1.xml"), `<c r="B1"><v>1</v></c>`)

	_, err = open(t, fixture(t, nil)).RenameSheet("Sheet1", "X").SetValue("Sheet1", "A1", Number(1)).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrUnknownSheet))
}

const sharedFormulaSheet = decl + `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
	`<sheetData>` +
	`<row r="1"><c r="A1"><v>1</v></c><c r="B1"><f t="shared" ref="B1:B3" si="0">A1*2</f><v>2</v></c></row>` +
	`<row r="2"><c r="A2"><v>2</v></c><c r="B2"><f t="shared" si="0"/><v>4</v></c></row>` +
	`<row r="3"><c r="A3"><v>3</v></c><c r="B3"><f t="shared" si="0"/><v>6</v></c></row>` +
	`</sheetData></worksheet>`

func TestSharedFormulaGroups(t *testing.T) {
	src := fixture(t, map[string]string{"xl/worksheets/sheet1.xml": sharedFormulaSheet})

	_, err := open(t, src).SetValue("Sheet1", "B1", Number(0)).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrUnsupportedFeature), "%v", err)

	_, err = open(t, src).InsertRows("Sheet1", 2, 1).Commit()
	assert.True(t, errors.Is(err, xlerr.ErrUnsupportedFeature), "%v", err)

	res, err := open(t, src).SetValue("Sheet1", "A1", Number(10)).SetFormat("Sheet1", "B1", Format{Italic: ptr(true)}).Commit()
	require.NoError(t, err)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet1.xml"), `<c r="A1"><v>10</v></c>`)

	res, err = open(t, src).InsertRows("Sheet1", 5, 1).Commit()
	require.NoError(t, err)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet1.xml"), `<f t="shared" ref="B1:B3" si="0">A1*2</f>`)
}

func TestFormulaWithCachedValue(t *testing.T) {
	s := open(t, fixture(t, nil))
	s.SetFormula("Data", "B1", "=A1*2", ptr(Number(170)))
	res, err := s.Commit()
	require.NoError(t, err)
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<c r="B1"><f>A1*2</f><v>170</v></c>`)
	assert.Contains(t, res.Parts, "xl/calcChain.xml")
	assert.Contains(t, entry(t, res.Bytes, "xl/workbook.xml"), `fullCalcOnLoad="1"`)
}

func TestCreatesMissingParts(t *testing.T) {
	src := fixture(t, nil, "xl/sharedStrings.xml", "xl/styles.xml")
	s := open(t, src)
	s.SetValue("Data", "C1", String("fresh")).SetFormat("Data", "C1", Format{Bold: ptr(true)})
	res, err := s.Commit()
	require.NoError(t, err)
	assert.Contains(t, res.Parts, "xl/sharedStrings.xml")
	assert.Contains(t, res.Parts, "xl/styles.xml")

	sst, err := part.ParseSharedStrings("xl/sharedStrings.xml", []byte(entry(t, res.Bytes, "xl/sharedStrings.xml")))
	require.NoError(t, err)
	got, err := sst.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)

	styles, err := part.ParseStyles("xl/styles.xml", []byte(entry(t, res.Bytes, "xl/styles.xml")))
	require.NoError(t, err)
	assert.Equal(t, 2, styles.CellFormats())

	rels, err := part.ParseRelationships("xl/_rels/workbook.xml.rels", "xl/workbook.xml", []byte(entry(t, res.Bytes, "xl/_rels/workbook.xml.rels")))
	require.NoError(t, err)
	rel, ok := rels.ByType(part.RelSharedStrings)
	require.True(t, ok)
	assert.Equal(t, "xl/sharedStrings.xml", rels.Resolve(rel))
	rel, ok = rels.ByType(part.RelStyles)
	require.True(t, ok)
	assert.Equal(t, "xl/styles.xml", rels.Resolve(rel))
	assert.Contains(t, entry(t, res.Bytes, "xl/worksheets/sheet2.xml"), `<c r="C1" s="1" t="s"><v>0</v></c>`)
}

func TestCommitTo(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.xlsx")
	res, err := open(t, fixture(t, nil)).SetValue("Sheet1", "B1", Number(3)).CommitTo(out)
	require.NoError(t, err)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, data)

	s, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, out, s.Path())
}

func TestOpenRejectsBadInput(t *testing.T) {
	_, err := OpenBytes([]byte("not a zip"))
	assert.True(t, errors.Is(err, xlerr.ErrCorruptArchive))

	_, err = OpenBytes(fixture(t, nil, "xl/workbook.xml"))
	assert.True(t, errors.Is(err, xlerr.ErrCorruptArchive))

	broken := fixture(t, map[string]string{"xl/workbook.xml": "<workbook><sheets>"})
	_, err = OpenBytes(broken)
	assert.True(t, errors.Is(err, xlerr.ErrMalformedXML))
}

func TestBuildInfo(t *testing.T) {
	info := BuildInfo()
	assert.Equal(t, ModulePath, info.Package)
	assert.Equal(t, []string{"patcher", "xlread", "xl"}, info.Backends)
	assert.NotEmpty(t, info.Version)
}

func TestDebugLogIsOptIn(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.SetLevel(log.LevelDebug)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.LevelTrace)
	})

	_, err := open(t, fixture(t, nil)).InsertRows("Sheet1", 1, 1).Commit()
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	s := open(t, fixture(t, nil), WithDebugLog(true))
	_, err = s.InsertRows("Sheet1", 1, 1).Commit()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "xlpatch "+s.ID().String())
	assert.Contains(t, buf.String(), "Sheet1 insert rows 1 at 1")
}
