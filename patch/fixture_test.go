package patch

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adnsv/go-xlpatch/opc"
)

const decl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var fixtureParts = []struct{ name, data string }{
	{opc.ContentTypesPart, decl + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
		`<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
		`<Override PartName="/xl/worksheets/sheet2.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>` +
		`<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>` +
		`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>` +
		`<Override PartName="/xl/calcChain.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.calcChain+xml"/>` +
		`</Types>`},
	{"_rels/.rels", decl + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>` +
		`</Relationships>`},
	{"xl/workbook.xml", decl + `<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<workbookPr defaultThemeVersion="164011"/>` +
		`<sheets><sheet name="Sheet1" sheetId="1" r:id="rId1"/><sheet name="Data" sheetId="2" r:id="rId2"/></sheets>` +
		`<definedNames><definedName name="Total">Sheet1!$A$2</definedName></definedNames>` +
		`<calcPr calcId="191029"/>` +
		`</workbook>`},
	{"xl/_rels/workbook.xml.rels", decl + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
		`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet2.xml"/>` +
		`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings" Target="sharedStrings.xml"/>` +
		`<Relationship Id="rId4" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
		`<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/calcChain" Target="calcChain.xml"/>` +
		`</Relationships>`},
	{"xl/worksheets/sheet1.xml", decl + `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<dimension ref="A1:B3"/>` +
		"<sheetData>\n" +
		`  <row r="1" spans="1:2"><c r="A1" t="s"><v>0</v></c><c r="B1"><v>42</v></c></row>` + "\n" +
		`  <row r="2" spans="1:2"><c r="A2"><f>B1*2</f><v>84</v></c></row>` + "\n" +
		`  <row r="3" spans="1:2"><c r="A3" t="s"><v>1</v></c></row>` + "\n" +
		"</sheetData>" +
		`<mergeCells count="1"><mergeCell ref="A3:B3"/></mergeCells>` +
		`<vendor:note xmlns:vendor="urn:example:vendor" keep="yes"><vendor:inner>opaque &amp; kept</vendor:inner></vendor:note>` +
		`<pageMargins left="0.7" right="0.7" top="0.75" bottom="0.75" header="0.3" footer="0.3"/>` +
		`</worksheet>`},
	{"xl/worksheets/sheet2.xml", decl + `<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
		`<dimension ref="A1"/>` +
		`<sheetData><row r="1"><c r="A1"><f>Sheet1!A2+1</f><v>85</v></c></row></sheetData>` +
		`</worksheet>`},
	{"xl/sharedStrings.xml", decl + `<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">` +
		`<si><t>hello</t></si><si><t>footer</t></si></sst>`},
	{"xl/styles.xml", decl + `<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">` +
		`<fonts count="1"><font><sz val="11"/><color theme="1"/><name val="Calibri"/><family val="2"/><scheme val="minor"/></font></fonts>` +
		`<fills count="2"><fill><patternFill patternType="none"/></fill><fill><patternFill patternType="gray125"/></fill></fills>` +
		`<borders count="1"><border><left/><right/><top/><bottom/><diagonal/></border></borders>` +
		`<cellStyleXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0"/></cellStyleXfs>` +
		`<cellXfs count="1"><xf numFmtId="0" fontId="0" fillId="0" borderId="0" xfId="0"/></cellXfs>` +
		`<cellStyles count="1"><cellStyle name="Normal" xfId="0" builtinId="0"/></cellStyles>` +
		`</styleSheet>`},
	{"xl/calcChain.xml", decl + `<calcChain xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><c r="A2" i="1"/><c r="A1" i="2"/></calcChain>`},
	{"docProps/custom.xml", decl + `<Properties><property name="origin">fixture</property></Properties>`},
}

// fixture zips the sample workbook, leaving out the named entries and
// replacing the ones given in override.
func fixture(t *testing.T, override map[string]string, drop ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	stamp := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
outer:
	for _, p := range fixtureParts {
		for _, d := range drop {
			if d == p.name {
				continue outer
			}
		}
		data := p.data
		if o, ok := override[p.name]; ok {
			data = o
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: stamp})
		require.NoError(t, err)
		_, err = fw.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// fixturePart returns the source text of a fixture entry.
func fixturePart(name string) string {
	for _, p := range fixtureParts {
		if p.name == name {
			return p.data
		}
	}
	return ""
}

// entry reads one part of a committed archive.
func entry(t *testing.T, data []byte, name string) string {
	t.Helper()
	a, err := opc.Open(data)
	require.NoError(t, err)
	b, err := a.Entry(name)
	require.NoError(t, err)
	return string(b)
}

func open(t *testing.T, data []byte, opts ...Option) *Session {
	t.Helper()
	s, err := OpenBytes(data, opts...)
	require.NoError(t, err)
	return s
}
