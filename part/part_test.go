package part

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnsv/go-xlpatch/xlerr"
)

const decl = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const relsXML = decl + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>` +
	`<Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="/xl/styles.xml"/>` +
	`<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com" TargetMode="External"/>` +
	`</Relationships>`

func TestRelationships(t *testing.T) {
	r, err := ParseRelationships("xl/_rels/workbook.xml.rels", "xl/workbook.xml", []byte(relsXML))
	require.NoError(t, err)
	require.Len(t, r.List(), 3)

	rel, ok := r.ByID("rId1")
	require.True(t, ok)
	assert.Equal(t, "xl/worksheets/sheet1.xml", r.Resolve(rel))
	rel, ok = r.ByType(RelStyles)
	require.True(t, ok)
	assert.Equal(t, "xl/styles.xml", r.Resolve(rel))
	rel, _ = r.ByID("rId3")
	assert.Equal(t, "External", rel.TargetMode)
	assert.False(t, r.Dirty())

	id := r.Add(RelSharedStrings, "sharedStrings.xml")
	assert.Equal(t, "rId8", id)
	assert.Equal(t, 1, r.Remove(RelStyles))
	assert.Equal(t, 0, r.Remove(RelCalcChain))
	assert.True(t, r.Dirty())

	again, err := ParseRelationships(r.PartName(), r.Source, r.Bytes())
	require.NoError(t, err)
	rel, ok = again.ByType(RelSharedStrings)
	require.True(t, ok)
	assert.Equal(t, "rId8", rel.ID)
	assert.Equal(t, "xl/sharedStrings.xml", again.Resolve(rel))
	_, ok = again.ByType(RelStyles)
	assert.False(t, ok)
}

func TestNewRelationships(t *testing.T) {
	r := NewRelationships("xl/_rels/workbook.xml.rels", "xl/workbook.xml")
	assert.Empty(t, r.List())
	assert.Equal(t, "rId1", r.Add(RelStyles, "styles.xml"))
	assert.Contains(t, string(r.Bytes()), `Target="styles.xml"`)
}

func TestPartPaths(t *testing.T) {
	assert.Equal(t, "xl/_rels/workbook.xml.rels", RelsName("xl/workbook.xml"))
	assert.Equal(t, "_rels/.rels", RelsName(""))
	assert.Equal(t, "xl/worksheets/sheet1.xml", ResolveTarget("xl/workbook.xml", "worksheets/sheet1.xml"))
	assert.Equal(t, "xl/media/a.png", ResolveTarget("xl/drawings/drawing1.xml", "../media/a.png"))
	assert.Equal(t, "xl/workbook.xml", ResolveTarget("", "xl/workbook.xml"))
	assert.Equal(t, "xl/styles.xml", ResolveTarget("xl/workbook.xml", "/xl/styles.xml"))
	assert.Equal(t, "styles.xml", RelativeTarget("xl/workbook.xml", "xl/styles.xml"))
	assert.Equal(t, "/docProps/app.xml", RelativeTarget("xl/workbook.xml", "docProps/app.xml"))
}

const typesXML = decl + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>` +
	`</Types>`

func TestContentTypes(t *testing.T) {
	c, err := ParseContentTypes("[Content_Types].xml", []byte(typesXML))
	require.NoError(t, err)

	ct, ok := c.Lookup("xl/styles.xml")
	require.True(t, ok)
	assert.Equal(t, TypeStyles, ct)
	ct, ok = c.Lookup("xl/other.xml")
	require.True(t, ok)
	assert.Equal(t, "application/xml", ct)
	_, ok = c.Lookup("xl/media/a.png")
	assert.False(t, ok)

	c.SetOverride("xl/styles.xml", "ignored")
	assert.False(t, c.Dirty())
	c.SetOverride("xl/sharedStrings.xml", TypeSharedStrings)
	ct, _ = c.Lookup("/xl/sharedStrings.xml")
	assert.Equal(t, TypeSharedStrings, ct)
	assert.True(t, c.RemoveOverride("xl/styles.xml"))
	assert.False(t, c.RemoveOverride("xl/styles.xml"))
	assert.Contains(t, string(c.Bytes()), `<Override PartName="/xl/sharedStrings.xml" ContentType="`+TypeSharedStrings+`"`)
}

func TestParseChecksRoot(t *testing.T) {
	_, err := ParseContentTypes("[Content_Types].xml", []byte(relsXML))
	assert.True(t, errors.Is(err, xlerr.ErrMalformedXML))
	assert.Equal(t, "[Content_Types].xml", err.(*xlerr.Error).Part)
}

func TestXString(t *testing.T) {
	tests := []struct {
		plain   string
		encoded string
	}{
		{"plain", "plain"},
		{"bell\x07", "bell_x0007_"},
		{"tab\tand\nnewline", "tab\tand\nnewline"},
		{"literal _x0041_", "literal _x005F_x0041_"},
		{"_x not an escape", "_x not an escape"},
	}
	for _, tt := range tests {
		t.Run(tt.plain, func(t *testing.T) {
			assert.Equal(t, tt.encoded, EncodeXString(tt.plain))
		})
	}
	assert.Equal(t, "A\x07", DecodeXString("_x0041__x0007_"))
}

func TestIsDateFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"General", false},
		{"0.00", false},
		{"yyyy-mm-dd", true},
		{"h:mm AM/PM", true},
		{"[h]:mm:ss", true},
		{`"day"0`, false},
		{`[Red]0.00`, false},
		{`\d0`, false},
		{"#,##0 _€", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDateFormat(tt.code))
		})
	}
	code, ok := BuiltinNumFmt(14)
	require.True(t, ok)
	assert.True(t, IsDateFormat(code))
}

func TestNormalizeColor(t *testing.T) {
	for in, want := range map[string]string{"#f00": "FFFF0000", "00ff00": "FF00FF00", "800000FF": "800000FF"} {
		got, err := NormalizeColor(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := NormalizeColor("blue")
	assert.True(t, errors.Is(err, xlerr.ErrInvalidEdit))
}
