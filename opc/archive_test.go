package opc

import (
	"archive/zip"
	"bytes"
	"errors"
	"hash/crc32"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnsv/go-xlpatch/xlerr"
)

type member struct {
	name   string
	method uint16
	data   string
}

func buildZip(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	stamp := time.Date(2020, 1, 2, 3, 4, 6, 0, time.UTC)
	for _, m := range members {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: m.name, Method: m.method, Modified: stamp})
		require.NoError(t, err)
		_, err = fw.Write([]byte(m.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func rawBytes(t *testing.T, data []byte) map[string][]byte {
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

var sample = []member{
	{ContentTypesPart, zip.Deflate, "<Types/>"},
	{"xl/workbook.xml", zip.Deflate, "<workbook/>"},
	{"xl/media/image1.png", zip.Store, "\x89PNG fake"},
	{"xl/worksheets/sheet1.xml", zip.Deflate, "<worksheet/>"},
}

func TestOpenAndEntry(t *testing.T) {
	a, err := Open(buildZip(t, sample...))
	require.NoError(t, err)
	assert.Equal(t, []string{ContentTypesPart, "xl/workbook.xml", "xl/media/image1.png", "xl/worksheets/sheet1.xml"}, a.Names())

	assert.Equal(t, Untouched, a.State("xl/workbook.xml"))
	data, err := a.Entry("/xl/Workbook.xml")
	require.NoError(t, err)
	assert.Equal(t, "<workbook/>", string(data))
	assert.Equal(t, Read, a.State("xl/workbook.xml"))
	assert.Equal(t, "xl/workbook.xml", a.CanonicalName("XL/WORKBOOK.XML"))

	_, err = a.Entry("xl/missing.xml")
	assert.True(t, errors.Is(err, xlerr.ErrPartNotFound))
}

func TestOpenRejectsBrokenArchives(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	assert.True(t, errors.Is(err, xlerr.ErrCorruptArchive))

	_, err = Open(buildZip(t, member{"xl/workbook.xml", zip.Deflate, "<workbook/>"}))
	assert.True(t, errors.Is(err, xlerr.ErrCorruptArchive))
	assert.Contains(t, err.Error(), ContentTypesPart)
}

func TestBytesWithoutEditsIsIdentity(t *testing.T) {
	src := buildZip(t, sample...)
	a, err := Open(src)
	require.NoError(t, err)
	out, err := a.Bytes(nil, WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestWriteCopiesUntouchedEntriesRaw(t *testing.T) {
	src := buildZip(t, sample...)
	a, err := Open(src)
	require.NoError(t, err)

	edited := map[string][]byte{
		"xl/worksheets/sheet1.xml": []byte("<worksheet><sheetData/></worksheet>"),
		"xl/sharedStrings.xml":     []byte("<sst/>"),
	}
	out, err := a.Bytes(edited, WriteOptions{})
	require.NoError(t, err)

	before := rawBytes(t, src)
	after := rawBytes(t, out)
	for _, name := range []string{ContentTypesPart, "xl/workbook.xml", "xl/media/image1.png"} {
		assert.Equal(t, before[name], after[name], name)
	}

	b, err := Open(out)
	require.NoError(t, err)
	assert.Equal(t, []string{ContentTypesPart, "xl/workbook.xml", "xl/media/image1.png", "xl/worksheets/sheet1.xml", "xl/sharedStrings.xml"}, b.Names())
	for _, e := range b.Entries() {
		switch e.Name {
		case "xl/media/image1.png":
			assert.Equal(t, zip.Store, e.Method)
		case "xl/worksheets/sheet1.xml":
			assert.Equal(t, zip.Deflate, e.Method)
			assert.Equal(t, crc32.ChecksumIEEE(edited[e.Name]), e.CRC32)
		}
	}
	data, err := b.Entry("xl/worksheets/sheet1.xml")
	require.NoError(t, err)
	assert.Equal(t, edited["xl/worksheets/sheet1.xml"], data)

	assert.Equal(t, Touched, a.State("xl/worksheets/sheet1.xml"))
	assert.Equal(t, Untouched, a.State("xl/workbook.xml"))
}

func TestWriteIsDeterministic(t *testing.T) {
	src := buildZip(t, sample...)
	edited := map[string][]byte{"xl/workbook.xml": []byte("<workbook><sheets/></workbook>")}

	a1, err := Open(src)
	require.NoError(t, err)
	out1, err := a1.Bytes(edited, WriteOptions{})
	require.NoError(t, err)

	a2, err := Open(src)
	require.NoError(t, err)
	out2, err := a2.Bytes(edited, WriteOptions{})
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
}

func TestWriteDropsNilEntries(t *testing.T) {
	a, err := Open(buildZip(t, sample...))
	require.NoError(t, err)

	out, err := a.Bytes(map[string][]byte{"xl/media/image1.png": nil, "xl/calcChain.xml": nil}, WriteOptions{})
	require.NoError(t, err)

	b, err := Open(out)
	require.NoError(t, err)
	assert.False(t, b.Has("xl/media/image1.png"))
	assert.False(t, b.Has("xl/calcChain.xml"))
	assert.Len(t, b.Names(), len(sample)-1)
}
