package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookYAML = `app: xlpatch tests
styles:
  header: {bold: true, fill: "#DDEBF7"}
  money: {numberFormat: "0.00"}
sheets:
  - name: Data
    columns: {1: 24}
    rows:
      - style: header
        cells: [Name, Qty]
      - cells: [Apples, 3]
      - cells: [Pears, {value: 4.5, style: money}]
      - cells: [Total, "=SUM(B2:B3)"]
  - name: Notes
    hidden: true
    rows:
      - cells: [{value: " memo ", inline: true}, 2023-03-15, true]
`

const editsYAML = `edits:
  - {sheet: Data, insertRows: {at: 2, count: 1}}
  - {sheet: Data, cell: A2, string: Bananas}
  - {sheet: Data, cell: B2, value: 7}
  - {sheet: Data, cell: B5, formula: "SUM(B2:B4)", cached: 14.5}
  - {sheet: Data, rename: Fruit}
  - {sheet: Fruit, cell: A1, format: {italic: true}}
`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := bytes.Buffer{}
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(content), 0o666))
	return fn
}

func TestNewDumpApply(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.xlsx")

	_, err := run(t, "new", "--spec", writeFile(t, dir, "book.yaml", bookYAML), "-o", book)
	require.NoError(t, err)

	out, err := run(t, "dump", book)
	require.NoError(t, err)
	assert.Equal(t, "# Data\nName\tQty\nApples\t3\nPears\t4.5\nTotal\t\n\n# Notes (hidden)\n memo \t45000\tTRUE\n", out)

	patched := filepath.Join(dir, "patched.xlsx")
	out, err = run(t, "apply", "--edits", writeFile(t, dir, "edits.yaml", editsYAML), "-o", patched, book)
	require.NoError(t, err)
	assert.Contains(t, out, book+" -> "+patched)

	out, err = run(t, "dump", "--sheet", "fruit", patched)
	require.NoError(t, err)
	assert.Equal(t, "# Fruit\nName\tQty\nBananas\t7\nApples\t3\nPears\t4.5\nTotal\t14.5\n", out)

	out, err = run(t, "dump", "--yaml", "-s", "Notes", patched)
	require.NoError(t, err)
	assert.Contains(t, out, "name: Notes")
	assert.Contains(t, out, "state: hidden")
}

func TestApplyBatch(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.xlsx")
	_, err := run(t, "new", "--spec", writeFile(t, dir, "book.yaml", bookYAML), "-o", book)
	require.NoError(t, err)
	data, err := os.ReadFile(book)
	require.NoError(t, err)

	in := filepath.Join(dir, "in")
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(in, 0o777))
	require.NoError(t, os.Mkdir(outDir, 0o777))
	var inputs []string
	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		inputs = append(inputs, writeFile(t, in, name, string(data)))
	}
	edits := writeFile(t, dir, "edits.yaml", editsYAML)

	args := append([]string{"apply", "-e", edits, "--out-dir", outDir, "--jobs", "2"}, inputs...)
	out, err := run(t, args...)
	require.NoError(t, err)
	for _, name := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		assert.FileExists(t, filepath.Join(outDir, name))
		assert.Contains(t, out, filepath.Join(outDir, name))
	}

	// every copy gets the same bytes
	a, err := os.ReadFile(filepath.Join(outDir, "a.xlsx"))
	require.NoError(t, err)
	c, err := os.ReadFile(filepath.Join(outDir, "c.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestApplyErrors(t *testing.T) {
	dir := t.TempDir()
	book := filepath.Join(dir, "book.xlsx")
	_, err := run(t, "new", "--spec", writeFile(t, dir, "book.yaml", bookYAML), "-o", book)
	require.NoError(t, err)
	edits := writeFile(t, dir, "edits.yaml", editsYAML)

	_, err = run(t, "apply", "-e", edits, "-o", filepath.Join(dir, "x.xlsx"), book, book)
	assert.ErrorContains(t, err, "exactly one input")

	_, err = run(t, "apply", "-e", edits, book)
	assert.ErrorContains(t, err, "--out-dir")

	bad := writeFile(t, dir, "bad.yaml", "edits:\n  - {sheet: Missing, cell: A1, value: 1}\n")
	_, err = run(t, "apply", "-e", bad, "-o", filepath.Join(dir, "y.xlsx"), book)
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "y.xlsx"))

	_, err = run(t, "apply", "-e", writeFile(t, dir, "empty.yaml", "edits: []\n"), "-o", filepath.Join(dir, "z.xlsx"), book)
	assert.ErrorContains(t, err, "no edits")
}

func TestNewErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		spec string
	}{
		{"unknown style", "sheets:\n  - name: S\n    rows:\n      - style: nope\n        cells: [1]\n"},
		{"bad sheet name", "sheets:\n  - name: 'a/b'\n"},
		{"overlapping merge", "sheets:\n  - name: S\n    merge: [A1:B2, B2:C3]\n"},
		{"missing image", "sheets:\n  - name: S\n    rows:\n      - cells: [{image: none.png}]\n"},
		{"no sheets", "app: x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "new", "--spec", writeFile(t, dir, "spec.yaml", tt.spec), "-o", filepath.Join(dir, "out.xlsx"))
			assert.Error(t, err)
		})
	}
}

func TestNewDir(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG\r\n\x1a\nnot really")
	writeFile(t, dir, "logo.png", string(png))
	spec := writeFile(t, dir, "book.yaml", "sheets:\n  - name: S\n    rows:\n      - cells: [{image: logo.png}, x]\n")

	parts := filepath.Join(dir, "parts")
	_, err := run(t, "new", "--spec", spec, "--dir", parts)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(parts, "xl", "worksheets", "sheet1.xml"))
	assert.FileExists(t, filepath.Join(parts, "xl", "richData", "rdrichvalue.xml"))
}

func TestInfo(t *testing.T) {
	out, err := run(t, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "package: github.com/adnsv/go-xlpatch")
	assert.Contains(t, out, "- patcher")
}
