// Package xlread reads whole workbooks into memory as plain grids of
// resolved values. Unlike the patcher it keeps nothing it does not
// understand; it is meant for dumping, diffing and checking results.
package xlread

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/adnsv/go-xlpatch/opc"
	"github.com/adnsv/go-xlpatch/part"
	"github.com/adnsv/go-xlpatch/patch"
	"github.com/adnsv/go-xlpatch/ref"
	"github.com/adnsv/go-xlpatch/xlerr"
)

type options struct {
	sheets []string
	debug  bool
}

// Option configures a read.
type Option func(*options)

// WithSheets limits the read to the named sheets, matched without regard
// to case. Unknown names fail the read with UnknownSheet.
func WithSheets(names ...string) Option {
	return func(o *options) {
		o.sheets = append(o.sheets, names...)
	}
}

// WithDebugLog writes a Debug level summary of the read to the fiber
// logger.
func WithDebugLog(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// Open reads the workbook at path.
func Open(path string, opts ...Option) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	b, err := OpenBytes(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// OpenBytes reads a workbook held in memory.
func OpenBytes(data []byte, opts ...Option) (*Book, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a, err := opc.Open(data)
	if err != nil {
		return nil, err
	}
	doc, err := patch.OpenDocument(a, ref.Modern)
	if err != nil {
		return nil, err
	}
	r := &reader{doc: doc}
	if r.sst, err = doc.SharedStrings(false); err != nil {
		return nil, err
	}
	if r.styles, err = doc.Styles(false); err != nil {
		return nil, err
	}

	wb := doc.Workbook()
	sheets := wb.Sheets
	if len(o.sheets) > 0 {
		sheets = sheets[:0:0]
		for _, name := range o.sheets {
			sh, err := wb.Sheet(name)
			if err != nil {
				return nil, err
			}
			sheets = append(sheets, sh)
		}
	}

	book := &Book{Date1904: wb.Date1904}
	for _, sh := range sheets {
		if sh.Part == "" {
			return nil, xlerr.New(xlerr.KindCorruptArchive, "sheet %q has no worksheet relationship", sh.Name).WithPart(wb.PartName())
		}
		s, err := r.readSheet(sh)
		if err != nil {
			return nil, err
		}
		book.Sheets = append(book.Sheets, s)
	}
	if o.debug {
		log.Debug(fmt.Sprintf("xlread: %d of %d sheets read", len(book.Sheets), len(wb.Sheets)))
	}
	return book, nil
}

type reader struct {
	doc    *patch.Document
	sst    *part.SharedStrings
	styles *part.Styles
}

func charsetReader(label string, in io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(in), nil
}

// readSheet streams the sheetData rows and merged areas of a worksheet,
// decoding one row at a time.
func (r *reader) readSheet(sh *part.Sheet) (*Sheet, error) {
	data, err := r.doc.Archive.Entry(sh.Part)
	if err != nil {
		return nil, err
	}
	malformed := func(err error) error {
		return xlerr.Wrap(xlerr.KindMalformedXML, err, "decoding worksheet").WithPart(sh.Part)
	}

	s := &Sheet{Name: sh.Name, State: sh.State}
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charsetReader
	last := 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "extLst":
			if err := d.Skip(); err != nil {
				return nil, malformed(err)
			}
		case "row":
			var row rowXML
			if err := d.DecodeElement(&row, &se); err != nil {
				return nil, malformed(err)
			}
			if last, err = r.addRow(s, row, last); err != nil {
				return nil, xlerr.InPart(err, sh.Part)
			}
		case "mergeCell":
			var mc mergeCellXML
			if err := d.DecodeElement(&mc, &se); err != nil {
				return nil, malformed(err)
			}
			if rg, err := ref.ParseRange(mc.Ref); err == nil {
				s.Merged = append(s.Merged, rg)
			}
		}
	}
	return s, nil
}

// addRow stores the cells of a row; last is the number of the previous row.
func (r *reader) addRow(s *Sheet, row rowXML, last int) (int, error) {
	n := last + 1
	if row.R != "" {
		v, err := strconv.Atoi(row.R)
		if err != nil || v < 1 {
			return last, xlerr.New(xlerr.KindMalformedXML, "bad row number %q", row.R)
		}
		n = v
	}
	if n <= last {
		return last, xlerr.New(xlerr.KindMalformedXML, "row %d follows row %d", n, last)
	}
	if err := ref.Modern.Check(ref.Cell{Row: n, Col: 1}); err != nil {
		return last, err
	}
	for len(s.Rows) < n {
		s.Rows = append(s.Rows, nil)
	}

	var cells []Cell
	col := 0
	for _, cx := range row.Cells {
		c := ref.Cell{Row: n, Col: col + 1}
		if cx.R != "" {
			var err error
			if c, err = ref.ParseCell(cx.R); err != nil {
				return last, xlerr.Wrap(xlerr.KindMalformedXML, err, "bad cell reference").WithRef(cx.R)
			}
			if c.Row != n || c.Col <= col {
				return last, xlerr.New(xlerr.KindMalformedXML, "cell out of order in row %d", n).WithRef(cx.R)
			}
		}
		for len(cells) < c.Col-1 {
			cells = append(cells, Cell{Ref: ref.Cell{Row: n, Col: len(cells) + 1}, NumFmt: "General"})
		}
		cell, err := r.resolve(c, cx)
		if err != nil {
			return last, err
		}
		cells = append(cells, cell)
		col = c.Col
	}
	s.Rows[n-1] = cells
	return n, nil
}

func (r *reader) resolve(at ref.Cell, cx cellXML) (Cell, error) {
	c := Cell{Ref: at, Style: cx.S, Value: cx.V, NumFmt: "General"}
	if r.styles != nil {
		c.NumFmt = r.styles.NumFmtCode(cx.S)
	}
	if cx.F != nil {
		c.Formula = cx.F.Text
	}
	switch cx.T {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(cx.V))
		if err != nil {
			return c, xlerr.Wrap(xlerr.KindMalformedXML, err, "bad shared string index").WithRef(at.String())
		}
		if r.sst == nil {
			return c, xlerr.New(xlerr.KindPartNotFound, "shared string %d without a shared string table", idx).WithRef(at.String())
		}
		text, err := r.sst.Get(idx)
		if err != nil {
			return c, xlerr.InPart(err, r.sst.PartName())
		}
		c.Type, c.Value = String, text
	case "b":
		c.Type = Boolean
		if cx.V == "1" || cx.V == "true" {
			c.Value = "TRUE"
		} else {
			c.Value = "FALSE"
		}
	case "e":
		c.Type = Error
	case "str", "d":
		c.Type = String
	case "inlineStr":
		c.Type = String
		c.Value = ""
		if cx.Is != nil {
			var sb strings.Builder
			sb.WriteString(cx.Is.T)
			for _, run := range cx.Is.Runs {
				sb.WriteString(run.T)
			}
			c.Value = part.DecodeXString(sb.String())
		}
	default:
		switch {
		case cx.V != "":
			c.Type = Number
		case cx.F != nil:
			c.Type = Formula
		}
	}
	return c, nil
}
