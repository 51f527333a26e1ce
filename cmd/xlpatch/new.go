package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adnsv/go-xlpatch/xl"
)

// bookSpec describes a workbook for the bulk writer:
//
//	app: reports
//	styles:
//	  header: {bold: true, fill: "#DDEBF7"}
//	sheets:
//	  - name: Data
//	    columns: {1: 24}
//	    merge: [A1:C1]
//	    rows:
//	      - style: header
//	        cells: [Name, Qty, Price]
//	      - cells: [Apples, 3, {value: 0.5, style: money}, "=B2*C2"]
type bookSpec struct {
	App      string               `yaml:"app,omitempty"`
	Date1904 bool                 `yaml:"date1904,omitempty"`
	Styles   map[string]styleSpec `yaml:"styles,omitempty"`
	Sheets   []sheetSpec          `yaml:"sheets"`
}

type styleSpec struct {
	Bold         bool    `yaml:"bold,omitempty"`
	Italic       bool    `yaml:"italic,omitempty"`
	Strike       bool    `yaml:"strike,omitempty"`
	Underline    string  `yaml:"underline,omitempty"`
	FontName     string  `yaml:"fontName,omitempty"`
	FontSize     float64 `yaml:"fontSize,omitempty"`
	FontColor    string  `yaml:"fontColor,omitempty"`
	Fill         string  `yaml:"fill,omitempty"`
	Border       string  `yaml:"border,omitempty"`
	BorderColor  string  `yaml:"borderColor,omitempty"`
	NumberFormat string  `yaml:"numberFormat,omitempty"`
	HAlign       string  `yaml:"hAlign,omitempty"`
	VAlign       string  `yaml:"vAlign,omitempty"`
	Wrap         bool    `yaml:"wrap,omitempty"`
}

func (s styleSpec) style() *xl.Style {
	return &xl.Style{
		Font: xl.Font{
			Name:          s.FontName,
			Size:          s.FontSize,
			Color:         s.FontColor,
			Bold:          s.Bold,
			Italic:        s.Italic,
			Underline:     xl.UnderlineType(s.Underline),
			Strikethrough: s.Strike,
		},
		Fill:         s.Fill,
		Border:       s.Border,
		BorderColor:  s.BorderColor,
		NumberFormat: s.NumberFormat,
		HAlign:       s.HAlign,
		VAlign:       s.VAlign,
		WrapText:     s.Wrap,
	}
}

type sheetSpec struct {
	Name    string          `yaml:"name"`
	Hidden  bool            `yaml:"hidden,omitempty"`
	Columns map[int]float32 `yaml:"columns,omitempty"`
	Merge   []string        `yaml:"merge,omitempty"`
	Rows    []rowSpec       `yaml:"rows"`
}

type rowSpec struct {
	Skip   int         `yaml:"skip,omitempty"` // empty rows before this one
	Height float32     `yaml:"height,omitempty"`
	Style  string      `yaml:"style,omitempty"`
	Cells  []yaml.Node `yaml:"cells"`
}

// cellSpec is the mapping form of a cell; the plain form is a scalar.
type cellSpec struct {
	Value  yaml.Node `yaml:"value"`
	Style  string    `yaml:"style,omitempty"`
	Inline bool      `yaml:"inline,omitempty"`
	Image  string    `yaml:"image,omitempty"` // file, relative to the description
}

func newNewCommand() *cobra.Command {
	var spec, output, dir string

	cmd := &cobra.Command{
		Use:   "new --spec FILE (-o OUT | --dir DIR)",
		Short: "Create a workbook from a YAML description",
		Long: `Create a workbook from scratch. Scalars become numbers, booleans, dates or
text by their YAML type; text starting with "=" is a formula. --dir writes
the parts unzipped, which is handy for looking at the XML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, err := loadBook(spec)
			if err != nil {
				return err
			}
			debug := xl.WithDebugLog(verbose(cmd))
			if dir != "" {
				return xl.NewWriter(xl.NewDirStorage(dir), debug).Write(wb)
			}
			return xl.WriteFile(wb, output, debug)
		},
	}
	cmd.Flags().StringVar(&spec, "spec", "", "YAML workbook description")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output workbook")
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory for unzipped parts")
	cmd.MarkFlagRequired("spec")
	cmd.MarkFlagsOneRequired("output", "dir")
	cmd.MarkFlagsMutuallyExclusive("output", "dir")

	return cmd
}

func loadBook(path string) (*xl.Workbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook description: %w", err)
	}
	var spec bookSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b := &bookBuilder{base: filepath.Dir(path), styles: map[string]*xl.Style{}}
	for name, s := range spec.Styles {
		b.styles[name] = s.style()
	}
	wb, err := b.build(&spec)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return wb, nil
}

type bookBuilder struct {
	base   string
	styles map[string]*xl.Style
}

func (b *bookBuilder) style(name string) (*xl.Style, error) {
	if name == "" {
		return nil, nil
	}
	s, ok := b.styles[name]
	if !ok {
		return nil, fmt.Errorf("unknown style %q", name)
	}
	return s, nil
}

func (b *bookBuilder) build(spec *bookSpec) (*xl.Workbook, error) {
	wb := xl.NewWorkbook()
	wb.AppName = spec.App
	wb.Date1904 = spec.Date1904
	for _, ss := range spec.Sheets {
		sh, err := wb.AddSheet(ss.Name)
		if err != nil {
			return nil, err
		}
		sh.Hidden = ss.Hidden
		for col, w := range ss.Columns {
			sh.SetColumnWidth(col, w)
		}
		for _, area := range ss.Merge {
			if err := sh.Merge(area); err != nil {
				return nil, fmt.Errorf("sheet %q: %w", ss.Name, err)
			}
		}
		for _, rs := range ss.Rows {
			sh.SkipRows(rs.Skip)
			row := sh.AddRow()
			row.Height = rs.Height
			rowStyle, err := b.style(rs.Style)
			if err != nil {
				return nil, err
			}
			for i := range rs.Cells {
				if err := b.cell(row, &rs.Cells[i], rowStyle); err != nil {
					return nil, fmt.Errorf("sheet %q row %d: %w", ss.Name, row.Number(), err)
				}
			}
		}
	}
	return wb, nil
}

func (b *bookBuilder) cell(row *xl.Row, n *yaml.Node, style *xl.Style) error {
	cs := cellSpec{Value: *n}
	if n.Kind == yaml.MappingNode {
		cs = cellSpec{}
		if err := n.Decode(&cs); err != nil {
			return err
		}
		s, err := b.style(cs.Style)
		if err != nil {
			return err
		}
		if s != nil {
			style = s
		}
	}

	if cs.Image != "" {
		blob, err := os.ReadFile(filepath.Join(b.base, cs.Image))
		if err != nil {
			return err
		}
		row.AddCell().SetPicture(&xl.PictureInfo{Extension: filepath.Ext(cs.Image), Blob: blob}).SetStyle(style)
		return nil
	}

	v := &cs.Value
	if v.Kind == 0 || v.ShortTag() == "!!null" {
		if style == nil {
			row.SkipCells(1)
		} else {
			row.AddCell().SetStyle(style)
		}
		return nil
	}
	if v.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: cell must be a scalar or a mapping", v.Line)
	}

	c := row.AddCell()
	if style != nil {
		c.SetStyle(style)
	}
	switch v.ShortTag() {
	case "!!bool":
		var x bool
		if err := v.Decode(&x); err != nil {
			return err
		}
		c.SetBool(x)
	case "!!int":
		var x int64
		if err := v.Decode(&x); err != nil {
			return err
		}
		c.SetInt(x)
	case "!!float":
		var x float64
		if err := v.Decode(&x); err != nil {
			return err
		}
		c.SetFloat(x)
	case "!!timestamp":
		var x time.Time
		if err := v.Decode(&x); err != nil {
			return err
		}
		c.SetTime(x)
	default:
		switch {
		case cs.Inline:
			c.SetInlineStr(v.Value)
		case strings.HasPrefix(v.Value, "="):
			c.SetFormula(v.Value)
		default:
			c.SetStr(v.Value)
		}
	}
	return nil
}
