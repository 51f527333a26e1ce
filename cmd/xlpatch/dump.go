package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/adnsv/go-xlpatch/xlread"
)

func newDumpCommand() *cobra.Command {
	var (
		sheets []string
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "dump IN",
		Short: "Print the cell values of a workbook",
		Long: `Print every sheet as tab separated rows, or as YAML with --yaml. Shared
strings are resolved, dates are shown as serial numbers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := xlread.Open(args[0], xlread.WithSheets(sheets...), xlread.WithDebugLog(verbose(cmd)))
			if err != nil {
				return err
			}
			if asYAML {
				return dumpYAML(cmd.OutOrStdout(), book)
			}
			return dumpText(cmd.OutOrStdout(), book)
		},
	}
	cmd.Flags().StringArrayVarP(&sheets, "sheet", "s", nil, "Sheet to print (repeatable, default all)")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print YAML instead of text")

	return cmd
}

func dumpText(w io.Writer, book *xlread.Book) error {
	for i, sh := range book.Sheets {
		if i > 0 {
			fmt.Fprintln(w)
		}
		title := "# " + sh.Name
		if sh.State != "" && sh.State != "visible" {
			title += " (" + sh.State + ")"
		}
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
		for _, row := range sh.Values() {
			if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
	}
	return nil
}

type sheetDump struct {
	Name   string     `yaml:"name"`
	State  string     `yaml:"state,omitempty"`
	Merged []string   `yaml:"merged,omitempty"`
	Rows   [][]string `yaml:"rows"`
}

func dumpYAML(w io.Writer, book *xlread.Book) error {
	out := make([]sheetDump, 0, len(book.Sheets))
	for _, sh := range book.Sheets {
		d := sheetDump{Name: sh.Name, State: sh.State, Rows: sh.Values()}
		for _, m := range sh.Merged {
			d.Merged = append(d.Merged, m.String())
		}
		out = append(out, d)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
