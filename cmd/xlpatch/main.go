// Command xlpatch applies edit sets to existing workbooks without
// rebuilding them, and carries a few helpers around the same engine.
package main

import (
	"os"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "xlpatch",
		Short: "Patch spreadsheet workbooks in place",
		Long: `Apply cell, format and structure edits to .xlsx workbooks while leaving
every part the edits do not touch byte for byte as it was.

Commands:
  apply  Apply an edit set to one or more workbooks.
  dump   Print the cell values of a workbook.
  new    Create a workbook from a YAML description.
  info   Print build information.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(cmd.ErrOrStderr())
			if debug {
				log.SetLevel(log.LevelDebug)
			} else {
				log.SetLevel(log.LevelWarn)
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&debug, "verbose", "v", false, "Log what the engine does")

	cmd.AddCommand(newApplyCommand())
	cmd.AddCommand(newDumpCommand())
	cmd.AddCommand(newNewCommand())
	cmd.AddCommand(newInfoCommand())

	return cmd
}

// verbose reports the --verbose flag of the root command.
func verbose(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("verbose")
	return v
}
