package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adnsv/go-xlpatch/patch"
)

type applyOptions struct {
	edits  string
	output string
	outDir string
	jobs   int
	debug  bool
}

func newApplyCommand() *cobra.Command {
	var o applyOptions

	cmd := &cobra.Command{
		Use:   "apply --edits FILE (-o OUT IN | --out-dir DIR IN...)",
		Short: "Apply an edit set to workbooks",
		Long: `Apply the edits described in a YAML file. With -o a single workbook is
patched into OUT; with --out-dir every input is patched into a file of the
same name below DIR, several at a time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.debug = verbose(cmd)
			return runApply(cmd.OutOrStdout(), o, args)
		},
	}
	cmd.Flags().StringVarP(&o.edits, "edits", "e", "", "YAML edit set")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Output workbook (single input)")
	cmd.Flags().StringVar(&o.outDir, "out-dir", "", "Output directory (any number of inputs)")
	cmd.Flags().IntVarP(&o.jobs, "jobs", "j", runtime.NumCPU(), "Workbooks patched in parallel")
	cmd.MarkFlagRequired("edits")
	cmd.MarkFlagsMutuallyExclusive("output", "out-dir")

	return cmd
}

func runApply(out io.Writer, o applyOptions, inputs []string) error {
	set, err := loadEditSet(o.edits)
	if err != nil {
		return err
	}
	opts, err := set.options()
	if err != nil {
		return err
	}
	opts = append(opts, patch.WithDebugLog(o.debug))
	edits, err := set.edits()
	if err != nil {
		return err
	}

	targets := map[string]string{}
	switch {
	case o.output != "":
		if len(inputs) != 1 {
			return errors.New("-o takes exactly one input, use --out-dir for several")
		}
		targets[inputs[0]] = o.output
	case o.outDir != "":
		for _, in := range inputs {
			dst := filepath.Join(o.outDir, filepath.Base(in))
			if _, dup := targets[in]; dup {
				continue
			}
			for _, prev := range targets {
				if prev == dst {
					return fmt.Errorf("inputs collide on %s", dst)
				}
			}
			targets[in] = dst
		}
	default:
		return errors.New("one of -o or --out-dir is required")
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(o.jobs, 1))
	for _, in := range inputs {
		dst, ok := targets[in]
		if !ok {
			continue
		}
		delete(targets, in)
		in := in // per-iteration copy (go directive is 1.21)
		g.Go(func() error {
			res, err := applyOne(in, dst, edits, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, "%s -> %s: %d parts rewritten, %s\n", in, dst, len(res.Parts), res.Fingerprint)
			return nil
		})
	}
	return g.Wait()
}

func applyOne(in, dst string, edits []patch.Edit, opts []patch.Option) (*patch.Result, error) {
	s, err := patch.Open(in, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug(fmt.Sprintf("%s: session %s, %d edits", in, s.ID(), len(edits)))
	return s.Add(edits...).CommitTo(dst)
}
