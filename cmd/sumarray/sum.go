package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paulstuart/sumarray/dispatch"
	"github.com/paulstuart/sumarray/internal/vecio"
)

var errStdinTwice = errors.New(`stdin ("-") can only be read once`)

type sumOptions struct {
	kernel string
	format string
	jobs   int
}

// fileResult is one line of sum output.
type fileResult struct {
	path  string
	sum   float64
	count int
}

func newSumCmd(a *app) *cobra.Command {
	var opts sumOptions

	cmd := &cobra.Command{
		Use:   "sum [files...]",
		Short: "Sum the vectors stored in files (stdin when none given)",
		Long: `Sum each input and print "path<TAB>sum<TAB>count".

Text inputs hold numbers separated by whitespace or commas ('#' comments).
Binary inputs (.f64, .bin, or --format binary) hold little-endian float64.
Use "-" for stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{vecio.Stdin}
			}
			if opts.kernel == "" {
				opts.kernel = a.cfg.Kernel
			}
			if opts.format == "" {
				opts.format = a.cfg.Input.Format
			}

			results, err := a.sumFiles(cmd.Context(), args, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%s\t%d\n", r.path, strconv.FormatFloat(r.sum, 'g', -1, 64), r.count)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.kernel, "kernel", "k", "", "kernel name (default: best for this CPU)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "input format: auto, text, binary")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", 4, "files summed concurrently")
	return cmd
}

// sumFiles loads and sums each path concurrently. Results keep argument
// order; the first failure cancels the rest.
func (a *app) sumFiles(ctx context.Context, paths []string, opts sumOptions) ([]fileResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if i := slices.Index(paths, vecio.Stdin); i >= 0 && slices.Contains(paths[i+1:], vecio.Stdin) {
		return nil, errStdinTwice
	}

	entry, err := dispatch.Select(opts.kernel)
	if err != nil {
		return nil, err
	}
	format, err := vecio.ParseFormat(opts.format)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("kernel selected", zap.String("kernel", entry.Name), zap.Int("files", len(paths)))

	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			x, err := vecio.Load(path, format)
			if err != nil {
				return err
			}
			results[i] = fileResult{path: path, sum: entry.Sum(x), count: len(x)}
			a.logger.Debug("summed", zap.String("path", path), zap.Int("count", len(x)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
