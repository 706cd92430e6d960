// Command sumarray sums float64 vectors with the unrolled kernel and
// benchmarks the available backends (pure Go, cgo, WebAssembly).
//
// Usage:
//
//	sumarray sum [--kernel name] [files...]
//	sumarray bench [--sizes 100,1000] [--wasm name=path]
//	sumarray kernels
//	sumarray config [--output path]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paulstuart/sumarray/internal/config"
	"github.com/paulstuart/sumarray/internal/logging"
)

// app carries state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "sumarray",
		Short: "Four-way unrolled float64 summation",
		Long: `sumarray sums float64 vectors with a four-accumulator unrolled kernel.

The same kernel is available in pure Go, in C over cgo and as a WebAssembly
guest; every backend combines its partial sums in the same order, so all of
them return identical results for the same input.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := logging.New(cfg.Log.Level, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			a.logger.Debug("config loaded", zap.String("path", a.configPath), zap.String("kernel", cfg.Kernel))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "sumarray.yaml", "config file (YAML)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newSumCmd(a), newBenchCmd(a), newKernelsCmd(a), newConfigCmd(a))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
