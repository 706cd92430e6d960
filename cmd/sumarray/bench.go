package main

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/paulstuart/sumarray"
	"github.com/paulstuart/sumarray/dispatch"
	"github.com/paulstuart/sumarray/internal/bench"
	"github.com/paulstuart/sumarray/wasm/guest"
	"github.com/paulstuart/sumarray/wasm/host"
)

// BuiltinGuest names the embedded WAT guest in --wasm lists.
const BuiltinGuest = "builtin"

type benchOptions struct {
	iterations int
	sizes      []int
	seed       int64
	runtime    string
	wasm       []string
}

// candidate is one timed implementation.
type candidate struct {
	name     string
	capacity int // 0 means unbounded
	sum      func([]float64) (float64, error)
	close    func() error
}

func newBenchCmd(a *app) *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time every registered kernel and WebAssembly guest",
		Long: `Time every kernel in the registry over each input size and compare
each result with the left-to-right reference sum.

WebAssembly guests are given as name=path (.wasm or .wat). The name
"builtin" loads the embedded WAT guest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.mergeBenchConfig(cmd, &opts)
			return a.runBench(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.iterations, "iterations", "n", 0, "calls per kernel and size")
	cmd.Flags().IntSliceVarP(&opts.sizes, "sizes", "s", nil, "input sizes")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "data seed")
	cmd.Flags().StringVarP(&opts.runtime, "runtime", "r", "", "wasm runtime: wasmtime, wazero")
	cmd.Flags().StringArrayVarP(&opts.wasm, "wasm", "w", nil, "wasm guest name=path (repeatable)")
	return cmd
}

// mergeBenchConfig fills options not given on the command line from config.
func (a *app) mergeBenchConfig(cmd *cobra.Command, opts *benchOptions) {
	cfg := a.cfg
	if !cmd.Flags().Changed("iterations") {
		opts.iterations = cfg.Bench.Iterations
	}
	if !cmd.Flags().Changed("sizes") {
		opts.sizes = cfg.Bench.Sizes
	}
	if !cmd.Flags().Changed("seed") {
		opts.seed = cfg.Bench.Seed
	}
	if opts.runtime == "" {
		opts.runtime = cfg.Wasm.Runtime
	}
	if !cmd.Flags().Changed("wasm") {
		for _, name := range slices.Sorted(maps.Keys(cfg.Wasm.Modules)) {
			opts.wasm = append(opts.wasm, name+"="+cfg.Wasm.Modules[name])
		}
	}
}

func (a *app) runBench(out io.Writer, opts benchOptions) error {
	if opts.iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", opts.iterations)
	}

	candidates, err := a.candidates(opts)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range candidates {
			if c.close == nil {
				continue
			}
			if err := c.close(); err != nil {
				a.logger.Warn("close guest", zap.String("name", c.name), zap.Error(err))
			}
		}
	}()

	var mismatches []string
	for _, n := range opts.sizes {
		data := bench.Data(n, opts.seed)
		want := sumarray.SumNaive(data)
		fmt.Fprintf(out, "\nSize: %d elements\n", n)

		for _, c := range candidates {
			if c.capacity > 0 && n > c.capacity {
				fmt.Fprintf(out, "  %-20s skipped (capacity %d)\n", c.name, c.capacity)
				continue
			}

			got, err := c.sum(data)
			if err != nil {
				return fmt.Errorf("%s at n=%d: %w", c.name, n, err)
			}
			status := "ok"
			if !withinRoundoff(got, want, data) {
				status = "MISMATCH"
				mismatches = append(mismatches, fmt.Sprintf("%s n=%d", c.name, n))
			}

			var callErr error
			stats := bench.Run(opts.iterations, func() {
				if _, err := c.sum(data); err != nil && callErr == nil {
					callErr = err
				}
			})
			if callErr != nil {
				return fmt.Errorf("%s at n=%d: %w", c.name, n, callErr)
			}
			fmt.Fprintf(out, "  %-20s %s sum=%g %s\n", c.name, stats, got, status)
		}
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("results outside rounding bound: %s", strings.Join(mismatches, ", "))
	}
	return nil
}

// candidates collects the registry kernels followed by the wasm guests.
func (a *app) candidates(opts benchOptions) ([]candidate, error) {
	var out []candidate
	for _, e := range dispatch.Global.Entries() {
		if e.Sum == nil {
			continue
		}
		fn := e.Sum
		out = append(out, candidate{
			name: e.Name,
			sum:  func(x []float64) (float64, error) { return fn(x), nil },
		})
	}

	rt := host.Runtime(opts.runtime)
	for _, arg := range opts.wasm {
		name, path, ok := strings.Cut(arg, "=")
		if !ok && arg != BuiltinGuest {
			closeAll(out)
			return nil, fmt.Errorf("wasm guest %q: want name=path", arg)
		}
		if !ok {
			name = BuiltinGuest
		}

		s, err := a.openGuest(rt, name, path)
		if err != nil {
			closeAll(out)
			return nil, fmt.Errorf("wasm guest %s: %w", name, err)
		}
		a.logger.Debug("guest loaded", zap.String("name", name), zap.String("runtime", string(rt)), zap.Int("capacity", s.Capacity()))
		out = append(out, candidate{
			name:     "wasm/" + name,
			capacity: s.Capacity(),
			sum:      s.Sum,
			close:    s.Close,
		})
	}
	return out, nil
}

func (a *app) openGuest(rt host.Runtime, name, path string) (host.Summer, error) {
	if name == BuiltinGuest && path == "" {
		wasmBytes, err := host.CompileWAT(guest.WAT)
		if err != nil {
			return nil, err
		}
		return host.New(rt, wasmBytes, host.WithLogger(a.logger))
	}
	return host.Open(rt, path, host.WithLogger(a.logger))
}

func closeAll(cs []candidate) {
	for _, c := range cs {
		if c.close != nil {
			_ = c.close()
		}
	}
}

// withinRoundoff bounds the difference between two summation orders by
// n * eps * sum(|x|).
func withinRoundoff(got, want float64, x []float64) bool {
	if got == want || (math.IsNaN(got) && math.IsNaN(want)) {
		return true
	}
	var abs float64
	for _, v := range x {
		abs += math.Abs(v)
	}
	return math.Abs(got-want) <= float64(len(x))*0x1p-52*abs
}
