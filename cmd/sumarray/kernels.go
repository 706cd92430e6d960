package main

import (
	"fmt"
	"io"

	"github.com/cwbudde/algo-vecmath/cpu"
	"github.com/spf13/cobra"

	"github.com/paulstuart/sumarray/dispatch"
	"github.com/paulstuart/sumarray/ffi"
)

func newKernelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kernels",
		Short: "List registered kernels and the one selected for this CPU",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listKernels(cmd.OutOrStdout())
		},
	}
}

func (a *app) listKernels(out io.Writer) error {
	f := cpu.DetectFeatures()
	fmt.Fprintf(out, "arch=%s sse2=%t avx2=%t neon=%t cgo=%t\n",
		f.Architecture, f.HasSSE2, f.HasAVX2, f.HasNEON, ffi.Enabled)

	selected, err := dispatch.Select(a.cfg.Kernel)
	if err != nil {
		return err
	}

	for _, e := range dispatch.Global.Entries() {
		mark := " "
		if e.Name == selected.Name {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %-14s priority=%-3d simd=%v\n", mark, e.Name, e.Priority, e.SIMDLevel)
	}
	return nil
}
