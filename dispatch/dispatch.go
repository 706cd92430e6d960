package dispatch

import (
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/paulstuart/sumarray"
)

// Names of the pure Go kernels.
const (
	KernelUnrolled = "unrolled4"
	KernelNaive    = "naive"
)

func init() {
	Global.Register(Entry{
		Name:      KernelUnrolled,
		SIMDLevel: cpu.SIMDNone,
		Priority:  10,
		Sum:       sumarray.Sum,
	})
	Global.Register(Entry{
		Name:      KernelNaive,
		SIMDLevel: cpu.SIMDNone,
		Priority:  0,
		Sum:       sumarray.SumNaive,
	})
}

var (
	sumImpl     SumFn
	sumInitOnce sync.Once
)

func initSumOperation() {
	entry := Global.Lookup(cpu.DetectFeatures())
	if entry == nil {
		panic("dispatch: no sum implementation registered")
	}
	sumImpl = entry.Sum
}

// Sum reduces x with the best kernel for this CPU. The choice is made once,
// on first use.
func Sum(x []float64) float64 {
	sumInitOnce.Do(initSumOperation)
	return sumImpl(x)
}

// Select returns the named kernel, or the best one for the detected CPU
// when name is empty.
func Select(name string) (*Entry, error) {
	if name != "" {
		return Global.Get(name)
	}
	entry := Global.Lookup(cpu.DetectFeatures())
	if entry == nil {
		return nil, ErrUnknownKernel
	}
	return entry, nil
}
