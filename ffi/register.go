//go:build cgo

package ffi

import (
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/paulstuart/sumarray/dispatch"
)

// Kernel names registered by this package.
const (
	KernelCgo         = "cgo"
	KernelCgoBuffered = "cgo-buffered"
)

// defaultCapacity sizes the shared staging buffer (100K f64 = 800KB).
const defaultCapacity = 100_000

var (
	shared     *Buffer
	sharedOnce sync.Once
)

func sharedSum(x []float64) float64 {
	sharedOnce.Do(func() {
		shared = NewBuffer(defaultCapacity)
	})
	return shared.Sum(x)
}

// The C kernels rank below the pure Go one: the cgo transition costs more
// than it saves on a loop the Go compiler already handles well.
func init() {
	dispatch.Global.Register(dispatch.Entry{
		Name:      KernelCgo,
		SIMDLevel: cpu.SIMDNone,
		Priority:  5,
		Sum:       Sum,
	})
	dispatch.Global.Register(dispatch.Entry{
		Name:      KernelCgoBuffered,
		SIMDLevel: cpu.SIMDNone,
		Priority:  4,
		Sum:       sharedSum,
	})
}
