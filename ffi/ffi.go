//go:build cgo

// Package ffi runs the reduction kernel in C over cgo.
//
// The C code is the same four-accumulator loop as sumarray.Sum, compiled
// without fast-math so the compiler keeps the addition order and results
// match the Go kernel bit for bit. Two calling styles are offered:
//  1. Sum pins the caller's slice for the duration of the call (no copy)
//  2. Buffer stages data in pre-allocated pinned memory reused across calls
package ffi

/*
#cgo CFLAGS: -O2
#include <stddef.h>

static double sumarray_unrolled4(const double *x, ptrdiff_t n)
{
	if (n <= 0) {
		return 0.0;
	}

	double sum0 = 0.0, sum1 = 0.0, sum2 = 0.0, sum3 = 0.0;
	ptrdiff_t i = 0;
	ptrdiff_t n_unrolled = n - (n % 4);

	for (; i < n_unrolled; i += 4) {
		sum0 += x[i];
		sum1 += x[i + 1];
		sum2 += x[i + 2];
		sum3 += x[i + 3];
	}

	double remainder = 0.0;
	for (; i < n; i++) {
		remainder += x[i];
	}

	return sum0 + sum1 + sum2 + sum3 + remainder;
}
*/
import "C"

import (
	"runtime"
	"sync"
	"unsafe"
)

// Enabled reports whether the C kernel is compiled in.
const Enabled = true

// Sum returns the sum of all elements, computed in C.
// Each call pins x, calls C and unpins; x is not copied.
func Sum(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var pinner runtime.Pinner
	pinner.Pin(&x[0])
	defer pinner.Unpin()

	ptr := (*C.double)(unsafe.Pointer(&x[0]))
	return float64(C.sumarray_unrolled4(ptr, C.ptrdiff_t(len(x))))
}

// Buffer provides a C-backed sum over a pinned staging buffer.
// After initialization, calls are a copy plus a C call with no allocation,
// unless the input outgrows the buffer.
type Buffer struct {
	buf    []float64
	pinner runtime.Pinner
	ptr    *C.double

	// C may be handed the buffer from several goroutines
	mu sync.Mutex
}

// NewBuffer creates a Buffer holding up to capacity elements before it has
// to grow.
func NewBuffer(capacity int) *Buffer {
	b := &Buffer{}
	b.alloc(max(capacity, 1))
	return b
}

func (b *Buffer) alloc(n int) {
	b.pinner.Unpin()
	b.buf = make([]float64, n)
	b.pinner.Pin(&b.buf[0])
	b.ptr = (*C.double)(unsafe.Pointer(&b.buf[0]))
}

// Capacity returns the number of elements the staging buffer holds.
func (b *Buffer) Capacity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// Sum copies data into the staging buffer and sums it in C.
// The buffer grows to fit data; input is never truncated.
func (b *Buffer) Sum(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if n > len(b.buf) {
		b.alloc(max(n, 2*len(b.buf)))
	}
	copy(b.buf[:n], data)

	return float64(C.sumarray_unrolled4(b.ptr, C.ptrdiff_t(n)))
}

// Close releases the pinned memory. A closed Buffer may still be used; it
// re-allocates on the next Sum.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pinner.Unpin()
	b.buf = nil
	b.ptr = nil
}
