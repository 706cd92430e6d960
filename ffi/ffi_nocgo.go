//go:build !cgo

package ffi

// Enabled reports whether the C kernel is compiled in.
const Enabled = false

// Sum panics: the C kernel needs cgo.
func Sum(x []float64) float64 {
	panic("CGo disabled")
}
