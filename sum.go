// Package sumarray provides a four-way unrolled float64 reduction intended
// to be called from a host environment (R, C, WebAssembly) as an
// accelerated primitive.
//
// The kernel keeps four independent partial sums so consecutive additions
// do not depend on each other, then folds the 0-3 trailing elements into a
// separate remainder. The partials are always combined in the same order:
//
//	sum0 + sum1 + sum2 + sum3 + remainder
//
// so every backend in this module (pure Go, cgo, wasm) returns bit-identical
// results for the same input on the same platform.
package sumarray

// Unroll is the number of independent accumulators used by Sum.
const Unroll = 4

// Sum returns the sum of all elements of x. The empty slice sums to 0.
//
// x is only read. No compensation is applied, so the result can differ from
// SumNaive by rounding because the addition order differs.
func Sum(x []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}

	var sum0, sum1, sum2, sum3 float64
	nUnrolled := n - n%Unroll

	i := 0
	for ; i < nUnrolled; i += Unroll {
		// Reslicing lets the compiler drop the bounds checks below.
		q := x[i : i+Unroll : i+Unroll]
		sum0 += q[0]
		sum1 += q[1]
		sum2 += q[2]
		sum3 += q[3]
	}

	var remainder float64
	for ; i < n; i++ {
		remainder += x[i]
	}

	return sum0 + sum1 + sum2 + sum3 + remainder
}

// SumNaive accumulates x strictly left to right.
// It is the reference Sum is checked and benchmarked against.
func SumNaive(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v
	}
	return sum
}

// Accumulators holds the partial sums of a reduction before they are
// combined.
type Accumulators struct {
	Sum0, Sum1, Sum2, Sum3 float64
	Remainder              float64
}

// Total combines the partials in the fixed order used by Sum.
func (a Accumulators) Total() float64 {
	return a.Sum0 + a.Sum1 + a.Sum2 + a.Sum3 + a.Remainder
}

// Partials runs the unrolled reduction over x and returns the accumulators
// without combining them. Partials(x).Total() == Sum(x) bit for bit.
func Partials(x []float64) Accumulators {
	var a Accumulators
	n := len(x)
	nUnrolled := n - n%Unroll

	i := 0
	for ; i < nUnrolled; i += Unroll {
		a.Sum0 += x[i]
		a.Sum1 += x[i+1]
		a.Sum2 += x[i+2]
		a.Sum3 += x[i+3]
	}
	for ; i < n; i++ {
		a.Remainder += x[i]
	}
	return a
}
