package sumarray

import "golang.org/x/exp/constraints"

// SumOf is Sum for any floating point element type, for hosts that hand
// over float32 buffers. Accumulation happens in T.
func SumOf[T constraints.Float](x []T) T {
	n := len(x)
	if n == 0 {
		return 0
	}

	var sum0, sum1, sum2, sum3 T
	nUnrolled := n - n%Unroll

	i := 0
	for ; i < nUnrolled; i += Unroll {
		sum0 += x[i]
		sum1 += x[i+1]
		sum2 += x[i+2]
		sum3 += x[i+3]
	}

	var remainder T
	for ; i < n; i++ {
		remainder += x[i]
	}

	return sum0 + sum1 + sum2 + sum3 + remainder
}
