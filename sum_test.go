package sumarray

import (
	"math"
	"math/rand"
	"sync"
	"testing"
)

// Test data sizes
var sizes = []int{0, 1, 2, 3, 4, 5, 7, 8, 9, 15, 16, 17, 100, 1000, 1023, 1024, 1025, 100000}

// Helper to create random test data
func makeData(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = rand.Float64() * 100
	}
	return data
}

// alternating builds a deterministic input with mixed signs.
func alternating(n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		sign := 1.0
		if i%2 == 0 {
			sign = -1.0
		}
		x[i] = sign * (float64((i*37)%113) + 0.125)
	}
	return x
}

// withinRoundoff reports whether got and want differ by no more than the
// worst case rounding error of summing x in any order.
func withinRoundoff(got, want float64, x []float64) bool {
	if got == want {
		return true
	}
	var abs float64
	for _, v := range x {
		abs += math.Abs(v)
	}
	bound := float64(len(x)) * 0x1p-52 * abs
	return math.Abs(got-want) <= bound
}

func TestSumScenarios(t *testing.T) {
	cases := []struct {
		name string
		x    []float64
		want float64
	}{
		{name: "empty", x: []float64{}, want: 0},
		{name: "nil", x: nil, want: 0},
		{name: "single", x: []float64{5}, want: 5},
		{name: "exactly four", x: []float64{1, 2, 3, 4}, want: 10},
		{name: "four plus remainder", x: []float64{1, 2, 3, 4, 5}, want: 15},
		{name: "paired cancellation", x: []float64{1e308, -1e308, 1e308, -1e308}, want: 0},
		{name: "mixed", x: []float64{-1, 2, -3, 0.5}, want: -1.5},
		{name: "three remainder only", x: []float64{0.5, 0.25, 0.125}, want: 0.875},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sum(tc.x); got != tc.want {
				t.Fatalf("Sum(%v) = %v, want %v", tc.x, got, tc.want)
			}
		})
	}
}

func TestSumEmptyIsPositiveZero(t *testing.T) {
	got := Sum(nil)
	if got != 0 || math.Signbit(got) {
		t.Fatalf("Sum(nil) = %v, want +0", got)
	}
}

func TestSumSingleValue(t *testing.T) {
	values := []float64{5, -7.25, 1e-300, math.MaxFloat64, -math.MaxFloat64, math.SmallestNonzeroFloat64, 0}
	for _, v := range values {
		if got := Sum([]float64{v}); got != v {
			t.Errorf("Sum([%v]) = %v", v, got)
		}
	}
}

// The partials are combined left to right, so two large values of the same
// sign in sum0 and sum1 overflow before the negative ones are added.
func TestSumGroupedOverflow(t *testing.T) {
	got := Sum([]float64{1e308, 1e308, -1e308, -1e308})
	if !math.IsInf(got, 1) {
		t.Fatalf("Sum = %v, want +Inf", got)
	}
}

func TestSumNonFinite(t *testing.T) {
	if got := Sum([]float64{1, math.NaN(), 2}); !math.IsNaN(got) {
		t.Errorf("NaN input: got %v, want NaN", got)
	}
	if got := Sum([]float64{1, 2, 3, 4, math.NaN()}); !math.IsNaN(got) {
		t.Errorf("NaN in remainder: got %v, want NaN", got)
	}
	if got := Sum([]float64{1, math.Inf(1), 2}); !math.IsInf(got, 1) {
		t.Errorf("+Inf input: got %v, want +Inf", got)
	}
	if got := Sum([]float64{math.Inf(1), math.Inf(-1)}); !math.IsNaN(got) {
		t.Errorf("+Inf + -Inf: got %v, want NaN", got)
	}
}

func TestSumCombinationOrder(t *testing.T) {
	x := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.1}

	sum0 := x[0] + x[4]
	sum1 := x[1] + x[5]
	sum2 := x[2] + x[6]
	sum3 := x[3] + x[7]
	remainder := x[8] + x[9]
	want := sum0 + sum1 + sum2 + sum3 + remainder

	if got := Sum(x); math.Float64bits(got) != math.Float64bits(want) {
		t.Fatalf("Sum = %v (%#x), want %v (%#x)", got, math.Float64bits(got), want, math.Float64bits(want))
	}
}

func TestSumReferenceParity(t *testing.T) {
	for _, n := range sizes {
		for _, data := range [][]float64{makeData(n), alternating(n)} {
			got := Sum(data)
			want := SumNaive(data)
			if !withinRoundoff(got, want, data) {
				t.Errorf("n=%d: Sum=%v, SumNaive=%v", n, got, want)
			}
		}
	}
}

func TestPartials(t *testing.T) {
	for _, n := range sizes {
		data := alternating(n)
		p := Partials(data)

		if n%Unroll == 0 && p.Remainder != 0 {
			t.Errorf("n=%d: remainder = %v, want 0", n, p.Remainder)
		}
		if got, want := math.Float64bits(p.Total()), math.Float64bits(Sum(data)); got != want {
			t.Errorf("n=%d: Partials.Total = %#x, Sum = %#x", n, got, want)
		}
	}
}

func TestPartialsRemainder(t *testing.T) {
	p := Partials([]float64{1, 2, 3, 4, 5, 6, 7})
	want := Accumulators{Sum0: 1, Sum1: 2, Sum2: 3, Sum3: 4, Remainder: 18}
	if p != want {
		t.Fatalf("Partials = %+v, want %+v", p, want)
	}
}

func TestSumRepeatable(t *testing.T) {
	data := makeData(1001)
	first := math.Float64bits(Sum(data))
	for i := 0; i < 100; i++ {
		if got := math.Float64bits(Sum(data)); got != first {
			t.Fatalf("call %d: %#x, first call %#x", i, got, first)
		}
	}
}

func TestSumDoesNotModifyInput(t *testing.T) {
	data := makeData(103)
	orig := append([]float64(nil), data...)
	_ = Sum(data)
	for i := range data {
		if math.Float64bits(data[i]) != math.Float64bits(orig[i]) {
			t.Fatalf("element %d changed: %v -> %v", i, orig[i], data[i])
		}
	}
}

func TestSumConcurrent(t *testing.T) {
	data := makeData(10007)
	want := math.Float64bits(Sum(data))

	var wg sync.WaitGroup
	errs := make(chan uint64, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if got := math.Float64bits(Sum(data)); got != want {
					errs <- got
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("concurrent Sum = %#x, want %#x", got, want)
	}
}

func TestSumOf(t *testing.T) {
	for _, n := range sizes {
		data := alternating(n)
		if got, want := math.Float64bits(SumOf(data)), math.Float64bits(Sum(data)); got != want {
			t.Errorf("n=%d: SumOf[float64] = %#x, Sum = %#x", n, got, want)
		}
	}

	f32 := []float32{1, 2, 3, 4, 5}
	if got := SumOf(f32); got != 15 {
		t.Errorf("SumOf[float32] = %v, want 15", got)
	}
	if got := SumOf([]float32(nil)); got != 0 {
		t.Errorf("SumOf[float32](nil) = %v, want 0", got)
	}
}

// --- Benchmarks ---

func BenchmarkSum_Naive_100(b *testing.B)    { benchmarkSum(b, SumNaive, 100) }
func BenchmarkSum_Naive_1000(b *testing.B)   { benchmarkSum(b, SumNaive, 1000) }
func BenchmarkSum_Naive_10000(b *testing.B)  { benchmarkSum(b, SumNaive, 10000) }
func BenchmarkSum_Naive_100000(b *testing.B) { benchmarkSum(b, SumNaive, 100000) }

func BenchmarkSum_Unrolled_100(b *testing.B)    { benchmarkSum(b, Sum, 100) }
func BenchmarkSum_Unrolled_1000(b *testing.B)   { benchmarkSum(b, Sum, 1000) }
func BenchmarkSum_Unrolled_10000(b *testing.B)  { benchmarkSum(b, Sum, 10000) }
func BenchmarkSum_Unrolled_100000(b *testing.B) { benchmarkSum(b, Sum, 100000) }

func BenchmarkSum_Generic_100000(b *testing.B) { benchmarkSum(b, SumOf[float64], 100000) }

func benchmarkSum(b *testing.B, fn func([]float64) float64, n int) {
	data := makeData(n)
	b.SetBytes(int64(n * 8))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = fn(data)
	}
}
