// Package bench times kernel calls and summarises the distribution.
package bench

import (
	"fmt"
	"math/rand"
	"slices"
	"time"
)

// Stats holds timing statistics for a benchmark
type Stats struct {
	Min   time.Duration
	Avg   time.Duration
	P95   time.Duration
	Max   time.Duration
	Total time.Duration
	// CPU is process CPU time (user+system) spent during the run, zero
	// where the platform does not report it.
	CPU time.Duration
	N   int
}

// Run calls fn n times and collects timing statistics.
func Run(n int, fn func()) Stats {
	if n < 1 {
		return Stats{}
	}
	times := make([]time.Duration, n)

	cpuStart := cpuTimeNow()
	for i := 0; i < n; i++ {
		start := time.Now()
		fn()
		times[i] = time.Since(start)
	}
	cpu := cpuTimeNow() - cpuStart

	return summarize(times, cpu)
}

func summarize(times []time.Duration, cpu time.Duration) Stats {
	n := len(times)
	slices.Sort(times)

	var total time.Duration
	for _, t := range times {
		total += t
	}

	p95idx := int(float64(n) * 0.95)
	if p95idx >= n {
		p95idx = n - 1
	}

	return Stats{
		Min:   times[0],
		Avg:   total / time.Duration(n),
		P95:   times[p95idx],
		Max:   times[n-1],
		Total: total,
		CPU:   cpu,
		N:     n,
	}
}

// String renders the stats on one line. cpu=0s means the platform does not
// report process CPU time.
func (s Stats) String() string {
	return fmt.Sprintf("avg=%-8s min=%-8s p95=%-8s max=%-8s cpu=%-8s (n=%d, total=%v)",
		FormatDuration(s.Avg),
		FormatDuration(s.Min),
		FormatDuration(s.P95),
		FormatDuration(s.Max),
		s.CPU.Round(time.Microsecond),
		s.N,
		s.Total.Round(time.Microsecond))
}

// FormatDuration renders short durations with a sensible unit.
func FormatDuration(d time.Duration) string {
	if d < time.Microsecond {
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%.1fµs", float64(d.Nanoseconds())/1000)
	}
	return d.Round(time.Microsecond).String()
}

// Data returns n pseudo-random values in [-100, 100). The same seed always
// yields the same data.
func Data(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, n)
	for i := range data {
		data[i] = rng.Float64()*200 - 100
	}
	return data
}
