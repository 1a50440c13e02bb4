package chunk

import (
	"math"
	"sort"
)

// SaturateSeconds clamps a non-negative second count to the u16 range used by
// Record.Interval and Record.Latency.
func SaturateSeconds(v uint64) uint16 {
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(v)
}

// ComputePercentiles derives the fixed breakpoint set from one window's raw
// samples using nearest-rank selection: sort ascending, pick index
// round((n-1)*p). The input slice is sorted in place. Empty input yields all
// zeros. Each window is estimated independently; there is no memory of prior
// windows.
func ComputePercentiles(samples []uint16) Percentiles {
	if len(samples) == 0 {
		return Percentiles{}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	n := float64(len(samples))

	at := func(p float64) float64 {
		idx := int(math.Round((n - 1) * p))
		return float64(samples[idx])
	}

	return Percentiles{
		P0:   at(0.0),
		P25:  at(0.25),
		P50:  at(0.50),
		P75:  at(0.75),
		P80:  at(0.80),
		P85:  at(0.85),
		P90:  at(0.90),
		P95:  at(0.95),
		P98:  at(0.98),
		P99:  at(0.99),
		P995: at(0.995),
		P999: at(0.999),
	}
}
