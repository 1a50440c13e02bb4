// Package chunk defines the data model for one aggregation window: per-vehicle
// update records, window-level percentile statistics, and the immutable Chunk
// that bundles both for persistence. It also implements the percentile
// estimator, the rank classifier, and the binary chunk codec.
package chunk

// Record is a single accepted vehicle update. Interval and Latency are u16
// seconds (max ~18.2 hours); larger values are saturated, never rejected.
type Record struct {
	Interval      uint16 `json:"interval"`
	EndOfInterval uint64 `json:"end_of_interval"`
	Latency       uint16 `json:"latency"`
	Rank          uint8  `json:"rank"`
}

// Percentiles holds the fixed breakpoint set computed per window.
type Percentiles struct {
	P0   float64 `json:"p0"`
	P25  float64 `json:"p25"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
	P80  float64 `json:"p80"`
	P85  float64 `json:"p85"`
	P90  float64 `json:"p90"`
	P95  float64 `json:"p95"`
	P98  float64 `json:"p98"`
	P99  float64 `json:"p99"`
	P995 float64 `json:"p99_5"`
	P999 float64 `json:"p99_9"`
}

// SystemStats is the fleet-wide distribution for one window.
// Timestamp is the window-close time in unix seconds.
type SystemStats struct {
	Timestamp     uint64      `json:"timestamp"`
	IntervalStats Percentiles `json:"interval_stats"`
	LatencyStats  Percentiles `json:"latency_stats"`
	SampleCount   uint32      `json:"sample_count"`
}

// Chunk is the immutable result of one window, keyed by Stats.Timestamp.
// Records map bus id to that bus's updates within the window, in arrival order.
type Chunk struct {
	Stats   SystemStats
	Records map[string][]Record
}

// Rank classifies value against the breakpoints, returning one of
// 0, 25, 50, 75, 80, 85, 90, 95, 98, 99, 100. The boundary is strict: a value
// equal to a breakpoint falls into the band above it. p99 and p99.5 both map
// to 99; resolution above the 99th percentile is intentionally collapsed so
// the rank fits a 0-100 bucket index, with only the band past p99.9 kept as
// 100.
func (p Percentiles) Rank(value float64) uint8 {
	switch {
	case value < p.P0:
		return 0
	case value < p.P25:
		return 25
	case value < p.P50:
		return 50
	case value < p.P75:
		return 75
	case value < p.P80:
		return 80
	case value < p.P85:
		return 85
	case value < p.P90:
		return 90
	case value < p.P95:
		return 95
	case value < p.P98:
		return 98
	case value < p.P99:
		return 99
	case value < p.P995:
		return 99
	default:
		return 100
	}
}
