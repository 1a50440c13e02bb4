// Package window accumulates raw vehicle updates over one aggregation window
// and turns them into an immutable chunk at flush time.
package window

import "github.com/buspulse/buspulse/pkg/chunk"

// Aggregator holds the working state of the current window: provisional
// records per vehicle plus the raw interval/latency sample pools used for the
// window's percentile computation. Last-seen timestamps survive flushes so
// intervals span window boundaries. Not safe for concurrent use; the ingest
// loop is the only caller.
type Aggregator struct {
	lastSeen        map[string]uint64
	pending         map[string][]chunk.Record
	intervalSamples []uint16
	latencySamples  []uint16
}

func New() *Aggregator {
	return &Aggregator{
		lastSeen: make(map[string]uint64),
		pending:  make(map[string][]chunk.Record),
	}
}

// Observe processes one feed sample for busID. vehicleTS is the position
// timestamp reported for the vehicle, datasetTS the feed publish timestamp.
// Returns true if the sample produced a record.
//
// The first-ever sighting of a vehicle only seeds its last-seen timestamp.
// A sample whose timestamp is not strictly newer than last-seen is discarded
// entirely: no record, no last-seen update.
func (a *Aggregator) Observe(busID string, vehicleTS, datasetTS uint64) bool {
	prev, seen := a.lastSeen[busID]
	if !seen {
		a.lastSeen[busID] = vehicleTS
		return false
	}
	if vehicleTS <= prev {
		return false
	}

	interval := chunk.SaturateSeconds(vehicleTS - prev)
	var latency uint16
	if datasetTS > vehicleTS {
		latency = chunk.SaturateSeconds(datasetTS - vehicleTS)
	}

	// Rank is assigned at flush, once the window's distribution is known.
	a.pending[busID] = append(a.pending[busID], chunk.Record{
		Interval:      interval,
		EndOfInterval: vehicleTS,
		Latency:       latency,
	})
	a.intervalSamples = append(a.intervalSamples, interval)
	a.latencySamples = append(a.latencySamples, latency)

	a.lastSeen[busID] = vehicleTS
	return true
}

// Flush closes the current window: computes the window's percentile stats,
// stamps every provisional record with its rank against the interval
// distribution, and returns the completed chunk keyed by closeTS. Window
// state is reset; last-seen timestamps are kept. A window with no accepted
// samples still yields a chunk with zero-valued stats so the stats timeline
// has no holes.
func (a *Aggregator) Flush(closeTS uint64) *chunk.Chunk {
	stats := chunk.SystemStats{
		Timestamp:     closeTS,
		IntervalStats: chunk.ComputePercentiles(a.intervalSamples),
		LatencyStats:  chunk.ComputePercentiles(a.latencySamples),
		SampleCount:   uint32(len(a.intervalSamples)),
	}

	records := a.pending
	for _, recs := range records {
		for i := range recs {
			recs[i].Rank = stats.IntervalStats.Rank(float64(recs[i].Interval))
		}
	}

	a.pending = make(map[string][]chunk.Record)
	a.intervalSamples = nil
	a.latencySamples = nil

	return &chunk.Chunk{Stats: stats, Records: records}
}

// Tracked reports how many vehicles have a last-seen timestamp.
func (a *Aggregator) Tracked() int { return len(a.lastSeen) }

// PendingSamples reports how many samples the current window has accepted.
func (a *Aggregator) PendingSamples() int { return len(a.intervalSamples) }
