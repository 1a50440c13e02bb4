// Package liveindex holds the in-memory, query-serving view of the retained
// window: per-bus record history, global stats history, and a rank-bucketed
// anomaly index. The Index is the only way to touch those structures; callers
// get merge, prune, and query operations, never the structures themselves.
package liveindex

import (
	"sync"
	"sync/atomic"

	"github.com/buspulse/buspulse/pkg/chunk"
)

// maxAnomalyResults caps the Anomalies response.
const maxAnomalyResults = 50

type anomalyEntry struct {
	ts    uint64
	busID string
}

// Index is safe for one writer (the sync loop calling MergeFrom/Prune) and
// any number of concurrent readers. Each structure has its own lock, so a
// reader may observe statsHistory reflecting a chunk whose records are not
// yet in history, or vice versa. That torn read is an accepted trade-off for
// a monitoring workload; do not strengthen it to per-request snapshots.
//
// All three structures are ascending in time and append-only. Pruning removes
// from the front and relies on that ordering.
type Index struct {
	historyMu sync.RWMutex
	history   map[string][]chunk.Record

	statsMu      sync.RWMutex
	statsHistory []chunk.SystemStats

	anomaliesMu sync.RWMutex
	anomalies   map[uint8][]anomalyEntry

	// Timestamp of the most recently merged chunk. Monotonically
	// non-decreasing; advanced only after the chunk is fully merged.
	watermark atomic.Uint64
}

func New() *Index {
	return &Index{
		history:   make(map[string][]chunk.Record),
		anomalies: make(map[uint8][]anomalyEntry),
	}
}

// Watermark returns the timestamp below which all chunks are already merged.
func (x *Index) Watermark() uint64 {
	return x.watermark.Load()
}

// MergeFrom folds one chunk into the index: every record is appended to its
// bus's history and to the anomaly bucket for its rank, then the chunk's
// stats are appended, then the watermark advances. The caller must invoke
// this once per chunk, in ascending timestamp order, and only for chunks
// newer than Watermark(); that discipline is what makes the merge idempotent.
func (x *Index) MergeFrom(c *chunk.Chunk) {
	x.historyMu.Lock()
	x.anomaliesMu.Lock()
	for busID, recs := range c.Records {
		x.history[busID] = append(x.history[busID], recs...)
		for _, r := range recs {
			x.anomalies[r.Rank] = append(x.anomalies[r.Rank], anomalyEntry{ts: r.EndOfInterval, busID: busID})
		}
	}
	x.anomaliesMu.Unlock()
	x.historyMu.Unlock()

	x.statsMu.Lock()
	x.statsHistory = append(x.statsHistory, c.Stats)
	x.statsMu.Unlock()

	if ts := c.Stats.Timestamp; ts > x.watermark.Load() {
		x.watermark.Store(ts)
	}
}

// Prune drops every element older than cutoff from the front of each
// structure and removes buses whose history emptied out. Returns the number
// of history records dropped.
func (x *Index) Prune(cutoff uint64) int {
	x.statsMu.Lock()
	n := 0
	for n < len(x.statsHistory) && x.statsHistory[n].Timestamp < cutoff {
		n++
	}
	x.statsHistory = x.statsHistory[n:]
	x.statsMu.Unlock()

	pruned := 0
	x.historyMu.Lock()
	for busID, recs := range x.history {
		n := 0
		for n < len(recs) && recs[n].EndOfInterval < cutoff {
			n++
		}
		pruned += n
		if n == len(recs) {
			delete(x.history, busID)
		} else if n > 0 {
			x.history[busID] = recs[n:]
		}
	}
	x.historyMu.Unlock()

	x.anomaliesMu.Lock()
	for rank, entries := range x.anomalies {
		n := 0
		for n < len(entries) && entries[n].ts < cutoff {
			n++
		}
		if n == len(entries) {
			delete(x.anomalies, rank)
		} else if n > 0 {
			x.anomalies[rank] = entries[n:]
		}
	}
	x.anomaliesMu.Unlock()

	return pruned
}

// History returns a copy of the retained records for one bus, oldest first.
// Unknown buses yield an empty slice, not an error.
func (x *Index) History(busID string) []chunk.Record {
	x.historyMu.RLock()
	defer x.historyMu.RUnlock()

	recs := x.history[busID]
	out := make([]chunk.Record, len(recs))
	copy(out, recs)
	return out
}

// Stats returns a copy of the retained per-window stats, oldest first.
func (x *Index) Stats() []chunk.SystemStats {
	x.statsMu.RLock()
	defer x.statsMu.RUnlock()

	out := make([]chunk.SystemStats, len(x.statsHistory))
	copy(out, x.statsHistory)
	return out
}

// Buses reports how many buses currently have retained history.
func (x *Index) Buses() int {
	x.historyMu.RLock()
	defer x.historyMu.RUnlock()
	return len(x.history)
}
