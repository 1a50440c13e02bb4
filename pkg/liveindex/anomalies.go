package liveindex

import (
	"sort"

	"github.com/buspulse/buspulse/pkg/chunk"
)

// ScoredBus is one anomaly query result: a bus, its rank-weighted score, and
// its full retained history.
type ScoredBus struct {
	BusID   string         `json:"bus_id"`
	Score   uint64         `json:"score"`
	History []chunk.Record `json:"history"`
}

// Anomalies scores every bus that appears in an anomaly bucket at or above
// minRank. A bus's score is the sum of Interval over its history records with
// rank >= minRank; the score is raw interval-seconds with no normalization
// for history length, so buses observed longer score higher. Buses scoring
// zero are dropped. Results are ordered by score descending, bus id ascending
// on ties, capped at 50.
//
// Cost is proportional to the matching anomaly entries plus the retained
// history of candidate buses, not the whole window.
func (x *Index) Anomalies(minRank uint8) []ScoredBus {
	candidates := make(map[string]struct{})
	x.anomaliesMu.RLock()
	for rank := int(minRank); rank <= 100; rank++ {
		for _, e := range x.anomalies[uint8(rank)] {
			candidates[e.busID] = struct{}{}
		}
	}
	x.anomaliesMu.RUnlock()

	scored := make([]ScoredBus, 0, len(candidates))
	x.historyMu.RLock()
	for busID := range candidates {
		recs := x.history[busID]
		var score uint64
		for _, r := range recs {
			if r.Rank >= minRank {
				score += uint64(r.Interval)
			}
		}
		if score == 0 {
			continue
		}
		history := make([]chunk.Record, len(recs))
		copy(history, recs)
		scored = append(scored, ScoredBus{BusID: busID, Score: score, History: history})
	}
	x.historyMu.RUnlock()

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].BusID < scored[j].BusID
	})

	if len(scored) > maxAnomalyResults {
		scored = scored[:maxAnomalyResults]
	}
	return scored
}
