// Package main implements the buspulse api service.
// The api tails the chunk store into an in-memory index and serves per-bus
// history, system stats, and ranked anomaly queries over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/buspulse/buspulse/cmd/api/metrics"
	"github.com/buspulse/buspulse/pkg/chunk"
	"github.com/buspulse/buspulse/pkg/chunkstore"
	"github.com/buspulse/buspulse/pkg/liveindex"
)

// Syncer tails the chunk store: each pass discovers chunks newer than the
// index watermark, merges them in ascending order, then prunes the index back
// to the retention cutoff.
type Syncer struct {
	store     chunkstore.Store
	index     *liveindex.Index
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics

	// Timestamps of chunks that failed to decode. A corrupt chunk is
	// fetched once, recorded here, and never retried; without this the
	// watermark would stall on it forever.
	skip map[uint64]struct{}
}

// NewSyncer creates a new Syncer feeding the given index.
func NewSyncer(store chunkstore.Store, index *liveindex.Index, retention time.Duration, logger *slog.Logger, m *metrics.Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		store:     store,
		index:     index,
		retention: retention,
		logger:    logger,
		metrics:   m,
		skip:      make(map[uint64]struct{}),
	}
}

// Run executes an immediate catch-up pass and then one pass per interval
// until the context is canceled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) error {
	s.logger.Info("starting sync loop", "interval", interval)

	if err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial sync failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Warn("sync pass failed", "error", err)
			}
		}
	}
}

// Sync performs one discover-merge-prune pass. Exported for testing purposes.
//
// Merge failures on individual chunks do not abort the pass: an undecodable
// chunk joins the skip-set and the pass moves on, so one bad write from the
// ingester cannot wedge the api.
func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()

	timestamps, err := s.store.ListSince(ctx, s.index.Watermark())
	if err != nil {
		return err
	}

	merged := 0
	for _, ts := range timestamps {
		if _, skipped := s.skip[ts]; skipped {
			continue
		}

		c, err := s.store.Get(ctx, ts)
		if err != nil {
			if errors.Is(err, chunk.ErrCorrupt) {
				s.logger.Error("corrupt chunk skipped", "timestamp", ts, "error", err)
				s.skip[ts] = struct{}{}
				s.metrics.RecordDecodeFailure()
				continue
			}
			return err
		}

		s.index.MergeFrom(c)
		s.metrics.RecordChunkMerged(s.index.Watermark())
		merged++
	}

	cutoff := uint64(0)
	if now := uint64(time.Now().Unix()); now > uint64(s.retention.Seconds()) {
		cutoff = now - uint64(s.retention.Seconds())
	}
	pruned := s.index.Prune(cutoff)
	s.metrics.RecordPruned(pruned)
	s.metrics.ObserveMerge(time.Since(start).Seconds())

	if merged > 0 || pruned > 0 {
		s.logger.Info("sync pass complete",
			"merged", merged,
			"pruned", pruned,
			"watermark", s.index.Watermark(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return nil
}
