// Package main implements the buspulse ingester service.
// The ingester polls the vehicle feed, aggregates update intervals and feed
// latency per window, and persists one chunk per window to the chunk store.
package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/buspulse/buspulse/cmd/ingester/metrics"
	"github.com/buspulse/buspulse/pkg/chunkstore"
	"github.com/buspulse/buspulse/pkg/gtfs"
	"github.com/buspulse/buspulse/pkg/window"
)

// Ingester orchestrates the ingest loop: fetch → aggregate → flush → purge.
type Ingester struct {
	feed      gtfs.Feed
	agg       *window.Aggregator
	store     chunkstore.Store
	retention time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a new Ingester.
func New(feed gtfs.Feed, store chunkstore.Store, retention time.Duration, logger *slog.Logger, m *metrics.Metrics) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		feed:      feed,
		agg:       window.New(),
		store:     store,
		retention: retention,
		logger:    logger,
		metrics:   m,
	}
}

// Run executes the ingest loop until the context is canceled. Fetching and
// flushing run on independent tickers, so a slow feed fetch cannot skew the
// window cadence. On shutdown the in-flight window is flushed rather than
// discarded.
func (ing *Ingester) Run(ctx context.Context, fetchInterval, flushInterval time.Duration) error {
	ing.logger.Info("starting ingest loop",
		"feed", ing.feed.Name(),
		"fetch_interval", fetchInterval,
		"flush_interval", flushInterval,
	)

	fetchTicker := time.NewTicker(fetchInterval)
	defer fetchTicker.Stop()
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			ing.logger.Info("ingest loop stopping, flushing in-flight window")
			ing.Flush(context.Background(), uint64(time.Now().Unix()))
			return ctx.Err()
		case <-fetchTicker.C:
			if err := ing.Tick(ctx); err != nil {
				// Transient by assumption: skip to the next tick, no retry.
				ing.logger.Warn("feed fetch failed", "error", err)
				ing.metrics.RecordFeedFetchError()
			}
		case <-flushTicker.C:
			ing.Flush(ctx, uint64(time.Now().Unix()))
		}
	}
}

// Tick performs one feed fetch and feeds every vehicle position into the
// current window. Exported for testing purposes.
func (ing *Ingester) Tick(ctx context.Context) error {
	start := time.Now()

	snap, err := ing.feed.Fetch(ctx)
	if err != nil {
		return err
	}
	ing.metrics.ObserveFeedFetch(time.Since(start).Seconds())

	accepted := 0
	for _, v := range snap.Vehicles {
		ok := ing.agg.Observe(v.ID, v.Timestamp, snap.DatasetTimestamp)
		ing.metrics.RecordSample(ok)
		if ok {
			accepted++
		}
	}
	ing.metrics.SetVehiclesTracked(ing.agg.Tracked())

	ing.logger.Debug("feed tick complete",
		"vehicles", len(snap.Vehicles),
		"accepted", accepted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Flush closes the current window, persists its chunk, and purges chunks past
// the retention cutoff. Exported for testing purposes.
//
// A write failure is unrecoverable data loss for that window: the aggregator
// has already reset, so the error is escalated in the logs rather than
// returned for retry.
func (ing *Ingester) Flush(ctx context.Context, closeTS uint64) {
	start := time.Now()

	c := ing.agg.Flush(closeTS)
	records := 0
	for _, recs := range c.Records {
		records += len(recs)
	}

	if err := ing.store.Put(ctx, c); err != nil {
		ing.logger.Error("chunk write failed, window data lost",
			"timestamp", closeTS,
			"records", records,
			"error", err,
		)
		ing.metrics.RecordChunkWriteError()
		return
	}
	ing.metrics.ObserveChunkFlush(time.Since(start).Seconds(), records)

	ing.logger.Info("flushed chunk",
		"timestamp", closeTS,
		"samples", c.Stats.SampleCount,
		"buses", len(c.Records),
	)

	cutoff := closeTS - uint64(ing.retention.Seconds())
	if closeTS < uint64(ing.retention.Seconds()) {
		cutoff = 0
	}
	if err := ing.store.PurgeOlderThan(ctx, cutoff); err != nil {
		ing.logger.Warn("chunk purge incomplete", "cutoff", cutoff, "error", err)
	}
}
