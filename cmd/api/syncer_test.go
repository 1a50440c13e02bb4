package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/buspulse/buspulse/cmd/api/metrics"
	"github.com/buspulse/buspulse/pkg/chunk"
	"github.com/buspulse/buspulse/pkg/chunkstore"
	"github.com/buspulse/buspulse/pkg/liveindex"
)

// promauto registers into the default registry; one instance per test binary.
var testMetrics = metrics.New()

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingStore records how often each chunk is fetched.
type countingStore struct {
	*chunkstore.MemoryStore
	gets map[uint64]int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: chunkstore.NewMemoryStore(), gets: make(map[uint64]int)}
}

func (s *countingStore) Get(ctx context.Context, ts uint64) (*chunk.Chunk, error) {
	s.gets[ts]++
	return s.MemoryStore.Get(ctx, ts)
}

func testChunk(ts uint64, busID string, rank uint8) *chunk.Chunk {
	return &chunk.Chunk{
		Stats: chunk.SystemStats{Timestamp: ts, SampleCount: 1},
		Records: map[string][]chunk.Record{
			busID: {{Interval: 30, EndOfInterval: ts, Latency: 2, Rank: rank}},
		},
	}
}

func TestSyncer_MergesInOrder(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	index := liveindex.New()
	s := NewSyncer(store, index, 48*time.Hour, discard(), testMetrics)

	base := uint64(time.Now().Unix()) - 100
	store.Put(ctx, testChunk(base+10, "4012", 50))
	store.Put(ctx, testChunk(base+20, "4012", 95))

	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if got := index.Watermark(); got != base+20 {
		t.Errorf("Watermark() = %d, want %d", got, base+20)
	}
	recs := index.History("4012")
	if len(recs) != 2 {
		t.Fatalf("History() returned %d records, want 2", len(recs))
	}
	if recs[0].EndOfInterval != base+10 || recs[1].EndOfInterval != base+20 {
		t.Errorf("history out of order: %+v", recs)
	}

	// A second pass sees nothing newer than the watermark.
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := store.gets[base+10] + store.gets[base+20]; got != 2 {
		t.Errorf("chunks fetched %d times across two passes, want 2", got)
	}
}

func TestSyncer_CorruptChunkSkippedOnce(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	index := liveindex.New()
	s := NewSyncer(store, index, 48*time.Hour, discard(), testMetrics)

	base := uint64(time.Now().Unix()) - 100
	store.Put(ctx, testChunk(base+10, "4012", 50))
	store.PutRaw(base+30, []byte("not a chunk")) // newest, so the watermark never covers it

	for i := 0; i < 3; i++ {
		if err := s.Sync(ctx); err != nil {
			t.Fatalf("Sync() pass %d error = %v", i, err)
		}
	}

	if got := index.Watermark(); got != base+10 {
		t.Errorf("Watermark() = %d, want %d (corrupt chunk must not advance it)", got, base+10)
	}
	if len(index.History("4012")) != 1 {
		t.Errorf("valid chunk not merged alongside corrupt one")
	}
	if got := store.gets[base+30]; got != 1 {
		t.Errorf("corrupt chunk fetched %d times, want 1", got)
	}

	// Chunks landing after the corrupt one still merge.
	store.Put(ctx, testChunk(base+40, "4012", 95))
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := index.Watermark(); got != base+40 {
		t.Errorf("Watermark() = %d, want %d", got, base+40)
	}
}

func TestSyncer_PrunesExpiredRecords(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	index := liveindex.New()
	s := NewSyncer(store, index, time.Hour, discard(), testMetrics)

	// Well outside the one-hour retention: merged, then pruned in the same
	// pass.
	store.Put(ctx, testChunk(1000, "4012", 95))

	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if got := len(index.History("4012")); got != 0 {
		t.Errorf("expired history has %d records, want 0", got)
	}
	if got := len(index.Stats()); got != 0 {
		t.Errorf("expired stats has %d entries, want 0", got)
	}
}
