package chunkstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/buspulse/buspulse/pkg/chunk"
)

// MemoryStore is a map-backed Store for tests and single-process development.
// Blobs are held encoded, so decode failures behave exactly as they do with
// the durable backends.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[uint64][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[uint64][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, c *chunk.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[c.Stats.Timestamp] = chunk.Encode(c)
	return nil
}

// PutRaw stores an arbitrary blob under ts, letting tests plant corrupt
// chunks.
func (s *MemoryStore) PutRaw(ts uint64, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ts] = blob
}

func (s *MemoryStore) ListSince(ctx context.Context, watermark uint64) ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []uint64
	for ts := range s.blobs {
		if ts > watermark {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, ts uint64) (*chunk.Chunk, error) {
	s.mu.RLock()
	blob, ok := s.blobs[ts]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, ts)
	}
	c, err := chunk.Decode(blob)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", ts, err)
	}
	return c, nil
}

func (s *MemoryStore) PurgeOlderThan(ctx context.Context, cutoff uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ts := range s.blobs {
		if ts < cutoff {
			delete(s.blobs, ts)
		}
	}
	return nil
}
