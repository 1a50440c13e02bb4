package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/buspulse/buspulse/pkg/chunk"
)

// Timestamps are zero-padded to ten digits so lexicographic filename order
// matches numeric timestamp order (ten digits covers unix seconds until 2286).
const fsNameFormat = "chunk_%010d.bin"

// FSStore keeps one file per chunk in a flat directory.
type FSStore struct {
	dir string
}

// NewFSStore creates the data directory if needed and returns a store over it.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// Put writes the encoded chunk to a temp file and renames it into place, so a
// concurrent ListSince/Get never observes a partially written blob.
func (s *FSStore) Put(ctx context.Context, c *chunk.Chunk) error {
	blob := chunk.Encode(c)
	final := filepath.Join(s.dir, fmt.Sprintf(fsNameFormat, c.Stats.Timestamp))

	tmp, err := os.CreateTemp(s.dir, "chunk_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp chunk: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write chunk %d: %w", c.Stats.Timestamp, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close chunk %d: %w", c.Stats.Timestamp, err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename chunk %d: %w", c.Stats.Timestamp, err)
	}
	return nil
}

func (s *FSStore) ListSince(ctx context.Context, watermark uint64) ([]uint64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	var out []uint64
	for _, e := range entries {
		ts, ok := parseChunkName(e.Name())
		if !ok {
			continue
		}
		if ts > watermark {
			out = append(out, ts)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *FSStore) Get(ctx context.Context, ts uint64) (*chunk.Chunk, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf(fsNameFormat, ts)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, ts)
	}
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", ts, err)
	}
	c, err := chunk.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", ts, err)
	}
	return c, nil
}

func (s *FSStore) PurgeOlderThan(ctx context.Context, cutoff uint64) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}

	var errs []error
	for _, e := range entries {
		ts, ok := parseChunkName(e.Name())
		if !ok || ts >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, fmt.Errorf("remove chunk %d: %w", ts, err))
		}
	}
	return errors.Join(errs...)
}

func parseChunkName(name string) (uint64, bool) {
	stem, ok := strings.CutSuffix(name, ".bin")
	if !ok {
		return 0, false
	}
	tsStr, ok := strings.CutPrefix(stem, "chunk_")
	if !ok {
		return 0, false
	}
	ts, err := strconv.ParseUint(tsStr, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
