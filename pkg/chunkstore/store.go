// Package chunkstore persists window chunks as named, ordered, immutable
// blobs and supports discovery of chunks newer than a watermark. It is the
// only channel between the ingester and the api process.
//
// Three backends are provided:
//
//   - fs: one file per chunk in a data directory (default). Works when both
//     processes share a filesystem.
//   - redis: chunk blobs plus a timestamp-scored sorted set for discovery.
//     For deployments without a shared filesystem.
//   - memory: map-backed store for tests and single-process development.
package chunkstore

import (
	"context"
	"errors"

	"github.com/buspulse/buspulse/pkg/chunk"
)

// ErrNotFound is returned by Get for a timestamp with no stored chunk.
var ErrNotFound = errors.New("chunkstore: chunk not found")

// Store is the persistence contract shared by all backends.
//
// Keys are window-close unix timestamps. Backends must keep key order
// consistent with timestamp order under both numeric and lexicographic
// comparison. Chunks are immutable once written: Put for an existing
// timestamp overwrites byte-identical content at worst and must never be
// used to repair a corrupt chunk in place.
type Store interface {
	// Put persists the chunk under its Stats.Timestamp key.
	Put(ctx context.Context, c *chunk.Chunk) error

	// ListSince returns all stored timestamps strictly greater than
	// watermark, ascending.
	ListSince(ctx context.Context, watermark uint64) ([]uint64, error)

	// Get loads and decodes one chunk. A missing chunk returns ErrNotFound;
	// an undecodable blob returns an error satisfying
	// errors.Is(err, chunk.ErrCorrupt), which callers must treat as "skip".
	Get(ctx context.Context, ts uint64) (*chunk.Chunk, error)

	// PurgeOlderThan deletes all chunks with timestamp strictly below
	// cutoff. Best-effort: individual deletion failures do not abort the
	// batch; the joined error is returned for logging.
	PurgeOlderThan(ctx context.Context, cutoff uint64) error
}
