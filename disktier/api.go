// Package disktier implements the disk tier (spec §4.5, component C5): a
// content-addressed file store with an in-memory index, optional gzip
// compression, and bounded I/O concurrency.
package disktier

import (
	"context"
	"time"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/stats"
)

// Tier is the public surface of the disk tier.
type Tier[K comparable, V any] interface {
	Get(key K) (V, bool, error)
	GetAsync(ctx context.Context, key K) (V, bool, error)

	Put(key K, value V) error
	PutWithOptions(key K, value V, ttl time.Duration, priority entry.Priority) error
	PutAsync(ctx context.Context, key K, value V) error

	Remove(key K) (bool, error)
	ContainsKey(key K) bool
	Keys() []K

	Clear() error
	ClearExpired() (int, error)
	Evict(targetBytes int64) (int, error)

	GetEntryMetadata(key K) (entry.Metadata, bool)
	IndexSnapshot() []IndexSnapshot[K]

	Name() string
	Count() int
	SizeBytes() int64
	// OrphanedBytes reports bytes occupied by on-disk files whose index
	// entry was never reconstructed (spec §9 open question: a restart
	// without a restored index loses the key->file mapping for existing
	// files, which remain on disk until a directory wipe).
	OrphanedBytes() int64
	Statistics() stats.Snapshot

	Dispose() error
}
