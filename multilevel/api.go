// Package multilevel implements the multi-level composer (spec §4.6,
// component C6): L1-then-L2 miss fallback, auto-promotion, auto-demotion,
// and optional write-through to L2.
package multilevel

import (
	"context"
	"time"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/stats"
)

// Cache is the public surface of a two-level composed cache. Its method set
// deliberately mirrors memtier.Cache so either can be targeted uniformly by
// a coherence.CacheAdapter.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	GetAsync(ctx context.Context, key K) (V, bool, error)
	TryGet(key K) (V, bool)
	GetMany(keys []K) (hits map[K]V, misses []K)

	Put(key K, value V)
	PutWithTTL(key K, value V, ttl time.Duration)
	PutWithPriority(key K, value V, priority entry.Priority)
	PutMany(items map[K]V)

	Remove(key K) bool
	RemoveMany(keys []K) int

	ContainsKey(key K) bool
	Keys() []K

	Clear()
	ClearExpired() int
	Evict(targetBytes int64) int

	GetEntryMetadata(key K) (entry.Metadata, bool)

	Name() string
	Count() int
	SizeBytes() int64
	Statistics() stats.Snapshot

	Dispose() error
}
