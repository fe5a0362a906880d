// Package memtier implements the in-memory tier (spec §4.4, component C4):
// a concurrent key→entry map with a per-operation fast path and a
// write-locked eviction section.
package memtier

import (
	"context"
	"time"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/stats"
)

// Cache is the public surface of the in-memory tier. All methods are safe
// for concurrent use by multiple goroutines.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	GetAsync(ctx context.Context, key K) (V, bool, error)
	TryGet(key K) (V, bool)
	GetMany(keys []K) (hits map[K]V, misses []K)

	Put(key K, value V)
	PutWithTTL(key K, value V, ttl time.Duration)
	PutWithPriority(key K, value V, priority entry.Priority)
	PutMany(items map[K]V)
	PutIfAbsent(key K, value V) bool

	Remove(key K) bool
	RemoveMany(keys []K) int

	ContainsKey(key K) bool
	Keys() []K

	Clear()
	ClearExpired() int
	Evict(targetBytes int64) int
	Warmup(items map[K]V, priority entry.Priority)

	GetEntryMetadata(key K) (entry.Metadata, bool)

	Name() string
	Count() int
	SizeBytes() int64
	MaxCapacity() int
	MaxSizeBytes() int64
	HitRatio() float64
	Statistics() stats.Snapshot

	Dispose() error
}
