// Package entry implements CacheEntry, the value holder shared by every
// tier: access/modify timestamps, hit counter, size estimate, TTL, and
// priority (spec §3, §4.1, component C1).
package entry

import (
	"sync"
	"sync/atomic"
	"time"
)

// CacheEntry owns a value and its metadata. All metadata mutation is atomic;
// value replacement is serialized by an internal RWMutex so concurrent Read
// calls never block each other while no Write is in flight.
//
// Invariants (spec §3): SizeBytes > 0; CreatedAt <= LastModifiedAt;
// AccessCount is monotonically non-decreasing; IsExpired() <=> TTL is set and
// now-CreatedAt > TTL.
type CacheEntry[K comparable, V any] struct {
	key   K
	clock Clock
	sizer Sizer

	mu    sync.RWMutex
	value V

	createdAt      int64 // unixnano, immutable after construction
	lastModifiedAt atomic.Int64
	lastAccessedAt atomic.Int64
	accessCount    atomic.Int64
	sizeBytes      atomic.Int64
	ttlNanos       atomic.Int64 // 0 = no TTL
	priority       atomic.Int32
	dirty          atomic.Bool
}

// New constructs an entry for key/value with an optional ttl (0 disables
// expiration) and the given priority. sizer defaults to DefaultSizer and
// clock defaults to SystemClock when nil.
func New[K comparable, V any](key K, value V, ttl time.Duration, priority Priority, sizer Sizer, clock Clock) *CacheEntry[K, V] {
	if sizer == nil {
		sizer = DefaultSizer{}
	}
	e := &CacheEntry[K, V]{key: key, clock: clock, sizer: sizer, value: value}
	n := now(clock)
	e.createdAt = n
	e.lastModifiedAt.Store(n)
	e.lastAccessedAt.Store(n)
	if ttl > 0 {
		e.ttlNanos.Store(int64(ttl))
	}
	e.priority.Store(int32(priority))
	e.sizeBytes.Store(int64(sizer.EstimateSize(key, value)))
	return e
}

// Key returns the entry's key.
func (e *CacheEntry[K, V]) Key() K { return e.key }

// Read returns the value and updates LastAccessedAt/AccessCount atomically.
func (e *CacheEntry[K, V]) Read() V {
	e.mu.RLock()
	v := e.value
	e.mu.RUnlock()
	e.touch()
	return v
}

// Peek returns the value without updating access metadata.
func (e *CacheEntry[K, V]) Peek() V {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.value
}

// touch records an access without returning the value; used by tiers that
// already hold the value from a map lookup and only need the side effect.
func (e *CacheEntry[K, V]) touch() {
	e.lastAccessedAt.Store(now(e.clock))
	e.accessCount.Add(1)
}

// Touch is the exported form of touch, used by policies' on_access hook.
func (e *CacheEntry[K, V]) Touch() { e.touch() }

// Write replaces the value, updates LastModifiedAt, recomputes size, and
// marks the entry dirty. Returns the size delta (new - old) in bytes.
func (e *CacheEntry[K, V]) Write(v V, ttl time.Duration) int64 {
	e.mu.Lock()
	oldSize := e.sizeBytes.Load()
	e.value = v
	newSize := int64(e.sizer.EstimateSize(e.key, v))
	e.mu.Unlock()

	e.sizeBytes.Store(newSize)
	e.lastModifiedAt.Store(now(e.clock))
	if ttl > 0 {
		e.ttlNanos.Store(int64(ttl))
	} else {
		e.ttlNanos.Store(0)
	}
	e.dirty.Store(true)
	return newSize - oldSize
}

// SizeBytes returns the current size estimate.
func (e *CacheEntry[K, V]) SizeBytes() int64 { return e.sizeBytes.Load() }

// AccessCount returns the current access counter.
func (e *CacheEntry[K, V]) AccessCount() int64 { return e.accessCount.Load() }

// Priority returns the entry's current priority.
func (e *CacheEntry[K, V]) Priority() Priority { return Priority(e.priority.Load()) }

// SetPriority updates the entry's priority (used when a write changes it).
func (e *CacheEntry[K, V]) SetPriority(p Priority) { e.priority.Store(int32(p)) }

// CreatedAt returns the construction time.
func (e *CacheEntry[K, V]) CreatedAt() time.Time { return time.Unix(0, e.createdAt) }

// LastAccessedAt returns the last read time.
func (e *CacheEntry[K, V]) LastAccessedAt() time.Time { return time.Unix(0, e.lastAccessedAt.Load()) }

// LastModifiedAt returns the last write time.
func (e *CacheEntry[K, V]) LastModifiedAt() time.Time { return time.Unix(0, e.lastModifiedAt.Load()) }

// TTL returns the entry's TTL, or 0 if it never expires.
func (e *CacheEntry[K, V]) TTL() time.Duration { return time.Duration(e.ttlNanos.Load()) }

// IsExpired reports whether the entry has outlived its TTL. Pure function of
// wall clock and CreatedAt; does not mutate the entry.
func (e *CacheEntry[K, V]) IsExpired() bool {
	ttl := e.ttlNanos.Load()
	if ttl == 0 {
		return false
	}
	return now(e.clock)-e.createdAt > ttl
}

// RefreshExpiration is a no-op for absolute TTL entries (spec §4.1): this
// core only supports a fixed deadline computed at construction/write time,
// never a sliding window, so there is nothing to refresh.
func (e *CacheEntry[K, V]) RefreshExpiration() {}

// Metadata produces an immutable snapshot for external inspection.
func (e *CacheEntry[K, V]) Metadata() Metadata {
	return Metadata{
		CreatedAt:      e.CreatedAt(),
		LastAccessedAt: e.LastAccessedAt(),
		LastModifiedAt: e.LastModifiedAt(),
		AccessCount:    e.accessCount.Load(),
		SizeBytes:      int(e.sizeBytes.Load()),
		TTL:            e.TTL(),
		Priority:       e.Priority(),
		Dirty:          e.dirty.Load(),
		Expired:        e.IsExpired(),
	}
}
