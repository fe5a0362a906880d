// Package stats implements CacheStatistics (spec §3, §4.3, component C3):
// lock-free counters for hits/misses/evictions/expiry updated with atomic
// fetch-add, read via an immutable snapshot.
package stats

import (
	"time"

	"github.com/voltcache/corecache/internal/util"
)

// Statistics holds process-local, atomically updated counters for one cache.
// The zero value is ready to use.
type Statistics struct {
	_             util.CacheLinePad
	hits          util.PaddedAtomicInt64
	misses        util.PaddedAtomicInt64
	evictions     util.PaddedAtomicInt64
	expired       util.PaddedAtomicInt64
	totalAccessNs util.PaddedAtomicInt64
	currentSize   util.PaddedAtomicInt64
	currentCount  util.PaddedAtomicInt64
}

// Snapshot is an immutable view of Statistics at the moment it was taken.
type Snapshot struct {
	Hits             int64
	Misses           int64
	Evictions        int64
	Expired          int64
	Requests         int64
	HitRatio         float64
	AverageAccess    time.Duration
	CurrentSizeBytes int64
	CurrentCount     int64
}

// RecordHit records a cache hit, optionally timing the access.
func (s *Statistics) RecordHit(accessTime time.Duration) {
	s.hits.Add(1)
	if accessTime > 0 {
		s.totalAccessNs.Add(int64(accessTime))
	}
}

// RecordMiss records a cache miss, optionally timing the access.
func (s *Statistics) RecordMiss(accessTime time.Duration) {
	s.misses.Add(1)
	if accessTime > 0 {
		s.totalAccessNs.Add(int64(accessTime))
	}
}

// RecordEviction records n entries evicted by policy/capacity pressure.
func (s *Statistics) RecordEviction(n int64) { s.evictions.Add(n) }

// RecordExpired records n entries removed because their TTL elapsed.
func (s *Statistics) RecordExpired(n int64) { s.expired.Add(n) }

// RecordEntryAdded adjusts current size/count upward for a new entry.
func (s *Statistics) RecordEntryAdded(sizeBytes int64) {
	s.currentSize.Add(sizeBytes)
	s.currentCount.Add(1)
}

// RecordEntryRemoved adjusts current size/count downward for a removed
// entry. sizeBytes must be exactly the size reported by that entry (spec §8:
// "current_size_bytes decreases by exactly that entry's reported size").
func (s *Statistics) RecordEntryRemoved(sizeBytes int64) {
	s.currentSize.Add(-sizeBytes)
	s.currentCount.Add(-1)
}

// AdjustSize applies a raw size delta without touching the entry count; used
// when an existing entry's value is replaced in place.
func (s *Statistics) AdjustSize(delta int64) { s.currentSize.Add(delta) }

// UpdateCurrent sets current size/count directly (used after bulk
// operations like Clear where per-entry deltas aren't tracked).
func (s *Statistics) UpdateCurrent(sizeBytes, count int64) {
	s.currentSize.Store(sizeBytes)
	s.currentCount.Store(count)
}

// Reset clears hit/miss/eviction/expiry/access-time counters but leaves
// current size and entry count intact (spec §4.3).
func (s *Statistics) Reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.evictions.Store(0)
	s.expired.Store(0)
	s.totalAccessNs.Store(0)
}

// CurrentCount returns the live entry count without building a full
// snapshot; used by tiers for fast capacity checks.
func (s *Statistics) CurrentCount() int64 { return s.currentCount.Load() }

// CurrentSizeBytes returns the live byte total without building a full
// snapshot; used by tiers for fast capacity checks.
func (s *Statistics) CurrentSizeBytes() int64 { return s.currentSize.Load() }

// HitRatio returns hits/(hits+misses), or 0 when no requests were recorded.
func (s *Statistics) HitRatio() float64 {
	hits := s.hits.Load()
	misses := s.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Snapshot takes an immutable, internally-consistent-enough view of the
// counters. Individual fields may be read a few nanoseconds apart under
// concurrent updates; this matches the "eventually consistent" posture of a
// lock-free counter set.
func (s *Statistics) Snapshot() Snapshot {
	hits := s.hits.Load()
	misses := s.misses.Load()
	requests := hits + misses

	var ratio float64
	var avg time.Duration
	if requests > 0 {
		ratio = float64(hits) / float64(requests)
		avg = time.Duration(s.totalAccessNs.Load() / requests)
	}

	return Snapshot{
		Hits:             hits,
		Misses:           misses,
		Evictions:        s.evictions.Load(),
		Expired:          s.expired.Load(),
		Requests:         requests,
		HitRatio:         ratio,
		AverageAccess:    avg,
		CurrentSizeBytes: s.currentSize.Load(),
		CurrentCount:     s.currentCount.Load(),
	}
}
