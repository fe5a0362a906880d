package disktier

import (
	"sync/atomic"
	"time"

	"github.com/voltcache/corecache/entry"
)

// IndexSnapshot is the exported, serialization-friendly form of a
// DiskIndexEntry (spec §3). The tier never persists this itself — an
// embedder that wants the on-disk index to survive a restart takes a
// snapshot via Tier.IndexSnapshot(), persists it in whatever format it
// likes, and passes it back via Options.RestoreIndex on the next Open (see
// DESIGN.md open question #1).
type IndexSnapshot[K comparable] struct {
	Key            K
	FileID         string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastModifiedAt time.Time
	AccessCount    int64
	SizeBytes      int64 // compressed length on disk
	TTL            time.Duration
	Priority       entry.Priority
}

// indexEntry is the live in-memory index record backing one on-disk file.
// It carries no value; reads touch it, writes replace it.
type indexEntry[K comparable] struct {
	key    K
	fileID string
	clock  entry.Clock

	createdAt      int64
	lastAccessedAt atomic.Int64
	lastModifiedAt atomic.Int64
	accessCount    atomic.Int64
	sizeBytes      atomic.Int64
	ttlNanos       atomic.Int64
	priority       atomic.Int32
}

func newIndexEntry[K comparable](key K, fileID string, sizeBytes int64, ttl time.Duration, priority entry.Priority, now int64, clock entry.Clock) *indexEntry[K] {
	e := &indexEntry[K]{key: key, fileID: fileID, createdAt: now, clock: clock}
	e.lastAccessedAt.Store(now)
	e.lastModifiedAt.Store(now)
	e.sizeBytes.Store(sizeBytes)
	if ttl > 0 {
		e.ttlNanos.Store(int64(ttl))
	}
	e.priority.Store(int32(priority))
	return e
}

func (e *indexEntry[K]) touch(now int64) {
	e.lastAccessedAt.Store(now)
	e.accessCount.Add(1)
}

// --- eviction.Candidate[K] ---

func (e *indexEntry[K]) Key() K                        { return e.key }
func (e *indexEntry[K]) Priority() entry.Priority       { return entry.Priority(e.priority.Load()) }
func (e *indexEntry[K]) LastAccessedAt() time.Time      { return time.Unix(0, e.lastAccessedAt.Load()) }
func (e *indexEntry[K]) CreatedAt() time.Time           { return time.Unix(0, e.createdAt) }
func (e *indexEntry[K]) AccessCount() int64             { return e.accessCount.Load() }
func (e *indexEntry[K]) SizeBytes() int64               { return e.sizeBytes.Load() }
func (e *indexEntry[K]) IsExpired() bool {
	ttl := e.ttlNanos.Load()
	if ttl == 0 {
		return false
	}
	var nowNanos int64
	if e.clock != nil {
		nowNanos = e.clock.NowUnixNano()
	} else {
		nowNanos = time.Now().UnixNano()
	}
	return nowNanos-e.createdAt > ttl
}

func (e *indexEntry[K]) snapshot() IndexSnapshot[K] {
	return IndexSnapshot[K]{
		Key:            e.key,
		FileID:         e.fileID,
		CreatedAt:      time.Unix(0, e.createdAt),
		LastAccessedAt: e.LastAccessedAt(),
		LastModifiedAt: time.Unix(0, e.lastModifiedAt.Load()),
		AccessCount:    e.accessCount.Load(),
		SizeBytes:      e.sizeBytes.Load(),
		TTL:            time.Duration(e.ttlNanos.Load()),
		Priority:       e.Priority(),
	}
}

func (e *indexEntry[K]) metadata() entry.Metadata {
	return entry.Metadata{
		CreatedAt:      time.Unix(0, e.createdAt),
		LastAccessedAt: e.LastAccessedAt(),
		LastModifiedAt: time.Unix(0, e.lastModifiedAt.Load()),
		AccessCount:    e.accessCount.Load(),
		SizeBytes:      int(e.sizeBytes.Load()),
		TTL:            time.Duration(e.ttlNanos.Load()),
		Priority:       e.Priority(),
		Expired:        e.IsExpired(),
	}
}
