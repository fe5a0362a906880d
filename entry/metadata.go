package entry

import "time"

// Metadata is an immutable snapshot of a CacheEntry's bookkeeping fields,
// produced on demand for external inspection (spec §3, EntryMetadata).
type Metadata struct {
	CreatedAt      time.Time
	LastAccessedAt time.Time
	LastModifiedAt time.Time
	AccessCount    int64
	SizeBytes      int
	TTL            time.Duration // zero means no expiration
	Priority       Priority
	Dirty          bool
	Expired        bool
}
