package disktier

import (
	"runtime"
	"time"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/eviction/lru"
)

// Defaults mirror memtier's where the spec doesn't distinguish L1 from L2.
const (
	DefaultMaxEntryCount     = 10_000
	DefaultMaxSizeBytes      = 100 * 1024 * 1024
	DefaultCompactionInterval = 5 * time.Minute
	DefaultCompressionLevel  = 6
	DefaultEvictionThreshold = 0.9
	DefaultEvictionTarget    = 0.8
)

// Options configures the disk tier.
type Options[K comparable, V any] struct {
	// Name uniquely identifies the tier for metrics.
	Name string
	// Directory holds one "<file_id>.cache" file per entry.
	Directory string

	Codec Codec[V]

	MaxEntryCount int
	MaxSizeBytes  int64

	Policy eviction.Policy[K]

	// CompactionInterval drives the periodic ClearExpired sweep.
	CompactionInterval time.Duration

	EnableCompression bool
	CompressionLevel  int // 1-9, gzip semantics

	EvictionThreshold float64
	EvictionTarget    float64

	// MaxConcurrentIO bounds simultaneous disk operations; 0 picks
	// 2x GOMAXPROCS (spec §4.5).
	MaxConcurrentIO int64

	Clock entry.Clock

	// RestoreIndex seeds the in-memory index from a previously persisted
	// snapshot (see IndexSnapshot doc comment and DESIGN.md open question
	// #1). When nil, Open only recomputes the aggregate byte total from
	// the files present on disk and reports them as orphaned.
	RestoreIndex []IndexSnapshot[K]
}

func (o *Options[K, V]) setDefaults() {
	if o.MaxEntryCount <= 0 {
		o.MaxEntryCount = DefaultMaxEntryCount
	}
	if o.MaxSizeBytes <= 0 {
		o.MaxSizeBytes = DefaultMaxSizeBytes
	}
	if o.Policy == nil {
		o.Policy = lru.New[K]()
	}
	if o.CompactionInterval <= 0 {
		o.CompactionInterval = DefaultCompactionInterval
	}
	if o.CompressionLevel <= 0 {
		o.CompressionLevel = DefaultCompressionLevel
	}
	if o.EvictionThreshold <= 0 || o.EvictionThreshold > 1 {
		o.EvictionThreshold = DefaultEvictionThreshold
	}
	if o.EvictionTarget <= 0 || o.EvictionTarget >= o.EvictionThreshold {
		o.EvictionTarget = DefaultEvictionTarget
	}
	if o.MaxConcurrentIO <= 0 {
		o.MaxConcurrentIO = int64(2 * runtime.GOMAXPROCS(0))
	}
}
