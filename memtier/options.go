package memtier

import (
	"time"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/eviction/lru"
	"github.com/voltcache/corecache/evictreason"
)

// Defaults per spec §6 "Cache configuration — recognized options".
const (
	DefaultMaxEntryCount       = 10_000
	DefaultMaxSizeBytes        = 100 * 1024 * 1024
	DefaultCleanupInterval     = 5 * time.Minute
	DefaultEvictionThreshold   = 0.9
	DefaultEvictionTarget      = 0.8
	DefaultShards              = 0 // 0 = auto
	DefaultEnableStatistics    = true
	DefaultEnablePerfMonitor   = true
	DefaultEnableCacheWarming  = false
)

// Options configures an in-memory tier. Zero values are safe; New applies
// the spec's defaults for any field left unset.
type Options[K comparable, V any] struct {
	// Name uniquely identifies the cache for registration/metrics
	// purposes. Required non-empty.
	Name string

	MaxEntryCount int
	MaxSizeBytes  int64

	// Policy selects the eviction policy; nil defaults to LRU.
	Policy eviction.Policy[K]

	CleanupInterval time.Duration
	DefaultTTL      time.Duration

	EnableStatistics           bool
	EnablePerformanceMonitoring bool

	// EvictionThreshold/EvictionTarget: 0 < Target < Threshold <= 1.
	EvictionThreshold float64
	EvictionTarget    float64

	// Shards controls internal sharding of the key map; 0 picks a value
	// based on GOMAXPROCS, rounded to a power of two.
	Shards int

	// Sizer overrides the default size estimator.
	Sizer entry.Sizer

	// Clock overrides time.Now(), for deterministic tests.
	Clock entry.Clock

	// OnEvict is invoked synchronously whenever an entry leaves the tier:
	// policy eviction (evictreason.Policy), TTL expiry (evictreason.TTL),
	// or an explicit Evict, Remove or Clear (evictreason.Capacity). The
	// multi-level composer's demotion removes entries through Remove, so
	// they are reported as Capacity. Keep it lightweight: it may run while
	// the tier holds internal locks (Clear calls it under a shard lock).
	OnEvict func(key K, value V, reason evictreason.Reason)
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
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = DefaultCleanupInterval
	}
	if o.EvictionThreshold <= 0 || o.EvictionThreshold > 1 {
		o.EvictionThreshold = DefaultEvictionThreshold
	}
	if o.EvictionTarget <= 0 || o.EvictionTarget >= o.EvictionThreshold {
		o.EvictionTarget = DefaultEvictionTarget
	}
	if o.Sizer == nil {
		o.Sizer = entry.DefaultSizer{}
	}
	if !o.EnableStatistics {
		o.EnableStatistics = DefaultEnableStatistics
	}
	if !o.EnablePerformanceMonitoring {
		o.EnablePerformanceMonitoring = DefaultEnablePerfMonitor
	}
}
