// Package storageintegration implements the storage-engine integration
// layer (spec §4.10, component C10): owns per-channel, per-type multi-level
// caches and schedules their periodic maintenance.
package storageintegration

import (
	"time"

	"github.com/voltcache/corecache/coherence"
	"github.com/voltcache/corecache/multilevel"
)

// Defaults per spec §6, applied where the storage-integration config leaves
// a field unset.
const (
	DefaultL1MaxEntries         = 10_000
	DefaultL1MaxSizeBytes       = 100 * 1024 * 1024
	DefaultL2MaxEntries         = 100_000
	DefaultL2MaxSizeBytes       = 1024 * 1024 * 1024
	DefaultMaintenanceInterval  = 5 * time.Minute
	DefaultEvictionThreshold    = 0.9
	DefaultEvictionTarget       = 0.8
	DefaultPromotionThreshold   = 3
)

// Config configures a StorageIntegration instance (spec §4.10): a storage
// directory plus L1/L2 sizing, maintenance cadence, eviction
// threshold/target, promotion threshold, and coherence strategy shared by
// every cache it creates.
type Config struct {
	BaseDirectory string

	L1MaxEntries   int
	L1MaxSizeBytes int64
	L2MaxEntries   int
	L2MaxSizeBytes int64

	CleanupInterval     time.Duration
	MaintenanceInterval time.Duration

	EvictionThreshold float64
	EvictionTarget    float64

	PromotionAccessThreshold int64

	CoherenceStrategy coherence.Strategy

	// MultiLevel supplies any multilevel.Config fields this Config doesn't
	// directly surface (promotion/demotion intervals, write-through, etc.);
	// Name and PromotionAccessThreshold are always overridden per cache.
	MultiLevel multilevel.Config
}

func (c *Config) setDefaults() {
	if c.L1MaxEntries <= 0 {
		c.L1MaxEntries = DefaultL1MaxEntries
	}
	if c.L1MaxSizeBytes <= 0 {
		c.L1MaxSizeBytes = DefaultL1MaxSizeBytes
	}
	if c.L2MaxEntries <= 0 {
		c.L2MaxEntries = DefaultL2MaxEntries
	}
	if c.L2MaxSizeBytes <= 0 {
		c.L2MaxSizeBytes = DefaultL2MaxSizeBytes
	}
	if c.MaintenanceInterval <= 0 {
		c.MaintenanceInterval = DefaultMaintenanceInterval
	}
	if c.EvictionThreshold <= 0 || c.EvictionThreshold > 1 {
		c.EvictionThreshold = DefaultEvictionThreshold
	}
	if c.EvictionTarget <= 0 || c.EvictionTarget >= c.EvictionThreshold {
		c.EvictionTarget = DefaultEvictionTarget
	}
	if c.PromotionAccessThreshold <= 0 {
		c.PromotionAccessThreshold = DefaultPromotionThreshold
	}
	if (c.MultiLevel == multilevel.Config{}) {
		c.MultiLevel = multilevel.DefaultConfig()
	}
}

// Cache type names used by the built-in specializations (spec §4.10).
const (
	CacheTypeEntity       = "entity"
	CacheTypeTypeMetadata = "type_metadata"
	CacheTypeFileData     = "file_data"
)
