package storageintegration

import (
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/coherence"
	"github.com/voltcache/corecache/disktier"
	"github.com/voltcache/corecache/memtier"
	"github.com/voltcache/corecache/multilevel"
)

// ownedCache is the type-erased bookkeeping record the maintenance loop
// drives: every cache GetOrCreateCache produces, regardless of its (K,V)
// instantiation, is reachable through these closures.
type ownedCache struct {
	registryKey  string
	clearExpired func() int
	evict        func(int64) int
	sizeBytes    func() int64
	maxSizeBytes int64
	dispose      func() error
}

// StorageIntegration owns per-channel, per-type multi-level caches and
// schedules their periodic maintenance (spec §4.10, component C10).
type StorageIntegration struct {
	cfg Config

	// instanceID uniquely identifies this process's StorageIntegration
	// among any others that might register their caches with a shared
	// external coherence topology (spec §4.7: peer identity must be
	// distinguishable across processes, not just within one).
	instanceID string

	mu     sync.Mutex
	caches map[string]any // registryKey -> multilevel.Cache[K,V]
	owned  []*ownedCache

	disposed atomic.Bool

	maintStop chan struct{}
	maintDone chan struct{}
}

// New constructs a StorageIntegration rooted at cfg.BaseDirectory and starts
// its maintenance timer.
func New(cfg Config) (*StorageIntegration, error) {
	if cfg.BaseDirectory == "" {
		return nil, cacheerr.InvalidConfig("storageintegration.New", "BaseDirectory must be non-empty")
	}
	cfg.setDefaults()

	si := &StorageIntegration{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		caches:     make(map[string]any),
		maintStop:  make(chan struct{}),
		maintDone:  make(chan struct{}),
	}
	go si.maintenanceLoop()
	return si, nil
}

// InstanceID returns the process-unique identifier generated for this
// StorageIntegration.
func (si *StorageIntegration) InstanceID() string { return si.instanceID }

var sanitizePattern = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

func sanitize(s string) string {
	return sanitizePattern.ReplaceAllString(s, "_")
}

func typeName[T any]() string {
	var zero T
	return reflect.TypeOf(&zero).Elem().String()
}

// registryKey implements the printable form from spec §6:
// "channel_{id}_{cache_type}_{key_type_name}_{value_type_name}". Distinct
// (K,V) instantiations for the same channel/cache_type never collide because
// the Go type name is part of the key.
func registryKey[K comparable, V any](channelID, cacheType string) string {
	return fmt.Sprintf("channel_%s_%s_%s_%s", sanitize(channelID), sanitize(cacheType), typeName[K](), typeName[V]())
}

// GetOrCreateCache returns the multi-level cache for (channelID, cacheType,
// K, V), creating it (and its backing L1/L2 tiers and coherence manager) on
// first use. codec is only consulted when the cache doesn't already exist
// (spec §4.10, §6).
func GetOrCreateCache[K comparable, V any](si *StorageIntegration, channelID, cacheType string, codec disktier.Codec[V]) (multilevel.Cache[K, V], error) {
	if si.disposed.Load() {
		return nil, cacheerr.Disposed("storageintegration")
	}
	key := registryKey[K, V](channelID, cacheType)

	si.mu.Lock()
	if existing, ok := si.caches[key]; ok {
		si.mu.Unlock()
		return existing.(multilevel.Cache[K, V]), nil
	}
	si.mu.Unlock()

	wrapped, err := buildCache[K, V](si, key, channelID, cacheType, codec)
	if err != nil {
		return nil, err
	}

	si.mu.Lock()
	if existing, ok := si.caches[key]; ok {
		// Lost a creation race; discard our build and use the winner.
		si.mu.Unlock()
		_ = wrapped.Dispose()
		return existing.(multilevel.Cache[K, V]), nil
	}
	si.caches[key] = wrapped
	si.owned = append(si.owned, &ownedCache{
		registryKey:  key,
		clearExpired: wrapped.ClearExpired,
		evict:        wrapped.Evict,
		sizeBytes:    wrapped.SizeBytes,
		maxSizeBytes: si.cfg.L1MaxSizeBytes + si.cfg.L2MaxSizeBytes,
		dispose:      wrapped.Dispose,
	})
	si.mu.Unlock()
	return wrapped, nil
}

// buildCache constructs the L1 in-memory tier, L2 disk tier, composes them,
// and wraps the composition in a coherence-notifying decorator registered
// under its own single-member coherence manager (spec §2: C10 "owns C7 for
// cross-instance propagation" per cache it creates).
func buildCache[K comparable, V any](si *StorageIntegration, regKey, channelID, cacheType string, codec disktier.Codec[V]) (*coherentCache[K, V], error) {
	l1, err := memtier.New[K, V](memtier.Options[K, V]{
		Name:          regKey,
		MaxEntryCount: si.cfg.L1MaxEntries,
		MaxSizeBytes:  si.cfg.L1MaxSizeBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("storageintegration: building L1 for %s: %w", regKey, err)
	}

	l2, err := disktier.Open[K, V](disktier.Options[K, V]{
		Name:              regKey,
		Directory:         channelDir(si.cfg.BaseDirectory, channelID, cacheType),
		Codec:             codec,
		MaxEntryCount:     si.cfg.L2MaxEntries,
		MaxSizeBytes:      si.cfg.L2MaxSizeBytes,
		EnableCompression: true,
	})
	if err != nil {
		_ = l1.Dispose()
		return nil, fmt.Errorf("storageintegration: building L2 for %s: %w", regKey, err)
	}

	mlCfg := si.cfg.MultiLevel
	mlCfg.Name = regKey
	mlCfg.PromotionAccessThreshold = si.cfg.PromotionAccessThreshold

	composed, err := multilevel.New[K, V](mlCfg, l1, l2)
	if err != nil {
		_ = l1.Dispose()
		_ = l2.Dispose()
		return nil, fmt.Errorf("storageintegration: composing %s: %w", regKey, err)
	}

	mgr := coherence.New[K, V](si.cfg.CoherenceStrategy)
	peerID := si.instanceID + ":" + regKey
	wrapped := &coherentCache[K, V]{Cache: composed, mgr: mgr, id: peerID}
	mgr.Register(peerID, wrapped)
	return wrapped, nil
}

func (si *StorageIntegration) maintenanceLoop() {
	defer close(si.maintDone)
	ticker := time.NewTicker(si.cfg.MaintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			si.runMaintenance()
		case <-si.maintStop:
			return
		}
	}
}

// runMaintenance clears expired entries on every owned cache, then, for any
// cache over its eviction threshold, calls Evict(maxSizeBytes ×
// EvictionTarget), which asks the cache to free that many bytes across its
// two tiers (spec §4.10).
func (si *StorageIntegration) runMaintenance() {
	si.mu.Lock()
	owned := make([]*ownedCache, len(si.owned))
	copy(owned, si.owned)
	si.mu.Unlock()

	for _, o := range owned {
		o.clearExpired()
		if o.maxSizeBytes <= 0 {
			continue
		}
		utilization := float64(o.sizeBytes()) / float64(o.maxSizeBytes)
		if utilization > si.cfg.EvictionThreshold {
			target := int64(float64(o.maxSizeBytes) * si.cfg.EvictionTarget)
			o.evict(target)
		}
	}
}

// Dispose stops the maintenance timer and disposes every owned cache.
// Double-dispose is a no-op (spec §5).
func (si *StorageIntegration) Dispose() error {
	if !si.disposed.CompareAndSwap(false, true) {
		return nil
	}
	close(si.maintStop)
	<-si.maintDone

	si.mu.Lock()
	owned := make([]*ownedCache, len(si.owned))
	copy(owned, si.owned)
	si.mu.Unlock()

	for _, o := range owned {
		_ = o.dispose()
	}
	return nil
}

// Names returns the registry keys of every cache currently owned.
func (si *StorageIntegration) Names() []string {
	si.mu.Lock()
	defer si.mu.Unlock()
	out := make([]string, 0, len(si.owned))
	for _, o := range si.owned {
		out = append(out, o.registryKey)
	}
	return out
}

func channelDir(base, channelID, cacheType string) string {
	return filepath.Join(base, sanitize(channelID), sanitize(cacheType))
}
