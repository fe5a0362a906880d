package memtier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/evictreason"
	"github.com/voltcache/corecache/internal/util"
	"github.com/voltcache/corecache/stats"
)

type cacheImpl[K comparable, V any] struct {
	opt    Options[K, V]
	shards []*shard[K, V]

	// evictMu coordinates the eviction critical section: normal
	// operations take the read side (many concurrent holders); an
	// eviction pass takes the write side for the duration of victim
	// removal (spec §4.4).
	evictMu  sync.RWMutex
	evicting atomic.Bool

	st       stats.Statistics
	disposed atomic.Bool

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// New constructs an in-memory tier with the given options.
func New[K comparable, V any](opt Options[K, V]) (Cache[K, V], error) {
	if opt.Name == "" {
		return nil, cacheerr.InvalidConfig("memtier.New", "Name must be non-empty")
	}
	opt.setDefaults()

	n := opt.Shards
	if n <= 0 {
		n = util.ReasonableShardCount()
	} else {
		n = int(util.NextPow2(uint64(n)))
	}

	shards := make([]*shard[K, V], n)
	for i := range shards {
		shards[i] = newShard[K, V]()
	}

	c := &cacheImpl[K, V]{
		opt:         opt,
		shards:      shards,
		cleanupStop: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
	go c.cleanupLoop()
	return c, nil
}

func (c *cacheImpl[K, V]) getShard(k K) *shard[K, V] {
	h := util.HashKey(k)
	return c.shards[util.ShardIndex(h, len(c.shards))]
}

func (c *cacheImpl[K, V]) clock() entry.Clock { return c.opt.Clock }

// ---- reads ----

func (c *cacheImpl[K, V]) Get(key K) (V, bool) {
	var zero V
	if c.disposed.Load() {
		return zero, false
	}
	start := time.Now()
	c.evictMu.RLock()
	v, ok := c.getLocked(key)
	c.evictMu.RUnlock()
	if !c.opt.EnableStatistics {
		return v, ok
	}
	elapsed := time.Duration(0)
	if c.opt.EnablePerformanceMonitoring {
		elapsed = time.Since(start)
	}
	if ok {
		c.st.RecordHit(elapsed)
	} else {
		c.st.RecordMiss(elapsed)
	}
	return v, ok
}

func (c *cacheImpl[K, V]) getLocked(key K) (V, bool) {
	var zero V
	sh := c.getShard(key)
	e, ok := sh.get(key)
	if !ok {
		return zero, false
	}
	if e.IsExpired() {
		c.removeExpiredLocked(sh, key, e)
		return zero, false
	}
	c.opt.Policy.OnAccess(e)
	return e.Read(), true
}

func (c *cacheImpl[K, V]) TryGet(key K) (V, bool) { return c.Get(key) }

func (c *cacheImpl[K, V]) GetAsync(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, ok := c.Get(key)
	return v, ok, nil
}

func (c *cacheImpl[K, V]) GetMany(keys []K) (map[K]V, []K) {
	hits := make(map[K]V, len(keys))
	var misses []K
	if c.disposed.Load() {
		return hits, keys
	}
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			hits[k] = v
		} else {
			misses = append(misses, k)
		}
	}
	return hits, misses
}

// ---- writes ----

func (c *cacheImpl[K, V]) Put(key K, value V) {
	c.putWithOptions(key, value, c.opt.DefaultTTL, entry.Normal)
}

func (c *cacheImpl[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.putWithOptions(key, value, ttl, entry.Normal)
}

func (c *cacheImpl[K, V]) PutWithPriority(key K, value V, priority entry.Priority) {
	c.putWithOptions(key, value, c.opt.DefaultTTL, priority)
}

func (c *cacheImpl[K, V]) putWithOptions(key K, value V, ttl time.Duration, priority entry.Priority) {
	if c.disposed.Load() {
		return
	}
	sh := c.getShard(key)

	c.evictMu.RLock()
	sh.mu.Lock()
	if existing, ok := sh.m[key]; ok {
		delta := existing.Write(value, ttl)
		existing.SetPriority(priority)
		sh.mu.Unlock()
		c.evictMu.RUnlock()
		if delta != 0 {
			c.st.AdjustSize(delta)
		}
		c.opt.Policy.OnAdd(existing)
		c.checkAndEvict()
		return
	}
	e := entry.New[K, V](key, value, ttl, priority, c.opt.Sizer, c.opt.Clock)
	sh.m[key] = e
	sh.mu.Unlock()
	c.evictMu.RUnlock()

	c.st.RecordEntryAdded(e.SizeBytes())
	c.opt.Policy.OnAdd(e)
	c.checkAndEvict()
}

func (c *cacheImpl[K, V]) PutMany(items map[K]V) {
	for k, v := range items {
		c.Put(k, v)
	}
}

func (c *cacheImpl[K, V]) PutIfAbsent(key K, value V) bool {
	if c.disposed.Load() {
		return false
	}
	sh := c.getShard(key)

	c.evictMu.RLock()
	sh.mu.Lock()
	if _, ok := sh.m[key]; ok {
		sh.mu.Unlock()
		c.evictMu.RUnlock()
		return false
	}
	e := entry.New[K, V](key, value, c.opt.DefaultTTL, entry.Normal, c.opt.Sizer, c.opt.Clock)
	sh.m[key] = e
	sh.mu.Unlock()
	c.evictMu.RUnlock()

	c.st.RecordEntryAdded(e.SizeBytes())
	c.opt.Policy.OnAdd(e)
	c.checkAndEvict()
	return true
}

func (c *cacheImpl[K, V]) Warmup(items map[K]V, priority entry.Priority) {
	for k, v := range items {
		c.putWithOptions(k, v, c.opt.DefaultTTL, priority)
	}
}

// ---- removal ----

func (c *cacheImpl[K, V]) Remove(key K) bool {
	if c.disposed.Load() {
		return false
	}
	sh := c.getShard(key)

	c.evictMu.RLock()
	e, ok := sh.delete(key)
	c.evictMu.RUnlock()
	if !ok {
		return false
	}
	c.opt.Policy.OnRemove(e)
	c.st.RecordEntryRemoved(e.SizeBytes())
	if c.opt.OnEvict != nil {
		c.opt.OnEvict(key, e.Peek(), evictreason.Capacity)
	}
	return true
}

func (c *cacheImpl[K, V]) RemoveMany(keys []K) int {
	n := 0
	for _, k := range keys {
		if c.Remove(k) {
			n++
		}
	}
	return n
}

// removeExpiredLocked removes e from sh and records the expiry. Caller must
// hold c.evictMu.RLock (or stronger) and nothing on sh.mu.
func (c *cacheImpl[K, V]) removeExpiredLocked(sh *shard[K, V], key K, e *entry.CacheEntry[K, V]) {
	if _, ok := sh.delete(key); !ok {
		return
	}
	c.opt.Policy.OnRemove(e)
	c.st.RecordEntryRemoved(e.SizeBytes())
	c.st.RecordExpired(1)
	if c.opt.OnEvict != nil {
		c.opt.OnEvict(key, e.Peek(), evictreason.TTL)
	}
}

// ---- introspection ----

func (c *cacheImpl[K, V]) ContainsKey(key K) bool {
	if c.disposed.Load() {
		return false
	}
	sh := c.getShard(key)
	c.evictMu.RLock()
	e, ok := sh.get(key)
	c.evictMu.RUnlock()
	if !ok {
		return false
	}
	if e.IsExpired() {
		c.evictMu.RLock()
		c.removeExpiredLocked(sh, key, e)
		c.evictMu.RUnlock()
		return false
	}
	return true
}

func (c *cacheImpl[K, V]) Keys() []K {
	keys := make([]K, 0, c.Count())
	for _, sh := range c.shards {
		keys = append(keys, sh.snapshotKeys()...)
	}
	return keys
}

func (c *cacheImpl[K, V]) GetEntryMetadata(key K) (entry.Metadata, bool) {
	if c.disposed.Load() {
		return entry.Metadata{}, false
	}
	sh := c.getShard(key)
	c.evictMu.RLock()
	e, ok := sh.get(key)
	c.evictMu.RUnlock()
	if !ok {
		return entry.Metadata{}, false
	}
	return e.Metadata(), true
}

func (c *cacheImpl[K, V]) Name() string     { return c.opt.Name }
func (c *cacheImpl[K, V]) Count() int       { return int(c.st.CurrentCount()) }
func (c *cacheImpl[K, V]) SizeBytes() int64 { return c.st.CurrentSizeBytes() }
func (c *cacheImpl[K, V]) MaxCapacity() int { return c.opt.MaxEntryCount }
func (c *cacheImpl[K, V]) MaxSizeBytes() int64 {
	return c.opt.MaxSizeBytes
}
func (c *cacheImpl[K, V]) HitRatio() float64          { return c.st.HitRatio() }
func (c *cacheImpl[K, V]) Statistics() stats.Snapshot { return c.st.Snapshot() }

// ---- bulk mutation ----

func (c *cacheImpl[K, V]) Clear() {
	c.evictMu.Lock()
	defer c.evictMu.Unlock()
	for _, sh := range c.shards {
		sh.mu.Lock()
		for k, e := range sh.m {
			c.opt.Policy.OnRemove(e)
			if c.opt.OnEvict != nil {
				c.opt.OnEvict(k, e.Peek(), evictreason.Capacity)
			}
		}
		sh.m = make(map[K]*entry.CacheEntry[K, V])
		sh.mu.Unlock()
	}
	c.st.UpdateCurrent(0, 0)
}

func (c *cacheImpl[K, V]) ClearExpired() int {
	c.evictMu.RLock()
	defer c.evictMu.RUnlock()
	n := 0
	for _, sh := range c.shards {
		for _, key := range sh.snapshotKeys() {
			e, ok := sh.get(key)
			if !ok || !e.IsExpired() {
				continue
			}
			c.removeExpiredLocked(sh, key, e)
			n++
		}
	}
	return n
}

// Evict forces an eviction pass that frees at least targetBytes (capped by
// total eligible bytes), returning the number of entries removed. Used both
// by the public API and by the multi-level composer's evict(target).
func (c *cacheImpl[K, V]) Evict(targetBytes int64) int {
	if targetBytes <= 0 {
		return 0
	}
	return c.runEvictionPass(0, targetBytes, evictreason.Capacity)
}

// ---- eviction machinery ----

// checkAndEvict implements the spec's "after every write" capacity check:
// the read-side check is just an atomic load; only when over capacity does
// it escalate to the write-side removal pass.
func (c *cacheImpl[K, V]) checkAndEvict() {
	over := c.st.CurrentCount() > int64(c.opt.MaxEntryCount) || c.st.CurrentSizeBytes() > c.opt.MaxSizeBytes
	if !over {
		return
	}
	targetCountLevel := int64(float64(c.opt.MaxEntryCount) * c.opt.EvictionTarget)
	targetBytesLevel := int64(float64(c.opt.MaxSizeBytes) * c.opt.EvictionTarget)
	excessCount := c.st.CurrentCount() - targetCountLevel
	excessBytes := c.st.CurrentSizeBytes() - targetBytesLevel
	if excessCount < 0 {
		excessCount = 0
	}
	if excessBytes < 0 {
		excessBytes = 0
	}
	c.runEvictionPass(int(excessCount), excessBytes, evictreason.Policy)
}

// runEvictionPass ensures only one eviction pass runs at a time, takes the
// write side of evictMu, rechecks capacity, and removes the policy's
// selected victims.
func (c *cacheImpl[K, V]) runEvictionPass(targetCount int, targetBytes int64, reason evictreason.Reason) int {
	if !c.evicting.CompareAndSwap(false, true) {
		return 0
	}
	defer c.evicting.Store(false)

	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	candidates := make([]eviction.Candidate[K], 0, c.st.CurrentCount())
	byKey := make(map[K]*shard[K, V], len(c.shards))
	for _, sh := range c.shards {
		sh.mu.Lock()
		for k, e := range sh.m {
			candidates = append(candidates, e)
			byKey[k] = sh
		}
		sh.mu.Unlock()
	}

	victims := c.opt.Policy.SelectForEviction(candidates, targetCount, targetBytes)
	removed := 0
	for _, v := range victims {
		key := v.Key()
		sh := byKey[key]
		sh.mu.Lock()
		e, ok := sh.m[key]
		if ok {
			delete(sh.m, key)
		}
		sh.mu.Unlock()
		if !ok {
			continue
		}
		c.opt.Policy.OnRemove(e)
		c.st.RecordEntryRemoved(e.SizeBytes())
		c.st.RecordEviction(1)
		if c.opt.OnEvict != nil {
			c.opt.OnEvict(key, e.Peek(), reason)
		}
		removed++
	}
	return removed
}

// ---- lifecycle ----

func (c *cacheImpl[K, V]) cleanupLoop() {
	defer close(c.cleanupDone)
	ticker := time.NewTicker(c.opt.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.ClearExpired()
		case <-c.cleanupStop:
			return
		}
	}
}

func (c *cacheImpl[K, V]) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil // double-dispose is a no-op
	}
	close(c.cleanupStop)
	<-c.cleanupDone
	c.Clear()
	return nil
}
