package multilevel

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/disktier"
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/internal/util"
	"github.com/voltcache/corecache/memtier"
	"github.com/voltcache/corecache/stats"
)

// composer implements Cache[K,V] by fronting an L2 disk tier with an L1
// in-memory tier (spec §4.6). The composer owns both tiers exclusively for
// its lifetime: Dispose disposes both (spec §3 ownership).
type composer[K comparable, V any] struct {
	cfg Config
	l1  memtier.Cache[K, V]
	l2  disktier.Tier[K, V]

	promoteGroup singleflight.Group

	disposed atomic.Bool

	promoteStop chan struct{}
	promoteDone chan struct{}
	demoteStop  chan struct{}
	demoteDone  chan struct{}
}

// New composes l1 and l2 under cfg. The composer takes ownership of both:
// callers must not Dispose them independently.
func New[K comparable, V any](cfg Config, l1 memtier.Cache[K, V], l2 disktier.Tier[K, V]) (Cache[K, V], error) {
	if l1 == nil || l2 == nil {
		return nil, cacheerr.InvalidConfig("multilevel.New", "both L1 and L2 tiers are required")
	}
	cfg.setDefaults()
	c := &composer[K, V]{
		cfg:         cfg,
		l1:          l1,
		l2:          l2,
		promoteStop: make(chan struct{}),
		promoteDone: make(chan struct{}),
		demoteStop:  make(chan struct{}),
		demoteDone:  make(chan struct{}),
	}
	if cfg.EnableAutoPromotion {
		go c.promotionLoop()
	} else {
		close(c.promoteDone)
	}
	if cfg.EnableAutoDemotion {
		go c.demotionLoop()
	} else {
		close(c.demoteDone)
	}
	return c, nil
}

// ---- reads ----

func (c *composer[K, V]) Get(key K) (V, bool) {
	if v, ok := c.l1.Get(key); ok {
		return v, true
	}
	v, ok, err := c.l2.Get(key)
	if err != nil || !ok {
		var zero V
		return zero, false
	}
	c.promote(key, v)
	return v, true
}

func (c *composer[K, V]) TryGet(key K) (V, bool) { return c.Get(key) }

func (c *composer[K, V]) GetAsync(ctx context.Context, key K) (V, bool, error) {
	var zero V
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v, ok := c.Get(key)
	return v, ok, nil
}

// GetMany preserves key order in a single pass: L1 hits are collected first,
// remaining keys are batch-queried against L2, and exactly one miss is
// recorded per key absent from both tiers (spec §4.6).
func (c *composer[K, V]) GetMany(keys []K) (map[K]V, []K) {
	hits := make(map[K]V, len(keys))
	var remainder []K
	for _, k := range keys {
		if v, ok := c.l1.Get(k); ok {
			hits[k] = v
		} else {
			remainder = append(remainder, k)
		}
	}
	var misses []K
	for _, k := range remainder {
		v, ok, err := c.l2.Get(k)
		if err != nil || !ok {
			misses = append(misses, k)
			continue
		}
		hits[k] = v
		c.promote(k, v)
	}
	return hits, misses
}

// promote copies a value found in L2 into L1 at High priority (spec §4.6).
// Promotion failures are swallowed; concurrent promotions of the same key
// are coalesced via singleflight so a burst of readers triggers at most one
// redundant L1 write.
func (c *composer[K, V]) promote(key K, value V) {
	go func() {
		_, _, _ = c.promoteGroup.Do(util.KeyString(key), func() (any, error) {
			c.l1.PutWithPriority(key, value, entry.High)
			return nil, nil
		})
	}()
}

// ---- writes ----

func (c *composer[K, V]) Put(key K, value V) {
	c.PutWithPriority(key, value, entry.Normal)
}

func (c *composer[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.l1.PutWithTTL(key, value, ttl)
	if c.cfg.WriteThrough {
		_ = c.l2.PutWithOptions(key, value, ttl, entry.Normal)
	}
}

func (c *composer[K, V]) PutWithPriority(key K, value V, priority entry.Priority) {
	c.l1.PutWithPriority(key, value, priority)
	if c.cfg.WriteThrough || priority >= c.cfg.L2WriteThreshold {
		_ = c.l2.PutWithOptions(key, value, 0, priority)
	}
}

func (c *composer[K, V]) PutMany(items map[K]V) {
	for k, v := range items {
		c.Put(k, v)
	}
}

// ---- removal ----

func (c *composer[K, V]) Remove(key K) bool {
	r1 := c.l1.Remove(key)
	r2, _ := c.l2.Remove(key)
	return r1 || r2
}

func (c *composer[K, V]) RemoveMany(keys []K) int {
	n := 0
	for _, k := range keys {
		if c.Remove(k) {
			n++
		}
	}
	return n
}

// ---- introspection ----

func (c *composer[K, V]) ContainsKey(key K) bool {
	return c.l1.ContainsKey(key) || c.l2.ContainsKey(key)
}

func (c *composer[K, V]) Keys() []K {
	seen := make(map[K]struct{})
	out := make([]K, 0)
	for _, k := range c.l1.Keys() {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	for _, k := range c.l2.Keys() {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}

func (c *composer[K, V]) GetEntryMetadata(key K) (entry.Metadata, bool) {
	if m, ok := c.l1.GetEntryMetadata(key); ok {
		return m, true
	}
	return c.l2.GetEntryMetadata(key)
}

func (c *composer[K, V]) Name() string { return c.cfg.Name }
func (c *composer[K, V]) Count() int   { return c.l1.Count() + c.l2.Count() }
func (c *composer[K, V]) SizeBytes() int64 {
	return c.l1.SizeBytes() + c.l2.SizeBytes()
}

// Statistics returns L1's statistics snapshot merged with L2's counters.
// L1 is the hot path an embedder cares about for hit-ratio purposes; L2's
// own Statistics() remains separately queryable via the owning
// storageintegration layer for disk-specific diagnostics.
func (c *composer[K, V]) Statistics() stats.Snapshot {
	l1snap := c.l1.Statistics()
	l2snap := c.l2.Statistics()
	return stats.Snapshot{
		Hits:             l1snap.Hits + l2snap.Hits,
		Misses:           l2snap.Misses, // a composed miss only happens when both tiers miss
		Evictions:        l1snap.Evictions + l2snap.Evictions,
		Expired:          l1snap.Expired + l2snap.Expired,
		Requests:         l1snap.Hits + l2snap.Hits + l2snap.Misses,
		CurrentSizeBytes: l1snap.CurrentSizeBytes + l2snap.CurrentSizeBytes,
		CurrentCount:     l1snap.CurrentCount + l2snap.CurrentCount,
		HitRatio:         hitRatio(l1snap.Hits+l2snap.Hits, l2snap.Misses),
	}
}

func hitRatio(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// ---- bulk mutation ----

func (c *composer[K, V]) Clear() {
	c.l1.Clear()
	_ = c.l2.Clear()
}

func (c *composer[K, V]) ClearExpired() int {
	n1 := c.l1.ClearExpired()
	n2, _ := c.l2.ClearExpired()
	return n1 + n2
}

// Evict reduces L1 to roughly half the shortfall, then reduces L2 to absorb
// the remainder (spec §4.6). The arithmetic is a heuristic pending the
// pluggable sizer revisit noted in spec §9.
func (c *composer[K, V]) Evict(target int64) int {
	if target <= 0 {
		return 0
	}
	l1Target := target / 2
	removed := c.l1.Evict(l1Target)
	remainder := target - l1Target
	n2, _ := c.l2.Evict(remainder)
	return removed + n2
}

// ---- background tasks ----

// promotionLoop periodically scans up to MaxPromotionBatchSize L2 keys,
// promoting each whose recorded access_count meets PromotionAccessThreshold
// (spec §4.6).
func (c *composer[K, V]) promotionLoop() {
	defer close(c.promoteDone)
	ticker := time.NewTicker(c.cfg.PromotionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.runPromotionPass()
		case <-c.promoteStop:
			return
		}
	}
}

func (c *composer[K, V]) runPromotionPass() {
	keys := c.l2.Keys()
	scanned := 0
	for _, k := range keys {
		if scanned >= c.cfg.MaxPromotionBatchSize {
			break
		}
		scanned++
		md, ok := c.l2.GetEntryMetadata(k)
		if !ok || md.AccessCount < c.cfg.PromotionAccessThreshold {
			continue
		}
		if v, ok, err := c.l2.Get(k); err == nil && ok {
			c.l1.PutWithPriority(k, v, entry.High)
		}
	}
}

// demotionLoop periodically evicts aged L1 entries once L1 utilization
// exceeds L1UtilizationThreshold, ensuring each candidate is written to L2
// first (spec §9 open-question decision #2: never silently loses data).
func (c *composer[K, V]) demotionLoop() {
	defer close(c.demoteDone)
	ticker := time.NewTicker(c.cfg.DemotionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.runDemotionPass()
		case <-c.demoteStop:
			return
		}
	}
}

func (c *composer[K, V]) runDemotionPass() {
	util1 := float64(c.l1.SizeBytes()) / float64(c.l1.MaxSizeBytes())
	if util1 <= c.cfg.L1UtilizationThreshold {
		return
	}
	now := nowNanos(c.cfg.Clock)
	demoted := 0
	for _, k := range c.l1.Keys() {
		if demoted >= c.cfg.MaxDemotionBatchSize {
			break
		}
		md, ok := c.l1.GetEntryMetadata(k)
		if !ok {
			continue
		}
		age := time.Duration(now - md.CreatedAt.UnixNano())
		if age < c.cfg.DemotionAgeThreshold {
			continue
		}
		v, ok := c.l1.Get(k)
		if !ok {
			continue
		}
		if err := c.l2.PutWithOptions(k, v, md.TTL, md.Priority); err != nil {
			// Never drop data: leave the entry in L1 if L2 couldn't absorb it.
			continue
		}
		c.l1.Remove(k)
		demoted++
	}
}

func nowNanos(clock entry.Clock) int64 {
	if clock == nil {
		return time.Now().UnixNano()
	}
	return clock.NowUnixNano()
}

// ---- lifecycle ----

func (c *composer[K, V]) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	if c.cfg.EnableAutoPromotion {
		close(c.promoteStop)
		<-c.promoteDone
	}
	if c.cfg.EnableAutoDemotion {
		close(c.demoteStop)
		<-c.demoteDone
	}
	_ = c.l1.Dispose()
	_ = c.l2.Dispose()
	return nil
}
