// Package coherence implements the cross-instance coherence manager (spec
// §4.7, component C7): broadcasts Put/Remove/Clear operations to registered
// peer caches under a chosen strategy.
package coherence

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/voltcache/corecache/entry"
)

// Strategy selects how an operation propagates to peers (spec §4.7).
type Strategy int

const (
	// WriteThrough applies the operation to every peer before Notify
	// returns; per-peer failures are isolated.
	WriteThrough Strategy = iota
	// WriteBack applies the same as WriteThrough but asynchronously after
	// a small deferral.
	WriteBack
	// Invalidate causes Put/Remove to remove the key on peers, and Clear
	// to clear them.
	Invalidate
	// None performs no propagation.
	None
)

// WriteBackDelay is the small deferral WriteBack applies before dispatch.
const WriteBackDelay = 20 * time.Millisecond

// OperationType identifies the kind of mutation being propagated.
type OperationType int

const (
	Put OperationType = iota
	Remove
	Clear
)

// Operation is the dispatch payload (spec §3, CoherenceOperation).
type Operation[K comparable, V any] struct {
	Type      OperationType
	Key       K
	Value     V
	TTL       time.Duration
	Priority  entry.Priority
	Timestamp time.Time
}

// CacheAdapter is the capability set a peer must expose to receive coherence
// operations. memtier.Cache[K,V] and multilevel.Cache[K,V] both satisfy it
// structurally (spec §3: "the coherence manager holds weak/back references
// to caches it notifies").
type CacheAdapter[K comparable, V any] interface {
	PutWithTTL(key K, value V, ttl time.Duration)
	Remove(key K) bool
	Clear()
}

// Stats holds coherence dispatch counters (spec §4.7).
type Stats struct {
	RegisteredCount  int
	PutOperations    int64
	RemoveOperations int64
	ClearOperations  int64
	TotalDuration    time.Duration
}

// Manager coordinates one logical namespace of peer caches sharing the same
// (K,V) types. It holds back-references only: it must never be the last
// owner of a registered cache, and Unregister is idempotent (spec §3).
type Manager[K comparable, V any] struct {
	strategy Strategy
	gate     *semaphore.Weighted

	mu    sync.RWMutex
	peers map[string]CacheAdapter[K, V]

	putOps    atomic.Int64
	removeOps atomic.Int64
	clearOps  atomic.Int64
	totalNs   atomic.Int64
}

// New constructs a Manager using the given strategy. The concurrency gate is
// sized to 2x GOMAXPROCS (spec §4.7).
func New[K comparable, V any](strategy Strategy) *Manager[K, V] {
	return &Manager[K, V]{
		strategy: strategy,
		gate:     semaphore.NewWeighted(int64(2 * runtime.GOMAXPROCS(0))),
		peers:    make(map[string]CacheAdapter[K, V]),
	}
}

// Register adds cache under cacheID. Re-registering the same ID replaces
// the previous reference.
func (m *Manager[K, V]) Register(cacheID string, cache CacheAdapter[K, V]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.peers[cacheID] = cache
}

// Unregister removes cacheID. Idempotent: unregistering an absent ID is a
// no-op (spec §3).
func (m *Manager[K, V]) Unregister(cacheID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.peers, cacheID)
}

// Notify dispatches op to every registered peer other than originCacheID,
// per m.strategy. It returns a map of cacheID -> whether that peer's apply
// succeeded; a per-peer failure never prevents other peers from being
// notified (spec §4.7, §7 error taxonomy kind 2).
//
// Ordering: within one origin, operations are dispatched in the order
// Notify is called (spec §4.6 "Ordering"); across origins no ordering is
// guaranteed. For WriteThrough, Notify blocks until every peer's apply has
// completed. For WriteBack, Notify returns immediately and propagation
// happens after WriteBackDelay. Invalidate and None are always synchronous
// since they do no meaningful work to defer.
func (m *Manager[K, V]) Notify(ctx context.Context, op Operation[K, V], originCacheID string) map[string]bool {
	start := time.Now()
	defer func() { m.totalNs.Add(int64(time.Since(start))) }()

	switch op.Type {
	case Put:
		m.putOps.Add(1)
	case Remove:
		m.removeOps.Add(1)
	case Clear:
		m.clearOps.Add(1)
	}

	targets := m.targetsExcept(originCacheID)
	if len(targets) == 0 || m.strategy == None {
		return map[string]bool{}
	}

	if m.strategy == WriteBack {
		go func() {
			time.Sleep(WriteBackDelay)
			m.dispatch(context.Background(), op, targets)
		}()
		return map[string]bool{}
	}

	return m.dispatch(ctx, op, targets)
}

func (m *Manager[K, V]) targetsExcept(originCacheID string) map[string]CacheAdapter[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]CacheAdapter[K, V], len(m.peers))
	for id, c := range m.peers {
		if id == originCacheID {
			continue
		}
		out[id] = c
	}
	return out
}

// dispatch applies op to every target concurrently (bounded by the
// semaphore gate) and waits for all of them, isolating per-peer panics so
// one misbehaving peer never blocks the others (spec §4.7 WriteThrough:
// "one cache's failure MUST NOT block others").
func (m *Manager[K, V]) dispatch(ctx context.Context, op Operation[K, V], targets map[string]CacheAdapter[K, V]) map[string]bool {
	results := make(map[string]bool, len(targets))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for id, peer := range targets {
		id, peer := id, peer
		if err := m.gate.Acquire(ctx, 1); err != nil {
			mu.Lock()
			results[id] = false
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer m.gate.Release(1)
			ok := applyOne(op, peer, m.strategy)
			mu.Lock()
			results[id] = ok
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// applyOne applies op's semantics to a single peer under strategy,
// recovering from a panic in the peer's method so it surfaces as a per-peer
// failure rather than crashing the dispatcher. Under Invalidate, Put and
// Remove both become a Remove on the peer (spec §4.7: "Put and Remove both
// cause target caches to remove the key").
func applyOne[K comparable, V any](op Operation[K, V], peer CacheAdapter[K, V], strategy Strategy) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	if strategy == Invalidate {
		switch op.Type {
		case Put, Remove:
			peer.Remove(op.Key)
		case Clear:
			peer.Clear()
		}
		return true
	}
	switch op.Type {
	case Put:
		peer.PutWithTTL(op.Key, op.Value, op.TTL)
	case Remove:
		peer.Remove(op.Key)
	case Clear:
		peer.Clear()
	}
	return true
}

// Registered reports the number of currently-registered peers.
func (m *Manager[K, V]) Registered() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.peers)
}

// StatsSnapshot returns an immutable view of dispatch counters.
func (m *Manager[K, V]) StatsSnapshot() Stats {
	return Stats{
		RegisteredCount:  m.Registered(),
		PutOperations:    m.putOps.Load(),
		RemoveOperations: m.removeOps.Load(),
		ClearOperations:  m.clearOps.Load(),
		TotalDuration:    time.Duration(m.totalNs.Load()),
	}
}
