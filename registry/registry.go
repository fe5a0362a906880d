// Package registry implements the factory/registry (spec §4.9, component
// C9): named in-memory-cache creation, lookup, and disposal.
package registry

import (
	"sync"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/eviction/lfu"
	"github.com/voltcache/corecache/eviction/lru"
	"github.com/voltcache/corecache/eviction/timebased"
	"github.com/voltcache/corecache/memtier"
)

// PolicyKind selects a built-in eviction policy by name (spec §6).
type PolicyKind int

const (
	LRU PolicyKind = iota
	LFU
	TimeBased
	CustomPolicy
)

// resolvePolicy maps a PolicyKind to a concrete policy. CustomPolicy without
// an explicit override falls back to LRU in this core (spec §4.9).
func resolvePolicy[K comparable](kind PolicyKind, custom eviction.Policy[K]) eviction.Policy[K] {
	switch kind {
	case LFU:
		return lfu.New[K]()
	case TimeBased:
		return timebased.New[K]()
	case CustomPolicy:
		if custom != nil {
			return custom
		}
		return lru.New[K]()
	default:
		return lru.New[K]()
	}
}

// Registry is a named-cache factory. Registered caches are owned
// exclusively by the Registry until explicitly Removed (spec §3).
//
// Registry is generic over one (K,V) pair; an embedder that needs caches of
// several distinct (K,V) shapes keeps one Registry per shape.
// storageintegration does not use Registry: it keeps its own map of the
// multi-level caches it creates.
type Registry[K comparable, V any] struct {
	mu     sync.Mutex
	caches map[string]memtier.Cache[K, V]
}

// New constructs an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{caches: make(map[string]memtier.Cache[K, V])}
}

// CreateInMemory builds a cache from opt (resolving opt.Policy if unset via
// policyKind/custom) and registers it under opt.Name. Registering a name
// that already exists fails with cacheerr.ErrDuplicateName rather than
// silently replacing the existing cache (spec §3: "unique names; inserts
// fail... depending on caller" — this Registry rejects).
func (r *Registry[K, V]) CreateInMemory(opt memtier.Options[K, V], policyKind PolicyKind) (memtier.Cache[K, V], error) {
	if opt.Name == "" {
		return nil, cacheerr.InvalidConfig("registry.CreateInMemory", "Name must be non-empty")
	}
	if opt.Policy == nil {
		opt.Policy = resolvePolicy[K](policyKind, nil)
	}

	r.mu.Lock()
	if _, exists := r.caches[opt.Name]; exists {
		r.mu.Unlock()
		return nil, cacheerr.DuplicateName(opt.Name)
	}
	r.mu.Unlock()

	c, err := memtier.New[K, V](opt)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// Re-check under lock: a concurrent CreateInMemory for the same name
	// may have won the race between our pre-check and this insert.
	if _, exists := r.caches[opt.Name]; exists {
		r.mu.Unlock()
		_ = c.Dispose()
		return nil, cacheerr.DuplicateName(opt.Name)
	}
	r.caches[opt.Name] = c
	r.mu.Unlock()
	return c, nil
}

// Get returns the cache registered under name, if any.
func (r *Registry[K, V]) Get(name string) (memtier.Cache[K, V], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[name]
	return c, ok
}

// GetOrCreate returns the existing cache for opt.Name, or creates one.
func (r *Registry[K, V]) GetOrCreate(opt memtier.Options[K, V], policyKind PolicyKind) (memtier.Cache[K, V], error) {
	if c, ok := r.Get(opt.Name); ok {
		return c, nil
	}
	c, err := r.CreateInMemory(opt, policyKind)
	if err == nil {
		return c, nil
	}
	if existing, ok := r.Get(opt.Name); ok {
		// Lost a creation race against another goroutine; use the winner.
		return existing, nil
	}
	return nil, err
}

// Remove disposes and unregisters the cache named name, reporting whether
// one was present.
func (r *Registry[K, V]) Remove(name string) bool {
	r.mu.Lock()
	c, ok := r.caches[name]
	if ok {
		delete(r.caches, name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	_ = c.Dispose()
	return true
}

// Names returns every currently-registered cache name.
func (r *Registry[K, V]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.caches))
	for name := range r.caches {
		out = append(out, name)
	}
	return out
}

// Count returns the number of currently-registered caches.
func (r *Registry[K, V]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}
