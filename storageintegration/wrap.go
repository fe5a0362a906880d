package storageintegration

import (
	"context"
	"time"

	"github.com/voltcache/corecache/coherence"
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/multilevel"
)

// coherentCache wraps a multilevel.Cache so Put, PutWithTTL,
// PutWithPriority, Remove and Clear also dispatch a coherence event. It
// embeds the inner cache, so every other method, including the mutating
// PutMany, RemoveMany, Evict and ClearExpired, is promoted unchanged and
// dispatches no coherence event.
type coherentCache[K comparable, V any] struct {
	multilevel.Cache[K, V]
	mgr *coherence.Manager[K, V]
	id  string
}

func (c *coherentCache[K, V]) Put(key K, value V) {
	c.Cache.Put(key, value)
	c.notify(coherence.Put, key, value, 0, entry.Normal)
}

func (c *coherentCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	c.Cache.PutWithTTL(key, value, ttl)
	c.notify(coherence.Put, key, value, ttl, entry.Normal)
}

func (c *coherentCache[K, V]) PutWithPriority(key K, value V, priority entry.Priority) {
	c.Cache.PutWithPriority(key, value, priority)
	c.notify(coherence.Put, key, value, 0, priority)
}

func (c *coherentCache[K, V]) Remove(key K) bool {
	ok := c.Cache.Remove(key)
	var zero V
	c.notify(coherence.Remove, key, zero, 0, entry.Normal)
	return ok
}

func (c *coherentCache[K, V]) Clear() {
	c.Cache.Clear()
	var zeroK K
	var zeroV V
	c.notify(coherence.Clear, zeroK, zeroV, 0, entry.Normal)
}

func (c *coherentCache[K, V]) notify(opType coherence.OperationType, key K, value V, ttl time.Duration, priority entry.Priority) {
	c.mgr.Notify(context.Background(), coherence.Operation[K, V]{
		Type:      opType,
		Key:       key,
		Value:     value,
		TTL:       ttl,
		Priority:  priority,
		Timestamp: time.Now(),
	}, c.id)
}
