package memtier

import (
	"sync"

	"github.com/voltcache/corecache/entry"
)

// shard is one partition of the key space, guarded by its own mutex. The
// cache's evictMu coordinates a global read/write section around shards so
// an eviction pass can enumerate every shard's entries consistently (spec
// §4.4: "readers-writer lock ... check path acquires the read side; the
// actual removal acquires the write side").
type shard[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*entry.CacheEntry[K, V]
}

func newShard[K comparable, V any]() *shard[K, V] {
	return &shard[K, V]{m: make(map[K]*entry.CacheEntry[K, V])}
}

func (s *shard[K, V]) get(k K) (*entry.CacheEntry[K, V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	return e, ok
}

func (s *shard[K, V]) delete(k K) (*entry.CacheEntry[K, V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	if ok {
		delete(s.m, k)
	}
	return e, ok
}

func (s *shard[K, V]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// snapshotKeys returns a copy of the shard's keys.
func (s *shard[K, V]) snapshotKeys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]K, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}
