package lru_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/eviction/lru"
)

type fakeCandidate struct {
	key            string
	priority       entry.Priority
	lastAccessedAt time.Time
}

func (c fakeCandidate) Key() string               { return c.key }
func (c fakeCandidate) Priority() entry.Priority  { return c.priority }
func (c fakeCandidate) LastAccessedAt() time.Time { return c.lastAccessedAt }
func (c fakeCandidate) CreatedAt() time.Time      { return time.Time{} }
func (c fakeCandidate) AccessCount() int64        { return 0 }
func (c fakeCandidate) SizeBytes() int64          { return 1 }
func (c fakeCandidate) IsExpired() bool           { return false }

func TestLRUOrdersByPriorityThenLastAccessed(t *testing.T) {
	p := lru.New[string]()
	now := time.Now()
	entries := []eviction.Candidate[string]{
		fakeCandidate{key: "new", priority: entry.Normal, lastAccessedAt: now},
		fakeCandidate{key: "old", priority: entry.Normal, lastAccessedAt: now.Add(-time.Hour)},
		fakeCandidate{key: "high", priority: entry.High, lastAccessedAt: now.Add(-2 * time.Hour)},
	}
	out := p.SelectForEviction(entries, 0, 0)
	require.Len(t, out, 3)
	require.Equal(t, "old", out[0].Key())
	require.Equal(t, "new", out[1].Key())
	require.Equal(t, "high", out[2].Key())
}

func TestLRUFiltersNeverEvict(t *testing.T) {
	p := lru.New[string]()
	entries := []eviction.Candidate[string]{
		fakeCandidate{key: "pinned", priority: entry.NeverEvict},
		fakeCandidate{key: "normal", priority: entry.Normal},
	}
	out := p.SelectForEviction(entries, 0, 0)
	require.Len(t, out, 1)
	require.Equal(t, "normal", out[0].Key())
}

func TestLRULifecycleHooksAreNoOps(t *testing.T) {
	p := lru.New[string]()
	require.NotPanics(t, func() {
		p.OnAccess(fakeCandidate{key: "a"})
		p.OnAdd(fakeCandidate{key: "a"})
		p.OnRemove(fakeCandidate{key: "a"})
	})
}
