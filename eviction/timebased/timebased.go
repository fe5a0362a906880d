// Package timebased implements the time-based eviction policy: expired
// entries first (is_expired true before false), then priority ascending,
// then created_at ascending. NeverEvict entries that are expired ARE
// eligible; NeverEvict entries that are not expired are filtered out
// (spec §4.2).
package timebased

import (
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
)

type policy[K comparable] struct{}

// New returns a stateless time-based policy factory.
func New[K comparable]() eviction.Policy[K] { return policy[K]{} }

// SelectForEviction implements eviction.Policy.
func (policy[K]) SelectForEviction(entries []eviction.Candidate[K], targetCount int, targetBytes int64) []eviction.Candidate[K] {
	eligible := make([]eviction.Candidate[K], 0, len(entries))
	for _, c := range entries {
		if c.Priority() == entry.NeverEvict && !c.IsExpired() {
			continue
		}
		eligible = append(eligible, c)
	}
	return eviction.Select(eligible, less, targetCount, targetBytes)
}

func (policy[K]) OnAccess(eviction.Candidate[K]) {}
func (policy[K]) OnAdd(eviction.Candidate[K])    {}
func (policy[K]) OnRemove(eviction.Candidate[K]) {}

func less[K comparable](a, b eviction.Candidate[K]) bool {
	if a.IsExpired() != b.IsExpired() {
		return a.IsExpired() // expired (true) sorts before non-expired
	}
	if a.Priority() != b.Priority() {
		return a.Priority() < b.Priority()
	}
	return a.CreatedAt().Before(b.CreatedAt())
}
