// Package lfu implements the LFU eviction policy: order by (priority
// ascending, access_count ascending), filtering NeverEvict entries out
// entirely (spec §4.2).
package lfu

import (
	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
)

type policy[K comparable] struct{}

// New returns a stateless LFU policy factory.
func New[K comparable]() eviction.Policy[K] { return policy[K]{} }

// SelectForEviction implements eviction.Policy.
func (policy[K]) SelectForEviction(entries []eviction.Candidate[K], targetCount int, targetBytes int64) []eviction.Candidate[K] {
	eligible := make([]eviction.Candidate[K], 0, len(entries))
	for _, c := range entries {
		if c.Priority() == entry.NeverEvict {
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
	if a.Priority() != b.Priority() {
		return a.Priority() < b.Priority()
	}
	return a.AccessCount() < b.AccessCount()
}
