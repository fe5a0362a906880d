// Package eviction defines the pluggable eviction-policy contract shared by
// every tier (spec §4.2, component C2): select victims given a target count
// and/or target byte reduction, plus advisory access/add/remove observers.
package eviction

import (
	"sort"
	"time"

	"github.com/voltcache/corecache/entry"
)

// Candidate is the read-only metadata view a policy orders over. Any
// *entry.CacheEntry[K,V] satisfies this interface structurally.
type Candidate[K comparable] interface {
	Key() K
	Priority() entry.Priority
	LastAccessedAt() time.Time
	CreatedAt() time.Time
	AccessCount() int64
	SizeBytes() int64
	IsExpired() bool
}

// Policy selects eviction victims and observes entry lifecycle events. The
// built-in policies (LRU, LFU, TimeBased) are stateless snapshot-sorters and
// implement on_access/on_add/on_remove as no-ops; a stateful policy (e.g. one
// tracking a ghost queue) may override them, synchronized by the owning
// tier's eviction critical section.
type Policy[K comparable] interface {
	// SelectForEviction returns victims ordered from least to most
	// valuable, stopping once either targetCount or targetBytes is
	// satisfied (whichever comes first scanning the returned order). The
	// caller, not the policy, performs the actual removal.
	SelectForEviction(entries []Candidate[K], targetCount int, targetBytes int64) []Candidate[K]

	// OnAccess, OnAdd, OnRemove are advisory lifecycle notifications.
	OnAccess(Candidate[K])
	OnAdd(Candidate[K])
	OnRemove(Candidate[K])
}

// Select runs a comparator-sorted scan and trims the result once either
// target is met, honoring the "stop once either target is met" rule shared
// by every built-in policy. eligible must already exclude ineligible
// candidates (e.g. NeverEvict where filtered).
func Select[K comparable](eligible []Candidate[K], less func(a, b Candidate[K]) bool, targetCount int, targetBytes int64) []Candidate[K] {
	ordered := make([]Candidate[K], len(eligible))
	copy(ordered, eligible)
	stableSort(ordered, less)

	if targetCount <= 0 && targetBytes <= 0 {
		return ordered
	}

	var bytes int64
	out := make([]Candidate[K], 0, len(ordered))
	for _, c := range ordered {
		if targetCount > 0 && len(out) >= targetCount {
			break
		}
		if targetBytes > 0 && bytes >= targetBytes {
			break
		}
		out = append(out, c)
		bytes += c.SizeBytes()
	}
	return out
}

// stableSort is a thin wrapper kept separate so every policy shares one
// sorting entry point; ties keep their relative input order, making a
// selection deterministic for a fixed input slice (spec §4.2 tie-break).
func stableSort[K comparable](s []Candidate[K], less func(a, b Candidate[K]) bool) {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
}
