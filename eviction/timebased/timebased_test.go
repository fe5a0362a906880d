package timebased_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
	"github.com/voltcache/corecache/eviction/timebased"
)

type fakeCandidate struct {
	key       string
	priority  entry.Priority
	createdAt time.Time
	expired   bool
}

func (c fakeCandidate) Key() string               { return c.key }
func (c fakeCandidate) Priority() entry.Priority  { return c.priority }
func (c fakeCandidate) LastAccessedAt() time.Time { return time.Time{} }
func (c fakeCandidate) CreatedAt() time.Time      { return c.createdAt }
func (c fakeCandidate) AccessCount() int64        { return 0 }
func (c fakeCandidate) SizeBytes() int64          { return 1 }
func (c fakeCandidate) IsExpired() bool           { return c.expired }

func TestTimeBasedOrdersExpiredFirst(t *testing.T) {
	p := timebased.New[string]()
	now := time.Now()
	entries := []eviction.Candidate[string]{
		fakeCandidate{key: "fresh", createdAt: now, expired: false},
		fakeCandidate{key: "stale", createdAt: now.Add(-time.Hour), expired: true},
	}
	out := p.SelectForEviction(entries, 0, 0)
	require.Len(t, out, 2)
	require.Equal(t, "stale", out[0].Key())
	require.Equal(t, "fresh", out[1].Key())
}

func TestTimeBasedExpiredNeverEvictIsEligible(t *testing.T) {
	p := timebased.New[string]()
	entries := []eviction.Candidate[string]{
		fakeCandidate{key: "pinned-expired", priority: entry.NeverEvict, expired: true},
		fakeCandidate{key: "pinned-fresh", priority: entry.NeverEvict, expired: false},
	}
	out := p.SelectForEviction(entries, 0, 0)
	require.Len(t, out, 1)
	require.Equal(t, "pinned-expired", out[0].Key())
}

func TestTimeBasedOrdersByPriorityThenCreatedAtWithinSameExpiry(t *testing.T) {
	p := timebased.New[string]()
	now := time.Now()
	entries := []eviction.Candidate[string]{
		fakeCandidate{key: "newer", priority: entry.Normal, createdAt: now},
		fakeCandidate{key: "older", priority: entry.Normal, createdAt: now.Add(-time.Hour)},
		fakeCandidate{key: "high", priority: entry.High, createdAt: now.Add(-2 * time.Hour)},
	}
	out := p.SelectForEviction(entries, 0, 0)
	require.Equal(t, []string{"older", "newer", "high"}, []string{out[0].Key(), out[1].Key(), out[2].Key()})
}
