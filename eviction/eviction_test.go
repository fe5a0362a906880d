package eviction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/entry"
	"github.com/voltcache/corecache/eviction"
)

type fakeCandidate struct {
	key            string
	priority       entry.Priority
	lastAccessedAt time.Time
	createdAt      time.Time
	accessCount    int64
	sizeBytes      int64
	expired        bool
}

func (c fakeCandidate) Key() string                  { return c.key }
func (c fakeCandidate) Priority() entry.Priority     { return c.priority }
func (c fakeCandidate) LastAccessedAt() time.Time    { return c.lastAccessedAt }
func (c fakeCandidate) CreatedAt() time.Time         { return c.createdAt }
func (c fakeCandidate) AccessCount() int64           { return c.accessCount }
func (c fakeCandidate) SizeBytes() int64             { return c.sizeBytes }
func (c fakeCandidate) IsExpired() bool              { return c.expired }

func candidates(cs ...fakeCandidate) []eviction.Candidate[string] {
	out := make([]eviction.Candidate[string], len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

func TestSelectStopsAtTargetCount(t *testing.T) {
	in := candidates(
		fakeCandidate{key: "a", sizeBytes: 10},
		fakeCandidate{key: "b", sizeBytes: 10},
		fakeCandidate{key: "c", sizeBytes: 10},
	)
	out := eviction.Select(in, func(a, b eviction.Candidate[string]) bool { return false }, 2, 0)
	require.Len(t, out, 2)
}

func TestSelectStopsAtTargetBytes(t *testing.T) {
	in := candidates(
		fakeCandidate{key: "a", sizeBytes: 10},
		fakeCandidate{key: "b", sizeBytes: 10},
		fakeCandidate{key: "c", sizeBytes: 10},
	)
	out := eviction.Select(in, func(a, b eviction.Candidate[string]) bool { return false }, 0, 15)
	require.Len(t, out, 2)
}

func TestSelectReturnsEverythingWithNoTargets(t *testing.T) {
	in := candidates(fakeCandidate{key: "a"}, fakeCandidate{key: "b"})
	out := eviction.Select(in, func(a, b eviction.Candidate[string]) bool { return false }, 0, 0)
	require.Len(t, out, 2)
}

func TestSelectIsStableOnTies(t *testing.T) {
	in := candidates(
		fakeCandidate{key: "a"},
		fakeCandidate{key: "b"},
		fakeCandidate{key: "c"},
	)
	out := eviction.Select(in, func(a, b eviction.Candidate[string]) bool { return false }, 0, 0)
	require.Equal(t, "a", out[0].Key())
	require.Equal(t, "b", out[1].Key())
	require.Equal(t, "c", out[2].Key())
}
