package multilevel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/disktier"
	"github.com/voltcache/corecache/memtier"
	"github.com/voltcache/corecache/multilevel"
)

type jsonCodec[V any] struct{}

func (jsonCodec[V]) Serialize(v V) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec[V]) Deserialize(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

func newComposer(t *testing.T, cfg multilevel.Config, l1Max int) multilevel.Cache[string, string] {
	t.Helper()
	l1, err := memtier.New[string, string](memtier.Options[string, string]{
		Name:          "l1",
		MaxEntryCount: l1Max,
	})
	require.NoError(t, err)

	l2, err := disktier.Open[string, string](disktier.Options[string, string]{
		Name:      "l2",
		Directory: t.TempDir(),
		Codec:     jsonCodec[string]{},
	})
	require.NoError(t, err)

	cfg.Name = "composed"
	c, err := multilevel.New[string, string](cfg, l1, l2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Dispose() })
	return c
}

func TestComposerPutGetHitsL1First(t *testing.T) {
	c := newComposer(t, multilevel.Config{WriteThrough: true}, 10)
	c.Put("k", "v")

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "v", v)
	require.True(t, c.ContainsKey("k"))
}

func TestComposerPromotesOnL2Hit(t *testing.T) {
	// S3: L1 max_entries=1, L2 capacity, write_through=true.
	c := newComposer(t, multilevel.Config{WriteThrough: true}, 1)
	c.Put("k", "V")
	// Evict "k" from L1 by inserting two other keys.
	c.Put("a", "A")
	c.Put("b", "B")

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, "V", v)

	// Promotion runs on a goroutine coalesced via singleflight; give it a
	// moment to land, then confirm "k" is present again (composer-visible,
	// regardless of which tier currently holds it).
	require.Eventually(t, func() bool {
		_, ok := c.GetEntryMetadata("k")
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestComposerRemoveBothTiers(t *testing.T) {
	c := newComposer(t, multilevel.Config{WriteThrough: true}, 10)
	c.Put("k", "v")
	require.True(t, c.Remove("k"))
	_, ok := c.Get("k")
	require.False(t, ok)
	require.False(t, c.Remove("k"))
}

func TestComposerGetManyPreservesMissSemantics(t *testing.T) {
	c := newComposer(t, multilevel.Config{WriteThrough: true}, 10)
	c.Put("a", "A")
	c.Put("b", "B")

	hits, misses := c.GetMany([]string{"a", "x", "b", "y"})
	require.Equal(t, map[string]string{"a": "A", "b": "B"}, hits)
	require.ElementsMatch(t, []string{"x", "y"}, misses)
}

func TestComposerWriteThroughThresholdWithoutGlobalFlag(t *testing.T) {
	cfg := multilevel.DefaultConfig()
	cfg.WriteThrough = false
	c := newComposer(t, cfg, 10)

	c.Put("low", "v") // Normal priority meets the default L2WriteThreshold (Normal)

	// Count sums both tiers, so 2 means the write reached L2 as well as L1
	// even though WriteThrough is off.
	require.Equal(t, 2, c.Count())
	v, ok := c.Get("low")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestComposerClearClearsBothTiers(t *testing.T) {
	c := newComposer(t, multilevel.Config{WriteThrough: true}, 10)
	c.Put("a", "A")
	c.Clear()
	require.Equal(t, 0, c.Count())
	_, ok := c.Get("a")
	require.False(t, ok)
}
