package storageintegration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/coherence"
	"github.com/voltcache/corecache/storageintegration"
)

// jsonCodec is a minimal disktier.Codec[V] used by tests.
type jsonCodec[V any] struct{}

func (jsonCodec[V]) Serialize(v V) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec[V]) Deserialize(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}

func newSI(t *testing.T) *storageintegration.StorageIntegration {
	t.Helper()
	si, err := storageintegration.New(storageintegration.Config{
		BaseDirectory:       t.TempDir(),
		MaintenanceInterval: time.Hour, // test drives maintenance manually where needed
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Dispose() })
	return si
}

func TestGetOrCreateCacheReturnsSameInstanceForSameType(t *testing.T) {
	si := newSI(t)

	c1, err := storageintegration.GetOrCreateCache[string, int](si, "chan-1", "widgets", jsonCodec[int]{})
	require.NoError(t, err)
	c2, err := storageintegration.GetOrCreateCache[string, int](si, "chan-1", "widgets", jsonCodec[int]{})
	require.NoError(t, err)

	c1.Put("a", 1)
	v, ok := c2.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestGetOrCreateCacheDistinguishesByChannelAndType(t *testing.T) {
	si := newSI(t)

	a, err := storageintegration.GetOrCreateCache[string, int](si, "chan-a", "widgets", jsonCodec[int]{})
	require.NoError(t, err)
	b, err := storageintegration.GetOrCreateCache[string, int](si, "chan-b", "widgets", jsonCodec[int]{})
	require.NoError(t, err)

	a.Put("k", 1)
	_, ok := b.Get("k")
	require.False(t, ok)
}

func TestGetOrCreateCacheDistinguishesByValueType(t *testing.T) {
	si := newSI(t)

	ints, err := storageintegration.GetOrCreateCache[string, int](si, "chan-1", "shared", jsonCodec[int]{})
	require.NoError(t, err)
	strs, err := storageintegration.GetOrCreateCache[string, string](si, "chan-1", "shared", jsonCodec[string]{})
	require.NoError(t, err)

	ints.Put("k", 42)
	_, ok := strs.Get("k")
	require.False(t, ok)
	require.Equal(t, 2, len(si.Names()))
}

func TestEntityTypeMetadataAndFileDataSpecializations(t *testing.T) {
	si := newSI(t)

	entities, err := storageintegration.EntityCache(si, "chan-1", jsonAnyCodec{})
	require.NoError(t, err)
	entities.Put(int64(7), map[string]any{"name": "widget"})
	v, ok := entities.Get(int64(7))
	require.True(t, ok)
	require.Equal(t, "widget", v.(map[string]any)["name"])

	typeMeta, err := storageintegration.TypeMetadataCache(si, "chan-1", jsonAnyCodec{})
	require.NoError(t, err)
	typeMeta.Put("Widget", map[string]any{"version": 3})
	v, ok = typeMeta.Get("Widget")
	require.True(t, ok)
	require.Equal(t, float64(3), v.(map[string]any)["version"])

	files, err := storageintegration.FileDataCache(si, "chan-1")
	require.NoError(t, err)
	files.Put("blob-1", []byte("hello world"))
	data, ok := files.Get("blob-1")
	require.True(t, ok)
	require.Equal(t, []byte("hello world"), data)
}

type jsonAnyCodec struct{}

func (jsonAnyCodec) Serialize(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonAnyCodec) Deserialize(b []byte) (any, error) {
	var v any
	err := json.Unmarshal(b, &v)
	return v, err
}

func TestCoherenceStrategyPropagatesAcrossCachesOfSameType(t *testing.T) {
	si1, err := storageintegration.New(storageintegration.Config{
		BaseDirectory:       t.TempDir(),
		MaintenanceInterval: time.Hour,
		CoherenceStrategy:   coherence.WriteThrough,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = si1.Dispose() })

	// Each StorageIntegration owns its own coherence manager per cache
	// instance (spec §2); within one instance a single cache is its own
	// sole peer, so there is nothing to propagate to. This test instead
	// verifies the built cache is itself a valid coherence.CacheAdapter by
	// constructing a manager and registering it as an external peer.
	c, err := storageintegration.GetOrCreateCache[string, int](si1, "chan-1", "widgets", jsonCodec[int]{})
	require.NoError(t, err)

	mgr := coherence.New[string, int](coherence.WriteThrough)
	mgr.Register("peer", c)
	results := mgr.Notify(context.Background(), coherence.Operation[string, int]{
		Type:  coherence.Put,
		Key:   "k",
		Value: 99,
	}, "origin")
	require.True(t, results["peer"])

	v, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, 99, v)
}

func TestMaintenanceClearsExpiredEntries(t *testing.T) {
	si, err := storageintegration.New(storageintegration.Config{
		BaseDirectory:       t.TempDir(),
		MaintenanceInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = si.Dispose() })

	c, err := storageintegration.GetOrCreateCache[string, int](si, "chan-1", "widgets", jsonCodec[int]{})
	require.NoError(t, err)
	c.PutWithTTL("k", 1, 5*time.Millisecond)

	// Count does not expire entries lazily, so reaching 0 shows the
	// maintenance pass removed the expired entry.
	require.Eventually(t, func() bool {
		return c.Count() == 0
	}, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestDisposeIsIdempotentAndDisposesOwnedCaches(t *testing.T) {
	si, err := storageintegration.New(storageintegration.Config{BaseDirectory: t.TempDir()})
	require.NoError(t, err)

	c, err := storageintegration.GetOrCreateCache[string, int](si, "chan-1", "widgets", jsonCodec[int]{})
	require.NoError(t, err)
	c.Put("a", 1)

	require.NoError(t, si.Dispose())
	require.NoError(t, si.Dispose())

	// The owned cache was disposed along with the integration.
	_, ok := c.Get("a")
	require.False(t, ok)

	_, err = storageintegration.GetOrCreateCache[string, int](si, "chan-1", "widgets", jsonCodec[int]{})
	require.Error(t, err)
}
