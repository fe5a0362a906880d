package registry_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/cacheerr"
	"github.com/voltcache/corecache/memtier"
	"github.com/voltcache/corecache/registry"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := registry.New[string, int]()
	c, err := r.CreateInMemory(memtier.Options[string, int]{Name: "a"}, registry.LRU)
	require.NoError(t, err)
	defer c.Dispose()

	got, ok := r.Get("a")
	require.True(t, ok)
	require.Same(t, interfaceOf(c), interfaceOf(got))
	require.Equal(t, 1, r.Count())
}

func interfaceOf(c memtier.Cache[string, int]) any { return c }

func TestRegistryDuplicateNameRejected(t *testing.T) {
	r := registry.New[string, int]()
	c1, err := r.CreateInMemory(memtier.Options[string, int]{Name: "dup"}, registry.LRU)
	require.NoError(t, err)
	defer c1.Dispose()

	_, err = r.CreateInMemory(memtier.Options[string, int]{Name: "dup"}, registry.LRU)
	require.Error(t, err)
	require.True(t, errors.Is(err, cacheerr.ErrDuplicateName))
}

func TestRegistryRemoveDisposesAndUnregisters(t *testing.T) {
	r := registry.New[string, int]()
	c, err := r.CreateInMemory(memtier.Options[string, int]{Name: "a"}, registry.LRU)
	require.NoError(t, err)
	c.Put("k", 1)

	require.True(t, r.Remove("a"))
	_, ok := r.Get("a")
	require.False(t, ok)
	require.False(t, r.Remove("a"))
}

func TestRegistryGetOrCreateReusesExisting(t *testing.T) {
	r := registry.New[string, int]()
	c1, err := r.GetOrCreate(memtier.Options[string, int]{Name: "a"}, registry.LRU)
	require.NoError(t, err)
	c2, err := r.GetOrCreate(memtier.Options[string, int]{Name: "a"}, registry.LRU)
	require.NoError(t, err)
	require.Same(t, interfaceOf(c1), interfaceOf(c2))
}

func TestRegistryNamesAndCustomPolicyFallsBackToLRU(t *testing.T) {
	r := registry.New[string, int]()
	c, err := r.CreateInMemory(memtier.Options[string, int]{Name: "custom"}, registry.CustomPolicy)
	require.NoError(t, err)
	defer c.Dispose()

	require.Equal(t, []string{"custom"}, r.Names())
}

func TestDefaultRegistrySingletonIsSharedAcrossCalls(t *testing.T) {
	require.Same(t, interfaceOf2(registry.DefaultRegistry()), interfaceOf2(registry.DefaultRegistry()))
}

func interfaceOf2(r *registry.Registry[string, any]) any { return r }
