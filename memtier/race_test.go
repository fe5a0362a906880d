package memtier_test

import (
	"context"
	"math/rand"
	"runtime"
	"strconv"
	"testing"
	"time"

	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"github.com/voltcache/corecache/memtier"
)

// A mixed workload of concurrent Put/Get/PutWithTTL/Remove on random keys.
// Should pass under -race without detector reports.
func TestRace_Basic(t *testing.T) {
	c := newCache(t, memtier.Options[string, []byte]{
		Name:          "race",
		MaxEntryCount: 8_192,
		Shards:        32,
	})

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 50_000
	deadline := time.Now().Add(200 * time.Millisecond)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(w)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0, 1, 2, 3, 4:
					c.Remove(k)
				case 5, 6, 7, 8, 9:
					c.PutWithTTL(k, []byte("x"), time.Duration(10+r.Intn(20))*time.Millisecond)
				case 10, 11, 12, 13, 14, 15, 16, 17, 18, 19:
					c.Put(k, []byte("x"))
				default:
					c.Get(k)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// Concurrent GetAsync calls against a cancelled context must all report the
// cancellation rather than racing on the cache's internal state.
func TestRace_GetAsyncCancellation(t *testing.T) {
	c := newCache(t, memtier.Options[string, int]{Name: "race-async"})
	c.Put("a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, _, err := c.GetAsync(ctx, "a")
			if err == nil {
				t.Error("expected cancellation error")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Dispose must stop the background cleanup goroutine; no leak should remain
// once the cache is torn down (spec §5 "Disposal").
func TestDisposeLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t)

	c, err := memtier.New[string, int](memtier.Options[string, int]{
		Name:            "leak-check",
		CleanupInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Put("a", 1)
	time.Sleep(10 * time.Millisecond) // let the cleanup loop tick at least once
	if err := c.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
}
