//go:build go1.18

package memtier

import (
	"strings"
	"testing"
)

// Fuzz basic Put/Get/Remove semantics under arbitrary string inputs. Guards
// against panics and checks the round-trip invariants of spec §8.
func FuzzCache_PutGetRemove(f *testing.F) {
	f.Add("", "")
	f.Add("a", "1")
	f.Add("b", "2")
	f.Add("αβγ", "δ")
	f.Add("emoji🙂", "🙂🙂")
	f.Add("long", strings.Repeat("x", 1024))

	f.Fuzz(func(t *testing.T, k, v string) {
		const limit = 1 << 12
		if len(k) > limit {
			k = k[:limit]
		}
		if len(v) > limit {
			v = v[:limit]
		}

		c, err := New[string, string](Options[string, string]{Name: "fuzz", MaxEntryCount: 16})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		t.Cleanup(func() { _ = c.Dispose() })

		c.Put(k, v)
		got, ok := c.Get(k)
		if !ok || got != v {
			t.Fatalf("after Put/Get: want %q, got %q ok=%v", v, got, ok)
		}

		// PutIfAbsent on an existing key must not overwrite.
		if c.PutIfAbsent(k, "other") {
			t.Fatalf("PutIfAbsent on existing key returned true")
		}
		if got2, ok := c.Get(k); !ok || got2 != v {
			t.Fatalf("after duplicate PutIfAbsent: want %q, got %q ok=%v", v, got2, ok)
		}

		if !c.Remove(k) {
			t.Fatalf("Remove must return true")
		}
		if _, ok := c.Get(k); ok {
			t.Fatalf("key must be absent after Remove")
		}

		if !c.PutIfAbsent(k, v) {
			t.Fatalf("PutIfAbsent after Remove must return true")
		}
	})
}
