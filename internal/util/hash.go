// Package util contains shared helpers (hashing, sharding, padding) used by
// the in-memory and disk tiers.
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashKey hashes common key types with xxhash for shard routing.
// Supported: string, []byte, [16|32|64]byte, all int/uint widths, uintptr,
// fmt.Stringer. For other key types, convert the key to string upstream.
// Panicking on unsupported types is deliberate to avoid silently poor hashing.
func HashKey[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case string:
		return xxhash.Sum64String(v)
	case []byte:
		return xxhash.Sum64(v)
	case [16]byte:
		return xxhash.Sum64(v[:])
	case [32]byte:
		return xxhash.Sum64(v[:])
	case [64]byte:
		return xxhash.Sum64(v[:])

	// Integer-like keys: hash the little-endian bytes of the value.
	case uint8:
		return hashUint64(uint64(v))
	case uint16:
		return hashUint64(uint64(v))
	case uint32:
		return hashUint64(uint64(v))
	case uint64:
		return hashUint64(v)
	case uint:
		return hashUint64(uint64(v))
	case uintptr:
		return hashUint64(uint64(v))
	case int8:
		return hashUint64(uint64(uint8(v)))
	case int16:
		return hashUint64(uint64(uint16(v)))
	case int32:
		return hashUint64(uint64(uint32(v)))
	case int64:
		return hashUint64(uint64(v))
	case int:
		return hashUint64(uint64(v))

	// Fallback for pseudo-keys via String() (avoid if you can).
	case fmt.Stringer:
		return xxhash.Sum64String(v.String())
	default:
		panic(fmt.Sprintf("util.HashKey: unsupported key type %T; convert key to string or provide a custom hasher", k))
	}
}

func hashUint64(u uint64) uint64 {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
	return xxhash.Sum64(b[:])
}

// KeyString renders a key in its canonical string form, used by the disk
// tier to derive a content-addressed file name. Strings and []byte are used
// as is and fmt.Stringer keys via String(); every other key is formatted
// with %v, so unlike HashKey it never panics.
func KeyString[K comparable](k K) string {
	switch v := any(k).(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
