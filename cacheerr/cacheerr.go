// Package cacheerr defines the misuse-error sentinels shared across tiers
// (spec §7, error taxonomy kind 1: "Misuse"). Callers use errors.Is against
// these; the concrete error always wraps the operation name and/or cache
// name for diagnostics.
package cacheerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDisposed is returned by the disk tier's Get, Put and Remove (and
	// their async forms) and by storageintegration.GetOrCreateCache once
	// disposed. The in-memory tier and the multi-level composer return no
	// error on a disposed cache: their reads miss and their writes are
	// ignored.
	ErrDisposed = errors.New("cache: disposed")
	// ErrInvalidConfig is returned when a configuration value violates its
	// documented constraint (e.g. non-positive capacity).
	ErrInvalidConfig = errors.New("cache: invalid configuration")
	// ErrDuplicateName is returned when registering a cache under a name
	// that already exists in the registry.
	ErrDuplicateName = errors.New("cache: duplicate name")
)

// Disposed wraps ErrDisposed with the offending cache's name.
func Disposed(cacheName string) error {
	return fmt.Errorf("%w: cache %q", ErrDisposed, cacheName)
}

// InvalidConfig wraps ErrInvalidConfig with the operation and offending
// argument, per spec §7's "a misuse error carries the operation name and the
// offending argument".
func InvalidConfig(op, detail string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, op, detail)
}

// DuplicateName wraps ErrDuplicateName with the offending name.
func DuplicateName(name string) error {
	return fmt.Errorf("%w: %q", ErrDuplicateName, name)
}
