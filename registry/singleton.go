package registry

import "sync"

// Default is the process-wide convenience registry for the common
// string-keyed, any-valued case. Per the design-notes translation guidance
// (spec §9: "Global singletons... prefer a constructor-injected registry and
// relegate the singleton to a convenience entry point"), nothing in this
// module requires using it — storageintegration does not use this package
// and keeps its own map of the caches it creates.
var (
	defaultOnce sync.Once
	defaultReg  *Registry[string, any]
)

// DefaultRegistry returns the lazily-initialized process-wide registry.
func DefaultRegistry() *Registry[string, any] {
	defaultOnce.Do(func() {
		defaultReg = New[string, any]()
	})
	return defaultReg
}
