package cache

import "sync"

var (
	configMu    sync.Mutex
	configCache *Cache[string]
)

// InitConfigCache creates the process-wide configuration cache.  Only the
// first call builds it; later calls return the existing instance.
func InitConfigCache(opts Options) *Cache[string] {
	configMu.Lock()
	defer configMu.Unlock()
	if configCache == nil {
		configCache = New[string](opts)
	}
	return configCache
}

// ConfigCache returns the process-wide configuration cache.  Panics if
// InitConfigCache has not been called.
func ConfigCache() *Cache[string] {
	configMu.Lock()
	defer configMu.Unlock()
	if configCache == nil {
		panic("cache: InitConfigCache must be called before ConfigCache")
	}
	return configCache
}

// ShutdownConfigCache stops the evictor and forgets the instance so a
// later InitConfigCache starts fresh.
func ShutdownConfigCache() {
	configMu.Lock()
	defer configMu.Unlock()
	if configCache != nil {
		configCache.Close()
		configCache = nil
	}
}
