// internal/cache/cache.go
//
// Process-local cache.
//
// Context
// -------
// Configuration values are read far more often than they change, so every
// process keeps a copy in memory in front of Redis and the database.  The
// Cache stores entries in a sync.Map, deduplicates concurrent misses with
// singleflight, and evicts entries on idle TTL or LRU pressure from a
// background loop (see evictor.go).
//
// Workflow
// --------
//  1. Get / GetOrLoad on the read path.  A miss inside GetOrLoad runs the
//     loader once per key no matter how many goroutines are waiting.
//  2. Set after a successful write elsewhere.
//  3. Remove on invalidation.  Removing a missing key is a no-op.
//  4. Close at shutdown stops the evictor.
//
// Notes
// -----
//   - A load racing with Remove may store its value right after the
//     removal.  Callers that need a fresh value invalidate again.
//   - Oxford commas, two spaces after periods.
package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/paycore/internal/metrics"
)

// Static defaults.  Override via the `cache` config section.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 10_000
	EvictInterval = 5 * time.Minute
)

// Options tunes a Cache.  Zero fields fall back to the package defaults.
type Options struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
	Logger        *zap.Logger
}

// Loader fetches the value for a key on a cache miss.
type Loader[V any] func(ctx context.Context) (V, error)

// Cache is safe for concurrent use.  Construct with New; the zero value is
// unusable.
type Cache[V any] struct {
	sfg         singleflight.Group
	m           sync.Map // string → *entry[V]
	evictTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
	idleTTL     time.Duration
	maxEntries  int
	log         *zap.Logger
}

// New constructs a Cache and starts the background evictor.
func New[V any](opts Options) *Cache[V] {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = IdleTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = MaxEntries
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = EvictInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}

	c := &Cache[V]{
		idleTTL:    opts.IdleTTL,
		maxEntries: opts.MaxEntries,
		done:       make(chan struct{}),
		log:        opts.Logger.Named("local_cache"),
	}
	c.evictTicker = time.NewTicker(opts.EvictInterval)
	go c.evictLoop()
	return c
}

// Get returns the cached value for key and marks it as recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	if v, ok := c.m.Load(key); ok {
		ent := v.(*entry[V])
		ent.touch(time.Now())
		metrics.LocalCacheHitsTotal.Inc()
		return ent.val, true
	}
	metrics.LocalCacheMissesTotal.Inc()
	var zero V
	return zero, false
}

// Set inserts or replaces the value for key.
func (c *Cache[V]) Set(key string, val V) {
	if _, loaded := c.m.Swap(key, newEntry(val, time.Now())); !loaded {
		metrics.LocalCacheEntries.Inc()
	}
}

// Remove deletes key if present.  It never fails.
func (c *Cache[V]) Remove(key string) {
	if _, loaded := c.m.LoadAndDelete(key); loaded {
		metrics.LocalCacheEntries.Dec()
	}
}

// GetOrLoad returns the cached value for key, calling load on a miss.
// Concurrent misses for the same key share one load.  Errors are not
// cached.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.sfg.Do(key, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(key); ok {
			ent := v.(*entry[V])
			ent.touch(time.Now())
			return ent.val, nil
		}
		metrics.LocalCacheLoadsTotal.Inc()
		val, err := load(ctx)
		if err != nil {
			metrics.LocalCacheLoadErrorsTotal.Inc()
			return nil, err
		}
		c.Set(key, val)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	val, _ := v.(V)
	return val, nil
}

// Len reports the current number of entries.
func (c *Cache[V]) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the evictor.  Entries stay readable; Close is idempotent.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() {
		c.evictTicker.Stop()
		close(c.done)
	})
}
