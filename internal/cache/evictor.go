// evictor.go houses the eviction loop for Cache.  Every EvictInterval it
// scans the map and removes:
//
//   - entries idle longer than idleTTL
//   - least-recently-used entries when map size exceeds maxEntries
//
// Each eviction is logged at debug level and counted in Prometheus.
package cache

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/paycore/internal/metrics"
)

func (c *Cache[V]) evictLoop() {
	for {
		select {
		case <-c.done:
			return
		case now := <-c.evictTicker.C:
			c.evictOnce(now)
		}
	}
}

// evictOnce runs one idle pass and one LRU pass.  CompareAndDelete keeps a
// concurrent Set from being thrown away with the entry it replaced.
func (c *Cache[V]) evictOnce(now time.Time) {
	type kv struct {
		key string
		ent *entry[V]
		at  int64
	}
	var live []kv

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	c.m.Range(func(key, value any) bool {
		ent := value.(*entry[V])
		at := ent.lastSeen.Load()
		idle := time.Duration(now.UnixNano() - at)
		if idle > c.idleTTL {
			if c.m.CompareAndDelete(key, ent) {
				c.log.Debug("entry evicted after idle",
					zap.String("key", key.(string)),
					zap.Duration("idle", idle.Truncate(time.Second)))
				metrics.LocalCacheEvictTotal.Inc()
				metrics.LocalCacheEntries.Dec()
			}
			return true
		}
		live = append(live, kv{key: key.(string), ent: ent, at: at})
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	if c.maxEntries <= 0 || len(live) <= c.maxEntries {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].at < live[j].at })
	for i := 0; i < len(live)-c.maxEntries; i++ {
		if c.m.CompareAndDelete(live[i].key, live[i].ent) {
			c.log.Debug("entry evicted (LRU pressure)", zap.String("key", live[i].key))
			metrics.LocalCacheEvictTotal.Inc()
			metrics.LocalCacheEntries.Dec()
		}
	}
}
