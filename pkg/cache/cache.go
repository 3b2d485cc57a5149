// Package cache is a durable get-or-compute cache for remote artifacts.
// Successful fetches are persisted to SQLite and replayed across sessions;
// any storage failure degrades transparently to a process-lifetime memory
// map so callers never see storage errors.
package cache

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/huetone-ai/huetone/pkg/models"
)

// Fetcher performs the remote, cost-incurring computation on a cache miss.
// It is invoked at most once per GetOrSet call.
type Fetcher func(ctx context.Context) (models.Artifact, error)

// Option configures a Cache.
type Option func(*Cache)

// WithSingleflight de-duplicates concurrent misses on the same key so the
// fetcher runs once per key at a time. Off by default: the coordinator
// already de-duplicates per request identity, and callers relying on
// fetch-invocation counts may want the unguarded behavior.
func WithSingleflight() Option {
	return func(c *Cache) {
		c.sf = &singleflight.Group{}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is the durable artifact store. The zero value is not usable; use New.
type Cache struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	mu sync.Mutex
	db *sqliteStore // nil while degraded; lazily reopened

	mem *memoryStore
	sf  *singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache backed by a SQLite database at path. Opening is lazy
// and failures are absorbed: a cache whose database never opens still works
// in memory for the life of the process.
func New(path string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		path: path,
		ttl:  ttl,
		now:  time.Now,
		mem:  newMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrSet returns the cached artifact for key if present and fresh,
// otherwise invokes fetch exactly once, persists its result and returns it.
// Fetch errors propagate unchanged and nothing is cached for them.
func (c *Cache) GetOrSet(ctx context.Context, key string, fetch Fetcher) (models.Artifact, error) {
	if c.sf != nil {
		v, err, _ := c.sf.Do(key, func() (any, error) {
			return c.getOrSet(ctx, key, fetch)
		})
		if err != nil {
			return nil, err
		}
		return v.(models.Artifact), nil
	}
	return c.getOrSet(ctx, key, fetch)
}

func (c *Cache) getOrSet(ctx context.Context, key string, fetch Fetcher) (models.Artifact, error) {
	if art, ok := c.lookup(ctx, key); ok {
		c.hits.Add(1)
		return art, nil
	}
	c.misses.Add(1)

	art, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.put(ctx, models.CacheEntry{Key: key, Value: art, Timestamp: c.now().UTC()})
	return art, nil
}

// lookup checks the durable store, then the memory fallback. Expired
// entries are purged and reported as absent.
func (c *Cache) lookup(ctx context.Context, key string) (models.Artifact, bool) {
	now := c.now().UTC()

	if db := c.durable(); db != nil {
		entry, err := db.get(ctx, key)
		switch {
		case err != nil:
			log.Printf("cache: durable read failed, degrading to memory: %v", err)
			c.discard()
		case entry != nil && !entry.Expired(now, c.ttl):
			return entry.Value, true
		case entry != nil:
			if err := db.delete(ctx, key); err != nil {
				log.Printf("cache: purge of expired entry failed: %v", err)
				c.discard()
			}
		}
	}

	// The memory map holds entries written while the durable store was down.
	if entry, ok := c.mem.get(key); ok {
		if entry.Expired(now, c.ttl) {
			c.mem.delete(key)
			return nil, false
		}
		return entry.Value, true
	}
	return nil, false
}

func (c *Cache) put(ctx context.Context, entry models.CacheEntry) {
	if db := c.durable(); db != nil {
		err := db.put(ctx, entry)
		if err == nil {
			return
		}
		log.Printf("cache: durable write failed, degrading to memory: %v", err)
		c.discard()
	}
	c.mem.put(entry)
}

// durable returns the open store, reopening it after a prior failure.
// Returns nil when the store cannot be opened; callers fall back to memory.
func (c *Cache) durable() *sqliteStore {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return c.db
	}
	db, err := openSQLite(c.path)
	if err != nil {
		log.Printf("cache: open durable store: %v", err)
		return nil
	}
	c.db = db
	return db
}

// discard drops the store connection so the next call reopens it.
func (c *Cache) discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		_ = c.db.close()
		c.db = nil
	}
}

// Clear empties both the durable store and the memory fallback.
func (c *Cache) Clear(ctx context.Context) error {
	c.mem.clear()
	if db := c.durable(); db != nil {
		if err := db.clear(ctx); err != nil {
			c.discard()
			return err
		}
	}
	return nil
}

// Stats reports cache performance metrics.
func (c *Cache) Stats(ctx context.Context) models.CacheStats {
	stats := models.CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: int64(c.mem.len()),
	}
	if db := c.durable(); db != nil {
		if n, err := db.count(ctx); err == nil {
			stats.Entries += n
		} else {
			c.discard()
			stats.Degraded = true
		}
	} else {
		stats.Degraded = true
	}
	return stats
}

// Close releases the durable store connection.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.close()
	c.db = nil
	return err
}
