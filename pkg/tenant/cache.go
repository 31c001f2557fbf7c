package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/satizap/gateway/pkg/environment"
)

// DefaultCacheTTL is how long a lookup result, positive or negative, is
// trusted.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores lookup results keyed by identifier.
//
// Get distinguishes "not cached" (ok == false) from a cached negative result
// (nil, true), so a known-missing tenant is not looked up again within the
// TTL window.
type Cache interface {
	Get(ctx context.Context, identifier string) (*Tenant, bool)
	Set(ctx context.Context, identifier string, tenant *Tenant)
	Delete(ctx context.Context, identifier string)
	Clear(ctx context.Context)
	Stats(ctx context.Context) CacheStats
}

// CacheStats is a point-in-time view of a cache for observability.
type CacheStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// NewCacheForEnvironment returns a NoOpCache in production and a MemoryCache
// everywhere else.
func NewCacheForEnvironment(env environment.Environment, opts ...MemoryCacheOption) Cache {
	if env.IsProduction() {
		return NoOpCache{}
	}
	return NewMemoryCache(opts...)
}

type cacheEntry struct {
	tenant   *Tenant
	cachedAt time.Time
	ttl      time.Duration
}

func (e cacheEntry) expired(now time.Time) bool {
	return now.Sub(e.cachedAt) > e.ttl
}

// MemoryCache is a process-local Cache. Expiry is lazy: an expired entry is
// removed by the Get that finds it, never by a background sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithTTL overrides DefaultCacheTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryCacheOption {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     DefaultCacheTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, identifier string) (*Tenant, bool) {
	c.mu.RLock()
	entry, ok := c.entries[identifier]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have refreshed it.
		if current, ok := c.entries[identifier]; ok && current.expired(c.now()) {
			delete(c.entries, identifier)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.tenant, true
}

func (c *MemoryCache) Set(_ context.Context, identifier string, tenant *Tenant) {
	c.mu.Lock()
	c.entries[identifier] = cacheEntry{tenant: tenant, cachedAt: c.now(), ttl: c.ttl}
	c.mu.Unlock()
}

func (c *MemoryCache) Delete(_ context.Context, identifier string) {
	c.mu.Lock()
	delete(c.entries, identifier)
	c.mu.Unlock()
}

// Clear swaps in an empty map so readers never observe a partial clear.
func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Stats counts entries without evicting expired ones.
func (c *MemoryCache) Stats(_ context.Context) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	stats := CacheStats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if entry.expired(now) {
			stats.Expired++
		} else {
			stats.Active++
		}
	}
	return stats
}

// NoOpCache never stores anything. It is the production cache.
type NoOpCache struct{}

func (NoOpCache) Get(context.Context, string) (*Tenant, bool) { return nil, false }
func (NoOpCache) Set(context.Context, string, *Tenant) {}
func (NoOpCache) Delete(context.Context, string) {}
func (NoOpCache) Clear(context.Context) {}
func (NoOpCache) Stats(context.Context) CacheStats { return CacheStats{} }
