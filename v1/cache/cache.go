package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Loader fetches the value for a missing key, typically from a slower
// backing store.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache is a generic read-through cache. Reads take the shared side of the
// mutex; writes and miss-fills take the exclusive side.
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	items  map[K]V
	loader Loader[K, V]

	hits   atomic.Uint64
	misses atomic.Uint64

	hitCounter  prometheus.Counter
	missCounter prometheus.Counter
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithLoader sets the function invoked on a miss; its result is stored and
// returned.
func WithLoader[K comparable, V any](l Loader[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.loader = l
	}
}

// WithMetrics enables Prometheus metrics collection using the provided registerer.
func WithMetrics[K comparable, V any](reg prometheus.Registerer) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.hitCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockgraph_rwcache_hits_total",
			Help: "Total number of cache hits",
		})
		c.missCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lockgraph_rwcache_misses_total",
			Help: "Total number of cache misses",
		})
		reg.MustRegister(c.hitCounter, c.missCounter)
	}
}

// New returns an empty cache.
func New[K comparable, V any](opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{items: make(map[K]V)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key. The boolean reports whether a value
// was found or loaded. On a miss with a loader configured, the loader runs
// outside any lock and its result is stored; on concurrent misses for the
// same key the last write wins.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		if c.hitCounter != nil {
			c.hitCounter.Inc()
		}
		return v, true, nil
	}

	c.misses.Add(1)
	if c.missCounter != nil {
		c.missCounter.Inc()
	}
	var zero V
	if c.loader == nil {
		return zero, false, nil
	}
	loaded, err := c.loader(ctx, key)
	if err != nil {
		return zero, false, err
	}
	c.mu.Lock()
	c.items[key] = loaded
	c.mu.Unlock()
	return loaded, true, nil
}

// Lookup returns the cached value without consulting the loader.
func (c *Cache[K, V]) Lookup(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

// Set stores value under key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

// Delete removes key.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

// Stats returns the hit and miss counts.
func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
