package mapbox

import (
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
)

// CachedResolver wraps a Resolver with an in-memory LRU cache keyed by the
// normalized query text.
type CachedResolver struct {
	inner   Resolver
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner Resolver, maxEntries int, metrics *observability.Metrics) *CachedResolver {
	return &CachedResolver{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, query string) (domain.ResolvedLocation, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if loc, ok := c.cache.get(key); ok {
		if c.metrics != nil {
			c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		}
		return loc, nil
	}
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues("miss").Inc()
	}

	loc, err := c.inner.Resolve(ctx, query)
	if err != nil {
		return loc, err
	}
	// Only cache resolved results so transient "not found" responses can be
	// retried.
	if loc.Name != "" {
		c.cache.put(key, loc)
	}
	return loc, nil
}

// lruCache is a simple thread-safe LRU cache for resolved locations.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.ResolvedLocation
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.ResolvedLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.ResolvedLocation{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.ResolvedLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
