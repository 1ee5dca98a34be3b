// Package embcache provides the in-process query embedding cache and the
// caching embedder decorator built on it.
package embcache

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCapacity bounds the cache when no capacity is configured.
const DefaultCapacity = 1000

// Metrics is a point-in-time snapshot of cache effectiveness.
type Metrics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	HitRate   float64
}

// Cache is a bounded LRU mapping normalized query text to embedding vectors.
// A Get hit refreshes the entry's recency; a Set at capacity evicts the
// least-recently-used entry. Safe for concurrent use by in-flight searches.
type Cache struct {
	mu sync.Mutex

	lru       *simplelru.LRU[string, []float32]
	hits      uint64
	misses    uint64
	evictions uint64

	onEvict func() // optional hook for external counters
}

// NewCache creates a cache with the given capacity. capacity <= 0 takes the default.
func NewCache(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &Cache{}
	lru, err := simplelru.NewLRU[string, []float32](capacity, func(string, []float32) {
		c.evictions++
		if c.onEvict != nil {
			c.onEvict()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.lru = lru
	return c, nil
}

// OnEvict registers a hook invoked on every eviction. Must be called before
// the cache is shared.
func (c *Cache) OnEvict(fn func()) {
	c.onEvict = fn
}

// Get returns the cached vector for a query, refreshing its recency.
// The returned slice is a copy; cache entries are never shared.
func (c *Cache) Get(query string) ([]float32, bool) {
	key := normalizeKey(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++

	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector under the normalized query key, evicting the
// least-recently-used entry when at capacity.
func (c *Cache) Set(query string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	key := normalizeKey(query)

	owned := make([]float32, len(vec))
	copy(owned, vec)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, owned)
}

// Metrics returns the current counters. HitRate is 0 when no requests have
// occurred.
func (c *Cache) Metrics() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := Metrics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.lru.Len(),
	}
	if total := c.hits + c.misses; total > 0 {
		m.HitRate = float64(c.hits) / float64(total)
	}
	return m
}

// Clear drops all entries and resets counters. Intended for test isolation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Purge would fire the eviction callback per entry; reset counters after.
	c.lru.Purge()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// normalizeKey collapses semantically identical query strings to one entry.
func normalizeKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
