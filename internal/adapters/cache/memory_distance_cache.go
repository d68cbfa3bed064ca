package cache

import (
	"container/list"
	"context"
	"delivery-planner/internal/ports"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	key      string
	result   ports.DistanceResult
	storedAt time.Time
}

// MemoryDistanceCache keeps results in process. Entries expire after TTL and
// the oldest entry is evicted once MaxEntries is reached. Zero disables either limit.
type MemoryDistanceCache struct {
	TTL        time.Duration
	MaxEntries int

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = oldest
	now   func() time.Time
}

func NewMemoryDistanceCache(ttl time.Duration, maxEntries int) *MemoryDistanceCache {
	return &MemoryDistanceCache{
		TTL:        ttl,
		MaxEntries: maxEntries,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

func memoryKey(origin, destination string) string {
	return origin + "|" + destination
}

// Fetch cached distances for one origin and multiple destinations.
func (c *MemoryDistanceCache) GetMany(
	_ context.Context,
	origin string,
	destinations []string,
) (map[string]ports.DistanceResult, error) {
	if origin == "" {
		return nil, errors.New("get distance cache: origin must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[string]ports.DistanceResult, len(destinations))
	for _, d := range uniqueKeys(destinations) {
		el, ok := c.items[memoryKey(origin, d)]
		if !ok {
			continue
		}
		e := el.Value.(*memoryEntry)
		if c.expired(e, now) {
			c.remove(el)
			continue
		}
		out[d] = e.result
	}
	return out, nil
}

// Store many cached distance results for a single origin.
func (c *MemoryDistanceCache) PutMany(
	_ context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if origin == "" {
		return errors.New("insert distance cache: origin must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for dest, r := range results {
		if dest == "" {
			return errors.New("insert distance cache: empty destination key")
		}

		key := memoryKey(origin, dest)
		if el, ok := c.items[key]; ok {
			c.remove(el)
		}
		for c.MaxEntries > 0 && c.order.Len() >= c.MaxEntries {
			c.remove(c.order.Front())
		}
		c.items[key] = c.order.PushBack(&memoryEntry{key: key, result: r, storedAt: now})
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryDistanceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *MemoryDistanceCache) expired(e *memoryEntry, now time.Time) bool {
	return c.TTL > 0 && now.Sub(e.storedAt) > c.TTL
}

func (c *MemoryDistanceCache) remove(el *list.Element) {
	e := c.order.Remove(el).(*memoryEntry)
	delete(c.items, e.key)
}
