// Package cache is a small in-memory TTL cache, used to keep
// stylometric profiles from being recomputed on every reply.
package cache

import (
	"sync"
	"time"
)

type item struct {
	data      interface{}
	expiresAt time.Time
}

// Cache is a concurrency-safe in-memory cache with per-entry TTL.
type Cache struct {
	items map[string]item
	mutex sync.RWMutex
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		items: make(map[string]item),
	}
}

// Get retrieves an item, treating expired entries as absent. Expired
// entries are evicted lazily on the next Set or Sweep.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// Set stores an item with the given TTL.
func (c *Cache) Set(key string, data interface{}, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = item{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes an item.
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
}

// Sweep evicts every expired entry and reports how many were removed.
func (c *Cache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.items {
		if now.After(entry.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear removes all items.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[string]item)
}
