package storage

import (
	"container/list"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// LRUCache is a thread-safe LRU cache with TTL support
type LRUCache[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

// NewLRUCache creates a new LRU cache
func NewLRUCache[V any](capacity int, ttl time.Duration) *LRUCache[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[V]{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get retrieves an unexpired item and marks it most recently used
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, found := c.items[key]
	if !found {
		return zero, false
	}

	entry := elem.Value.(*cacheEntry[V])
	if c.now().After(entry.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.order.MoveToFront(elem)
	return entry.value, true
}

// Set adds or updates an item, evicting the least recently used one when full
func (c *LRUCache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, found := c.items[key]; found {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.expiresAt = expiresAt
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry[V]{key: key, value: value, expiresAt: expiresAt})

	if c.order.Len() > c.capacity {
		c.removeExpired()
	}
	if c.order.Len() > c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes an item from the cache
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.items[key]; found {
		c.removeElement(elem)
	}
}

// Clear removes all items from the cache
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the current number of items in the cache
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

func (c *LRUCache[V]) removeElement(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry[V]).key)
}

// removeExpired drops every expired item. Callers hold c.mu.
func (c *LRUCache[V]) removeExpired() int {
	now := c.now()
	removed := 0

	var prev *list.Element
	for elem := c.order.Back(); elem != nil; elem = prev {
		prev = elem.Prev()
		if now.After(elem.Value.(*cacheEntry[V]).expiresAt) {
			c.removeElement(elem)
			removed++
		}
	}

	return removed
}
