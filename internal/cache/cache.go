package cache

import (
	"context"
	"sync"
	"time"

	"assistantsproxy/internal/core"
)

// LRUCache is a thread-safe LRU cache with per-item expiration.
// A non-positive TTL stores the item without expiration.
type LRUCache[V any] struct {
	capacity int
	items    map[string]*cacheItem[V]
	mu       sync.Mutex
	head     *cacheItem[V]
	tail     *cacheItem[V]
	ctx      context.Context
	cancel   context.CancelFunc
}

type cacheItem[V any] struct {
	value      V
	expiration int64
	key        string
	prev       *cacheItem[V]
	next       *cacheItem[V]
}

func (i *cacheItem[V]) expired(now int64) bool {
	return i.expiration > 0 && now > i.expiration
}

// NewCache creates an LRU cache holding at most capacity items.
func NewCache[V any](capacity int) *LRUCache[V] {
	if capacity <= 0 {
		capacity = core.CacheDefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LRUCache[V]{
		capacity: capacity,
		items:    make(map[string]*cacheItem[V]),
		ctx:      ctx,
		cancel:   cancel,
	}

	c.head = &cacheItem[V]{}
	c.tail = &cacheItem[V]{}
	c.head.next = c.tail
	c.tail.prev = c.head

	go c.startCleanupWorker()
	return c
}

func (c *LRUCache[V]) startCleanupWorker() {
	ticker := time.NewTicker(core.CacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.ctx.Done():
			return
		}
	}
}

// Stop terminates the cleanup worker goroutine.
func (c *LRUCache[V]) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Set stores a value with the given TTL.
func (c *LRUCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration int64
	if ttl > 0 {
		expiration = time.Now().Add(ttl).UnixNano()
	}

	if item, exists := c.items[key]; exists {
		item.value = value
		item.expiration = expiration
		c.moveToFront(item)
		return
	}

	item := &cacheItem[V]{value: value, expiration: expiration, key: key}
	c.addToFront(item)
	c.items[key] = item

	if len(c.items) > c.capacity {
		c.evict()
	}
}

// Get returns the value for key, or false when it is missing or expired.
func (c *LRUCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	item, found := c.items[key]
	if !found {
		return zero, false
	}

	if item.expired(time.Now().UnixNano()) {
		c.remove(item)
		delete(c.items, key)
		return zero, false
	}

	c.moveToFront(item)
	return item.value, true
}

// Delete removes key from the cache.
func (c *LRUCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		c.remove(item)
		delete(c.items, key)
	}
}

// Len returns the number of stored items, including expired ones not yet collected.
func (c *LRUCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[V]) addToFront(item *cacheItem[V]) {
	item.next = c.head.next
	item.prev = c.head
	c.head.next.prev = item
	c.head.next = item
}

func (c *LRUCache[V]) moveToFront(item *cacheItem[V]) {
	c.remove(item)
	c.addToFront(item)
}

func (c *LRUCache[V]) remove(item *cacheItem[V]) {
	item.prev.next = item.next
	item.next.prev = item.prev
}

func (c *LRUCache[V]) evict() {
	if c.tail.prev == c.head {
		return
	}
	item := c.tail.prev
	c.remove(item)
	delete(c.items, item.key)
}

func (c *LRUCache[V]) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range c.items {
		if item.expired(now) {
			c.remove(item)
			delete(c.items, key)
		}
	}
}

// Clear removes all items.
func (c *LRUCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[string]*cacheItem[V])
}
