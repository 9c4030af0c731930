package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"aitex/internal/core"
)

// LRUCache is a thread-safe LRU cache with expiration
type LRUCache struct {
	capacity int
	items    map[string]*CacheItem
	mu       sync.RWMutex
	head     *CacheItem
	tail     *CacheItem
	ctx      context.Context
	cancel   context.CancelFunc
}

// CacheItem represents an item in the cache with LRU links
type CacheItem struct {
	Value      any
	Expiration int64
	key        string
	prev       *CacheItem
	next       *CacheItem
}

// NewCache creates a new LRU Cache holding at most capacity items.
// A non-positive capacity selects core.CacheDefaultCapacity.
func NewCache(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = core.CacheDefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LRUCache{
		capacity: capacity,
		items:    make(map[string]*CacheItem),
		ctx:      ctx,
		cancel:   cancel,
	}

	c.head = &CacheItem{}
	c.tail = &CacheItem{}
	c.head.next = c.tail
	c.tail.prev = c.head

	go c.startCleanupWorker()
	return c
}

func (c *LRUCache) startCleanupWorker() {
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

// Stop terminates the cache cleanup worker goroutine.
func (c *LRUCache) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Set stores a value in the cache with the given TTL.
func (c *LRUCache) Set(key string, value any, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.Value = value
		item.Expiration = time.Now().Add(duration).UnixNano()
		c.moveToFront(item)
		return
	}

	item := &CacheItem{
		Value:      value,
		Expiration: time.Now().Add(duration).UnixNano(),
		key:        key,
	}

	c.addToFront(item)
	c.items[key] = item

	if len(c.items) > c.capacity {
		c.evict()
	}
}

// Get retrieves a value from the cache, returning false if not found or expired.
func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}

	if time.Now().UnixNano() > item.Expiration {
		c.remove(item)
		delete(c.items, key)
		return nil, false
	}

	c.moveToFront(item)
	return item.Value, true
}

// Delete removes key if present.
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		c.remove(item)
		delete(c.items, key)
	}
}

// Len returns the number of stored items, including expired ones not yet cleaned up.
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *LRUCache) addToFront(item *CacheItem) {
	item.next = c.head.next
	item.prev = c.head
	c.head.next.prev = item
	c.head.next = item
}

func (c *LRUCache) moveToFront(item *CacheItem) {
	c.remove(item)
	c.addToFront(item)
}

func (c *LRUCache) remove(item *CacheItem) {
	item.prev.next = item.next
	item.next.prev = item.prev
}

func (c *LRUCache) evict() {
	if c.tail.prev == c.head {
		return
	}
	item := c.tail.prev
	c.remove(item)
	delete(c.items, item.key)
}

func (c *LRUCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range c.items {
		if now > item.Expiration {
			c.remove(item)
			delete(c.items, key)
		}
	}
}

// Clear clears all cache items
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[string]*CacheItem)
}

// ResultCache keeps finished recognition results so they can be fetched by ID.
// It is never consulted before a recognition runs.
type ResultCache struct {
	lru *LRUCache
	ttl time.Duration
}

// NewResultCache creates a result cache. A non-positive ttl selects core.ResultCacheTTL.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = core.ResultCacheTTL
	}
	return &ResultCache{lru: NewCache(capacity), ttl: ttl}
}

// SetResult stores a copy of result under its ID.
func (rc *ResultCache) SetResult(result *core.RecognitionResult) {
	if result == nil || result.ID == "" {
		return
	}
	stored := *result
	rc.lru.Set(ResultCacheKey(result.ID), &stored, rc.ttl)
}

// GetResult returns a copy of the result stored under id.
func (rc *ResultCache) GetResult(id string) (*core.RecognitionResult, bool) {
	cached, found := rc.lru.Get(ResultCacheKey(id))
	if !found {
		return nil, false
	}

	result, ok := cached.(*core.RecognitionResult)
	if !ok {
		return nil, false
	}

	clone := *result
	return &clone, true
}

// Len returns the number of cached results.
func (rc *ResultCache) Len() int {
	return rc.lru.Len()
}

// Stop terminates the cleanup worker.
func (rc *ResultCache) Stop() {
	rc.lru.Stop()
}

// Close stops the cache and drops every stored result.
func (rc *ResultCache) Close() error {
	rc.Stop()
	rc.lru.Clear()
	return nil
}

// ResultCacheKey creates the cache key of a recognition result.
func ResultCacheKey(id string) string {
	return fmt.Sprintf("result:%s:%s", core.CacheKeyVersion, id)
}

var _ core.Cache = (*LRUCache)(nil)
