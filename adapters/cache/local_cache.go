// Package cache implements the recommendation result cache: an in-process
// TTL map, a Redis-backed store, and a tiered combination of the two.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"cropadvisor/domain/crop"
)

type cacheItem struct {
	value      crop.Result
	expiration int64
}

// LocalCache is an in-process TTL cache. Results are copied on the way in
// and out, so callers can never mutate a cached entry.
type LocalCache struct {
	items   map[string]cacheItem
	mu      sync.RWMutex
	ttl     time.Duration
	maxSize int

	hits   atomic.Int64
	misses atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLocalCache starts a cache with a background sweeper. Call Close to stop it.
func NewLocalCache(ttl time.Duration, maxSize int) *LocalCache {
	if maxSize <= 0 {
		maxSize = 10000
	}
	cache := &LocalCache{
		items:   make(map[string]cacheItem),
		ttl:     ttl,
		maxSize: maxSize,
		stop:    make(chan struct{}),
	}

	go cache.cleanup(time.Minute)

	return cache
}

func (c *LocalCache) Get(_ context.Context, key string) (*crop.Result, bool) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || time.Now().UnixNano() > item.expiration {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return cloneResult(&item.value), true
}

func (c *LocalCache) Set(_ context.Context, key string, result *crop.Result) error {
	if result == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLocked()
	}

	c.items[key] = cacheItem{
		value:      *cloneResult(result),
		expiration: time.Now().Add(c.ttl).UnixNano(),
	}
	return nil
}

// evictLocked drops expired entries, or one arbitrary entry if none expired
func (c *LocalCache) evictLocked() {
	now := time.Now().UnixNano()
	evicted := false
	for k, item := range c.items {
		if now > item.expiration {
			delete(c.items, k)
			evicted = true
		}
	}
	if evicted {
		return
	}
	for k := range c.items {
		delete(c.items, k)
		return
	}
}

func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *LocalCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// HitRate returns hits / (hits + misses)
func (c *LocalCache) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0.0
	}
	return float64(hits) / float64(total)
}

// Close stops the sweeper
func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

func (c *LocalCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now().UnixNano()
			for key, item := range c.items {
				if now > item.expiration {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func cloneResult(r *crop.Result) *crop.Result {
	out := *r
	out.RankedTopN = append([]crop.RankedCrop(nil), r.RankedTopN...)
	return &out
}
