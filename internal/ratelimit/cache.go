package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// CacheKey derives the stable cache key for a provider request: a hash of
// (operation, normalized input). It is deliberately independent of the run
// that issues the request, so a cancelled run's eventual response can still
// populate the cache for a later identical request.
func CacheKey(op, input string) string {
	h := sha256.New()
	h.Write([]byte(op))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(input)))
	return hex.EncodeToString(h.Sum(nil))
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// Cache is a process-wide TTL response cache. Mutations commute (set/evict
// only), so a plain mutex around the map is all the coordination needed.
type Cache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]cacheEntry

	hits   int64
	misses int64
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{ttl: ttl, m: make(map[string]cacheEntry)}
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[key]
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			delete(c.m, key)
		}
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Stats returns hit/miss counters since construction.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Sweep drops expired entries; called opportunistically by the limiter.
func (c *Cache) Sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.m {
		if now.After(e.expiresAt) {
			delete(c.m, k)
		}
	}
}
