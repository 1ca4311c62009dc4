package httpclient

import (
	"sync"
	"time"
)

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// responseCache keeps raw GET bodies until their TTL passes. Expired entries
// are removed lazily on lookup.
type responseCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	now   func() time.Time
}

func newResponseCache() *responseCache {
	return &responseCache{store: make(map[string]cacheEntry), now: time.Now}
}

func (c *responseCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.Delete(key)
		return nil, false
	}
	return entry.body, true
}

func (c *responseCache) Set(key string, body []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheEntry{body: body, expiresAt: c.now().Add(ttl)}
}

func (c *responseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
}

func (c *responseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
}

func (c *responseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
