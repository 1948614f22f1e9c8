package dataprovider

import (
	"sync"
	"time"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// ttlCache 带按键过期的内存缓存,缓存 CLI 的原始输出。
type ttlCache struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	store      map[string]cacheEntry
}

func newTTLCache(defaultTTL time.Duration) *ttlCache {
	return &ttlCache{
		defaultTTL: defaultTTL,
		store:      make(map[string]cacheEntry),
	}
}

func (c *ttlCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.store[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.store, key)
		return "", false
	}
	return entry.value, true
}

func (c *ttlCache) set(key, value string) {
	c.mu.Lock()
	c.store[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.defaultTTL)}
	c.mu.Unlock()
}

func (c *ttlCache) clear() {
	c.mu.Lock()
	c.store = make(map[string]cacheEntry)
	c.mu.Unlock()
}
