package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tejashwikalptaru/pixeltunes/internal/ports"
)

type cacheEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// Cache implements ports.Cache with a TTL map. Expired entries are dropped on read.
//
// Thread-safe: All operations protected by sync.Mutex.
type Cache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	mu      sync.Mutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetClock replaces the time source (for testing).
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Get returns the cached value if present and not expired.
func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value for ttl. A zero ttl never expires.
func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := cacheEntry{value: value}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// Len returns the number of entries, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Verify interface compliance
var _ ports.Cache = (*Cache)(nil)
