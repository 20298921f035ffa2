package categorize

import (
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a cached remote category.
type cacheEntry struct {
	expiry   time.Time
	category string
}

// labelCache provides thread-safe caching of remote categories per label so
// that repeated items do not spend quota.
type labelCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	stopped sync.Once
}

// newLabelCache creates a new cache with the specified TTL.
func newLabelCache(ttl time.Duration, now func() time.Time) *labelCache {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}

	cache := &labelCache{
		entries: make(map[string]cacheEntry),
		now:     now,
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup(10 * time.Minute)

	return cache
}

func cacheKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// get retrieves a category if it exists and hasn't expired.
func (c *labelCache) get(label string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[cacheKey(label)]
	if !exists || c.now().After(entry.expiry) {
		return "", false
	}
	return entry.category, true
}

// set stores a category in the cache.
func (c *labelCache) set(label, category string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(label)] = cacheEntry{
		category: category,
		expiry:   c.now().Add(c.ttl),
	}
}

// purge removes expired entries and returns how many were dropped.
func (c *labelCache) purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiry) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// cleanup periodically removes expired entries.
func (c *labelCache) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purge()
		}
	}
}

// size returns the number of entries in the cache.
func (c *labelCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// close stops the cleanup goroutine.
func (c *labelCache) close() {
	c.stopped.Do(func() { close(c.stopCh) })
}
