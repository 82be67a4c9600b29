package partner

import (
	"sync"
	"time"
)

// DefaultTTL is how long a search response stays servable. Staleness within
// the TTL is an accepted trade-off for responsiveness.
const DefaultTTL = 10 * time.Minute

type cacheEntry struct {
	resp      Response
	expiresAt time.Time
}

// Cache is an in-memory response cache with lazy expiry: entries are
// evaluated at lookup, no background sweep. The clock is injectable so
// expiry is deterministic under test.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the cached response for the key when present and unexpired.
// Expired entries are dropped on the spot.
func (c *Cache) Get(key string) (Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Response{}, false
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return Response{}, false
	}
	return entry.resp, true
}

// Put stores the response under the key for one TTL. Concurrent fills of the
// same key converge to whichever lands last; both carry the same payload for
// identical requests, so the race is harmless.
func (c *Cache) Put(key string, resp Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{resp: resp, expiresAt: c.now().Add(c.ttl)}
}
