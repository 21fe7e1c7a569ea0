package explain

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// ttlEntry is a cached explanation with its expiry.
type ttlEntry struct {
	text      string
	expiresAt time.Time
}

func (e ttlEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// ttlCache is a small thread-safe TTL cache for generated explanations.
// Cardinality is tiny (six stage kinds times dataset fingerprints), so
// expired entries are swept opportunistically on writes instead of by a
// background goroutine.
type ttlCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]ttlEntry
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{
		ttl:   ttl,
		items: make(map[string]ttlEntry),
	}
}

// get returns the cached text if present and unexpired. Expired entries
// are dropped on read so a stale explanation is never served.
func (c *ttlCache) get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if entry.expired(time.Now()) {
		c.mu.Lock()
		if current, still := c.items[key]; still && current.expired(time.Now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.text, true
}

func (c *ttlCache) set(key, text string) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, entry := range c.items {
		if entry.expired(now) {
			delete(c.items, k)
		}
	}
	c.items[key] = ttlEntry{text: text, expiresAt: now.Add(c.ttl)}
}

func (c *ttlCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// contentHash fingerprints a prompt for cache addressing.
func contentHash(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}
