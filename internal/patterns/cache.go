package patterns

import (
	"sync"
	"time"
)

// RecencyCache tracks when failure signatures were last seen, expiring
// entries after a TTL so recurrence scoring only considers a bounded window.
type RecencyCache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]time.Time
}

// NewRecencyCache creates a cache; ttl <= 0 disables expiry.
func NewRecencyCache(ttl time.Duration) *RecencyCache {
	return &RecencyCache{ttl: ttl, data: make(map[string]time.Time)}
}

// Touch records that a signature was just seen.
func (c *RecencyCache) Touch(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[signature] = time.Now()
	if c.ttl > 0 && len(c.data) > 1024 {
		c.evictExpiredLocked()
	}
}

// Seen reports whether a signature was touched within the TTL.
func (c *RecencyCache) Seen(signature string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	at, ok := c.data[signature]
	if !ok {
		return false
	}
	if c.ttl > 0 && time.Since(at) > c.ttl {
		return false
	}
	return true
}

// Forget removes a signature.
func (c *RecencyCache) Forget(signature string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, signature)
}

func (c *RecencyCache) evictExpiredLocked() {
	cutoff := time.Now().Add(-c.ttl)
	for sig, at := range c.data {
		if at.Before(cutoff) {
			delete(c.data, sig)
		}
	}
}
