// internal/worker/cache.go
package worker

import "sync"

// SeenCache remembers which content keys this process has already
// confirmed to exist in the store, so repeat sightings of the same
// content (the same malware sample downloaded in session after session)
// skip the remote round-trip entirely.
//
// It is an optimization, never a correctness guarantee: it is empty at
// startup, never persisted, never expired, and not shared with other
// sink instances. Cross-process duplicates are tolerated because a put
// under a content-derived key is idempotent.
type SeenCache struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewSeenCache() *SeenCache {
	return &SeenCache{keys: make(map[string]struct{})}
}

// Seen reports whether key was already confirmed present remotely.
func (c *SeenCache) Seen(key string) bool {
	c.mu.RLock()
	_, ok := c.keys[key]
	c.mu.RUnlock()
	return ok
}

// MarkSeen records that key is known to exist remotely.
func (c *SeenCache) MarkSeen(key string) {
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()
}

// Len returns the number of distinct keys confirmed so far.
func (c *SeenCache) Len() int {
	c.mu.RLock()
	n := len(c.keys)
	c.mu.RUnlock()
	return n
}
