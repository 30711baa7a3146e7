package scan

import (
	"sync"
	"time"
)

// DedupCache suppresses reprocessing of recently handled file identities.
// The common create+write+close event burst for one logical write collapses
// to a single scan. Safe for concurrent use by all pipeline workers.
type DedupCache struct {
	mu  sync.Mutex
	ttl time.Duration
	// entries maps identity keys to the time they were recorded.
	entries map[string]time.Time
	now     func() time.Time
}

// NewDedupCache creates a cache with the given suppression window.
func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{
		ttl:     ttl,
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// ShouldProcess atomically reserves the identity: the first caller within a
// TTL window gets true and the identity is recorded; every concurrent or
// later caller gets false until the window expires. Expired entries for the
// checked key are purged lazily.
func (c *DedupCache) ShouldProcess(id FileIdentity) bool {
	key := id.Key()
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if recorded, ok := c.entries[key]; ok {
		if now.Sub(recorded) < c.ttl {
			return false
		}
		delete(c.entries, key)
	}
	c.entries[key] = now
	return true
}

// MarkProcessed stamps the identity without the reservation check. Used to
// suppress follow-up events for paths the agent itself produced (e.g. a
// restore destination).
func (c *DedupCache) MarkProcessed(id FileIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id.Key()] = c.now()
}

// Sweep evicts all expired entries. Called periodically by the scheduler.
func (c *DedupCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, recorded := range c.entries {
		if now.Sub(recorded) >= c.ttl {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of live entries.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
