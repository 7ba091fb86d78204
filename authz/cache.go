// Package authz resolves whether an authenticated identity may use the
// portal, combining a TTL-bounded membership cache with live directory
// lookups. Every path that cannot produce a confident answer denies access.
package authz

import (
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	value     bool
	fetchedAt time.Time
}

// Cache holds recent membership answers keyed by subject and group. Entries
// older than the TTL are treated as absent; expiry is lazy, stale entries are
// dropped when read or when Prune runs. Both positive and negative answers
// are cached, failures never are.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time
}

// NewCache returns a cache whose entries are trusted for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
		now:     time.Now,
	}
}

func cacheKey(email, group string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + strings.ToLower(strings.TrimSpace(group))
}

// Get returns the cached answer for the subject in the group, along with its
// age. A stale entry is indistinguishable from a missing one.
func (c *Cache) Get(email, group string) (value bool, age time.Duration, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(email, group)
	e, found := c.entries[key]
	if !found {
		return false, 0, false
	}
	age = c.now().Sub(e.fetchedAt)
	if age >= c.ttl {
		delete(c.entries, key)
		return false, 0, false
	}
	return e.value, age, true
}

// Put stores an answer, replacing any prior entry. Last write wins.
func (c *Cache) Put(email, group string, value bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(email, group)] = cacheEntry{value: value, fetchedAt: c.now()}
}

// Invalidate drops the entry for the subject in the group, if present.
func (c *Cache) Invalidate(email, group string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(email, group))
}

// Prune removes all expired entries and reports how many were dropped.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var dropped int
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of entries currently stored, including any that
// have expired but not yet been pruned.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
