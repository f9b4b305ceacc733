// Package refcache is the reference-sequence cache the cram writer
// reads from: a lookup from reference id to bases, plus the
// reference-counted Incr/Decr discipline a container uses to pin a
// reference's bases until MD5 computation is done.
package refcache

import "sync"

// Cache maps reference IDs to their base sequences, refcounted so a
// container's outstanding reference to a sequence can be released once
// the container no longer needs it (after slice MD5 computation).
type Cache struct {
	mu    sync.Mutex
	bases map[int][]byte
	count map[int]int
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{
		bases: make(map[int][]byte),
		count: make(map[int]int),
	}
}

// Put installs the base sequence for refID, overwriting any previous
// entry. It does not affect the refcount.
func (c *Cache) Put(refID int, bases []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bases[refID] = bases
}

// Get returns the base sequence for refID, or (nil, false) if absent.
func (c *Cache) Get(refID int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.bases[refID]
	return b, ok
}

// Incr increments the refcount for refID. A container must call Incr
// before reading bases it intends to hold across more than a single Get,
// and must balance every Incr with a Decr once it is done (typically
// after MD5 computation for the slice's reference span).
func (c *Cache) Incr(refID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count[refID]++
}

// Decr decrements the refcount for refID. The cached bases themselves are
// left in place; eviction under memory pressure is outside this
// collaborator's contract.
func (c *Cache) Decr(refID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count[refID] > 0 {
		c.count[refID]--
	}
	if c.count[refID] == 0 {
		delete(c.count, refID)
	}
}

// RefCount returns the current refcount for refID, for tests.
func (c *Cache) RefCount(refID int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count[refID]
}
