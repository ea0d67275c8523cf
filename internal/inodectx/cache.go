package inodectx

import "sync"

// Cache owns one Context per live inode. Entries are created on first
// lookup/create/link and destroyed by the inode-forget collaborator
// callback (spec §3.4).
type Cache struct {
	mu   sync.Mutex
	byID map[InodeID]*Context
}

func NewCache() *Cache {
	return &Cache{byID: make(map[InodeID]*Context)}
}

// GetOrCreate returns the Context for id, creating and registering one if
// this is the first reference.
func (c *Cache) GetOrCreate(id InodeID) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx, ok := c.byID[id]; ok {
		return ctx
	}
	ctx := newContext(id, c.evict)
	c.byID[id] = ctx
	return ctx
}

// Get returns the Context for id if one exists, without creating it.
func (c *Cache) Get(id InodeID) (*Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, ok := c.byID[id]
	return ctx, ok
}

func (c *Cache) evict(id InodeID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, id)
}

// Len reports the number of live inode contexts, for tests and diagnostics.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}
