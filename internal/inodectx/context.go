// Package inodectx implements the Inode/FD Context Cache (C3): the mapping
// from inode to Geometry Descriptor, with a lifetime tied to the inode's
// lookup count and lock-free reads after publish (spec §3.4, §4.3).
package inodectx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stripefs/stripefs/internal/geometry"
)

// InodeID is the identifier the inode-table collaborator assigns; the
// engine never allocates one itself (spec §1: the inode table is a
// collaborator consumed, not owned).
type InodeID uint64

// lookupCount is a helper for implementing kernel lookup-count semantics:
// destroy is invoked when the count hits zero. External synchronization is
// required (mirrors the teacher's fs/inode lookupCount helper).
type lookupCount struct {
	count   uint64
	destroy func()
}

func (lc *lookupCount) inc() {
	lc.count++
}

func (lc *lookupCount) dec(n uint64) (destroyed bool) {
	if n > lc.count {
		panic(fmt.Sprintf("n is greater than lookup count: %v vs. %v", n, lc.count))
	}
	lc.count -= n
	if lc.count == 0 {
		lc.destroy()
		destroyed = true
	}
	return
}

// Context is one inode's cache entry: the published geometry descriptor
// plus its lookup-count-driven lifetime.
type Context struct {
	id InodeID

	// descriptor is read via a single atomic load on the hot path (spec
	// §4.3 "Read path"); publish stores only over nil, checked under mu.
	descriptor atomic.Pointer[geometry.Descriptor]

	mu          sync.Mutex
	lookup      lookupCount
	// NeedsGeometryHeal is set when discovery left a degraded descriptor
	// for this inode; follow-on fops requiring full geometry must consult
	// it (spec §4.5 "Missing geometry xattr").
	NeedsGeometryHeal bool

	// attrFetched records whether a baseline attribute fanout has already
	// run for this inode (mirrors the original stripe translator's
	// first_write/got_attr bookkeeping pair, SPEC_FULL §3): the first
	// cold-cache write or truncate pays for one baseline stat fanout
	// before touching any bytes, every later one on the same inode skips
	// it.
	attrFetched atomic.Bool
}

func newContext(id InodeID, onDestroy func(InodeID)) *Context {
	c := &Context{id: id}
	c.lookup.destroy = func() { onDestroy(id) }
	return c
}

// ID returns the inode ID this context is keyed under. Safe without the lock.
func (c *Context) ID() InodeID { return c.id }

// Geometry returns the published descriptor, or nil if none has been
// published yet. Lock-free (spec §4.3 "Read path").
func (c *Context) Geometry() *geometry.Descriptor {
	return c.descriptor.Load()
}

// Publish installs d as the context's descriptor if none is already
// present, checking and storing under mu so a losing concurrent publisher's
// allocation is simply discarded (spec invariant G1, §4.3 "Publish path").
// It returns the descriptor now in effect — the caller's d if it won, or
// the winner's otherwise.
func (c *Context) Publish(d *geometry.Descriptor) *geometry.Descriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing := c.descriptor.Load(); existing != nil {
		return existing
	}
	c.descriptor.Store(d)
	return d
}

// Purge clears the published descriptor, requiring a subsequent lookup to
// rediscover geometry (spec invariant G1: "a reconfiguration requires
// purge-and-relookup").
func (c *Context) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.descriptor.Store(nil)
}

// HasAttr reports whether MarkAttrFetched has already run for this inode.
func (c *Context) HasAttr() bool { return c.attrFetched.Load() }

// MarkAttrFetched records that the one-time baseline attribute fanout has
// completed for this inode.
func (c *Context) MarkAttrFetched() { c.attrFetched.Store(true) }

// IncrementLookupCount records a kernel lookup reference on this inode.
func (c *Context) IncrementLookupCount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookup.inc()
}

// DecrementLookupCount releases n kernel lookup references; if the count
// hits zero the context is destroyed and evicted from its Cache.
func (c *Context) DecrementLookupCount(n uint64) (destroyed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup.dec(n)
}
