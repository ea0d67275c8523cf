package inodectx

import "github.com/stripefs/stripefs/internal/geometry"

// FD is attached to every file descriptor opened on a striped regular file,
// so fd-keyed fops (read/write/ftruncate/fsync/lock) need no re-lookup.
// It holds only a borrow of the inode's descriptor (spec §9: "the fd holds
// only a borrow").
type FD struct {
	Inode InodeID
}

// Geometry resolves the descriptor currently published for fd's inode via
// cache, or nil if none has been published.
func (fd *FD) Geometry(cache *Cache) *geometry.Descriptor {
	ctx, ok := cache.Get(fd.Inode)
	if !ok {
		return nil
	}
	return ctx.Geometry()
}
