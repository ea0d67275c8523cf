package fuseglue

import (
	"context"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stripefs/stripefs/internal/inodectx"
)

// LookUpInode resolves parent/name to a child inode. This is the kernel's
// primary path-resolution fop, so it must run the full §4.4.1 Lookup
// fanout — gfid verification, xattr-dict merge, and missing-entry self-heal
// scheduling — not a bare Stat. The inode id is assigned before the fanout
// call (same order as MkDir/Readdirp/CreateFile) so resolveGeometry caches
// the discovered geometry under this path's own id instead of reusing
// whatever the first-ever lookup happened to publish.
func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	fs.mu.Lock()
	parentPath, ok := fs.pathFor(op.Parent)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}
	path := childPath(parentPath, op.Name)

	id := fs.assignInode(path, false)
	res, err := fs.Engine.Lookup(ctx, inodectx.InodeID(id), path)
	if err != nil {
		return toErrno(err)
	}
	if res.Attr.Mode.IsDir() {
		fs.mu.Lock()
		fs.isDirOf[id] = true
		fs.mu.Unlock()
	}
	fs.Engine.Cache.GetOrCreate(inodectx.InodeID(id)).IncrementLookupCount()

	op.Entry.Child = id
	op.Entry.Attributes = attrFromIatt(res.Attr)
	return nil
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	fs.mu.Lock()
	path, ok := fs.pathFor(op.Inode)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}

	attr, err := fs.Engine.Stat(ctx, inodectx.InodeID(op.Inode), path)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrFromIatt(attr)
	return nil
}

func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	fs.mu.Lock()
	path, ok := fs.pathFor(op.Inode)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}

	if op.Size != nil {
		if _, err := fs.Engine.Truncate(ctx, inodectx.InodeID(op.Inode), path, int64(*op.Size)); err != nil {
			return toErrno(err)
		}
	}

	attr, err := fs.Engine.Setattr(ctx, inodectx.InodeID(op.Inode), path, -1, -1, op.Mode)
	if err != nil {
		return toErrno(err)
	}
	op.Attributes = attrFromIatt(attr)
	return nil
}

// ForgetInode releases N kernel lookup references, evicting the path-table
// entry and the inode-context cache entry together when the count reaches
// zero (spec §3.4: the context's lifetime is tied to the lookup count).
func (fs *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	ictx, ok := fs.Engine.Cache.Get(inodectx.InodeID(op.ID))
	if !ok {
		return nil
	}
	if destroyed := ictx.DecrementLookupCount(uint64(op.N)); destroyed {
		fs.mu.Lock()
		if path, ok := fs.pathFor(op.ID); ok {
			delete(fs.pathOf, op.ID)
			delete(fs.inodeOf, path)
			delete(fs.isDirOf, op.ID)
		}
		fs.mu.Unlock()
	}
	return nil
}
