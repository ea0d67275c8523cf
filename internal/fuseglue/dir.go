package fuseglue

import (
	"context"
	"sync"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stripefs/stripefs/internal/inodectx"
)

// dirHandle is a snapshot of one Readdirp call, re-served page by page as
// the kernel walks the ReadDirOp offset cursor (spec's ReadDirOp contract:
// the file system owns offset semantics, not byte counting).
type dirHandle struct {
	mu      sync.Mutex
	entries []fuseutil.Dirent
}

func (fs *FileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	fs.mu.Lock()
	parentPath, ok := fs.pathFor(op.Parent)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}
	path := childPath(parentPath, op.Name)

	attr, err := fs.Engine.Mkdir(ctx, path, op.Mode)
	if err != nil {
		return toErrno(err)
	}
	id := fs.assignInode(path, true)
	fs.Engine.Cache.GetOrCreate(inodectx.InodeID(id)).IncrementLookupCount()

	op.Entry.Child = id
	op.Entry.Attributes = attrFromIatt(attr)
	return nil
}

func (fs *FileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	fs.mu.Lock()
	parentPath, ok := fs.pathFor(op.Parent)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}
	return toErrno(fs.Engine.Rmdir(ctx, childPath(parentPath, op.Name)))
}

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	fs.mu.Lock()
	path, ok := fs.pathFor(op.Inode)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}
	if err := fs.Engine.Opendir(ctx, path); err != nil {
		return toErrno(err)
	}

	entries, err := fs.Engine.Readdirp(ctx, path, func(name string) inodectx.InodeID {
		childP := childPath(path, name)
		return inodectx.InodeID(fs.assignInode(childP, false))
	})
	if err != nil {
		return toErrno(err)
	}

	dirents := make([]fuseutil.Dirent, 0, len(entries))
	for i, e := range entries {
		typ := fuseutil.DT_File
		if e.Mode.IsDir() {
			typ = fuseutil.DT_Directory
		}
		dirents = append(dirents, fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(e.Ino),
			Name:   e.Name,
			Type:   typ,
		})
	}

	fs.mu.Lock()
	handleID := fs.nextHandle
	fs.nextHandle++
	fs.dirHandles[handleID] = &dirHandle{entries: dirents}
	fs.mu.Unlock()

	op.Handle = handleID
	return nil
}

func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}

	dh.mu.Lock()
	defer dh.mu.Unlock()

	idx := int(op.Offset)
	n := 0
	for idx < len(dh.entries) {
		wrote := fuseutil.WriteDirent(op.Dst[n:], dh.entries[idx])
		if wrote == 0 {
			break
		}
		n += wrote
		idx++
	}
	op.BytesRead = n
	return nil
}

func (fs *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	delete(fs.dirHandles, op.Handle)
	fs.mu.Unlock()
	return nil
}
