package fuseglue

import (
	"context"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stripefs/stripefs/internal/inodectx"
)

func (fs *FileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	fs.mu.Lock()
	path, ok := fs.pathFor(op.Inode)
	fs.mu.Unlock()
	if !ok {
		return fuseErrNoEnt
	}

	v, err := fs.Engine.Getxattr(ctx, inodectx.InodeID(op.Inode), path, op.Name)
	if err != nil {
		return toErrno(err)
	}
	if len(op.Dst) < len(v) {
		return syscall.ERANGE
	}
	op.BytesRead = copy(op.Dst, v)
	return nil
}

// ListXattr, SetXattr and RemoveXattr are not part of spec §4.4's surface
// (only the well-known diagnostic keys in §4.4.11/§6.3 are read); the
// translator reports them unsupported rather than silently no-op, matching
// the original C translator's behavior for xattrs it doesn't recognize.
func (fs *FileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	return syscall.ENOSYS
}

func (fs *FileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	return syscall.ENOSYS
}

func (fs *FileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	return syscall.ENOSYS
}

func (fs *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	st, err := fs.Engine.StatFS(ctx)
	if err != nil {
		return toErrno(err)
	}
	op.Blocks = uint64(st.BlocksTotal)
	op.BlocksFree = uint64(st.BlocksFree)
	op.BlocksAvailable = uint64(st.BlocksFree)
	op.Inodes = uint64(st.InodesTotal)
	op.InodesFree = uint64(st.InodesFree)
	op.IoSize = uint32(st.BlockSize)
	op.BlockSize = uint32(st.BlockSize)
	return nil
}
