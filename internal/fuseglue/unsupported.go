package fuseglue

import (
	"context"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
)

// Symlinks are outside spec §2's scope (the geometry/fanout model has no
// representation for a symlink target across N subvolumes); report them
// unsupported rather than silently mishandling them.

func (fs *FileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	return syscall.ENOSYS
}

func (fs *FileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	return syscall.ENOSYS
}
