package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/subvol"
)

// Lock fans out a posix-lock request to all N subvolumes; the lock record
// is taken from the primary. A failure on any child is reported; no
// attempt is made to unlock successful children — the caller is expected
// to retry or close (spec §4.4.9).
func (e *Engine) Lock(ctx context.Context, inode inodectx.InodeID, path string, lockType subvol.LockType) error {
	d, _, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return err
	}
	if err := requireGeometry("lock", d); err != nil {
		return err
	}

	errs := windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		return d.Subvolumes[i].Lock(ctx, path, lockType)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("lock", failure)
	}
	return nil
}
