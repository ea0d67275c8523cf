package fanout

import (
	"context"
	"io/fs"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/subvol"
)

// Stat fans out to all N subvolumes and reconciles size/blocks, using the
// primary for mode/owner/times (spec §4.4.8).
func (e *Engine) Stat(ctx context.Context, inode inodectx.InodeID, path string) (subvol.Iatt, error) {
	d, _, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return subvol.Iatt{}, err
	}
	if err := requireGeometry("stat", d); err != nil {
		return subvol.Iatt{}, err
	}

	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	errs := windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		a, err := d.Subvolumes[i].Stat(ctx, path)
		if err != nil {
			return err
		}
		attrs[i] = a
		return nil
	})
	if err := firstErr(errs); err != nil {
		return subvol.Iatt{}, childErr("stat", err)
	}
	return e.reconcileAttrs(attrs, d), nil
}

// Setattr fans out to all N, reconciling size/blocks from the replies (spec
// §4.4.8).
func (e *Engine) Setattr(ctx context.Context, inode inodectx.InodeID, path string, uid, gid int32, mode *fs.FileMode) (subvol.Iatt, error) {
	d, _, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return subvol.Iatt{}, err
	}
	if err := requireGeometry("setattr", d); err != nil {
		return subvol.Iatt{}, err
	}

	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	errs := windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		a, err := d.Subvolumes[i].Setattr(ctx, path, uid, gid, mode)
		if err != nil {
			return err
		}
		attrs[i] = a
		return nil
	})
	if err := firstErr(errs); err != nil {
		return subvol.Iatt{}, childErr("setattr", err)
	}
	return e.reconcileAttrs(attrs, d), nil
}
