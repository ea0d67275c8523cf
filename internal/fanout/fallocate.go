package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/offset"
	"github.com/stripefs/stripefs/internal/subvol"
)

// Fallocate handles fallocate/discard/zerofill: identical chunking to
// write, one sub-request per chunk to its owning subvolume at the chunk's
// backend offset and length; the first failing child's errno wins (spec
// §4.4.5).
func (e *Engine) Fallocate(ctx context.Context, inode inodectx.InodeID, path string, mode subvol.FallocateMode, off, length int64) (subvol.Iatt, error) {
	d, _, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return subvol.Iatt{}, err
	}
	if err := requireGeometry("fallocate", d); err != nil {
		return subvol.Iatt{}, err
	}

	chunks := offset.Decompose(off, length, d.StripeSize, d.StripeCount, d.Coalesce)
	errs := windAll(ctx, len(chunks), func(ctx context.Context, k int) error {
		c := chunks[k]
		return d.Subvolumes[c.Subvolume].Fallocate(ctx, path, mode, c.BackendOffset, c.Len())
	})
	if err := firstErr(errs); err != nil {
		return subvol.Iatt{}, childErr("fallocate", err)
	}

	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	_ = windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		a, err := d.Subvolumes[i].Stat(ctx, path)
		if err == nil {
			attrs[i] = a
		}
		return nil
	})
	return e.reconcileAttrs(attrs, d), nil
}
