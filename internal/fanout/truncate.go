package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/offset"
	"github.com/stripefs/stripefs/internal/subvol"
)

// Truncate resolves each subvolume's backend target per §4.2 "Truncate
// target resolution" and fans out to all N subvolumes, aggregating the
// resulting pre/post iatt via size reconciliation (spec §4.4.4).
func (e *Engine) Truncate(ctx context.Context, inode inodectx.InodeID, path string, size int64) (subvol.Iatt, error) {
	d, ictx, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return subvol.Iatt{}, err
	}
	if err := requireGeometry("truncate", d); err != nil {
		return subvol.Iatt{}, err
	}
	if needsPreStat(ictx) {
		e.preStat(ctx, path, d)
		ictx.MarkAttrFetched()
	}

	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	errs := windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		target := offset.TruncateTarget(size, d.StripeSize, d.StripeCount, d.Coalesce, int32(i))
		a, err := d.Subvolumes[i].Truncate(ctx, path, target)
		if err != nil {
			return err
		}
		attrs[i] = a
		return nil
	})
	if err := firstErr(errs); err != nil {
		return subvol.Iatt{}, childErr("truncate", err)
	}

	return e.reconcileAttrs(attrs, d), nil
}
