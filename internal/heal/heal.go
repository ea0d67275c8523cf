package heal

import (
	"context"
	"fmt"

	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/subvol"
)

// HealOne performs the recreate-stub heal action for job (spec §4.5): for
// every subvolume missing the entry, recreate it (directory or zero-length
// regular-file stub), write its geometry xattrs claiming its stripe-index,
// then copy the primary's uid/gid onto the stub via Setattr. Directories
// carry no striping xattrs (spec §4.4.10: directories are replicated, not
// striped).
func HealOne(ctx context.Context, keys geometry.Keys, job Job) error {
	primaryAttr, err := job.Primary.Stat(ctx, job.Path)
	if err != nil {
		return fmt.Errorf("stat primary %q: %w", job.Path, err)
	}

	for _, target := range job.Missing {
		if err := healTarget(ctx, keys, job, target, primaryAttr); err != nil {
			return fmt.Errorf("heal %q on %s: %w", job.Path, target.Subvolume.Root(), err)
		}
	}
	return nil
}

func healTarget(ctx context.Context, keys geometry.Keys, job Job, target MissingTarget, primaryAttr subvol.Iatt) error {
	sv := target.Subvolume

	if job.IsDir {
		if _, err := sv.Mkdir(ctx, job.Path, primaryAttr.Mode); err != nil {
			return err
		}
	} else {
		if _, err := sv.Create(ctx, job.Path, stubMode); err != nil {
			return err
		}
		descriptor := &geometry.Descriptor{
			StripeSize:  job.StripeSize,
			StripeCount: job.StripeCount,
			Coalesce:    job.Coalesce,
		}
		if err := geometry.WriteXattrs(ctx, sv, keys, job.Path, descriptor, target.Index); err != nil {
			return err
		}
	}

	uid := int32(primaryAttr.Uid)
	gid := int32(primaryAttr.Gid)
	mode := primaryAttr.Mode
	if _, err := sv.Setattr(ctx, job.Path, uid, gid, &mode); err != nil {
		return err
	}
	return nil
}
