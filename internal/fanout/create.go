package fanout

import (
	"context"
	"io/fs"

	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/subvol"
)

// CreateResult is the merged reply of a two-phase Create fanout.
type CreateResult struct {
	Attr       subvol.Iatt
	Descriptor *geometry.Descriptor
}

// Create implements the two-phase creation protocol (spec §4.1 "Creation
// protocol", §4.4.6): phase 1 winds to subvolume 0 alone to reserve the
// primary inode; only on phase-1 success does phase 2 fan out the same
// create to the remaining subvolumes in parallel, each carrying its own
// stripe-index xattr. Any phase-2 failure triggers a compensating unlink of
// every subvolume that succeeded, including subvolume 0 (P7 "create
// atomicity"); the caller sees the original error (spec §7).
func (e *Engine) Create(ctx context.Context, inode inodectx.InodeID, logicalPath string, mode fs.FileMode) (CreateResult, error) {
	if err := e.requireAllUp("create"); err != nil {
		return CreateResult{}, err
	}

	stripeSize := e.resolveStripeSize(logicalPath)
	d := geometry.NewCreateDescriptor(stripeSize, e.Subvolumes, e.Coalesce)

	// Phase 1: reserve the primary inode.
	primaryAttr, err := e.primary().Create(ctx, logicalPath, mode)
	if err != nil {
		return CreateResult{}, childErr("create", err)
	}
	if e.UseXattr {
		if err := geometry.WriteXattrs(ctx, e.primary(), e.Keys, logicalPath, d, 0); err != nil {
			_ = e.primary().Unlink(ctx, logicalPath)
			return CreateResult{}, childErr("create", err)
		}
	}

	// Phase 2: fan out to the remaining subvolumes in parallel.
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		idx := int32(j + 1)
		if _, err := rest[j].Create(ctx, logicalPath, mode); err != nil {
			return err
		}
		if e.UseXattr {
			if err := geometry.WriteXattrs(ctx, rest[j], e.Keys, logicalPath, d, idx); err != nil {
				_ = rest[j].Unlink(ctx, logicalPath)
				return err
			}
		}
		return nil
	})

	if failure := firstErr(errs); failure != nil {
		e.rollbackCreate(ctx, logicalPath, errs)
		return CreateResult{}, childErr("create", failure)
	}

	ictx := e.Cache.GetOrCreate(inode)
	published := ictx.Publish(d)

	return CreateResult{Attr: primaryAttr, Descriptor: published}, nil
}

// rollbackCreate unlinks every subvolume that successfully created the
// entry in phase 2, plus subvolume 0, so that no partial backend files
// remain after a failed create (P7).
func (e *Engine) rollbackCreate(ctx context.Context, path string, phase2Errs []error) {
	_ = e.primary().Unlink(ctx, path)
	for j, err := range phase2Errs {
		if err == nil {
			_ = e.Subvolumes[j+1].Unlink(ctx, path)
		}
	}
}

// resolveStripeSize invokes the C6 pattern resolver for logicalPath (which
// itself falls back to the configured default stripe size when no rule
// matches, spec §4.6). It returns 0 if no resolver was wired.
func (e *Engine) resolveStripeSize(logicalPath string) int64 {
	if e.StripeSize == nil {
		return 0
	}
	return e.StripeSize(logicalPath)
}
