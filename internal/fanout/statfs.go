package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/subvol"
)

// StatFS sums block/inode counts across all children (SPEC_FULL §3
// "statfs aggregation", original C translator's stripe_statfs), requiring
// all subvolumes up like the other namespace-metadata fops (spec §4.4.7
// availability class).
func (e *Engine) StatFS(ctx context.Context) (subvol.FSStat, error) {
	if err := e.requireAllUp("statfs"); err != nil {
		return subvol.FSStat{}, err
	}

	stats := make([]subvol.FSStat, len(e.Subvolumes))
	errs := windAll(ctx, len(e.Subvolumes), func(ctx context.Context, i int) error {
		s, err := e.Subvolumes[i].StatFS(ctx)
		if err != nil {
			return err
		}
		stats[i] = s
		return nil
	})
	if err := firstErr(errs); err != nil {
		return subvol.FSStat{}, childErr("statfs", err)
	}

	var agg subvol.FSStat
	agg.BlockSize = stats[0].BlockSize
	for _, s := range stats {
		agg.BlocksTotal += s.BlocksTotal
		agg.BlocksFree += s.BlocksFree
		agg.InodesTotal += s.InodesTotal
		agg.InodesFree += s.InodesFree
	}
	return agg, nil
}
