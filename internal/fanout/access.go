package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/subvol"
)

// Access fans out to the primary subvolume only, matching the original C
// translator's stripe_access (SPEC_FULL §3 "access(2) passthrough"): since
// permission bits are replicated identically across all subvolumes at
// create/setattr time, a single child's answer is authoritative.
func (e *Engine) Access(ctx context.Context, path string) (subvol.Iatt, error) {
	attr, err := e.primary().Stat(ctx, path)
	if err != nil {
		return subvol.Iatt{}, childErr("access", err)
	}
	return attr, nil
}
