package geometry

import (
	"context"

	"github.com/stripefs/stripefs/internal/subvol"
	"golang.org/x/sync/errgroup"
)

// DiscoveryResult reports the side effects of a Discover call that the
// caller (the fanout engine's lookup handler) must act on, beyond the
// descriptor itself.
type DiscoveryResult struct {
	// NeedsHeal lists the positions (in the subvolumes slice passed to
	// Discover) of subvolumes missing one or more geometry xattrs — self
	// heal candidates (spec §4.1 step 2, §4.5).
	NeedsHeal []int
}

// Discover implements the discovery protocol (spec §4.1): request all four
// geometry xattrs from all N subvolumes in parallel, validate agreement,
// and assemble the descriptor indexed by each replying subvolume's own
// stripe-index.
func Discover(ctx context.Context, subvolumes []subvol.Subvolume, keys Keys, path string) (*Descriptor, DiscoveryResult, error) {
	replies := make([]xattrReply, len(subvolumes))
	errs := make([]error, len(subvolumes))

	g, gctx := errgroup.WithContext(ctx)
	for i := range subvolumes {
		i := i
		g.Go(func() error {
			reply, err := readXattrs(gctx, subvolumes[i], keys, path)
			replies[i] = reply
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, DiscoveryResult{}, err
		}
	}

	var result DiscoveryResult
	d := &Descriptor{Subvolumes: make([]subvol.Subvolume, len(subvolumes))}
	seeded := false
	anyCoalesce := false
	filled := make([]bool, len(subvolumes))

	for i, reply := range replies {
		if !reply.present {
			result.NeedsHeal = append(result.NeedsHeal, i)
			continue
		}
		if !seeded {
			d.StripeSize = reply.size
			d.StripeCount = reply.count
			seeded = true
		} else if reply.count != d.StripeCount {
			return nil, DiscoveryResult{}, &Error{Op: "lookup", Msg: "stripe-count disagreement across subvolume replies"}
		}
		if reply.coalesce {
			anyCoalesce = true
		}
		if int(reply.index) < 0 || int(reply.index) >= len(subvolumes) {
			return nil, DiscoveryResult{}, &Error{Op: "lookup", Msg: "stripe-index out of range"}
		}
		d.Subvolumes[reply.index] = subvolumes[i]
		filled[reply.index] = true
	}

	if !seeded {
		result.NeedsHeal = allIndices(len(subvolumes))
		d.Degraded = true
		return d, result, nil
	}

	d.Coalesce = anyCoalesce

	for _, f := range filled {
		if !f {
			d.Degraded = true
			break
		}
	}

	return d, result, nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
