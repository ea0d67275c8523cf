// Package geometry implements the Geometry Descriptor (C1): the immutable
// per-file record of stripe size, stripe count, the ordered subvolume
// array, and the coalesce flag, plus its discovery and creation protocols
// (spec §3.1, §4.1).
package geometry

import (
	"fmt"

	"github.com/stripefs/stripefs/internal/subvol"
)

// Descriptor is the immutable geometry record published to the inode
// context cache (spec invariant G1: immutable once published).
type Descriptor struct {
	StripeSize  int64
	StripeCount int32
	Coalesce    bool
	// Subvolumes is ordered by stripe index: Subvolumes[i] owns stripe i
	// (invariant G2: no duplicates, total ordering is the ownership math).
	Subvolumes []subvol.Subvolume

	// Degraded is set when discovery could not fill every slot in
	// Subvolumes; fops that require full geometry must fail fast with a
	// geometry error rather than operate on a partial array (spec §4.5).
	Degraded bool
}

// LineSize is S*N, the repeating unit of the stripe pattern (spec §4.2).
func (d *Descriptor) LineSize() int64 {
	return d.StripeSize * int64(d.StripeCount)
}

// Error is the geometry-error taxonomy entry (spec §7): a consistency
// error, or an absent/invalid descriptor at a fop requiring one.
type Error struct {
	Op  string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("geometry error during %s: %s", e.Op, e.Msg)
}

// NewCreateDescriptor builds the descriptor for a newly created file: stripe
// size resolved by the C6 pattern resolver, stripe_count == len(subvolumes),
// coalesce from global config (spec §4.1 creation protocol step 1).
func NewCreateDescriptor(stripeSize int64, subvolumes []subvol.Subvolume, coalesce bool) *Descriptor {
	return &Descriptor{
		StripeSize:  stripeSize,
		StripeCount: int32(len(subvolumes)),
		Coalesce:    coalesce,
		Subvolumes:  subvolumes,
	}
}
