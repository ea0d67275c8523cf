// Package heal implements the Self-Heal & Consistency component (C5):
// best-effort recreation of missing stub files on subvolumes that lagged a
// create or lookup, and the degraded-geometry bookkeeping for files whose
// geometry xattrs disagree (spec §4.5). Self-healing of file data itself is
// an explicit Non-goal (spec §1); only structural entries are recreated.
package heal

import (
	"io/fs"

	"github.com/stripefs/stripefs/internal/subvol"
)

// Job is one pending heal: a path whose primary subvolume has the entry but
// one or more others are missing it (spec §4.5 "Missing entry").
type Job struct {
	// Path is the logical path, relative to each subvolume's root.
	Path string

	// Primary is the subvolume known to have a healthy copy, used as the
	// source of truth for mode and ownership.
	Primary subvol.Subvolume

	// Missing lists the subvolumes (and their stripe-index, i.e. position
	// in the geometry's subvolume array) that need the stub recreated.
	Missing []MissingTarget

	// StripeSize and StripeCount are the geometry fields needed to write
	// the recreated stub's geometry xattrs (spec §3.2).
	StripeSize  int64
	StripeCount int32
	Coalesce    bool

	// IsDir distinguishes a missing directory entry from a missing
	// regular-file stub; directories are replicated on all subvolumes
	// (spec §4.4.10) and never carry striping xattrs.
	IsDir bool
}

// MissingTarget is one subvolume missing the entry, along with the stripe
// index it should claim once healed.
type MissingTarget struct {
	Subvolume subvol.Subvolume
	Index     int32
}

// stubMode is the permission bits used for a recreated stub; the primary's
// real mode is applied via Setattr once the stub exists (spec §4.5: "Then
// setattr the stub to the primary's uid/gid").
const stubMode fs.FileMode = 0644
