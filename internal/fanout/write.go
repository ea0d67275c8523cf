package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/offset"
	"github.com/stripefs/stripefs/internal/subvol"
)

// WriteResult is the merged reply of a Write fanout.
type WriteResult struct {
	// N is the contiguous prefix length successfully written from off
	// (spec §4.4.3 step 4, P6 "write atomicity prefix").
	N    int64
	Attr subvol.Iatt
	// Err is the first child error encountered in stripe order, if N < len(data).
	Err error
}

type writeChunkReply struct {
	n   int
	err error
}

// Write decomposes [off, off+len(data)) into per-stripe chunks identically
// to Read, winds each chunk's writev to its owning subvolume, then walks
// the replies in stripe order to compute the contiguous prefix length (spec
// §4.4.3). Open question 3 (spec §9) is resolved here: the decision is made
// by stripe position, not completion order — replies are collected into a
// slice indexed by chunk position and walked in that order regardless of
// which subvolume's goroutine finished first.
func (e *Engine) Write(ctx context.Context, inode inodectx.InodeID, path string, off int64, data []byte) (WriteResult, error) {
	d, ictx, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return WriteResult{}, err
	}
	if err := requireGeometry("write", d); err != nil {
		return WriteResult{}, err
	}
	if needsPreStat(ictx) {
		e.preStat(ctx, path, d)
		ictx.MarkAttrFetched()
	}

	chunks := offset.Decompose(off, int64(len(data)), d.StripeSize, d.StripeCount, d.Coalesce)
	replies := make([]writeChunkReply, len(chunks))

	_ = windAll(ctx, len(chunks), func(ctx context.Context, k int) error {
		c := chunks[k]
		slice := data[c.LogicalStart-off : c.LogicalEnd-off]
		n, err := d.Subvolumes[c.Subvolume].WriteAt(ctx, path, slice, c.BackendOffset)
		replies[k] = writeChunkReply{n: n, err: err}
		return nil
	})

	var total int64
	var firstWriteErr error
	for k, c := range chunks {
		r := replies[k]
		if r.err != nil {
			firstWriteErr = r.err
			break
		}
		total += int64(r.n)
		if int64(r.n) < c.Len() {
			// short write on an otherwise-successful child: stop the
			// contiguous prefix here too, no error to report.
			break
		}
	}

	// Reconcile the reported attr from actual post-write subvolume sizes
	// (spec §4.2 "Size reconciliation"), the same way every other fop does
	// via reconcileAttrs, rather than assuming the write extended the file
	// (wrong for an in-place write into an already-larger file). A stat
	// failure here doesn't change the write's own N/Err — it only means
	// that subvolume contributes a zero attr to the reconciliation.
	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	_ = windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		a, statErr := d.Subvolumes[i].Stat(ctx, path)
		if statErr != nil {
			return statErr
		}
		attrs[i] = a
		return nil
	})
	attr := e.reconcileAttrs(attrs, d)

	if firstWriteErr != nil {
		return WriteResult{N: total, Attr: attr, Err: childErr("write", firstWriteErr)}, nil
	}
	return WriteResult{N: total, Attr: attr}, nil
}
