package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/offset"
	"github.com/stripefs/stripefs/internal/subvol"
)

// ReadResult is the merged reply of a Read fanout.
type ReadResult struct {
	Data []byte
	Attr subvol.Iatt
}

type readChunkReply struct {
	data []byte
	n    int
	err  error
}

// Read decomposes [off, off+length) into per-stripe chunks, winds each to
// its owning subvolume, merges replies in stripe order, and zero-fills any
// short-read gap implied by the reconciled logical size (spec §4.4.2).
func (e *Engine) Read(ctx context.Context, inode inodectx.InodeID, path string, off, length int64) (ReadResult, error) {
	d, _, err := e.resolveGeometry(ctx, inode, path)
	if err != nil {
		return ReadResult{}, err
	}
	if err := requireGeometry("read", d); err != nil {
		return ReadResult{}, err
	}

	chunks := offset.Decompose(off, length, d.StripeSize, d.StripeCount, d.Coalesce)
	replies := make([]readChunkReply, len(chunks))

	errs := windAll(ctx, len(chunks), func(ctx context.Context, k int) error {
		c := chunks[k]
		buf := make([]byte, c.Len())
		n, err := d.Subvolumes[c.Subvolume].ReadAt(ctx, path, buf, c.BackendOffset)
		replies[k] = readChunkReply{data: buf, n: n}
		if err != nil {
			replies[k].err = err
			return err
		}
		return nil
	})
	if err := firstErr(errs); err != nil {
		return ReadResult{}, childErr("read", err)
	}

	anyShort := false
	for k, c := range chunks {
		if int64(replies[k].n) < c.Len() {
			anyShort = true
			break
		}
	}
	var logicalSize int64
	if anyShort {
		logicalSize = e.reconcileSizeFanout(ctx, d, path)
	} else {
		logicalSize = off + length
	}

	merged := make([]byte, 0, length)
	for k, c := range chunks {
		r := replies[k]
		got := r.data[:r.n]
		merged = append(merged, got...)
		if int64(r.n) < c.Len() {
			gapStart := c.LogicalStart + int64(r.n)
			gapEnd := c.LogicalEnd
			if gapEnd > logicalSize {
				gapEnd = logicalSize
			}
			if gapEnd > gapStart {
				merged = append(merged, make([]byte, gapEnd-gapStart)...)
			}
		}
	}

	attr := subvol.Iatt{Size: logicalSize}
	return ReadResult{Data: merged, Attr: attr}, nil
}

// reconcileSizeFanout issues a fstat fanout to all subvolumes and returns
// the maximum reconciled logical size across replies (spec §4.2 "Size
// reconciliation", invoked from the read path per §4.4.2 step 4 when a
// short read suggests more bytes should exist).
func (e *Engine) reconcileSizeFanout(ctx context.Context, d *geometry.Descriptor, path string) int64 {
	attrs := make([]subvol.Iatt, len(d.Subvolumes))
	_ = windAll(ctx, len(d.Subvolumes), func(ctx context.Context, i int) error {
		a, err := d.Subvolumes[i].Stat(ctx, path)
		if err == nil {
			attrs[i] = a
		}
		return nil
	})
	var maxSize int64
	for i, a := range attrs {
		size := a.Size
		if d.Coalesce {
			size = offset.ReconcileSize(a.Size, d.StripeSize, d.StripeCount, int32(i))
		}
		if size > maxSize {
			maxSize = size
		}
	}
	return maxSize
}
