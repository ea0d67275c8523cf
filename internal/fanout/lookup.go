package fanout

import (
	"context"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/logger"
	"github.com/stripefs/stripefs/internal/offset"
	"github.com/stripefs/stripefs/internal/subvol"
)

// LookupResult is the merged reply of a Lookup fanout.
type LookupResult struct {
	Attr     subvol.Iatt
	Xattrs   map[string][]byte
	Degraded bool
}

// lookupReply is one child's raw reply, collected before merging.
type lookupReply struct {
	attr    subvol.Iatt
	xattrs  map[string][]byte
	present bool
	err     error
}

// Lookup fans out to all N subvolumes in parallel, reconciles size/blocks,
// verifies gfid (ino) equality, merges xattr dicts, schedules self-heal on
// partial ENOENT, and publishes the discovered geometry on first success
// (spec §4.4.1).
func (e *Engine) Lookup(ctx context.Context, inode inodectx.InodeID, path string) (LookupResult, error) {
	d, _, gerr := e.resolveGeometry(ctx, inode, path)
	if gerr != nil {
		return LookupResult{}, gerr
	}

	replies := make([]lookupReply, len(e.Subvolumes))
	errs := windAll(ctx, len(e.Subvolumes), func(ctx context.Context, i int) error {
		attr, err := e.Subvolumes[i].Stat(ctx, path)
		if err != nil {
			replies[i] = lookupReply{err: err}
			return err
		}
		xattrs, _ := fetchAllXattrs(ctx, e.Subvolumes[i], path)
		replies[i] = lookupReply{attr: attr, xattrs: xattrs, present: true}
		return nil
	})

	var missing []int
	var primaryErr error
	gfid := uint64(0)
	gfidSet := false
	maxSize := int64(0)
	var blocks int64
	merged := map[string][]byte{}

	for i, err := range errs {
		if err != nil {
			if i == 0 {
				primaryErr = err
				continue
			}
			if isNotExist(err) {
				missing = append(missing, i)
				continue
			}
			return LookupResult{}, childErr("lookup", err)
		}
		r := replies[i]
		if !gfidSet {
			gfid = r.attr.Ino
			gfidSet = true
		} else if r.attr.Ino != gfid {
			logger.Warnf("lookup %q: gfid mismatch on subvolume %d (got %d, want %d)", path, i, r.attr.Ino, gfid)
		}
		blocks += r.attr.Blocks
		size := r.attr.Size
		if d != nil && d.Coalesce {
			size = offset.ReconcileSize(r.attr.Size, d.StripeSize, d.StripeCount, int32(i))
		}
		if size > maxSize {
			maxSize = size
		}
		mergeXattrs(merged, r.xattrs)
	}

	if primaryErr != nil {
		return LookupResult{}, childErr("lookup", primaryErr)
	}

	if len(missing) > 0 {
		if d != nil {
			e.scheduleEntryHeal(path, d, missing, false)
		}
	}

	primary := replies[0].attr
	primary.Size = maxSize
	primary.Blocks = blocks

	return LookupResult{Attr: primary, Xattrs: merged, Degraded: d != nil && d.Degraded}, nil
}

// fetchAllXattrs reads every xattr name reported by Listxattr, for merging
// into the lookup reply's xattr dict (spec §4.4.1).
func fetchAllXattrs(ctx context.Context, sv subvol.Subvolume, path string) (map[string][]byte, error) {
	names, err := sv.Listxattr(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(names))
	for _, name := range names {
		v, err := sv.Getxattr(ctx, path, name)
		if err != nil {
			continue
		}
		out[name] = v
	}
	return out, nil
}

// quotaSizeXattr is the well-known key whose values are summed across
// children rather than overwritten (spec §4.4.11 "quota-size").
const quotaSizeXattr = "trusted.glusterfs.quota.size"

// contentXattr is never merged across children (spec §4.4.1: "glusterfs.
// content is not merged") — the primary's copy wins.
const contentXattr = "glusterfs.content"

func mergeXattrs(dst map[string][]byte, src map[string][]byte) {
	for k, v := range src {
		if k == contentXattr {
			if _, ok := dst[k]; !ok {
				dst[k] = v
			}
			continue
		}
		if k == quotaSizeXattr {
			dst[k] = sumBigEndian(dst[k], v)
			continue
		}
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
}

func sumBigEndian(a, b []byte) []byte {
	av := decodeUint64BE(a)
	bv := decodeUint64BE(b)
	out := make([]byte, 8)
	encodeUint64BE(out, av+bv)
	return out
}

func decodeUint64BE(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func encodeUint64BE(out []byte, v uint64) {
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
}
