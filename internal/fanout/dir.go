package fanout

import (
	"context"
	"path"

	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/subvol"
)

// Opendir fans out to all N subvolumes — directories are replicated, so a
// successful open on every subvolume is required (spec §4.4.10).
func (e *Engine) Opendir(ctx context.Context, dirPath string) error {
	if err := e.requireAllUp("opendir"); err != nil {
		return err
	}
	errs := windAll(ctx, len(e.Subvolumes), func(ctx context.Context, i int) error {
		_, err := e.Subvolumes[i].Stat(ctx, dirPath)
		return err
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("opendir", failure)
	}
	return nil
}

// Fsyncdir fans out to all N subvolumes (spec §4.4.10).
func (e *Engine) Fsyncdir(ctx context.Context, dirPath string) error {
	errs := windAll(ctx, len(e.Subvolumes), func(ctx context.Context, i int) error {
		return e.Subvolumes[i].Fsyncdir(ctx, dirPath)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("fsyncdir", failure)
	}
	return nil
}

// DirEntry is one reconciled directory entry: the raw listing entry plus,
// for regular files, the reconciled size/blocks from a follow-up lookup
// fanout (spec §4.4.10: "for each regular-file entry issues a follow-up
// lookup fan-out to compute the reconciled size/blocks").
type DirEntry struct {
	subvol.DirEntry
	Attr subvol.Iatt
}

// Readdirp reads the raw entry list from a single subvolume (subvolume 0),
// then for each regular-file entry issues a follow-up Lookup fanout to
// compute reconciled size/blocks before returning the full entry list
// (spec §4.4.10).
func (e *Engine) Readdirp(ctx context.Context, dirPath string, nextInode func(name string) inodectx.InodeID) ([]DirEntry, error) {
	entries, err := e.primary().Readdir(ctx, dirPath)
	if err != nil {
		return nil, childErr("readdirp", err)
	}

	out := make([]DirEntry, len(entries))
	_ = windAll(ctx, len(entries), func(ctx context.Context, i int) error {
		ent := entries[i]
		out[i] = DirEntry{DirEntry: ent}
		if ent.Mode.IsRegular() {
			childPath := path.Join(dirPath, ent.Name)
			result, err := e.Lookup(ctx, nextInode(ent.Name), childPath)
			if err == nil {
				out[i].Attr = result.Attr
			}
		}
		return nil
	})
	return out, nil
}
