package fanout

import (
	"context"
	"io/fs"

	"github.com/stripefs/stripefs/internal/subvol"
)

// Mkdir requires all subvolumes up, winds to subvolume 0 first, then fans
// out to the remainder in parallel; directories are replicated rather than
// striped (spec §4.4.7, §4.4.10).
func (e *Engine) Mkdir(ctx context.Context, path string, mode fs.FileMode) (subvol.Iatt, error) {
	if err := e.requireAllUp("mkdir"); err != nil {
		return subvol.Iatt{}, err
	}
	attr, err := e.primary().Mkdir(ctx, path, mode)
	if err != nil {
		return subvol.Iatt{}, childErr("mkdir", err)
	}
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		_, err := rest[j].Mkdir(ctx, path, mode)
		return err
	})
	if failure := firstErr(errs); failure != nil {
		return subvol.Iatt{}, childErr("mkdir", failure)
	}
	return attr, nil
}

// Rmdir requires all subvolumes up, winds to subvolume 0 first, then fans
// out to the remainder (spec §4.4.7).
func (e *Engine) Rmdir(ctx context.Context, path string) error {
	if err := e.requireAllUp("rmdir"); err != nil {
		return err
	}
	if err := e.primary().Rmdir(ctx, path); err != nil {
		return childErr("rmdir", err)
	}
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		return rest[j].Rmdir(ctx, path)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("rmdir", failure)
	}
	return nil
}

// Unlink requires all subvolumes up, winds to subvolume 0 first, then fans
// out to the remainder (spec §4.4.7).
func (e *Engine) Unlink(ctx context.Context, path string) error {
	if err := e.requireAllUp("unlink"); err != nil {
		return err
	}
	if err := e.primary().Unlink(ctx, path); err != nil {
		return childErr("unlink", err)
	}
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		return rest[j].Unlink(ctx, path)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("unlink", failure)
	}
	return nil
}

// Rename requires all subvolumes up, winds to subvolume 0 first, then fans
// out to the remainder. If the source is a striped regular file, the
// geometry descriptor travels with the inode unchanged — no rediscovery is
// performed (spec §4.4.7: "no geometry change is performed").
func (e *Engine) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := e.requireAllUp("rename"); err != nil {
		return err
	}
	if err := e.primary().Rename(ctx, oldPath, newPath); err != nil {
		return childErr("rename", err)
	}
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		return rest[j].Rename(ctx, oldPath, newPath)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("rename", failure)
	}
	return nil
}

// Link requires all subvolumes up, winds to subvolume 0 first, then fans
// out to the remainder (spec §4.4.7 fop class).
func (e *Engine) Link(ctx context.Context, oldPath, newPath string) error {
	if err := e.requireAllUp("link"); err != nil {
		return err
	}
	if err := e.primary().Link(ctx, oldPath, newPath); err != nil {
		return childErr("link", err)
	}
	rest := e.Subvolumes[1:]
	errs := windAll(ctx, len(rest), func(ctx context.Context, j int) error {
		return rest[j].Link(ctx, oldPath, newPath)
	})
	if failure := firstErr(errs); failure != nil {
		return childErr("link", failure)
	}
	return nil
}
