// Package subvol is the opaque backend storage collaborator (spec §1: "the
// per-subvolume RPC client below"). The fanout engine only ever calls
// Subvolume.Fop-shaped methods and receives a result or an error; it never
// reasons about what is on the other side. This package's local-disk
// implementation is the one concrete backend the translator ships with —
// every subvolume is a directory tree on local disk, addressed by a path
// relative to its root, with geometry metadata stored as real xattrs.
package subvol

import (
	"context"
	"io/fs"
	"time"
)

// Iatt is the engine's own attribute struct (spec §9: kept independent of
// any specific protocol binding's attribute type, e.g. fuseops's, so the
// core never takes on a dependency it doesn't need).
type Iatt struct {
	Ino    uint64
	Size   int64
	Blocks int64
	Mode   fs.FileMode
	Nlink  uint32
	Uid    uint32
	Gid    uint32
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name string
	Ino  uint64
	Mode fs.FileMode
}

// FSStat is the aggregate filesystem-level statistics used by StatFS
// (SPEC_FULL §3 supplemented feature).
type FSStat struct {
	BlocksTotal int64
	BlocksFree  int64
	InodesTotal int64
	InodesFree  int64
	// BlockSize is the unit BlocksTotal/BlocksFree are expressed in.
	BlockSize int64
}

// LockType enumerates the posix-lock fop's lock kinds (spec §4.4.9).
type LockType int

const (
	LockShared LockType = iota
	LockExclusive
	LockUnlock
)

// FallocateMode mirrors the subset of FALLOC_FL_* flags the engine's
// discard/zerofill fops need (spec §4.4.5).
type FallocateMode int

const (
	FallocateAllocate FallocateMode = iota
	FallocatePunchHole
	FallocateZeroRange
)

// Subvolume is one opaque backend storage endpoint. All paths passed in are
// relative to the subvolume's own root; the subvolume never sees the
// logical (pre-fanout) path, only its own addressing of the same file.
type Subvolume interface {
	// Root returns an identifier for the subvolume, used only in pathinfo
	// strings (spec §6.3) and diagnostics; never parsed by the engine.
	Root() string

	Lookup(ctx context.Context, path string) (Iatt, error)
	Stat(ctx context.Context, path string) (Iatt, error)

	Create(ctx context.Context, path string, mode fs.FileMode) (Iatt, error)
	Mkdir(ctx context.Context, path string, mode fs.FileMode) (Iatt, error)
	Unlink(ctx context.Context, path string) error
	Rmdir(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Link(ctx context.Context, oldPath, newPath string) error

	Truncate(ctx context.Context, path string, size int64) (Iatt, error)
	ReadAt(ctx context.Context, path string, buf []byte, off int64) (int, error)
	WriteAt(ctx context.Context, path string, data []byte, off int64) (int, error)
	Fallocate(ctx context.Context, path string, mode FallocateMode, off, length int64) error

	Setattr(ctx context.Context, path string, uid, gid int32, mode *fs.FileMode) (Iatt, error)
	Fsync(ctx context.Context, path string) error

	Getxattr(ctx context.Context, path, name string) ([]byte, error)
	Setxattr(ctx context.Context, path, name string, value []byte) error
	Listxattr(ctx context.Context, path string) ([]string, error)

	Readdir(ctx context.Context, path string) ([]DirEntry, error)
	Fsyncdir(ctx context.Context, path string) error

	Lock(ctx context.Context, path string, lockType LockType) error

	StatFS(ctx context.Context) (FSStat, error)

	// Pathinfo is a diagnostic identifier for the backend file at path,
	// aggregated by the fanout engine into the translator-wide pathinfo
	// string (spec §6.3).
	Pathinfo(path string) string
}
