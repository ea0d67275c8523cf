// Package fuseglue is the thin fuseops.FileSystem adapter boundary: it
// translates kernel fop requests into inodectx.InodeID/logical-path calls
// against a *fanout.Engine and translates the engine's subvol.Iatt replies
// back into fuseops.InodeAttributes. It deliberately knows nothing about
// striping, geometry, or self-heal — every one of those concerns lives in
// internal/fanout, internal/geometry, and internal/heal. This mirrors the
// teacher's fs.fileSystem, which is itself a thin fuseops.FileSystem
// wrapping gcsfuse's own inode package; the difference here is that this
// translator's "inode" is a path in a real directory tree, not a GCS
// object, so the table below tracks paths rather than GCS generations.
package fuseglue

import (
	"context"
	"fmt"
	"sync"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stripefs/stripefs/internal/fanout"
	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/subvol"
)

// fuseErrNoEnt is returned when the path table has no entry for a
// fuseops.InodeID the kernel referenced; this should only happen if the
// kernel races a forget against a concurrent op, which jacobsa/fuse's
// dispatcher already serializes against per inode.
var fuseErrNoEnt = syscall.ENOENT

// FileSystem implements fuseops.FileSystem over a fanout.Engine. The kernel
// addresses files by fuseops.InodeID; the engine addresses them by logical
// path plus inodectx.InodeID (spec §1's "inode table... is a collaborator
// consumed, not owned" — this struct IS that collaborator). One FileSystem
// serves one mount.
type FileSystem struct {
	Engine *fanout.Engine
	Uid    uint32
	Gid    uint32

	// mu guards the path table and handle tables. Held only for the brief
	// bookkeeping around each op, never across an Engine call — the same
	// discipline as the teacher's fs.mu (spec §5: never hold the table lock
	// across a backend RPC).
	mu sync.Mutex

	pathOf    map[fuseops.InodeID]string
	inodeOf   map[string]fuseops.InodeID
	isDirOf   map[fuseops.InodeID]bool
	nextInode fuseops.InodeID

	dirHandles map[fuseops.HandleID]*dirHandle
	nextHandle fuseops.HandleID
}

// New wires a FileSystem over engine, seeding the path table with the root
// inode (spec's root directory, always present).
func New(engine *fanout.Engine, uid, gid uint32) *FileSystem {
	fs := &FileSystem{
		Engine:     engine,
		Uid:        uid,
		Gid:        gid,
		pathOf:     make(map[fuseops.InodeID]string),
		inodeOf:    make(map[string]fuseops.InodeID),
		isDirOf:    make(map[fuseops.InodeID]bool),
		nextInode:  fuseops.RootInodeID + 1,
		dirHandles: make(map[fuseops.HandleID]*dirHandle),
	}
	fs.pathOf[fuseops.RootInodeID] = "/"
	fs.inodeOf["/"] = fuseops.RootInodeID
	fs.isDirOf[fuseops.RootInodeID] = true
	fs.Engine.Cache.GetOrCreate(inodectx.InodeID(fuseops.RootInodeID)).IncrementLookupCount()
	return fs
}

func (fs *FileSystem) Init(ctx context.Context, op *fuseops.InitOp) error {
	return nil
}

func (fs *FileSystem) Destroy() {}

// pathFor returns the logical path registered for id. Callers must hold fs.mu.
func (fs *FileSystem) pathFor(id fuseops.InodeID) (string, bool) {
	p, ok := fs.pathOf[id]
	return p, ok
}

// assignInode returns the existing inode for path, or allocates and
// registers a new one (spec's inode-table collaborator: "same underlying
// file looked up twice gets the same inode ID").
func (fs *FileSystem) assignInode(path string, isDir bool) fuseops.InodeID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.inodeOf[path]; ok {
		return id
	}
	id := fs.nextInode
	fs.nextInode++
	fs.pathOf[id] = path
	fs.inodeOf[path] = id
	fs.isDirOf[id] = isDir
	return id
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// attrFromIatt converts the engine's backend-agnostic attribute struct into
// fuseops.InodeAttributes (spec §9: "the core never takes on a dependency
// it doesn't need" — subvol.Iatt is the boundary, this is the only place
// that crosses it).
func attrFromIatt(a subvol.Iatt) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   uint64(a.Size),
		Nlink:  a.Nlink,
		Mode:   a.Mode,
		Uid:    a.Uid,
		Gid:    a.Gid,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Ctime,
	}
}

// toErrno maps an engine error to the errno the kernel expects, unwrapping
// fanout.Error (spec §7); anything else is reported as EIO via fuse's
// generic translation.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*fanout.Error); ok {
		return fe.Errno
	}
	return fmt.Errorf("fuseglue: %w", err)
}
