package fuseglue

import (
	"context"
	"io/fs"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stripefs/stripefs/internal/fanout"
	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/heal"
	"github.com/stripefs/stripefs/internal/inodectx"
	"github.com/stripefs/stripefs/internal/metrics"
	"github.com/stripefs/stripefs/internal/subvol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileSystem(t *testing.T) *FileSystem {
	t.Helper()
	svs := make([]subvol.Subvolume, 4)
	for i := range svs {
		svs[i] = subvol.NewFakeSubvolume(string(rune('0' + i)))
	}
	engine, err := fanout.New(svs, geometry.NewKeys("stripe"), inodectx.NewCache(), heal.NewQueue(), metrics.NewNoopMetrics())
	require.NoError(t, err)
	engine.Coalesce = true
	engine.UseXattr = true
	engine.StripeSize = func(string) int64 { return 128 * 1024 }
	return New(engine, 0, 0)
}

func TestCreateFile_AssignsInodeAndAttributes(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	op := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, op))
	assert.NotZero(t, op.Entry.Child)
	assert.Equal(t, uint64(0), op.Entry.Attributes.Size)
}

func TestWriteThenReadFile_RoundTrips(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createOp))

	data := []byte("hello stripefs")
	writeOp := &fuseops.WriteFileOp{Inode: createOp.Entry.Child, Offset: 0, Data: data}
	require.NoError(t, fsys.WriteFile(ctx, writeOp))

	buf := make([]byte, len(data))
	readOp := &fuseops.ReadFileOp{Inode: createOp.Entry.Child, Offset: 0, Dst: buf}
	require.NoError(t, fsys.ReadFile(ctx, readOp))
	assert.Equal(t, len(data), readOp.BytesRead)
	assert.Equal(t, data, buf)
}

func TestLookUpInode_ReusesSameIDOnRepeat(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createOp))

	op1 := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "f"}
	require.NoError(t, fsys.LookUpInode(ctx, op1))
	op2 := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "f"}
	require.NoError(t, fsys.LookUpInode(ctx, op2))

	assert.Equal(t, op1.Entry.Child, op2.Entry.Child)
	assert.Equal(t, createOp.Entry.Child, op1.Entry.Child)
}

// LookUpInode must resolve geometry under the looked-up path's own inode
// id, not a shared placeholder — a second, different file looked up after
// the first must get its own geometry cache entry rather than silently
// reusing the first file's descriptor (regression test for the
// Stat(InodeID(0))-instead-of-Lookup defect).
func TestLookUpInode_ResolvesDistinctGeometryPerFile(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	createA := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createA))
	createB := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "b", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createB))

	lookupA := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "a"}
	require.NoError(t, fsys.LookUpInode(ctx, lookupA))
	lookupB := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "b"}
	require.NoError(t, fsys.LookUpInode(ctx, lookupB))

	assert.NotEqual(t, lookupA.Entry.Child, lookupB.Entry.Child)

	ictxA, ok := fsys.Engine.Cache.Get(inodectx.InodeID(lookupA.Entry.Child))
	require.True(t, ok)
	ictxB, ok := fsys.Engine.Cache.Get(inodectx.InodeID(lookupB.Entry.Child))
	require.True(t, ok)
	assert.NotSame(t, ictxA, ictxB, "each looked-up file must own its own geometry cache entry")
}

func TestMkDir_ThenOpenDirReadDir_ListsChild(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	mkdirOp := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "d", Mode: fs.ModeDir | 0755}
	require.NoError(t, fsys.MkDir(ctx, mkdirOp))

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createOp))

	openOp := &fuseops.OpenDirOp{Inode: fuseops.RootInodeID}
	require.NoError(t, fsys.OpenDir(ctx, openOp))

	dh, ok := fsys.dirHandles[openOp.Handle]
	require.True(t, ok)
	names := make([]string, 0, len(dh.entries))
	for _, e := range dh.entries {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "d")
	assert.Contains(t, names, "f")
}

func TestForgetInode_EvictsPathTableEntry(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createOp))
	id := createOp.Entry.Child

	require.NoError(t, fsys.ForgetInode(ctx, &fuseops.ForgetInodeOp{ID: id, N: 1}))

	fsys.mu.Lock()
	_, ok := fsys.pathFor(id)
	fsys.mu.Unlock()
	assert.False(t, ok, "path table entry should be evicted once lookup count hits zero")
}

func TestGetXattr_ReadsStripeCount(t *testing.T) {
	fsys := newTestFileSystem(t)
	ctx := context.Background()

	createOp := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fsys.CreateFile(ctx, createOp))

	buf := make([]byte, 4)
	op := &fuseops.GetXattrOp{Inode: createOp.Entry.Child, Name: "stripe-count", Dst: buf}
	require.NoError(t, fsys.GetXattr(ctx, op))
	assert.Equal(t, 4, op.BytesRead)
}
