package heal

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/stripefs/stripefs/internal/clock"
	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stripefs/stripefs/internal/metrics"
	"github.com/stripefs/stripefs/internal/subvol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = geometry.NewKeys("stripe")

func TestHealOne_RecreatesMissingFileStub(t *testing.T) {
	primary := subvol.NewFakeSubvolume("sv0")
	missing := subvol.NewFakeSubvolume("sv1")

	ctx := context.Background()
	_, err := primary.Create(ctx, "/a/b.txt", 0600)
	require.NoError(t, err)
	_, err = primary.Setattr(ctx, "/a/b.txt", 42, 7, nil)
	require.NoError(t, err)

	job := Job{
		Path:        "/a/b.txt",
		Primary:     primary,
		Missing:     []MissingTarget{{Subvolume: missing, Index: 1}},
		StripeSize:  65536,
		StripeCount: 2,
		Coalesce:    false,
	}

	err = HealOne(ctx, testKeys, job)
	require.NoError(t, err)

	attr, err := missing.Stat(ctx, "/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), attr.Uid)
	assert.Equal(t, uint32(7), attr.Gid)

	idxRaw, err := missing.Getxattr(ctx, "/a/b.txt", testKeys.Index)
	require.NoError(t, err)
	assert.Len(t, idxRaw, 4)
}

func TestHealOne_RecreatesMissingDirectoryWithoutXattrs(t *testing.T) {
	primary := subvol.NewFakeSubvolume("sv0")
	missing := subvol.NewFakeSubvolume("sv1")
	ctx := context.Background()

	_, err := primary.Mkdir(ctx, "/a", 0750|fs.ModeDir)
	require.NoError(t, err)

	job := Job{Path: "/a", Primary: primary, Missing: []MissingTarget{{Subvolume: missing, Index: 1}}, IsDir: true}

	require.NoError(t, HealOne(ctx, testKeys, job))

	_, err = missing.Lookup(ctx, "/a")
	require.NoError(t, err)
	_, err = missing.Getxattr(ctx, "/a", testKeys.Index)
	assert.Error(t, err, "directories never carry striping xattrs")
}

func TestHealOne_PropagatesBackendFailure(t *testing.T) {
	primary := subvol.NewFakeSubvolume("sv0")
	missing := subvol.NewFakeSubvolume("sv1")
	ctx := context.Background()

	_, err := primary.Create(ctx, "/a/b.txt", 0600)
	require.NoError(t, err)

	missing.Fail("create", assert.AnError)
	job := Job{Path: "/a/b.txt", Primary: primary, Missing: []MissingTarget{{Subvolume: missing, Index: 1}}, StripeCount: 2}

	err = HealOne(ctx, testKeys, job)
	assert.Error(t, err)
}

func TestWorker_SweepDrainsQueueOnTick(t *testing.T) {
	primary := subvol.NewFakeSubvolume("sv0")
	missing := subvol.NewFakeSubvolume("sv1")
	ctx := context.Background()
	_, err := primary.Create(ctx, "/f", 0600)
	require.NoError(t, err)

	q := NewQueue()
	q.Schedule(Job{Path: "/f", Primary: primary, Missing: []MissingTarget{{Subvolume: missing, Index: 1}}, StripeCount: 2})
	require.Equal(t, 1, q.Len())

	simClock := clock.NewSimulatedClock(time.Unix(0, 0))
	w := &Worker{Queue: q, Keys: testKeys, Clock: simClock, Period: time.Second, Metrics: metrics.NewNoopMetrics()}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		w.Run(runCtx)
		close(done)
	}()

	simClock.AdvanceTime(time.Second)
	assert.Eventually(t, func() bool { return q.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	<-done

	_, err = missing.Stat(ctx, "/f")
	assert.NoError(t, err)
}
