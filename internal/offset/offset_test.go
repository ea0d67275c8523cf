package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	S = 128 * 1024
	N = 4
)

func TestOwner(t *testing.T) {
	assert.Equal(t, 0, Owner(0, S, N))
	assert.Equal(t, 1, Owner(S, S, N))
	assert.Equal(t, 0, Owner(S*N, S, N))
	assert.Equal(t, 1, Owner(200000, S, N))
}

func TestCoalescedOffset_MonotoneWithinOwner(t *testing.T) {
	// Successive stripes owned by subvolume 0 (offsets 0, S*N, 2*S*N, ...)
	// must map to strictly increasing, contiguous backend offsets (P4).
	var prev int64 = -1
	for line := int64(0); line < 8; line++ {
		off := line * S * N
		got := CoalescedOffset(off, S, N)
		assert.Greater(t, got, prev)
		assert.Equal(t, line*S, got)
		prev = got
	}
}

func TestDecompose_BasicStripeMapping(t *testing.T) {
	// Scenario 1: write 512 KiB at offset 0.
	chunks := Decompose(0, 512*1024, S, N, true)

	assert.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i, c.Subvolume)
		assert.Equal(t, int64(S), c.Len())
		assert.Equal(t, int64(0), c.BackendOffset)
	}
}

func TestDecompose_MidStripeWrite(t *testing.T) {
	// Scenario 2: one byte at offset 200000, owned by subvolume 1.
	chunks := Decompose(200000, 1, S, N, true)

	assert.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Subvolume)
	assert.Equal(t, int64(200000), chunks[0].LogicalStart)
	assert.Equal(t, int64(200001), chunks[0].LogicalEnd)
}

func TestDecompose_SparseLayoutKeepsLogicalOffset(t *testing.T) {
	chunks := Decompose(0, 512*1024, S, N, false)

	for _, c := range chunks {
		assert.Equal(t, c.LogicalStart, c.BackendOffset)
	}
}

func TestReconcileSize_MaxAcrossSubvolumesEqualsLogicalSize(t *testing.T) {
	// A 300000-byte logical file under S=128KiB, N=4: subvolume 0 owns
	// [0,128KiB) and [512KiB,...), subvolume 2 owns the final partial
	// stripe at [256KiB, 300000).
	logicalSize := int64(300000)

	reportedBySubvol := map[int32]int64{
		0: 131072, // one full stripe, no tail
		1: 131072,
		2: 300000 - 2*131072, // its partial stripe
		3: 0,
	}

	var maxReconciled int64
	for idx, reported := range reportedBySubvol {
		r := ReconcileSize(reported, S, N, idx)
		if r > maxReconciled {
			maxReconciled = r
		}
	}

	assert.Equal(t, logicalSize, maxReconciled)
}

func TestTruncateTarget_MidStripe(t *testing.T) {
	// Scenario 4: truncate to 300000, owner of 300000 is subvolume 2.
	T := int64(300000)
	eofIdx := Owner(T, S, N)
	assert.Equal(t, 2, eofIdx)

	for i := int32(0); i < N; i++ {
		target := TruncateTarget(T, S, N, true, i)
		switch {
		case i < int32(eofIdx):
			assert.Equal(t, CoalescedOffset(ceilTo(T, LineSize(S, N)), S, N), target)
		case i == int32(eofIdx):
			assert.Equal(t, CoalescedOffset(T, S, N), target)
		default:
			assert.Equal(t, CoalescedOffset(floorTo(T, LineSize(S, N)), S, N), target)
		}
	}
}

func TestFloorCeilTo(t *testing.T) {
	assert.Equal(t, int64(0), FloorTo(100, 512))
	assert.Equal(t, int64(512), CeilTo(100, 512))
	assert.Equal(t, int64(512), FloorTo(512, 512))
	assert.Equal(t, int64(512), CeilTo(512, 512))
}
