package geometry

import (
	"context"
	"testing"

	"github.com/stripefs/stripefs/internal/subvol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSubvolumes(t *testing.T, n int, stripeSize int64, coalesce bool) ([]subvol.Subvolume, Keys) {
	t.Helper()
	keys := NewKeys("stripe")
	svs := make([]subvol.Subvolume, n)
	ctx := context.Background()
	for i := 0; i < n; i++ {
		sv := subvol.NewFakeSubvolume("sv" + string(rune('0'+i)))
		_, err := sv.Create(ctx, "/file", 0644)
		require.NoError(t, err)
		d := &Descriptor{StripeSize: stripeSize, StripeCount: int32(n), Coalesce: coalesce}
		require.NoError(t, WriteXattrs(ctx, sv, keys, "/file", d, int32(i)))
		svs[i] = sv
	}
	return svs, keys
}

func TestDiscover_HealthyFile(t *testing.T) {
	svs, keys := seedSubvolumes(t, 4, 128*1024, true)

	d, result, err := Discover(context.Background(), svs, keys, "/file")

	require.NoError(t, err)
	assert.False(t, d.Degraded)
	assert.Empty(t, result.NeedsHeal)
	assert.Equal(t, int64(128*1024), d.StripeSize)
	assert.EqualValues(t, 4, d.StripeCount)
	assert.True(t, d.Coalesce)
	for i := 0; i < 4; i++ {
		assert.Equal(t, svs[i], d.Subvolumes[i])
	}
}

func TestDiscover_MissingSubvolumeTriggersHeal(t *testing.T) {
	svs, keys := seedSubvolumes(t, 4, 128*1024, false)
	// sv2 never saw the file at all.
	fake := svs[2].(*subvol.FakeSubvolume)
	assert.NoError(t, fake.Unlink(context.Background(), "/file"))

	d, result, err := Discover(context.Background(), svs, keys, "/file")

	require.NoError(t, err)
	assert.True(t, d.Degraded)
	assert.Contains(t, result.NeedsHeal, 2)
}

func TestDiscover_StripeCountDisagreementFails(t *testing.T) {
	svs, keys := seedSubvolumes(t, 4, 128*1024, false)
	ctx := context.Background()
	bad := &Descriptor{StripeSize: 128 * 1024, StripeCount: 3, Coalesce: false}
	require.NoError(t, WriteXattrs(ctx, svs[1], keys, "/file", bad, 1))

	_, _, err := Discover(ctx, svs, keys, "/file")

	assert.Error(t, err)
	var gerr *Error
	assert.ErrorAs(t, err, &gerr)
}

func TestDiscover_CoalesceDefaultsFalseWhenAbsentEverywhere(t *testing.T) {
	svs, keys := seedSubvolumes(t, 2, 128*1024, false)

	d, _, err := Discover(context.Background(), svs, keys, "/file")

	require.NoError(t, err)
	assert.False(t, d.Coalesce)
}
