package inodectx

import (
	"sync"
	"testing"

	"github.com/stripefs/stripefs/internal/geometry"
	"github.com/stretchr/testify/assert"
)

func TestPublish_FirstWriterWins(t *testing.T) {
	cache := NewCache()
	ctx := cache.GetOrCreate(InodeID(1))

	d1 := &geometry.Descriptor{StripeSize: 1}
	d2 := &geometry.Descriptor{StripeSize: 2}

	got1 := ctx.Publish(d1)
	got2 := ctx.Publish(d2)

	assert.Same(t, d1, got1)
	assert.Same(t, d1, got2)
	assert.Same(t, d1, ctx.Geometry())
}

func TestPublish_ConcurrentPublishOnlyOneWins(t *testing.T) {
	cache := NewCache()
	ctx := cache.GetOrCreate(InodeID(1))

	const n = 50
	var wg sync.WaitGroup
	results := make([]*geometry.Descriptor, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := &geometry.Descriptor{StripeSize: int64(i)}
			results[i] = ctx.Publish(d)
		}()
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		assert.Same(t, first, r)
	}
}

func TestPurge_AllowsRepublish(t *testing.T) {
	cache := NewCache()
	ctx := cache.GetOrCreate(InodeID(1))
	d1 := &geometry.Descriptor{StripeSize: 1}
	ctx.Publish(d1)

	ctx.Purge()
	assert.Nil(t, ctx.Geometry())

	d2 := &geometry.Descriptor{StripeSize: 2}
	got := ctx.Publish(d2)
	assert.Same(t, d2, got)
}

func TestLookupCount_EvictsCacheOnZero(t *testing.T) {
	cache := NewCache()
	ctx := cache.GetOrCreate(InodeID(1))
	ctx.IncrementLookupCount()
	ctx.IncrementLookupCount()

	assert.Equal(t, 1, cache.Len())

	destroyed := ctx.DecrementLookupCount(1)
	assert.False(t, destroyed)
	assert.Equal(t, 1, cache.Len())

	destroyed = ctx.DecrementLookupCount(1)
	assert.True(t, destroyed)
	assert.Equal(t, 0, cache.Len())
}

func TestLookupCount_PanicsOnOverdecrement(t *testing.T) {
	cache := NewCache()
	ctx := cache.GetOrCreate(InodeID(1))
	ctx.IncrementLookupCount()

	assert.Panics(t, func() { ctx.DecrementLookupCount(2) })
}

func TestGetOrCreate_ReturnsSameContext(t *testing.T) {
	cache := NewCache()
	a := cache.GetOrCreate(InodeID(1))
	b := cache.GetOrCreate(InodeID(1))
	assert.Same(t, a, b)
}
