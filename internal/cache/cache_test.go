package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/artfolio/gallery/internal/photo"
)

func newTestCache(t *testing.T) (*PhotoCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPhotoCache(client, time.Minute), mr
}

func TestPhotoCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	_, gen, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, gen)

	views := []photo.View{{ID: "1", Thumbnail: "t", Fullsize: "f", Width: 10, Height: 20}}
	require.NoError(t, c.Set(ctx, gen, views))

	got, gen2, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, gen, gen2)
	require.Equal(t, views, got)

	require.NoError(t, c.Invalidate(ctx))
	_, gen3, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, gen+1, gen3)
}

func TestPhotoCache_EmptyListIsAHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	require.NoError(t, c.Set(ctx, 0, []photo.View{}))
	got, _, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Empty(t, got)
}

func TestPhotoCache_SetAfterInvalidateIsNeverServed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	// A reader misses and goes to the store.
	_, gen, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// A write commits and invalidates before the reader fills the cache.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, []photo.View{}))

	_, _, ok, err = c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPhotoCache_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.Set(ctx, 0, []photo.View{{ID: "1"}}))
	mr.FastForward(2 * time.Minute)

	_, _, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPhotoCache_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set(listKey(0), "not json"))
	_, _, ok, err := c.Get(ctx)
	require.Error(t, err)
	require.False(t, ok)
}

func TestPhotoCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.SetError("LOADING Redis is loading the dataset in memory")

	_, _, _, err := c.Get(ctx)
	require.Error(t, err)
	require.Error(t, c.Invalidate(ctx))
}
