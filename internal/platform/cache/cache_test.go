package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test", time.Minute), mr
}

func TestFetchJSONPopulatesOnMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "entity", "menus", "id", "7")
	require.NoError(t, err)
	require.Equal(t, "test:entity:menus:id:7:1", key)

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return payload{Name: "users"}, nil
	}

	var first payload
	hit, err := c.FetchJSON(ctx, key, &first, loader)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "users", first.Name)
	require.True(t, mr.Exists(key))

	var second payload
	hit, err = c.FetchJSON(ctx, key, &second, loader)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, first, second)
	require.Equal(t, 1, calls)
}

func TestBumpChangesKeys(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	before, err := c.BuildKey(ctx, "roles", "1")
	require.NoError(t, err)
	ver, err := c.Bump(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), ver)
	after, err := c.BuildKey(ctx, "roles", "1")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestFetchJSONLoaderErrorIsNotCached(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var out payload
	_, err := c.FetchJSON(ctx, "k", &out, func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists("k"))
}

func TestNilClientPassesThrough(t *testing.T) {
	c := New(nil, "", time.Minute)
	ctx := context.Background()

	key, err := c.BuildKey(ctx, "a", "b")
	require.NoError(t, err)
	require.Equal(t, "a:b", key)

	var out payload
	hit, err := c.FetchJSON(ctx, key, &out, func(context.Context) (any, error) { return payload{Name: "x"}, nil })
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "x", out.Name)

	ver, err := c.Bump(ctx)
	require.NoError(t, err)
	require.Zero(t, ver)
}
