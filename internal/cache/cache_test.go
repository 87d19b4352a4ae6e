package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestCache_Aside(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]item) func() (bool, error) {
		return func() (bool, error) {
			calls++
			*dest = []item{{ID: 1, Name: "one"}}
			return true, nil
		}
	}

	var first []item
	require.NoError(t, c.Aside(ctx, "items", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("items"))

	var second []item
	require.NoError(t, c.Aside(ctx, "items", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, calls, "second call is served from cache")
	assert.Equal(t, first, second)

	mr.FastForward(2 * time.Minute)
	var third []item
	require.NoError(t, c.Aside(ctx, "items", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestCache_AsideSkipsStoreWhenToldTo(t *testing.T) {
	c, mr := setupCache(t)

	var dest []item
	err := c.Aside(context.Background(), "degraded", &dest, time.Minute, func() (bool, error) {
		dest = []item{{ID: 9}}
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("degraded"))
	assert.Len(t, dest, 1)
}

func TestCache_AsidePropagatesFetchError(t *testing.T) {
	c, mr := setupCache(t)
	boom := errors.New("db down")

	var dest []item
	err := c.Aside(context.Background(), "broken", &dest, time.Minute, func() (bool, error) {
		return true, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("broken"))
}

func TestCache_AsideFallsThroughOnRedisError(t *testing.T) {
	c, mr := setupCache(t)
	mr.Close()

	var dest []item
	err := c.Aside(context.Background(), "items", &dest, time.Minute, func() (bool, error) {
		dest = []item{{ID: 2}}
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []item{{ID: 2}}, dest)
}

func TestCache_BumpAndInvalidate(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJSON(ctx, ConfessionsListKey, []item{{ID: 1}}, time.Minute))
	assert.True(t, mr.Exists(ConfessionsListKey))

	c.BumpAndInvalidate(ctx, ConfessionsListGenKey, ConfessionsListKey)
	assert.False(t, mr.Exists(ConfessionsListKey))
	gen, err := mr.Get(ConfessionsListGenKey)
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
}

func TestCache_AsideGuardedSkipsFillThatRacedAWrite(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()

	var got []item
	require.NoError(t, c.AsideGuarded(ctx, ConfessionsListKey, ConfessionsListGenKey, &got, time.Minute, func() (bool, error) {
		got = []item{{ID: 1, Name: "before write"}}
		// A create lands while the list query is in flight.
		c.BumpAndInvalidate(ctx, ConfessionsListGenKey, ConfessionsListKey)
		return true, nil
	}))
	assert.Equal(t, []item{{ID: 1, Name: "before write"}}, got)
	assert.False(t, mr.Exists(ConfessionsListKey), "pre-write list must not be cached")

	var again []item
	require.NoError(t, c.AsideGuarded(ctx, ConfessionsListKey, ConfessionsListGenKey, &again, time.Minute, func() (bool, error) {
		again = []item{{ID: 2, Name: "after write"}}
		return true, nil
	}))
	assert.True(t, mr.Exists(ConfessionsListKey))

	var cached []item
	found, err := c.GetJSON(ctx, ConfessionsListKey, &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, again, cached)
}

func TestCache_NilIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.False(t, c.Enabled())
	found, err := c.GetJSON(ctx, "k", &[]item{})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.SetJSON(ctx, "k", 1, time.Minute))
	c.BumpAndInvalidate(ctx, "gen", "k")

	called := false
	require.NoError(t, New(nil).Aside(ctx, "k", &[]item{}, time.Minute, func() (bool, error) {
		called = true
		return true, nil
	}))
	assert.True(t, called)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	client, err := Connect(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = Connect(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	client, err = Connect(ctx, mr.Addr())
	require.NoError(t, err)
	_ = client.Close()

	_, err = Connect(ctx, "redis://localhost:6379/notanumber")
	assert.Error(t, err)
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("localhost:6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)

	opts, err = ParseOptions("redis://:secret@cache:6380/2")
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = ParseOptions("redis://cache:6379/notadb")
	assert.Error(t, err)
}

func TestNewClient_DisablesMaintNotifications(t *testing.T) {
	opts := &redis.Options{Addr: "localhost:0"}
	client := NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NotNil(t, opts.MaintNotificationsConfig)
}
