package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*NarrativeCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewNarrativeCache(client, ttl, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func TestNarrativeCache_GetPut(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Hour)

	_, ok := cache.Get(ctx, "abc")
	assert.False(t, ok)

	cache.Put(ctx, "abc", "Irrigate tomorrow.")

	text, ok := cache.Get(ctx, "abc")
	require.True(t, ok)
	assert.Equal(t, "Irrigate tomorrow.", text)

	stored, err := mr.Get(keyPrefix + "abc")
	require.NoError(t, err)
	assert.Equal(t, "Irrigate tomorrow.", stored)
}

func TestNarrativeCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, time.Minute)

	cache.Put(ctx, "abc", "text")
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"abc"))

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "abc")
	assert.False(t, ok)
}

func TestNarrativeCache_BackendDownIsMiss(t *testing.T) {
	ctx := context.Background()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewNarrativeCache(client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cache.Put(ctx, "abc", "text")
	_, ok := cache.Get(ctx, "abc")
	assert.False(t, ok)
	assert.Error(t, cache.Ping(ctx))
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = Connect(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}
