package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingGenerator struct {
	calls int
	text  string
	err   error
}

func (m *countingGenerator) GenerateText(_ context.Context, _ string) (string, error) {
	m.calls++
	return m.text, m.err
}

// --- CachedGenerator tests ---

func TestCachedGenerator_CacheHit(t *testing.T) {
	inner := &countingGenerator{text: "Irrigate tomorrow."}
	metrics := testMetrics()
	cached := NewCachedGenerator(inner, NewLRUCache(10), metrics)

	t1, err := cached.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	t2, err := cached.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "Irrigate tomorrow.", t1)
	assert.Equal(t, t1, t2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NarrativeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.NarrativeCache.WithLabelValues("miss")), 0)
}

func TestCachedGenerator_DifferentPromptsMiss(t *testing.T) {
	inner := &countingGenerator{text: "ok"}
	cached := NewCachedGenerator(inner, NewLRUCache(10), testMetrics())

	_, _ = cached.GenerateText(context.Background(), "prompt A")
	_, _ = cached.GenerateText(context.Background(), "prompt B")

	assert.Equal(t, 2, inner.calls)
}

func TestCachedGenerator_ErrorsAreNotCached(t *testing.T) {
	inner := &countingGenerator{err: errors.New("quota exceeded")}
	cache := NewLRUCache(10)
	cached := NewCachedGenerator(inner, cache, testMetrics())

	_, err := cached.GenerateText(context.Background(), "prompt")
	require.Error(t, err)
	assert.Zero(t, cache.Len())

	inner.err = nil
	inner.text = "recovered"
	text, err := cached.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGenerator_EmptyTextIsNotCached(t *testing.T) {
	inner := &countingGenerator{}
	cache := NewLRUCache(10)
	cached := NewCachedGenerator(inner, cache, testMetrics())

	_, err := cached.GenerateText(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Zero(t, cache.Len())
}

func TestPromptKey(t *testing.T) {
	assert.Equal(t, PromptKey("a"), PromptKey("a"))
	assert.NotEqual(t, PromptKey("a"), PromptKey("b"))
	assert.Len(t, PromptKey("a"), 64)
}

// --- LRU cache tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok)

	c.Put(ctx, "k1", "v1")
	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestLRUCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Put(ctx, "k1", "v1")
	c.Put(ctx, "k2", "v2")
	c.Put(ctx, "k3", "v3") // evicts k1

	_, ok := c.Get(ctx, "k1")
	assert.False(t, ok, "k1 should be evicted")
	_, ok = c.Get(ctx, "k3")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Put(ctx, "k1", "v1")
	c.Put(ctx, "k2", "v2")
	_, _ = c.Get(ctx, "k1") // k2 becomes least recently used
	c.Put(ctx, "k3", "v3")

	_, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "k2")
	assert.False(t, ok, "k2 should be evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(2)

	c.Put(ctx, "k1", "v1")
	c.Put(ctx, "k1", "v1b")

	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1b", v)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_MinimumSize(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(0)

	c.Put(ctx, "k1", "v1")
	v, ok := c.Get(ctx, "k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewLRUCache(8)

	done := make(chan struct{})
	for i := range 4 {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := range 100 {
				key := PromptKey(string(rune('a' + (i+j)%16)))
				c.Put(ctx, key, "v")
				_, _ = c.Get(ctx, key)
			}
		}()
	}
	for range 4 {
		<-done
	}
	assert.LessOrEqual(t, c.Len(), 8)
}
