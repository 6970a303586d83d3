package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/couchcryptid/agro-analytics-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TextGenerator is the generator wrapped by CachedGenerator.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Cache stores generated texts by prompt key. Implementations treat backend
// failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
}

// CachedGenerator reuses earlier completions for identical prompts. Errors
// and empty texts are never cached.
type CachedGenerator struct {
	inner   TextGenerator
	cache   Cache
	metrics *observability.Metrics
}

// NewCachedGenerator creates a cache decorator around a generator.
func NewCachedGenerator(inner TextGenerator, cache Cache, metrics *observability.Metrics) *CachedGenerator {
	return &CachedGenerator{
		inner:   inner,
		cache:   cache,
		metrics: metrics,
	}
}

func (c *CachedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	key := PromptKey(prompt)
	if text, ok := c.cache.Get(ctx, key); ok {
		c.metrics.NarrativeCache.WithLabelValues("hit").Inc()
		return text, nil
	}
	c.metrics.NarrativeCache.WithLabelValues("miss").Inc()

	text, err := c.inner.GenerateText(ctx, prompt)
	if err != nil {
		return text, err
	}
	if text != "" {
		c.cache.Put(ctx, key, text)
	}
	return text, nil
}

// PromptKey is the cache key of a prompt.
func PromptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// LRUCache is an in-process cache of texts bounded by entry count.
type LRUCache struct {
	entries *lru.Cache[string, string]
}

// NewLRUCache creates an LRUCache holding at most maxEntries texts.
func NewLRUCache(maxEntries int) *LRUCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	entries, _ := lru.New[string, string](maxEntries) // only fails for size < 1
	return &LRUCache{entries: entries}
}

func (c *LRUCache) Get(_ context.Context, key string) (string, bool) {
	return c.entries.Get(key)
}

func (c *LRUCache) Put(_ context.Context, key, value string) {
	c.entries.Add(key, value)
}

// Len returns the number of cached texts.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}
