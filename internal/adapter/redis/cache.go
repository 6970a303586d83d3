// Package redis stores generated narratives in Redis so that replicas share
// one narrative cache.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "agro:narrative:"

// NarrativeCache implements gemini.Cache on top of a Redis client. Entries
// expire after the configured TTL.
type NarrativeCache struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewNarrativeCache creates a cache over an existing client.
func NewNarrativeCache(client *goredis.Client, ttl time.Duration, logger *slog.Logger) *NarrativeCache {
	return &NarrativeCache{client: client, ttl: ttl, logger: logger}
}

// Connect dials Redis at addr and verifies the connection.
func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Get returns the cached text for key. Redis failures are logged and
// reported as misses.
func (c *NarrativeCache) Get(ctx context.Context, key string) (string, bool) {
	text, err := c.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn("narrative cache read failed", "error", err)
		return "", false
	}
	return text, true
}

// Put stores text under key with the cache TTL.
func (c *NarrativeCache) Put(ctx context.Context, key, text string) {
	if err := c.client.Set(ctx, keyPrefix+key, text, c.ttl).Err(); err != nil {
		c.logger.Warn("narrative cache write failed", "error", err)
	}
}

// Ping checks the Redis connection.
func (c *NarrativeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
