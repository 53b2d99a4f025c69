// Package cache stores rendered catalog pages so repeated listings skip the database.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CatalogCache keeps catalog list pages. Lookups never fail: a broken cache behaves like a miss.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	// Invalidate drops every cached page. Called after any catalog mutation.
	Invalidate(ctx context.Context)
}

// PageKey builds the cache key of one catalog page.
func PageKey(page, limit int32, search string) string {
	return fmt.Sprintf("%d:%d:%s", page, limit, search)
}

// Noop is a CatalogCache that never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte)        {}
func (Noop) Invalidate(context.Context)                 {}

const (
	generationKey = "products:generation"
	pagePrefix    = "products:page:"
)

// RedisCatalogCache stores pages under a generation number. Invalidate bumps the generation,
// so stale pages are never read again and simply expire.
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCatalogCache {
	return &RedisCatalogCache{
		client: client,
		ttl:    ttl,
		logger: logger.With("component", "catalog-cache"),
	}
}

func (c *RedisCatalogCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCatalogCache) pageKey(gen int64, key string) string {
	return pagePrefix + strconv.FormatInt(gen, 10) + ":" + key
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string) ([]byte, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read cache generation", "error", err)
		return nil, false
	}
	data, err := c.client.Get(ctx, c.pageKey(gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Failed to read cached page", "key", key, "error", err)
		}
		return nil, false
	}
	c.logger.DebugContext(ctx, "Cache hit", "key", key)
	return data, true
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, value []byte) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to read cache generation", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.pageKey(gen, key), value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to cache page", "key", key, "error", err)
	}
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.WarnContext(ctx, "Failed to invalidate catalog cache", "error", err)
	}
}
