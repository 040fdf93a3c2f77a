// Package redis holds the Redis-backed adapters: analysis job state,
// feedback debouncing and the report read-through cache all share one
// connection pool.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis with lifecycle helpers.
type Client struct {
	rdb *redis.Client
}

// NewClient connects using a URL (e.g. "redis://localhost:6379").
// Pipeline stages write job state on every transition, so a couple of
// idle connections are kept warm.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opts.MinIdleConns = 2
	opts.ConnMaxIdleTime = 5 * time.Minute

	return &Client{rdb: redis.NewClient(opts)}, nil
}

// Ping verifies the connection; used by the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Underlying exposes the raw go-redis client for the stores built on it.
func (c *Client) Underlying() *redis.Client {
	return c.rdb
}
