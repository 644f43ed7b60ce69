// Package redis connects the optional Redis backend. A portal deployment
// without SEVASETU_REDIS_URL simply runs without it and keeps sessions on the
// primary store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"sevasetu/internal/platform/config"
	"sevasetu/pkg/platform/sentinel"
)

// Client carries the connected go-redis client.
type Client struct {
	*redis.Client
}

// New dials Redis from configuration, verifying the connection before
// returning. An empty URL yields (nil, nil): absence is a valid deployment
// shape, not an error. An unreachable server wraps sentinel.ErrUnavailable.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyPoolConfig(opts, cfg)

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis at %s: %w: %w", opts.Addr, sentinel.ErrUnavailable, err)
	}
	return &Client{Client: client}, nil
}

// applyPoolConfig overrides go-redis defaults only where the deployment set a
// value; zero means keep the library default.
func applyPoolConfig(opts *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
}

// Health reports connection liveness for readiness checks.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
