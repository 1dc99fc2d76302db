// Package redis connects the go-redis client used for session revocation.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Client is a go-redis client that logs its lifecycle.
type Client struct {
	*redis.Client
	addr   string
	logger *zap.Logger
}

// NewClient connects to Redis and fails unless the server answers PING.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	logger.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &Client{Client: rdb, addr: opts.Addr, logger: logger}, nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	err := c.Client.Close()
	c.logger.Info("redis closed", zap.String("addr", c.addr), zap.Error(err))
	return err
}
