// Package redis connects caches to redis: values can be loaded from keys,
// refreshes can be triggered by pub/sub messages, and refreshes can be
// announced to other processes.
package redis

import (
	"context"

	"github.com/dailyyoga/warmcache/logger"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a redis client
type Redis interface {
	goredis.Cmdable

	// Subscribe subscribes to channels and waits for the confirmation
	Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error)
	// PSubscribe subscribes to channel patterns and waits for the confirmation
	PSubscribe(ctx context.Context, patterns ...string) (*goredis.PubSub, error)
	// PoolStats returns connection pool statistics
	PoolStats() *goredis.PoolStats
	// Unwrap returns the underlying go-redis client
	Unwrap() *goredis.Client
	// Close closes the client
	Close() error
}

type client struct {
	*goredis.Client
	log logger.Logger
}

// NewRedis creates a redis client and verifies the connection with a PING.
// A nil config uses DefaultConfig.
func NewRedis(log logger.Logger, cfg *Config) (Redis, error) {
	log = logger.OrNop(log)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(cfg.Options())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, ErrConnect(cfg.Addr, err)
	}

	log.Info("redis connected", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return &client{Client: rdb, log: log}, nil
}

func (c *client) Subscribe(ctx context.Context, channels ...string) (*goredis.PubSub, error) {
	return c.confirm(ctx, c.Client.Subscribe(ctx, channels...), channels)
}

func (c *client) PSubscribe(ctx context.Context, patterns ...string) (*goredis.PubSub, error) {
	return c.confirm(ctx, c.Client.PSubscribe(ctx, patterns...), patterns)
}

// confirm waits for the subscription reply so that messages published after
// the call returns are not missed
func (c *client) confirm(ctx context.Context, ps *goredis.PubSub, channels []string) (*goredis.PubSub, error) {
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, ErrSubscribe(channels, err)
	}
	return ps, nil
}

func (c *client) Unwrap() *goredis.Client {
	return c.Client
}

func (c *client) Close() error {
	c.log.Info("redis client closing")
	return c.Client.Close()
}
