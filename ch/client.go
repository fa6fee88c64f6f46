package ch

import (
	"context"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// defaultClient is the default implementation of the Client interface
type defaultClient struct {
	config *Config
	logger logger.Logger
	conn   driver.Conn

	closed bool
	mu     sync.RWMutex
}

// NewClient connects to ClickHouse and verifies the connection with a ping
func NewClient(log logger.Logger, config *Config) (Client, error) {
	log = logger.OrNop(log)
	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.MergeDefaults()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(config.options())
	if err != nil {
		return nil, ErrConnection(config.Hosts, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, ErrConnection(config.Hosts, err)
	}

	log.Info("clickhouse client initialized",
		zap.Strings("hosts", config.Hosts),
		zap.String("database", config.Database),
	)

	return &defaultClient{config: config, logger: log, conn: conn}, nil
}

// Query executes a ClickHouse query and returns driver.Rows
func (c *defaultClient) Query(ctx context.Context, query string, args ...any) (driver.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		c.logger.Error("query failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, err
	}

	return rows, nil
}

// QueryRow executes a query that is expected to return at most one row.
// It returns nil once the client is closed.
func (c *defaultClient) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		c.logger.Error("connection is closed", zap.String("query", query))
		return nil
	}

	return c.conn.QueryRow(ctx, query, args...)
}

// Select executes a query and scans the result into dest
func (c *defaultClient) Select(ctx context.Context, dest any, query string, args ...any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	if err := c.conn.Select(ctx, dest, query, args...); err != nil {
		c.logger.Error("select failed",
			zap.String("query", query),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close closes the client
func (c *defaultClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.logger.Info("clickhouse client shutting down")
	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close clickhouse connection", zap.Error(err))
		return err
	}

	c.logger.Info("clickhouse client shutdown complete")
	return nil
}
