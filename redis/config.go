package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config is the configuration for the redis client
type Config struct {
	// Addr is the host:port address of the redis server
	// default: "localhost:6379"
	Addr string `mapstructure:"addr"`
	// Username for ACL authentication (redis 6.0+)
	Username string `mapstructure:"username"`
	// Password for authentication
	Password string `mapstructure:"password"`
	// DB is the database to select
	// default: 0
	DB int `mapstructure:"db"`
	// PoolSize is the maximum number of socket connections
	// default: 10
	PoolSize int `mapstructure:"pool_size"`
	// MinIdleConns is the minimum number of idle connections
	// default: 0
	MinIdleConns int `mapstructure:"min_idle_conns"`
	// MaxRetries is the maximum number of retries before giving up
	// default: 0 (go-redis default)
	MaxRetries int `mapstructure:"max_retries"`
	// DialTimeout for establishing new connections
	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout for socket reads
	// default: 3s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout for socket writes
	// default: 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the default configuration for the redis client
func DefaultConfig() *Config {
	return &Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// MergeDefaults fills zero-valued fields except Addr with defaults and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.PoolSize == 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrInvalidConfig("addr is required")
	}
	if c.DB < 0 {
		return ErrInvalidConfig("db must be >= 0")
	}
	if c.PoolSize < 0 {
		return ErrInvalidConfig("pool_size must be >= 0")
	}
	if c.MinIdleConns < 0 {
		return ErrInvalidConfig("min_idle_conns must be >= 0")
	}
	if c.MaxRetries < 0 {
		return ErrInvalidConfig("max_retries must be >= 0")
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return ErrInvalidConfig("timeouts must be >= 0")
	}
	return nil
}

// Options converts the configuration to go-redis options
func (c *Config) Options() *goredis.Options {
	return &goredis.Options{
		Addr:         c.Addr,
		Username:     c.Username,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}
