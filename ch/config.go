package ch

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

type Config struct {
	// clickhouse connection config
	Hosts    []string `mapstructure:"hosts"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	// DialTimeout for establishing new connections
	// default: 10s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// MaxOpenConns is the maximum number of open connections
	// default: 10
	MaxOpenConns int  `mapstructure:"max_open_conns"`
	Debug        bool `mapstructure:"debug"`
	// clickhouse settings (https://clickhouse.com/docs/en/operations/settings/settings)
	Settings clickhouse.Settings `mapstructure:"settings"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:     "default",
		DialTimeout:  10 * time.Second,
		MaxOpenConns: 10,
		Debug:        false,
	}
}

// MergeDefaults fills empty fields with their default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Database == "" {
		c.Database = defaults.Database
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	return c
}

func (c *Config) Validate() error {
	if len(c.Hosts) == 0 {
		return errConfig("hosts are required")
	}
	if c.Username == "" {
		return errConfig("username is required")
	}
	if c.Password == "" {
		return errConfig("password is required")
	}
	if c.DialTimeout < 0 {
		return errConfig("dial_timeout cannot be negative")
	}
	if c.MaxOpenConns < 0 {
		return errConfig("max_open_conns cannot be negative")
	}
	return nil
}

func (c *Config) options() *clickhouse.Options {
	return &clickhouse.Options{
		Addr: c.Hosts,
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		DialTimeout:  c.DialTimeout,
		MaxOpenConns: c.MaxOpenConns,
		Debug:        c.Debug,
		Settings:     c.Settings,
	}
}
