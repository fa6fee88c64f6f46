package db

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
)

var logLevels = []string{"silent", "error", "warn", "info"}

// Config configures the MySQL pool behind query sources.
// A cache refreshes from a single goroutine, so the pool is small by default;
// raise it when many caches share one Database.
type Config struct {
	Host string `mapstructure:"host"`
	// default: 3306
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`

	// default: 4
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// default: 2
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// ConnMaxLifetime recycles connections between refreshes
	// default: 30m
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// DialTimeout bounds connecting; a refresh can't be faster than its dial
	// default: 5s
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	// ReadTimeout bounds reading one query result at the driver level.
	// Keep it above the cache refresh timeout so the cache reports the timeout.
	// default: 30s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// LogLevel of gorm: silent, error, warn or info
	// default: "warn"
	LogLevel string `mapstructure:"log_level"`
	// SlowThreshold logs queries slower than this at warn level
	// default: 1s
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	// default: "utf8mb4"
	Charset string `mapstructure:"charset"`
	// Loc is the time zone of DATETIME columns, as accepted by time.LoadLocation
	// default: "Local"
	Loc string `mapstructure:"loc"`
}

// DSN formats the connection string with the mysql driver
func (c *Config) DSN() string {
	mc := mysqldrv.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Timeout = c.DialTimeout
	mc.ReadTimeout = c.ReadTimeout
	if loc, err := time.LoadLocation(c.Loc); err == nil {
		mc.Loc = loc
	}
	if c.Charset != "" {
		mc.Params = map[string]string{"charset": c.Charset}
	}
	return mc.FormatDSN()
}

// DefaultConfig returns the defaults; the connection fields still have to be set
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     30 * time.Second,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
		Charset:         "utf8mb4",
		Loc:             "Local",
	}
}

// MergeDefaults fills zero-valued fields and returns c
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = d.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = min(d.MaxIdleConns, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = d.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = d.SlowThreshold
	}
	if c.Charset == "" {
		c.Charset = d.Charset
	}
	if c.Loc == "" {
		c.Loc = d.Loc
	}
	return c
}

// Validate checks a merged configuration
func (c *Config) Validate() error {
	required := []struct{ name, value string }{
		{"host", c.Host},
		{"user", c.User},
		{"password", c.Password},
		{"database", c.Database},
	}
	for _, f := range required {
		if f.value == "" {
			return errConfig(f.name + " is required")
		}
	}

	switch {
	case c.Port <= 0 || c.Port > 65535:
		return errConfig(fmt.Sprintf("port %d out of range", c.Port))
	case c.MaxOpenConns < 1:
		return errConfig("max_open_conns must be >= 1")
	case c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns:
		return errConfig("max_idle_conns must be between 0 and max_open_conns")
	case c.DialTimeout < 0 || c.ReadTimeout < 0:
		return errConfig("timeouts must be >= 0")
	case !slices.Contains(logLevels, strings.ToLower(c.LogLevel)):
		return errConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if _, err := time.LoadLocation(c.Loc); err != nil {
		return errConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}
	return nil
}
