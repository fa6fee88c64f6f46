package cache

import "time"

// Config holds configuration for a refreshing cache
type Config struct {
	// Name identifies the cache in logs and metrics
	// default: "cache"
	Name string `mapstructure:"name"`
	// Frequency is the interval between background refreshes (required, > 0)
	// There is no default: a cache without a frequency is a configuration error.
	Frequency time.Duration `mapstructure:"frequency"`
	// Timeout bounds every single call to the refresh source
	// default: 30 * time.Second
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the number of attempts per refresh for retryable errors
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// RetryBackoff is the wait before the second attempt; it doubles per attempt
	// default: 1 * time.Second
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	// MaxBackoff caps the wait between attempts
	// default: 30 * time.Second
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
	// MaxConsecutiveFailures stops the refresh loop after this many failed
	// refreshes in a row. 0 keeps retrying on every tick forever.
	// default: 0
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures"`
}

// DefaultConfig returns the default configuration.
// Frequency is left unset and must be provided by the user.
func DefaultConfig() *Config {
	return &Config{
		Name:         "cache",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		MaxBackoff:   30 * time.Second,
	}
}

// MergeDefaults fills zero fields with their defaults and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.Timeout == 0 {
		c.Timeout = defaults.Timeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = max(defaults.MaxBackoff, c.RetryBackoff)
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Name == "" {
		return ErrInvalidName(c.Name)
	}
	if c.Frequency <= 0 {
		return ErrInvalidFrequency(c.Frequency)
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout(c.Timeout)
	}
	if c.MaxRetries < 1 {
		return ErrInvalidMaxRetries(c.MaxRetries)
	}
	if c.RetryBackoff <= 0 || c.MaxBackoff < c.RetryBackoff {
		return ErrInvalidBackoff(c.RetryBackoff, c.MaxBackoff)
	}
	if c.MaxConsecutiveFailures < 0 {
		return ErrInvalidMaxFailures(c.MaxConsecutiveFailures)
	}
	return nil
}
