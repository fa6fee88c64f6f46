package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/kafka"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/redis"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// Config is the warmcached configuration file
type Config struct {
	Log     logger.Config `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Cache configures the balance cache
	Cache   cache.Config  `mapstructure:"cache"`
	Balance BalanceConfig `mapstructure:"balance"`
	// Cron adds scheduled refreshes on top of the fixed frequency
	Cron string `mapstructure:"cron"`
	// TriggerRate limits refreshes caused by triggers, per second. 0 disables the limit.
	TriggerRate  float64 `mapstructure:"trigger_rate"`
	TriggerBurst int     `mapstructure:"trigger_burst"`
	// ReportInterval is how often the current values are logged
	// default: 1s
	ReportInterval time.Duration `mapstructure:"report_interval"`

	Redis *RedisConfig `mapstructure:"redis"`
	Kafka *KafkaConfig `mapstructure:"kafka"`
}

// MetricsConfig configures the prometheus endpoint
type MetricsConfig struct {
	// Addr is the listen address, empty disables the endpoint
	Addr      string `mapstructure:"addr"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// RedisConfig adds a cache loaded from a redis key, refreshed on pub/sub messages
type RedisConfig struct {
	redis.Config `mapstructure:",squash"`
	// Key holds the JSON document to cache
	Key string `mapstructure:"key"`
	// Frequency of the key cache
	// default: 30s
	Frequency time.Duration `mapstructure:"frequency"`
	// Channel receives invalidation messages for Key, and balance announcements
	Channel string `mapstructure:"channel"`
}

// KafkaConfig connects the balance cache to a kafka topic
type KafkaConfig struct {
	// Consumer triggers a balance refresh for every message about it
	Consumer *kafka.ConsumerConfig `mapstructure:"consumer"`
	// Producer announces every balance snapshot to its topic
	Producer *kafka.ProducerConfig `mapstructure:"producer"`
}

func defaultConfig() *Config {
	return &Config{
		Log: *logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Addr:      ":9090",
			Path:      "/metrics",
			Namespace: "warmcache",
		},
		Cache: cache.Config{
			Name:      "balance",
			Frequency: time.Second,
		},
		Balance: BalanceConfig{
			Principal:        "100",
			Rate:             0.05,
			CompoundsPerYear: 1,
			YearsPerSecond:   1,
		},
		TriggerBurst:   1,
		ReportInterval: time.Second,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := decodeConfig(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func decodeConfig(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("config: invalid yaml: %w", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused: true,
		Result:      cfg,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate checks the sections owned by warmcached; the packages validate their own
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Balance.Validate(); err != nil {
		return err
	}
	if c.TriggerRate < 0 || c.TriggerBurst < 0 {
		return fmt.Errorf("config: trigger_rate and trigger_burst must be >= 0")
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("config: report_interval must be > 0")
	}
	if c.Redis != nil {
		if c.Redis.Key == "" {
			return fmt.Errorf("config: redis.key is required")
		}
		if c.Redis.Frequency == 0 {
			c.Redis.Frequency = 30 * time.Second
		}
	}
	return nil
}
