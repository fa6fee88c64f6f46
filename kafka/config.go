package kafka

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
)

// DefaultTopic carries cache announcements when no topic is configured.
// Producers announce to it and trigger consumers subscribe to it, so peers
// sharing a cluster refresh each other without further setup.
const DefaultTopic = "warmcache.refreshes"

// groupPrefix starts every generated consumer group id
const groupPrefix = "warmcache-"

var (
	offsetResets      = []string{"earliest", "latest"}
	acks              = []string{"0", "1", "all", "-1"}
	securityProtocols = []string{"PLAINTEXT", "SSL", "SASL_PLAINTEXT", "SASL_SSL"}
)

// ConsumerConfig configures the consumer behind a refresh Trigger.
// Every process must see every message, so a consumer joins a group of its
// own unless GroupID is set.
type ConsumerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// Topics carry invalidation messages or announcements
	// default: [DefaultTopic]
	Topics []string `mapstructure:"topics"`
	// GroupID is only shared by consumers meant to split a topic between them
	// default: "warmcache-" plus a random suffix
	GroupID string `mapstructure:"group_id"`
	// AutoOffsetReset applies when the group has no committed offset.
	// "latest" reacts to changes made after start only; "earliest" replays the topic first.
	// default: "latest"
	AutoOffsetReset string `mapstructure:"auto_offset_reset"`
	// CommitInterval is how often offsets are committed.
	// A replayed trigger only causes one extra refresh, so commits are automatic.
	// default: 5s
	CommitInterval time.Duration `mapstructure:"commit_interval"`
	// default: 30s
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	// one of PLAINTEXT, SSL, SASL_PLAINTEXT, SASL_SSL
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`
	// Debug enables librdkafka consumer group logs
	Debug bool `mapstructure:"debug"`
}

// DefaultConsumerConfig returns the defaults; Brokers still has to be set
func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Topics:           []string{DefaultTopic},
		AutoOffsetReset:  "latest",
		CommitInterval:   5 * time.Second,
		SessionTimeout:   30 * time.Second,
		SecurityProtocol: "PLAINTEXT",
	}
}

// MergeDefaults fills zero-valued fields and returns c.
// An empty GroupID gets a fresh group id on every call.
func (c *ConsumerConfig) MergeDefaults() *ConsumerConfig {
	defaults := DefaultConsumerConfig()
	if len(c.Topics) == 0 {
		c.Topics = defaults.Topics
	}
	if c.GroupID == "" {
		c.GroupID = groupPrefix + uuid.NewString()
	}
	if c.AutoOffsetReset == "" {
		c.AutoOffsetReset = defaults.AutoOffsetReset
	}
	if c.CommitInterval == 0 {
		c.CommitInterval = defaults.CommitInterval
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = defaults.SessionTimeout
	}
	if c.SecurityProtocol == "" {
		c.SecurityProtocol = defaults.SecurityProtocol
	}
	return c
}

// Validate checks a merged configuration
func (c *ConsumerConfig) Validate() error {
	switch {
	case len(c.Brokers) == 0:
		return ErrConsumerConfig("brokers are required")
	case len(c.Topics) == 0:
		return ErrConsumerConfig("topics are required")
	case slices.Contains(c.Topics, ""):
		return ErrConsumerConfig("topic names must not be empty")
	case c.GroupID == "":
		return ErrConsumerConfig("group_id is required")
	case !slices.Contains(offsetResets, c.AutoOffsetReset):
		return ErrConsumerConfig(fmt.Sprintf("auto_offset_reset %q must be one of: %s",
			c.AutoOffsetReset, strings.Join(offsetResets, ", ")))
	case c.CommitInterval <= 0:
		return ErrConsumerConfig("commit_interval must be > 0")
	case c.SessionTimeout <= 0:
		return ErrConsumerConfig("session_timeout must be > 0")
	case !slices.Contains(securityProtocols, c.SecurityProtocol):
		return ErrConsumerConfig(fmt.Sprintf("security_protocol %q must be one of: %s",
			c.SecurityProtocol, strings.Join(securityProtocols, ", ")))
	}
	return nil
}

// BuildConfigMap returns the librdkafka settings of the consumer
func (c *ConsumerConfig) BuildConfigMap() *kafka.ConfigMap {
	m := &kafka.ConfigMap{
		"bootstrap.servers":       strings.Join(c.Brokers, ","),
		"group.id":                c.GroupID,
		"auto.offset.reset":       c.AutoOffsetReset,
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": int(c.CommitInterval.Milliseconds()),
		"session.timeout.ms":      int(c.SessionTimeout.Milliseconds()),
		"security.protocol":       c.SecurityProtocol,
	}
	if c.Debug {
		_ = m.SetKey("debug", "consumer,cgrp,topic")
	}
	return m
}

// ProducerConfig configures the producer behind an Announcer
type ProducerConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// Topic receives messages produced without an explicit topic
	// default: DefaultTopic
	Topic string `mapstructure:"topic"`
	// ClientID names the process in broker logs
	// default: "warmcache"
	ClientID string `mapstructure:"client_id"`
	// Acks is "0", "1" or "all". A lost announcement only delays a peer until
	// its next periodic refresh, so the leader's ack is enough.
	// default: "1"
	Acks string `mapstructure:"acks"`
	// Linger batches announcements of caches refreshed together
	// default: 5ms
	Linger time.Duration `mapstructure:"linger"`
	// MaxRetries bounds delivery retries of one message
	// default: 3
	MaxRetries int `mapstructure:"max_retries"`
	// FlushTimeout bounds how long Close waits for pending messages
	// default: 5s
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
	// default: "PLAINTEXT"
	SecurityProtocol string `mapstructure:"security_protocol"`
}

// DefaultProducerConfig returns the defaults; Brokers still has to be set
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		Topic:            DefaultTopic,
		ClientID:         "warmcache",
		Acks:             "1",
		Linger:           5 * time.Millisecond,
		MaxRetries:       3,
		FlushTimeout:     5 * time.Second,
		SecurityProtocol: "PLAINTEXT",
	}
}

// MergeDefaults fills zero-valued fields and returns p
func (p *ProducerConfig) MergeDefaults() *ProducerConfig {
	defaults := DefaultProducerConfig()
	if p.Topic == "" {
		p.Topic = defaults.Topic
	}
	if p.ClientID == "" {
		p.ClientID = defaults.ClientID
	}
	if p.Acks == "" {
		p.Acks = defaults.Acks
	}
	if p.Linger == 0 {
		p.Linger = defaults.Linger
	}
	if p.MaxRetries == 0 {
		p.MaxRetries = defaults.MaxRetries
	}
	if p.FlushTimeout == 0 {
		p.FlushTimeout = defaults.FlushTimeout
	}
	if p.SecurityProtocol == "" {
		p.SecurityProtocol = defaults.SecurityProtocol
	}
	return p
}

// Validate checks a merged configuration
func (p *ProducerConfig) Validate() error {
	switch {
	case len(p.Brokers) == 0:
		return ErrProducerConfig("brokers are required")
	case p.Topic == "":
		return ErrProducerConfig("topic is required")
	case !slices.Contains(acks, p.Acks):
		return ErrProducerConfig(fmt.Sprintf("acks %q must be one of: %s", p.Acks, strings.Join(acks, ", ")))
	case p.Linger < 0:
		return ErrProducerConfig("linger must be >= 0")
	case p.MaxRetries < 0:
		return ErrProducerConfig("max_retries must be >= 0")
	case p.FlushTimeout <= 0:
		return ErrProducerConfig("flush_timeout must be > 0")
	case !slices.Contains(securityProtocols, p.SecurityProtocol):
		return ErrProducerConfig(fmt.Sprintf("security_protocol %q must be one of: %s",
			p.SecurityProtocol, strings.Join(securityProtocols, ", ")))
	}
	return nil
}

// BuildConfigMap returns the librdkafka settings of the producer
func (p *ProducerConfig) BuildConfigMap() *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(p.Brokers, ","),
		"client.id":         p.ClientID,
		"acks":              p.Acks,
		"linger.ms":         int(p.Linger.Milliseconds()),
		"retries":           p.MaxRetries,
		"security.protocol": p.SecurityProtocol,
	}
}
