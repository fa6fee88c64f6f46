package redis

import (
	"fmt"
)

// Predefined errors
var (
	// ErrKeyNotFound is returned by a source whose key does not exist
	ErrKeyNotFound = fmt.Errorf("redis: key not found")
)

// Error constructors

// ErrInvalidConfig returns an error for invalid configuration
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("redis: invalid config: %s", msg)
}

// ErrConnect wraps a connection failure
func ErrConnect(addr string, err error) error {
	return fmt.Errorf("redis: failed to connect to %s: %w", addr, err)
}

// ErrSubscribe wraps a subscription failure
func ErrSubscribe(channels []string, err error) error {
	return fmt.Errorf("redis: failed to subscribe to %v: %w", channels, err)
}

// ErrMissingKey returns ErrKeyNotFound for key
func ErrMissingKey(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// ErrDecode wraps a value decoding failure
func ErrDecode(key string, err error) error {
	return fmt.Errorf("redis: failed to decode %s: %w", key, err)
}

// ErrPublish wraps a publish failure
func ErrPublish(channel string, err error) error {
	return fmt.Errorf("redis: failed to publish to %s: %w", channel, err)
}
