package ch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidConfig is wrapped by every Validate failure
	ErrInvalidConfig = errors.New("ch: invalid config")

	// ErrConnectionClosed is returned by a client after Close
	ErrConnectionClosed = errors.New("ch: connection is closed")

	// ErrInvalidTable rejects a table name SchemaSource won't interpolate
	ErrInvalidTable = errors.New("ch: invalid table name")
)

func errConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// ErrConnection wraps a failure to open or ping the cluster at hosts
func ErrConnection(hosts []string, err error) error {
	return fmt.Errorf("ch: connect %s: %w", strings.Join(hosts, ","), err)
}

// ErrQuery wraps a failed source query
func ErrQuery(query string, err error) error {
	return fmt.Errorf("ch: query %q failed: %w", query, err)
}
