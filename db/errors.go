package db

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every Validate failure
	ErrInvalidConfig = errors.New("db: invalid config")

	// ErrNotConnected is returned by a Database wrapping no gorm connection,
	// so a query source on it fails its refresh instead of panicking
	ErrNotConnected = errors.New("db: no database connection")
)

func errConfig(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}

// ErrConnection wraps a failure to open or ping the database at addr.
// An empty addr stands for a connection handed to Wrap.
func ErrConnection(addr string, err error) error {
	if addr == "" {
		return fmt.Errorf("db: connection failed: %w", err)
	}
	return fmt.Errorf("db: connect %s: %w", addr, err)
}

// ErrQuery wraps a failed source query
func ErrQuery(table string, err error) error {
	return fmt.Errorf("db: query %s failed: %w", table, err)
}
