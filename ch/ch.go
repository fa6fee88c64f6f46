// Package ch provides a ClickHouse client and cache sources that load their
// value with a ClickHouse query.
package ch

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client is the ClickHouse client interface used by sources
type Client interface {
	// Query executes a ClickHouse query and returns driver.Rows
	Query(ctx context.Context, query string, args ...any) (driver.Rows, error)
	// QueryRow executes a query that is expected to return at most one row
	QueryRow(ctx context.Context, query string, args ...any) driver.Row
	// Select executes a query and scans every row into dest, a pointer to a slice of structs
	Select(ctx context.Context, dest any, query string, args ...any) error
	// Close closes the client and all associated resources
	Close() error
}
