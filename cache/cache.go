// Package cache provides a read-mostly value cache that is loaded once and
// then refreshed in the background on a fixed interval.
//
// The cache package follows go-kit conventions:
// - Interface-driven design for testability
// - Uses logger.Logger interface for unified logging
// - Uses routine package for safe goroutine execution
// - Configuration with validation and defaults
// - Structured error handling
//
// A cache is assembled with a Builder:
//
//	users, err := cache.New[[]User](log).
//		WithRefreshFunc(loadUsers).
//		WithFrequency(3 * time.Minute).
//		Load(ctx)
//
// Load performs the first refresh synchronously and returns a Handle.
// Handle.Read never blocks: it is a single atomic load of the current
// Snapshot, so any number of goroutines may read while the background loop
// replaces the value.
package cache

import (
	"context"
	"time"
)

// Source produces a new cache value.
// The context carries the per-attempt timeout and is cancelled when the cache stops.
type Source[V any] interface {
	Refresh(ctx context.Context) (V, error)
}

// SourceFunc adapts a function to the Source interface
type SourceFunc[V any] func(ctx context.Context) (V, error)

// Refresh calls f(ctx)
func (f SourceFunc[V]) Refresh(ctx context.Context) (V, error) {
	return f(ctx)
}

// Static returns a Source that always yields v
func Static[V any](v V) Source[V] {
	return SourceFunc[V](func(context.Context) (V, error) {
		return v, nil
	})
}

// Metrics receives refresh measurements. See the metric package for a Prometheus implementation.
type Metrics interface {
	// ObserveRefresh records one refresh attempt cycle (including retries) and its outcome
	ObserveRefresh(cache string, duration time.Duration, err error)
	// SetVersion records the version of the latest published snapshot
	SetVersion(cache string, version uint64)
	// SetConsecutiveFailures records the current run of failed refreshes
	SetConsecutiveFailures(cache string, failures uint64)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRefresh(string, time.Duration, error) {}
func (nopMetrics) SetVersion(string, uint64)                   {}
func (nopMetrics) SetConsecutiveFailures(string, uint64)       {}
