package cache

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrCacheClosed is returned when operations are attempted on a stopped cache
	ErrCacheClosed = fmt.Errorf("cache: cache is closed")
	// ErrInvalidConfig is wrapped by every configuration error
	ErrInvalidConfig = fmt.Errorf("cache: invalid config")
	// ErrMissingSource is returned by Load when no refresh source was set
	ErrMissingSource = fmt.Errorf("%w: refresh source is required", ErrInvalidConfig)
	// ErrMissingFrequency is returned by Load when no refresh frequency was set
	ErrMissingFrequency = fmt.Errorf("%w: refresh frequency is required", ErrInvalidConfig)
	// ErrBuilderConsumed is returned when Load is called twice on the same Builder
	ErrBuilderConsumed = fmt.Errorf("cache: builder already loaded")
	// ErrRefreshAborted is wrapped by the terminal error of a loop that gave up
	ErrRefreshAborted = fmt.Errorf("cache: refresh aborted")
	// ErrSourcePanic is wrapped when a refresh source panics
	ErrSourcePanic = fmt.Errorf("cache: refresh source panicked")
)

// Error constructors

// ErrRefresh wraps a refresh failure
func ErrRefresh(err error) error {
	return fmt.Errorf("cache: refresh failed: %w", err)
}

// ErrInitialLoad wraps a failure of the synchronous first refresh
func ErrInitialLoad(err error) error {
	return fmt.Errorf("cache: initial load failed: %w", err)
}

// ErrAborted returns the terminal error after too many consecutive failures
func ErrAborted(failures uint64, err error) error {
	return fmt.Errorf("%w after %d consecutive failures: %w", ErrRefreshAborted, failures, err)
}

// ErrInvalidName returns an error for invalid name
func ErrInvalidName(name string) error {
	return fmt.Errorf("%w: invalid name: %q (must be non-empty)", ErrInvalidConfig, name)
}

// ErrInvalidFrequency returns an error for a non-positive refresh frequency
func ErrInvalidFrequency(frequency time.Duration) error {
	return fmt.Errorf("%w: invalid frequency: %v (must be > 0)", ErrInvalidConfig, frequency)
}

// ErrInvalidTimeout returns an error for invalid refresh timeout
func ErrInvalidTimeout(timeout time.Duration) error {
	return fmt.Errorf("%w: invalid timeout: %v (must be > 0)", ErrInvalidConfig, timeout)
}

// ErrInvalidMaxRetries returns an error for invalid max retries
func ErrInvalidMaxRetries(retries int) error {
	return fmt.Errorf("%w: invalid max retries: %d (must be >= 1)", ErrInvalidConfig, retries)
}

// ErrInvalidBackoff returns an error for an invalid retry backoff window
func ErrInvalidBackoff(backoff, maxBackoff time.Duration) error {
	return fmt.Errorf("%w: invalid backoff: %v..%v (must be > 0 and ordered)", ErrInvalidConfig, backoff, maxBackoff)
}

// ErrInvalidMaxFailures returns an error for a negative failure budget
func ErrInvalidMaxFailures(failures int) error {
	return fmt.Errorf("%w: invalid max consecutive failures: %d (must be >= 0)", ErrInvalidConfig, failures)
}

// ErrInvalidRateLimit returns an error for a trigger rate limit that would reject every refresh
func ErrInvalidRateLimit(r float64, burst int) error {
	return fmt.Errorf("%w: invalid trigger rate limit: %v/s burst %d (both must be > 0)", ErrInvalidConfig, r, burst)
}

// ErrPanic converts a recovered source panic into an error
func ErrPanic(recovered any) error {
	return fmt.Errorf("%w: %v", ErrSourcePanic, recovered)
}
