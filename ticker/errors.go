package ticker

import (
	"fmt"
	"time"
)

var (
	// ErrInvalidSpec is returned when a cron spec string is invalid
	ErrInvalidSpec = fmt.Errorf("ticker: invalid cron spec")
)

// ErrInvalidInterval returns an error for a non-positive interval
func ErrInvalidInterval(d time.Duration) error {
	return fmt.Errorf("ticker: invalid interval: %v (must be > 0)", d)
}

// ErrParseSpec wraps a cron parse failure
func ErrParseSpec(spec string, err error) error {
	return fmt.Errorf("%w %q: %w", ErrInvalidSpec, spec, err)
}
