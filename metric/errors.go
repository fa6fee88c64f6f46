package metric

import "fmt"

var (
	// ErrServerRunning is returned when Start is called on a running server
	ErrServerRunning = fmt.Errorf("metric: server already running")
)

// ErrRegister wraps a collector registration failure
func ErrRegister(err error) error {
	return fmt.Errorf("metric: failed to register collector: %w", err)
}
