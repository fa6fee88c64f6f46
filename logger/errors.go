package logger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is wrapped by every configuration error of this package
var ErrInvalidConfig = errors.New("logger: invalid config")

// ErrBuildLogger wraps a zap build failure, typically an unwritable output path
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: build failed: %w", err)
}

// ErrInvalidLevel reports a level zap does not know
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("%w: level %q: %v", ErrInvalidConfig, level, err)
}

// ErrInvalidEncoding reports an encoding other than json or console
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("%w: encoding %q, must be one of: %s", ErrInvalidConfig, encoding, strings.Join(validEncodings, ", "))
}

// ErrNoOutput reports an empty output path
func ErrNoOutput(field string) error {
	return fmt.Errorf("%w: %s contains an empty path", ErrInvalidConfig, field)
}
