// Package routine provides safe goroutine execution with panic recovery.
//
// It prevents direct use of `go func()` from crashing the entire application
// when a panic occurs, by wrapping goroutine execution with recovery logic.
// Every goroutine carries a name so panics and exits can be traced back to
// the component that started it.
package routine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// Runner provides safe goroutine execution with panic recovery
type Runner interface {
	// Go executes a named function in a new goroutine with panic recovery
	Go(name string, fn func())

	// GoContext executes a named function with context in a new goroutine
	GoContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Active returns the number of goroutines started by this runner that are still running
	Active() int

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

type defaultRunner struct {
	log    logger.Logger
	wg     sync.WaitGroup
	active atomic.Int64
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{
		log: logger.OrNop(log),
	}
}

// Go executes a named function in a new goroutine with panic recovery
func (r *defaultRunner) Go(name string, fn func()) {
	r.GoContext(context.Background(), name, func(context.Context) { fn() })
}

// GoContext executes a named function with context in a new goroutine
func (r *defaultRunner) GoContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	r.active.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

// Active returns the number of goroutines still running
func (r *defaultRunner) Active() int {
	return int(r.active.Load())
}

// Wait waits for all goroutines started by this runner to complete
func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

// Go is a convenience function that executes a named function
// in a new goroutine with panic recovery
func Go(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverWithLog(log, name)
		fn()
	}()
}

// GoContext is a convenience function that executes a named function
// with context in a new goroutine with panic recovery
func GoContext(ctx context.Context, log logger.Logger, name string, fn func(ctx context.Context)) {
	go func() {
		defer recoverWithLog(log, name)
		fn(ctx)
	}()
}

// Safe runs fn on the calling goroutine and converts a panic into an error
func Safe(log logger.Logger, name string, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic(log, name, rec)
			err = ErrPanic(rec)
		}
	}()
	fn()
	return nil
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
	}
}

func logPanic(log logger.Logger, name string, rec any) {
	if log == nil {
		return
	}
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	log.Error("goroutine panicked", fields...)
}
