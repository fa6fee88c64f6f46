package cache

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// Middleware wraps a Source with additional behavior such as logging or recovery
type Middleware[V any] func(Source[V]) Source[V]

// Chain wraps src with mws. The first middleware is the outermost:
// Chain(src, mw1, mw2) results in mw1(mw2(src)).
func Chain[V any](src Source[V], mws ...Middleware[V]) Source[V] {
	for i := len(mws) - 1; i >= 0; i-- {
		src = mws[i](src)
	}
	return src
}

// Recover converts a panic in the wrapped source into an ErrSourcePanic error,
// so a faulty source cannot take down the refresh loop.
func Recover[V any](log logger.Logger, name string) Middleware[V] {
	return func(next Source[V]) Source[V] {
		return SourceFunc[V](func(ctx context.Context) (v V, err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("refresh source panicked",
						zap.String("cache", name),
						zap.Any("panic", r),
						zap.String("stack", string(debug.Stack())),
					)
					var zero V
					v, err = zero, ErrPanic(r)
				}
			}()
			return next.Refresh(ctx)
		})
	}
}

// Logging logs the duration and outcome of every call to the wrapped source
func Logging[V any](log logger.Logger, name string) Middleware[V] {
	return func(next Source[V]) Source[V] {
		return SourceFunc[V](func(ctx context.Context) (V, error) {
			start := time.Now()
			v, err := next.Refresh(ctx)

			duration := time.Since(start)
			if err != nil {
				log.Warn("refresh source call failed",
					zap.String("cache", name),
					zap.Duration("duration", duration),
					zap.Error(err),
				)
			} else {
				log.Debug("refresh source call completed",
					zap.String("cache", name),
					zap.Duration("duration", duration),
				)
			}
			return v, err
		})
	}
}
