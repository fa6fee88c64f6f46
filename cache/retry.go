package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// fetch calls src with a per-attempt timeout, retrying retryable errors with
// exponential backoff. It returns ctx.Err() as soon as ctx is done.
func fetch[V any](ctx context.Context, log logger.Logger, cfg *Config, src Source[V]) (V, error) {
	var zero V
	var lastErr error

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := backoff(cfg, attempt)
			log.Warn("retrying refresh after backoff",
				zap.String("cache", cfg.Name),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
			)
			if err := sleep(ctx, wait); err != nil {
				return zero, err
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		v, err := src.Refresh(attemptCtx)
		cancel()

		if ctx.Err() != nil {
			// the cache is shutting down: whatever came back is discarded
			return zero, ctx.Err()
		}
		if err == nil {
			return v, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return zero, ErrRefresh(err)
		}

		log.Warn("refresh failed, will retry",
			zap.String("cache", cfg.Name),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", cfg.MaxRetries),
		)
	}

	return zero, ErrRefresh(lastErr)
}

// backoff returns RetryBackoff * 2^(attempt-1), capped at MaxBackoff
func backoff(cfg *Config, attempt int) time.Duration {
	wait := cfg.RetryBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	return min(wait, cfg.MaxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isRetryableError checks if an error is retryable
// It checks for common transient errors like timeouts and connection issues
func isRetryableError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"timeout",
		"too many connections",
		"temporary failure",
		"network is unreachable",
		"i/o timeout",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}
	return false
}
