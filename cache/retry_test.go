package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBackoff(t *testing.T) {
	cfg := &Config{RetryBackoff: 100 * time.Millisecond, MaxBackoff: time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{20, time.Second},
	}
	for _, tt := range tests {
		if got := backoff(cfg, tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{context.DeadlineExceeded, true},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), true},
		{errors.New("dial tcp 10.0.0.1:3306: connect: connection refused"), true},
		{errors.New("read: Connection Reset by peer"), true},
		{errors.New("Error 1040: Too many connections"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("syntax error near SELECT"), false},
		{ErrPanic("boom"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3

	calls := 0
	src := SourceFunc[int](func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("connection reset")
		}
		return 42, nil
	})

	v, err := fetch(context.Background(), zap.NewNop(), cfg, src)
	if err != nil || v != 42 {
		t.Fatalf("unexpected result: %v, %v", v, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestFetch_GivesUpAfterMaxRetries(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	transient := errors.New("connection refused")

	calls := 0
	src := SourceFunc[int](func(context.Context) (int, error) {
		calls++
		return 0, transient
	})

	_, err := fetch(context.Background(), zap.NewNop(), cfg, src)
	if !errors.Is(err, transient) {
		t.Errorf("expected wrapped transient error, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestFetch_PermanentErrorNotRetried(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 5
	permanent := errors.New("unknown column")

	calls := 0
	src := SourceFunc[int](func(context.Context) (int, error) {
		calls++
		return 0, permanent
	})

	if _, err := fetch(context.Background(), zap.NewNop(), cfg, src); !errors.Is(err, permanent) {
		t.Errorf("expected permanent error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestFetch_AttemptTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond
	cfg.MaxRetries = 2

	calls := 0
	src := SourceFunc[int](func(ctx context.Context) (int, error) {
		calls++
		<-ctx.Done()
		return 0, ctx.Err()
	})

	_, err := fetch(context.Background(), zap.NewNop(), cfg, src)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected every attempt to time out, got %d calls", calls)
	}
}

func TestFetch_ParentCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 5
	cfg.RetryBackoff = time.Hour
	cfg.MaxBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	src := SourceFunc[int](func(context.Context) (int, error) {
		cancel()
		return 1, nil
	})

	if _, err := fetch(ctx, zap.NewNop(), cfg, src); !errors.Is(err, context.Canceled) {
		t.Errorf("a result arriving after cancellation must be discarded, got %v", err)
	}
}
