package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dailyyoga/warmcache/routine"
	"github.com/dailyyoga/warmcache/ticker"
)

// ============ Construction Validation ============

func TestBuilder_Load_ValidationBeforeAnyWork(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc[int](func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	tests := []struct {
		name    string
		build   func(b *Builder[int]) *Builder[int]
		wantErr error
	}{
		{"missing source", func(b *Builder[int]) *Builder[int] {
			return b.WithFrequency(time.Second)
		}, ErrMissingSource},
		{"missing frequency", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src)
		}, ErrMissingFrequency},
		{"zero frequency", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(0)
		}, ErrInvalidConfig},
		{"negative frequency", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(-time.Second)
		}, ErrInvalidConfig},
		{"nil refresh func", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithRefreshFunc(nil).WithFrequency(time.Second)
		}, ErrMissingSource},
		{"invalid config", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(time.Second).WithConfig(&Config{MaxRetries: -1})
		}, ErrInvalidConfig},
		{"zero rate limit burst", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(time.Second).WithTriggerRateLimit(10, 0)
		}, ErrInvalidConfig},
		{"zero rate limit", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(time.Second).WithTriggerRateLimit(0, 1)
		}, ErrInvalidConfig},
		{"negative rate limit", func(b *Builder[int]) *Builder[int] {
			return b.WithRefresh(src).WithFrequency(time.Second).WithTriggerRateLimit(-1, 1)
		}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := routine.New(nil)
			manual := ticker.NewManual()
			b := tt.build(New[int](testLogger(t)).WithRunner(runner).WithTrigger(manual))

			h, err := b.Load(context.Background())
			if h != nil {
				t.Error("expected nil handle")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if calls.Load() != 0 {
				t.Error("source must not be called when validation fails")
			}
			if runner.Active() != 0 {
				t.Error("no goroutine may be spawned when validation fails")
			}
			if !manual.Stopped() {
				t.Error("triggers should be released when Load fails")
			}
		})
	}
}

func TestBuilder_Load_InitialLoadFailure(t *testing.T) {
	sourceErr := errors.New("database is gone")
	runner := routine.New(nil)

	h, err := New[string](testLogger(t)).
		WithRefreshFunc(func(context.Context) (string, error) { return "", sourceErr }).
		WithFrequency(time.Second).
		WithConfig(testConfig()).
		WithRunner(runner).
		Load(context.Background())

	if h != nil {
		t.Error("expected nil handle on initial load failure")
	}
	if !errors.Is(err, sourceErr) {
		t.Errorf("expected error to wrap the source error, got %v", err)
	}
	if runner.Active() != 0 {
		t.Error("refresh loop must not be started when the initial load fails")
	}
}

func TestBuilder_Load_InitialLoadHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := New[int](testLogger(t)).
		WithRefreshFunc(func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}).
		WithFrequency(time.Second).
		Load(ctx)
	if err == nil {
		t.Fatal("expected error when the load context expires")
	}
}

func TestBuilder_Load_Consumed(t *testing.T) {
	b := New[int](testLogger(t)).WithRefresh(Static(1)).WithFrequency(time.Hour)
	h, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	if _, err := b.Load(context.Background()); !errors.Is(err, ErrBuilderConsumed) {
		t.Errorf("expected ErrBuilderConsumed, got %v", err)
	}
}

func TestBuilder_MustLoad_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected MustLoad to panic without a source")
		}
	}()
	New[int](nil).WithFrequency(time.Second).MustLoad(context.Background())
}

func TestBuilder_WithRefresh_Overwrites(t *testing.T) {
	h := New[string](testLogger(t)).
		WithRefresh(Static("first")).
		WithRefresh(Static("second")).
		WithFrequency(time.Hour).
		MustLoad(context.Background())
	defer h.Close()

	if got := h.Get(); got != "second" {
		t.Errorf("expected the last source to win, got %q", got)
	}
}

func TestBuilder_FrequencyFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Frequency = time.Hour

	h, err := New[int](testLogger(t)).WithRefresh(Static(7)).WithConfig(cfg).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	if h.Name() != "test" {
		t.Errorf("expected name from config, got %q", h.Name())
	}
	if cfg.Name != "test" || cfg.Timeout != time.Second {
		t.Error("Load must not modify the caller's config")
	}
}

func TestBuilder_NameOverridesConfig(t *testing.T) {
	h := New[int](nil).
		WithRefresh(Static(1)).
		WithFrequency(time.Hour).
		WithConfig(testConfig()).
		WithName("accounts").
		MustLoad(context.Background())
	defer h.Close()

	if h.Name() != "accounts" {
		t.Errorf("expected name 'accounts', got %q", h.Name())
	}
}

func TestLoad_Shorthand(t *testing.T) {
	h, err := Load[int](context.Background(), testLogger(t), Static(42), time.Hour)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	if h.Get() != 42 {
		t.Errorf("expected 42, got %d", h.Get())
	}
	if h.State() != StateRunning {
		t.Errorf("expected running state, got %s", h.State())
	}
}

func TestBuilder_TickerFactoryError(t *testing.T) {
	factoryErr := errors.New("no clock")
	_, err := New[int](testLogger(t)).
		WithRefresh(Static(1)).
		WithFrequency(time.Second).
		WithTickerFactory(func(time.Duration) (ticker.Ticker, error) { return nil, factoryErr }).
		Load(context.Background())
	if !errors.Is(err, factoryErr) {
		t.Errorf("expected factory error, got %v", err)
	}
}
