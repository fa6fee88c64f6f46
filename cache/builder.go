package cache

import (
	"context"
	"runtime"
	"time"
	"weak"

	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"github.com/dailyyoga/warmcache/ticker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Builder collects the refresh source and options of a cache.
// A Builder is single use: Load consumes it.
type Builder[V any] struct {
	log     logger.Logger
	cfg     *Config
	src     Source[V]
	name    string
	runner  routine.Runner
	metrics Metrics

	frequency    time.Duration
	frequencySet bool

	tickerFactory ticker.Factory
	triggers      []ticker.Ticker
	limiter       *rate.Limiter

	middlewares []Middleware[V]
	onRefresh   []func(*Snapshot[V])
	onError     []func(error)

	consumed bool
}

// New creates a Builder. A nil logger discards logs.
func New[V any](log logger.Logger) *Builder[V] {
	return &Builder[V]{
		log:           logger.OrNop(log),
		metrics:       nopMetrics{},
		tickerFactory: ticker.IntervalFactory,
	}
}

// Load is shorthand for New(log).WithRefresh(src).WithFrequency(frequency).Load(ctx)
func Load[V any](ctx context.Context, log logger.Logger, src Source[V], frequency time.Duration) (*Handle[V], error) {
	return New[V](log).WithRefresh(src).WithFrequency(frequency).Load(ctx)
}

// WithRefresh sets the refresh source. Later calls overwrite earlier ones.
func (b *Builder[V]) WithRefresh(src Source[V]) *Builder[V] {
	b.src = src
	return b
}

// WithRefreshFunc sets a function as the refresh source
func (b *Builder[V]) WithRefreshFunc(fn func(ctx context.Context) (V, error)) *Builder[V] {
	if fn == nil {
		b.src = nil
		return b
	}
	return b.WithRefresh(SourceFunc[V](fn))
}

// WithFrequency sets the refresh period. It must be strictly positive.
// It takes precedence over Config.Frequency.
func (b *Builder[V]) WithFrequency(d time.Duration) *Builder[V] {
	b.frequency = d
	b.frequencySet = true
	return b
}

// WithConfig sets the retry, timeout and failure policy configuration.
// Zero fields take their defaults.
func (b *Builder[V]) WithConfig(cfg *Config) *Builder[V] {
	b.cfg = cfg
	return b
}

// WithName sets the cache name used in logs and metrics. It takes precedence over Config.Name.
func (b *Builder[V]) WithName(name string) *Builder[V] {
	b.name = name
	return b
}

// WithTickerFactory replaces the periodic event source. The factory receives the refresh frequency.
func (b *Builder[V]) WithTickerFactory(f ticker.Factory) *Builder[V] {
	if f != nil {
		b.tickerFactory = f
	}
	return b
}

// WithTrigger adds an event source that causes an extra refresh on every event,
// such as an invalidation message or a cron schedule. Triggers are stopped with the cache.
func (b *Builder[V]) WithTrigger(t ticker.Ticker) *Builder[V] {
	if t != nil {
		b.triggers = append(b.triggers, t)
	}
	return b
}

// WithTriggerRateLimit limits refreshes caused by triggers and Handle.Refresh
// to r per second with bursts of at most burst. Periodic ticks are not limited.
// r and burst must be positive.
func (b *Builder[V]) WithTriggerRateLimit(r float64, burst int) *Builder[V] {
	b.limiter = rate.NewLimiter(rate.Limit(r), burst)
	return b
}

// WithRunner spawns the refresh loop through runner instead of a detached goroutine
func (b *Builder[V]) WithRunner(runner routine.Runner) *Builder[V] {
	b.runner = runner
	return b
}

// WithMetrics reports refresh measurements to m
func (b *Builder[V]) WithMetrics(m Metrics) *Builder[V] {
	if m != nil {
		b.metrics = m
	}
	return b
}

// WithMiddleware wraps the refresh source. Recover and Logging are always applied outermost.
func (b *Builder[V]) WithMiddleware(mws ...Middleware[V]) *Builder[V] {
	b.middlewares = append(b.middlewares, mws...)
	return b
}

// WithOnRefresh registers a hook called on the refresh loop after every published snapshot.
// Hooks must return quickly; they delay the next refresh.
func (b *Builder[V]) WithOnRefresh(fn func(*Snapshot[V])) *Builder[V] {
	if fn != nil {
		b.onRefresh = append(b.onRefresh, fn)
	}
	return b
}

// WithOnError registers a hook called on the refresh loop after every failed background refresh
func (b *Builder[V]) WithOnError(fn func(error)) *Builder[V] {
	if fn != nil {
		b.onError = append(b.onError, fn)
	}
	return b
}

// config resolves and validates the effective configuration
func (b *Builder[V]) config() (*Config, error) {
	cfg := DefaultConfig()
	if b.cfg != nil {
		c := *b.cfg
		cfg = c.MergeDefaults()
	}
	if b.name != "" {
		cfg.Name = b.name
	}

	if b.src == nil {
		return nil, ErrMissingSource
	}
	if b.frequencySet {
		cfg.Frequency = b.frequency
	} else if cfg.Frequency == 0 {
		return nil, ErrMissingFrequency
	}

	if b.limiter != nil && (b.limiter.Limit() <= 0 || b.limiter.Burst() < 1) {
		return nil, ErrInvalidRateLimit(float64(b.limiter.Limit()), b.limiter.Burst())
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load validates the builder, performs the first refresh synchronously, and
// starts the background refresh loop. ctx bounds the first refresh only; the
// loop runs until the cache is closed or no handle remains.
//
// Configuration errors are returned before the source is called or any
// goroutine is started. If the first refresh fails, Load returns an error
// wrapping it and nothing is left running.
func (b *Builder[V]) Load(ctx context.Context) (*Handle[V], error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	cfg, err := b.config()
	if err != nil {
		b.stopTriggers()
		return nil, err
	}

	mws := append([]Middleware[V]{Recover[V](b.log, cfg.Name), Logging[V](b.log, cfg.Name)}, b.middlewares...)
	src := Chain(b.src, mws...)

	start := time.Now()
	value, err := fetch(ctx, b.log, cfg, src)
	b.metrics.ObserveRefresh(cfg.Name, time.Since(start), err)
	if err != nil {
		b.stopTriggers()
		b.log.Error("initial cache load failed", zap.String("cache", cfg.Name), zap.Error(err))
		return nil, ErrInitialLoad(err)
	}

	tk, err := b.tickerFactory(cfg.Frequency)
	if err != nil {
		b.stopTriggers()
		return nil, err
	}

	cell := NewCell(value)
	b.metrics.SetVersion(cfg.Name, cell.Load().Version())

	l := &loop[V]{
		cfg:       cfg,
		log:       b.log,
		src:       src,
		cell:      cell,
		metrics:   b.metrics,
		ticker:    tk,
		triggers:  b.triggers,
		limiter:   b.limiter,
		requests:  make(chan refreshRequest[V]),
		watchers:  newWatchers[V](),
		onRefresh: b.onRefresh,
		onError:   b.onError,
		done:      make(chan struct{}),
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	g := &group[V]{loop: l, cancel: cancel}
	l.group = weak.Make(g)
	runtime.AddCleanup(g, func(cancel context.CancelFunc) { cancel() }, cancel)

	l.start(loopCtx, b.runner)

	b.log.Info("cache loaded",
		zap.String("cache", cfg.Name),
		zap.Duration("frequency", cfg.Frequency),
		zap.Duration("initial_load", time.Since(start)),
	)
	return &Handle[V]{g: g}, nil
}

// MustLoad is like Load but panics on error
func (b *Builder[V]) MustLoad(ctx context.Context) *Handle[V] {
	h, err := b.Load(ctx)
	if err != nil {
		panic(err)
	}
	return h
}

func (b *Builder[V]) stopTriggers() {
	for _, t := range b.triggers {
		t.Stop()
	}
}
