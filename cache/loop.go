package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"github.com/dailyyoga/warmcache/ticker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// State is the lifecycle state of a refresh loop
type State int32

const (
	// StateIdle means the loop has not been started
	StateIdle State = iota
	// StateRunning means the loop refreshes the cell on every tick
	StateRunning
	// StateStopped is terminal
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time view of a cache's refresh history
type Stats struct {
	State               State
	Version             uint64
	LoadedAt            time.Time
	Refreshes           uint64
	Failures            uint64
	ConsecutiveFailures uint64
	LastError           error
}

type refreshResult[V any] struct {
	snap *Snapshot[V]
	err  error
}

type refreshRequest[V any] struct {
	ctx    context.Context
	result chan refreshResult[V]
}

// loop is the only writer of its cell.
// It holds its handle group weakly so that dropping every handle lets the
// group be collected, which cancels the loop.
type loop[V any] struct {
	cfg     *Config
	log     logger.Logger
	src     Source[V]
	cell    *Cell[V]
	metrics Metrics

	ticker   ticker.Ticker
	triggers []ticker.Ticker
	limiter  *rate.Limiter
	requests chan refreshRequest[V]

	group     weak.Pointer[group[V]]
	watchers  *watchers[V]
	onRefresh []func(*Snapshot[V])
	onError   []func(error)

	state       atomic.Int32
	refreshes   atomic.Uint64
	failures    atomic.Uint64
	consecutive atomic.Uint64

	mu      sync.Mutex
	lastErr error
	err     error

	done chan struct{}
}

// start moves the loop to Running and spawns it
func (l *loop[V]) start(ctx context.Context, runner routine.Runner) {
	l.state.Store(int32(StateRunning))
	name := l.cfg.Name + "-refresh"
	if runner != nil {
		runner.GoContext(ctx, name, l.run)
		return
	}
	routine.GoContext(ctx, l.log, name, l.run)
}

func (l *loop[V]) run(ctx context.Context) {
	defer l.shutdown()

	var triggers <-chan time.Time
	if len(l.triggers) > 0 {
		triggers = ticker.Merge(ctx, l.log, l.triggers...)
	}

	for {
		select {
		case <-ctx.Done():
			l.log.Info("stopping refresh loop", zap.String("cache", l.cfg.Name))
			return

		case _, ok := <-l.ticker.C():
			if !ok {
				l.log.Info("ticker exhausted, stopping refresh loop", zap.String("cache", l.cfg.Name))
				return
			}
			if !l.tick(ctx) {
				return
			}

		case _, ok := <-triggers:
			if !ok {
				triggers = nil
				continue
			}
			if l.limiter != nil && !l.limiter.Allow() {
				l.log.Debug("triggered refresh skipped by rate limit", zap.String("cache", l.cfg.Name))
				continue
			}
			if !l.tick(ctx) {
				return
			}

		case req := <-l.requests:
			if !l.serve(ctx, req) {
				return
			}
		}
	}
}

// tick runs one scheduled refresh and reports whether the loop should keep running
func (l *loop[V]) tick(ctx context.Context) bool {
	if l.group.Value() == nil {
		l.log.Info("no cache handles remain, stopping refresh loop", zap.String("cache", l.cfg.Name))
		return false
	}
	_, err := l.refresh(ctx)
	return l.proceed(ctx, err)
}

// serve runs a refresh requested through Handle.Refresh
func (l *loop[V]) serve(ctx context.Context, req refreshRequest[V]) bool {
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(req.ctx, cancel)
	snap, err := l.refresh(reqCtx)
	stop()
	cancel()

	req.result <- refreshResult[V]{snap: snap, err: err}
	if err != nil && req.ctx.Err() != nil && ctx.Err() == nil {
		// the caller gave up; that is not a source failure
		return true
	}
	return l.proceed(ctx, err)
}

// proceed applies the failure policy after a refresh
func (l *loop[V]) proceed(ctx context.Context, err error) bool {
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	failures := l.consecutive.Load()
	limit := l.cfg.MaxConsecutiveFailures
	if limit > 0 && failures >= uint64(limit) {
		l.mu.Lock()
		l.err = ErrAborted(failures, err)
		l.mu.Unlock()
		l.log.Error("refresh loop giving up, the last value stays readable",
			zap.String("cache", l.cfg.Name),
			zap.Uint64("consecutive_failures", failures),
			zap.Error(err),
		)
		return false
	}
	return true
}

// refresh fetches a new value and publishes it.
// On failure the current snapshot stays in place.
func (l *loop[V]) refresh(ctx context.Context) (*Snapshot[V], error) {
	start := time.Now()
	v, err := fetch(ctx, l.log, l.cfg, l.src)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		l.metrics.ObserveRefresh(l.cfg.Name, duration, err)
		l.recordFailure(err)
		return nil, err
	}

	snap := l.cell.Store(v)
	l.refreshes.Add(1)
	l.consecutive.Store(0)
	l.metrics.ObserveRefresh(l.cfg.Name, duration, nil)
	l.metrics.SetVersion(l.cfg.Name, snap.Version())
	l.metrics.SetConsecutiveFailures(l.cfg.Name, 0)

	l.log.Debug("cache refreshed",
		zap.String("cache", l.cfg.Name),
		zap.Uint64("version", snap.Version()),
		zap.Duration("duration", duration),
	)

	l.watchers.publish(snap)
	for _, fn := range l.onRefresh {
		if perr := routine.Safe(l.log, l.cfg.Name+"-on-refresh", func() { fn(snap) }); perr != nil {
			l.log.Warn("refresh hook failed", zap.String("cache", l.cfg.Name), zap.Error(perr))
		}
	}
	return snap, nil
}

func (l *loop[V]) recordFailure(err error) {
	l.failures.Add(1)
	failures := l.consecutive.Add(1)
	l.metrics.SetConsecutiveFailures(l.cfg.Name, failures)

	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()

	current := l.cell.Load()
	l.log.Error("refresh failed, keeping previous value",
		zap.String("cache", l.cfg.Name),
		zap.Uint64("version", current.Version()),
		zap.Duration("value_age", current.Age()),
		zap.Uint64("consecutive_failures", failures),
		zap.Error(err),
	)

	for _, fn := range l.onError {
		if perr := routine.Safe(l.log, l.cfg.Name+"-on-error", func() { fn(err) }); perr != nil {
			l.log.Warn("error hook failed", zap.String("cache", l.cfg.Name), zap.Error(perr))
		}
	}
}

// shutdown releases the ticker, triggers and watchers, then marks the loop stopped
func (l *loop[V]) shutdown() {
	l.ticker.Stop()
	for _, t := range l.triggers {
		t.Stop()
	}
	l.watchers.closeAll()
	l.state.Store(int32(StateStopped))
	close(l.done)

	l.log.Info("refresh loop stopped",
		zap.String("cache", l.cfg.Name),
		zap.Uint64("refreshes", l.refreshes.Load()),
		zap.Uint64("failures", l.failures.Load()),
	)
}

func (l *loop[V]) stats() Stats {
	snap := l.cell.Load()
	l.mu.Lock()
	lastErr := l.lastErr
	l.mu.Unlock()
	return Stats{
		State:               State(l.state.Load()),
		Version:             snap.Version(),
		LoadedAt:            snap.LoadedAt(),
		Refreshes:           l.refreshes.Load(),
		Failures:            l.failures.Load(),
		ConsecutiveFailures: l.consecutive.Load(),
		LastError:           lastErr,
	}
}

func (l *loop[V]) terminalErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
