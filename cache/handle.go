package cache

import (
	"context"

	"github.com/dailyyoga/warmcache/routine"
)

// group is the state shared by a Handle and all of its clones
type group[V any] struct {
	loop   *loop[V]
	cancel context.CancelFunc
}

// Handle is a reference to a loaded cache.
// Clones share the same storage and refresh loop: there is one logical cache
// and many observation points. When no Handle is reachable any more the
// refresh loop is cancelled; call Close to stop it deterministically.
type Handle[V any] struct {
	g *group[V]
}

// Read returns the current snapshot without locking or blocking.
// A read that starts after a refresh completed observes that refresh or a later one.
func (h *Handle[V]) Read() *Snapshot[V] {
	return h.g.loop.cell.Load()
}

// Get returns the current value. See Snapshot for the read-only contract.
func (h *Handle[V]) Get() V {
	return h.Read().Value()
}

// Clone returns a new handle observing the same cache
func (h *Handle[V]) Clone() *Handle[V] {
	return &Handle[V]{g: h.g}
}

// Name returns the configured cache name
func (h *Handle[V]) Name() string {
	return h.g.loop.cfg.Name
}

// Refresh asks the refresh loop to refresh now and waits for the result.
// The loop remains the only writer, so a manual refresh waits for any refresh
// already in progress. Returns ErrCacheClosed once the loop has stopped.
func (h *Handle[V]) Refresh(ctx context.Context) (*Snapshot[V], error) {
	l := h.g.loop
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := refreshRequest[V]{ctx: ctx, result: make(chan refreshResult[V], 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return nil, ErrCacheClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.result:
		if res.err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res.snap, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Watch returns a channel receiving every snapshot published after the call.
// When ctx is done the channel is closed and snapshots not yet received are
// dropped. When the cache stops, the snapshots already published are delivered
// before the channel closes, so callers should read until it is closed.
// A stopped cache yields an already closed channel.
func (h *Handle[V]) Watch(ctx context.Context) <-chan *Snapshot[V] {
	l := h.g.loop
	ch, ok := l.watchers.add()
	if !ok {
		closed := make(chan *Snapshot[V])
		close(closed)
		return closed
	}

	done := l.done
	routine.Go(l.log, l.cfg.Name+"-watch", func() {
		select {
		case <-ctx.Done():
			l.watchers.remove(ch)
			// the caller stopped reading: release the buffered snapshots
			for range ch.Out {
			}
		case <-done:
			if ctx.Err() != nil {
				for range ch.Out {
				}
			}
		}
	})
	return ch.Out
}

// Close stops the refresh loop for this handle and all of its clones.
// It can be called multiple times safely. Reads keep returning the last value.
func (h *Handle[V]) Close() {
	h.g.cancel()
}

// Done returns a channel that is closed once the refresh loop has stopped
func (h *Handle[V]) Done() <-chan struct{} {
	return h.g.loop.done
}

// State returns the refresh loop state
func (h *Handle[V]) State() State {
	return State(h.g.loop.state.Load())
}

// Err returns the terminal error if the loop gave up after repeated failures, else nil
func (h *Handle[V]) Err() error {
	return h.g.loop.terminalErr()
}

// Stats returns refresh counters and the current snapshot version
func (h *Handle[V]) Stats() Stats {
	return h.g.loop.stats()
}
