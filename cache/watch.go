package cache

import (
	"context"
	"sync"

	"github.com/smallnest/chanx"
)

// watchers fans published snapshots out to subscribers.
// Each subscriber gets an unbounded channel so a slow reader never stalls the refresh loop.
type watchers[V any] struct {
	mu     sync.Mutex
	closed bool
	subs   map[*chanx.UnboundedChan[*Snapshot[V]]]struct{}
}

func newWatchers[V any]() *watchers[V] {
	return &watchers[V]{
		subs: make(map[*chanx.UnboundedChan[*Snapshot[V]]]struct{}),
	}
}

// add registers a subscriber. It returns false once the loop has stopped.
func (w *watchers[V]) add() (*chanx.UnboundedChan[*Snapshot[V]], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, false
	}
	// the channel is closed through In, never through its context
	ch := chanx.NewUnboundedChan[*Snapshot[V]](context.Background(), 1)
	w.subs[ch] = struct{}{}
	return ch, true
}

func (w *watchers[V]) remove(ch *chanx.UnboundedChan[*Snapshot[V]]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.subs[ch]; !ok {
		return
	}
	delete(w.subs, ch)
	close(ch.In)
}

func (w *watchers[V]) publish(snap *Snapshot[V]) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for ch := range w.subs {
		ch.In <- snap
	}
}

func (w *watchers[V]) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for ch := range w.subs {
		delete(w.subs, ch)
		close(ch.In)
	}
}

func (w *watchers[V]) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
