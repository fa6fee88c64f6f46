package ticker

import (
	"sync"
	"time"
)

// Manual is a Ticker driven by explicit calls, for tests and event-driven refreshes
type Manual struct {
	c       chan time.Time
	closing chan struct{}
	done    chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	stopOnce  sync.Once
}

// NewManual creates a Manual ticker
func NewManual() *Manual {
	return &Manual{
		c:       make(chan time.Time),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ManualFactory returns a Factory that always hands out m
func ManualFactory(m *Manual) Factory {
	return func(time.Duration) (Ticker, error) { return m, nil }
}

// Tick delivers one event and blocks until it is received.
// It returns false if the ticker was closed or stopped first.
func (m *Manual) Tick() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}

	select {
	case m.c <- time.Now():
		return true
	case <-m.closing:
		return false
	case <-m.done:
		return false
	}
}

// Close closes the event stream, signalling exhaustion to the receiver
func (m *Manual) Close() {
	m.closeOnce.Do(func() {
		close(m.closing)
		m.mu.Lock()
		m.closed = true
		close(m.c)
		m.mu.Unlock()
	})
}

// Stopped reports whether Stop has been called
func (m *Manual) Stopped() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

func (m *Manual) C() <-chan time.Time { return m.c }

func (m *Manual) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}
