package cache

import (
	"sync/atomic"
	"time"
)

// Snapshot is one published cache value.
// A Snapshot is never modified after it has been published; a refresh
// publishes a new Snapshot instead. Holding a *Snapshot keeps that value
// alive even after newer ones replace it.
//
// IMPORTANT: For reference types (slice, map, pointer), Value returns the
// shared data, not a copy. Callers MUST treat it as read-only.
type Snapshot[V any] struct {
	value    V
	version  uint64
	loadedAt time.Time
}

// Value returns the cached value
func (s *Snapshot[V]) Value() V { return s.value }

// Version returns the sequence number of this snapshot, starting at 1
func (s *Snapshot[V]) Version() uint64 { return s.version }

// LoadedAt returns the time the snapshot was published
func (s *Snapshot[V]) LoadedAt() time.Time { return s.loadedAt }

// Age returns how long ago the snapshot was published
func (s *Snapshot[V]) Age() time.Duration { return time.Since(s.loadedAt) }

// Cell holds the current Snapshot of a value.
// Load is wait-free and safe for any number of goroutines. Store is meant for
// a single writer; concurrent stores are safe but the older version loses.
// Superseded snapshots are reclaimed by the garbage collector once no reader
// holds them.
type Cell[V any] struct {
	current atomic.Pointer[Snapshot[V]]
	version atomic.Uint64
}

// NewCell returns a Cell already holding v as version 1
func NewCell[V any](v V) *Cell[V] {
	c := &Cell[V]{}
	c.Store(v)
	return c
}

// Load returns the current snapshot. It never returns nil for a Cell built by NewCell.
func (c *Cell[V]) Load() *Snapshot[V] {
	return c.current.Load()
}

// Store publishes v as a new snapshot and returns the snapshot that is current afterwards.
func (c *Cell[V]) Store(v V) *Snapshot[V] {
	next := &Snapshot[V]{
		value:    v,
		version:  c.version.Add(1),
		loadedAt: time.Now(),
	}
	for {
		prev := c.current.Load()
		if prev != nil && prev.version > next.version {
			// a racing store already published a newer version
			return prev
		}
		if c.current.CompareAndSwap(prev, next) {
			return next
		}
	}
}
