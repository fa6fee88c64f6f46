package cache

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewCell(t *testing.T) {
	c := NewCell("first")
	snap := c.Load()
	if snap == nil {
		t.Fatal("Load returned nil")
	}
	if snap.Value() != "first" || snap.Version() != 1 {
		t.Errorf("unexpected snapshot: value=%q version=%d", snap.Value(), snap.Version())
	}
	if snap.LoadedAt().IsZero() {
		t.Error("LoadedAt should be set")
	}
}

func TestCell_Store(t *testing.T) {
	c := NewCell(1)
	old := c.Load()

	snap := c.Store(2)
	if snap.Value() != 2 || snap.Version() != 2 {
		t.Errorf("unexpected snapshot: value=%d version=%d", snap.Value(), snap.Version())
	}
	if c.Load() != snap {
		t.Error("Load should return the stored snapshot")
	}
	// a held snapshot is unaffected by later stores
	if old.Value() != 1 || old.Version() != 1 {
		t.Errorf("old snapshot changed: value=%d version=%d", old.Value(), old.Version())
	}
}

type pair struct {
	A, B int64
}

func TestCell_NoTearingUnderConcurrentReads(t *testing.T) {
	c := NewCell(pair{A: 0, B: 0})

	var stop atomic.Bool
	var wg sync.WaitGroup
	errs := make(chan string, 8)

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastVersion uint64
			for !stop.Load() {
				snap := c.Load()
				v := snap.Value()
				if v.A != -v.B {
					errs <- "torn value observed"
					return
				}
				if snap.Version() < lastVersion {
					errs <- "version went backwards"
					return
				}
				lastVersion = snap.Version()
			}
		}()
	}

	for i := int64(1); i <= 10000; i++ {
		c.Store(pair{A: i, B: -i})
	}
	stop.Store(true)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestCell_ConcurrentStoresKeepNewestVersion(t *testing.T) {
	c := NewCell(0)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.Store(i)
			}
		}()
	}
	wg.Wait()

	if got := c.Load().Version(); got != 4001 {
		t.Errorf("expected final version 4001, got %d", got)
	}
}

func TestCell_LoadDoesNotAllocate(t *testing.T) {
	c := NewCell([]int{1, 2, 3})
	allocs := testing.AllocsPerRun(1000, func() {
		_ = c.Load().Value()
	})
	if allocs != 0 {
		t.Errorf("expected 0 allocations per Load, got %v", allocs)
	}
}
