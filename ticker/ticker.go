// Package ticker provides the periodic event sources that drive cache refreshes.
//
// A Ticker delivers one event per period on C. Closing C signals that the
// stream is exhausted; consumers treat that as a request to stop.
package ticker

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
)

// Ticker is a source of tick events
type Ticker interface {
	// C returns the tick channel. It is closed when the source is exhausted.
	C() <-chan time.Time
	// Stop releases the ticker's resources. It can be called multiple times safely.
	// Stop does not necessarily close C.
	Stop()
}

// Factory builds the ticker for a given period
type Factory func(period time.Duration) (Ticker, error)

// IntervalFactory is the default Factory, returning NewInterval(period)
func IntervalFactory(period time.Duration) (Ticker, error) {
	return NewInterval(period)
}

// interval wraps time.Ticker. Like time.Ticker it drops ticks for slow receivers.
type interval struct {
	t *time.Ticker
}

// NewInterval returns a Ticker that fires every d
func NewInterval(d time.Duration) (Ticker, error) {
	if d <= 0 {
		return nil, ErrInvalidInterval(d)
	}
	return &interval{t: time.NewTicker(d)}, nil
}

func (i *interval) C() <-chan time.Time { return i.t.C }

func (i *interval) Stop() { i.t.Stop() }

// Merge fans in the events of all tickers into one channel.
// The returned channel is closed when every input is closed or ctx is done.
// It does not stop the tickers. A nil log discards panic reports.
func Merge(ctx context.Context, log logger.Logger, tickers ...Ticker) <-chan time.Time {
	out := make(chan time.Time)

	var wg sync.WaitGroup
	for _, t := range tickers {
		c := t.C()
		wg.Add(1)
		routine.Go(log, "ticker-merge", func() {
			defer wg.Done()
			for {
				select {
				case now, ok := <-c:
					if !ok {
						return
					}
					select {
					case out <- now:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		})
	}

	routine.Go(log, "ticker-merge-close", func() {
		wg.Wait()
		close(out)
	})
	return out
}
