package ticker

import (
	"sync"
	"time"

	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"github.com/robfig/cron/v3"
)

// parser accepts standard 5 field specs, an optional leading seconds field,
// and descriptors such as "@hourly" or "@every 5m".
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronTicker fires at the activation times of a cron schedule
type cronTicker struct {
	schedule cron.Schedule
	loc      *time.Location
	c        chan time.Time
	done     chan struct{}
	once     sync.Once
}

// NewCron returns a Ticker that fires according to spec, evaluated in loc.
// A nil loc means time.Local.
// Example: "0 */5 * * * *" fires every five minutes at second 0.
func NewCron(spec string, loc *time.Location) (Ticker, error) {
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, ErrParseSpec(spec, err)
	}
	return newCronTicker(schedule, loc, logger.Component("ticker")), nil
}

func newCronTicker(schedule cron.Schedule, loc *time.Location, log logger.Logger) *cronTicker {
	if loc == nil {
		loc = time.Local
	}
	t := &cronTicker{
		schedule: schedule,
		loc:      loc,
		c:        make(chan time.Time, 1),
		done:     make(chan struct{}),
	}
	routine.Go(log, "cron-ticker", t.run)
	return t
}

func (t *cronTicker) run() {
	for {
		next := t.schedule.Next(time.Now().In(t.loc))
		if next.IsZero() {
			// the schedule can never fire again
			close(t.c)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case now := <-timer.C:
			select {
			case t.c <- now:
			default:
				// receiver still busy with the previous tick
			}
		case <-t.done:
			timer.Stop()
			return
		}
	}
}

func (t *cronTicker) C() <-chan time.Time { return t.c }

func (t *cronTicker) Stop() {
	t.once.Do(func() { close(t.done) })
}
