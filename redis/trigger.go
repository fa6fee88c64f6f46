package redis

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"github.com/dailyyoga/warmcache/ticker"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Trigger turns pub/sub messages into tick events, so that a cache refreshes
// as soon as another process announces a change. Bursts of messages are
// coalesced into a single pending event.
type Trigger struct {
	pubsub *goredis.PubSub
	log    logger.Logger
	filter func(payload string) bool

	c    chan time.Time
	done chan struct{}
	once sync.Once
}

var _ ticker.Ticker = (*Trigger)(nil)

// TriggerOption configures a Trigger
type TriggerOption func(*Trigger)

// WithFilter drops messages for which keep returns false
func WithFilter(keep func(payload string) bool) TriggerOption {
	return func(t *Trigger) { t.filter = keep }
}

// ForCache keeps only announcements of the named cache
func ForCache(name string) TriggerOption {
	return WithFilter(func(payload string) bool {
		a, err := cache.ParseAnnouncement([]byte(payload))
		return err == nil && a.Cache == name
	})
}

// NewTrigger subscribes to channel. The subscription is confirmed before
// NewTrigger returns.
func NewTrigger(ctx context.Context, log logger.Logger, rdb Redis, channel string, opts ...TriggerOption) (*Trigger, error) {
	ps, err := rdb.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	t := &Trigger{
		pubsub: ps,
		log:    logger.OrNop(log),
		c:      make(chan time.Time, 1),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	routine.Go(t.log, "redis-trigger-"+channel, t.run)
	return t, nil
}

func (t *Trigger) run() {
	defer close(t.c)

	msgs := t.pubsub.Channel()
	for {
		select {
		case <-t.done:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if t.filter != nil && !t.filter(msg.Payload) {
				continue
			}
			select {
			case t.c <- time.Now():
			default:
				t.log.Debug("refresh already pending, message coalesced", zap.String("channel", msg.Channel))
			}
		}
	}
}

func (t *Trigger) C() <-chan time.Time { return t.c }

// Stop unsubscribes and closes the underlying pub/sub connection
func (t *Trigger) Stop() {
	t.once.Do(func() {
		close(t.done)
		if err := t.pubsub.Close(); err != nil {
			t.log.Warn("failed to close redis subscription", zap.Error(err))
		}
	})
}
