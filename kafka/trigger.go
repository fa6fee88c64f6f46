package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/ticker"
	"go.uber.org/zap"
)

// Trigger turns consumed messages into tick events, so that a cache
// refreshes when a change is published to a topic. Bursts of messages are
// coalesced into a single pending event.
type Trigger struct {
	consumer Consumer
	log      logger.Logger
	filter   func(msg *Message) bool

	c      chan time.Time
	cancel context.CancelFunc
	once   sync.Once
}

var _ ticker.Ticker = (*Trigger)(nil)

// TriggerOption configures a Trigger
type TriggerOption func(*Trigger)

// WithFilter drops messages for which keep returns false
func WithFilter(keep func(msg *Message) bool) TriggerOption {
	return func(t *Trigger) { t.filter = keep }
}

// ForCache keeps only messages about the named cache: messages keyed by the
// name, or announcements of it
func ForCache(name string) TriggerOption {
	return WithFilter(func(msg *Message) bool {
		if string(msg.Key) == name {
			return true
		}
		a, err := cache.ParseAnnouncement(msg.Value)
		return err == nil && a.Cache == name
	})
}

// NewTrigger starts consumer. The consumer is owned by the trigger and closed by Stop.
func NewTrigger(log logger.Logger, consumer Consumer, opts ...TriggerOption) (*Trigger, error) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &Trigger{
		consumer: consumer,
		log:      logger.OrNop(log),
		c:        make(chan time.Time, 1),
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := consumer.Start(ctx, t.handle); err != nil {
		cancel()
		return nil, err
	}
	return t, nil
}

func (t *Trigger) handle(_ context.Context, msg *Message) error {
	if t.filter != nil && !t.filter(msg) {
		return nil
	}
	select {
	case t.c <- time.Now():
	default:
		t.log.Debug("refresh already pending, message coalesced", zap.ByteString("key", msg.Key))
	}
	return nil
}

func (t *Trigger) C() <-chan time.Time { return t.c }

// Stop stops consuming and closes the consumer
func (t *Trigger) Stop() {
	t.once.Do(func() {
		t.cancel()
		if err := t.consumer.Close(); err != nil {
			t.log.Warn("failed to close kafka trigger consumer", zap.Error(err))
		}
	})
}
