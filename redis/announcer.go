package redis

import (
	"context"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// Announcer publishes cache announcements on a pub/sub channel
type Announcer struct {
	rdb     Redis
	channel string
	log     logger.Logger
	timeout time.Duration
}

// NewAnnouncer creates an Announcer publishing on channel
func NewAnnouncer(log logger.Logger, rdb Redis, channel string) *Announcer {
	return &Announcer{rdb: rdb, channel: channel, log: logger.OrNop(log), timeout: 5 * time.Second}
}

// Announce publishes a and returns the number of subscribers that received it
func (a *Announcer) Announce(ctx context.Context, ann cache.Announcement) (int64, error) {
	data, err := ann.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := a.rdb.Publish(ctx, a.channel, data).Result()
	if err != nil {
		return 0, ErrPublish(a.channel, err)
	}
	return n, nil
}

// OnRefresh returns a refresh hook announcing every snapshot of the named cache.
// Publish failures are logged and do not affect the cache.
func OnRefresh[V any](a *Announcer, name string) func(*cache.Snapshot[V]) {
	return func(snap *cache.Snapshot[V]) {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.Announce(ctx, cache.NewAnnouncement(name, snap)); err != nil {
			a.log.Warn("failed to announce cache refresh",
				zap.String("cache", name),
				zap.Uint64("version", snap.Version()),
				zap.Error(err),
			)
		}
	}
}
