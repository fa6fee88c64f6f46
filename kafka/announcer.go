package kafka

import (
	"context"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

// HeaderContentType is set on every announcement
const HeaderContentType = "content-type"

// Announcer produces cache announcements to a topic, keyed by cache name
type Announcer struct {
	producer Producer
	topic    string
	log      logger.Logger
	timeout  time.Duration
}

// NewAnnouncer creates an Announcer producing to topic, DefaultTopic when empty
func NewAnnouncer(log logger.Logger, producer Producer, topic string) *Announcer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Announcer{producer: producer, topic: topic, log: logger.OrNop(log), timeout: 5 * time.Second}
}

// Announce enqueues ann for delivery. Delivery failures are reported by the producer.
func (a *Announcer) Announce(ctx context.Context, ann cache.Announcement) error {
	data, err := ann.Marshal()
	if err != nil {
		return err
	}
	topic := a.topic
	return a.producer.Produce(ctx, &Message{
		Key:            []byte(ann.Cache),
		Value:          data,
		TopicPartition: TopicPartition{Topic: &topic, Partition: PartitionAny},
		Headers:        []Header{{Key: HeaderContentType, Value: []byte("application/json")}},
	})
}

// OnRefresh returns a refresh hook announcing every snapshot of the named cache.
// Produce failures are logged and do not affect the cache.
func OnRefresh[V any](a *Announcer, name string) func(*cache.Snapshot[V]) {
	return func(snap *cache.Snapshot[V]) {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.Announce(ctx, cache.NewAnnouncement(name, snap)); err != nil {
			a.log.Warn("failed to announce cache refresh",
				zap.String("cache", name),
				zap.Uint64("version", snap.Version()),
				zap.Error(err),
			)
		}
	}
}
