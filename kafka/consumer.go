package kafka

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"go.uber.org/zap"
)

// pollTimeoutMs bounds each poll so that cancellation is noticed
const pollTimeoutMs = 100

// consumer polls a single subscribed kafka consumer
type consumer struct {
	log    logger.Logger
	config *ConsumerConfig
	c      *kafka.Consumer

	started atomic.Bool
	closed  atomic.Bool
	stopped chan struct{}
}

// NewConsumer checks the cluster, then subscribes to the configured topics.
// Nothing is consumed before Start.
func NewConsumer(log logger.Logger, config *ConsumerConfig) (Consumer, error) {
	log = logger.OrNop(log)
	if config == nil {
		config = DefaultConsumerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	kc, err := kafka.NewConsumer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := kc.SubscribeTopics(config.Topics, nil); err != nil {
		kc.Close()
		return nil, ErrSubscribe(config.GroupID, config.Topics, err)
	}

	log.Info("kafka consumer subscribed",
		zap.String("group_id", config.GroupID),
		zap.Strings("topics", config.Topics),
	)
	return &consumer{log: log, config: config, c: kc, stopped: make(chan struct{})}, nil
}

// Start polls in the background until ctx is done or the consumer is closed.
// Only the first call has an effect.
func (c *consumer) Start(ctx context.Context, handler ConsumerMsgHandler) error {
	if c.closed.Load() || !c.started.CompareAndSwap(false, true) {
		return nil
	}
	group := c.config.GroupID
	routine.GoContext(ctx, c.log, "kafka-consumer-"+group, func(ctx context.Context) {
		defer close(c.stopped)
		if err := c.poll(ctx, handler); err != nil && ctx.Err() == nil {
			c.log.Error("kafka consumer stopped", zap.String("group_id", group), zap.Error(err))
		}
	})
	return nil
}

// Close waits for the poll loop, then leaves the group
func (c *consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.started.Load() {
		<-c.stopped
	}
	if err := c.c.Close(); err != nil {
		return ErrConnection(err)
	}
	c.log.Info("kafka consumer closed", zap.String("group_id", c.config.GroupID))
	return nil
}

func (c *consumer) poll(ctx context.Context, handler ConsumerMsgHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.closed.Load() {
			return nil
		}

		switch e := c.c.Poll(pollTimeoutMs).(type) {
		case nil:
		case *kafka.Message:
			msg := toMessage(e)
			if err := handler(ctx, msg); err != nil {
				c.log.Warn("kafka message handler failed",
					zap.String("topic", msg.Topic()),
					zap.Int32("partition", msg.TopicPartition.Partition),
					zap.Int64("offset", int64(msg.TopicPartition.Offset)),
					zap.Error(err),
				)
			}
		case kafka.Error:
			if e.Code() == kafka.ErrAllBrokersDown {
				return ErrConsume(c.config.GroupID, e)
			}
			c.log.Warn("kafka consumer error", zap.Int("code", int(e.Code())), zap.Error(e))
		default:
			c.log.Debug("kafka consumer event ignored", zap.String("type", fmt.Sprintf("%T", e)))
		}
	}
}
