package kafka

import (
	"context"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/warmcache/logger"
	"github.com/dailyyoga/warmcache/routine"
	"go.uber.org/zap"
)

type producer struct {
	log    logger.Logger
	config *ProducerConfig
	p      *kafka.Producer

	reports   sync.WaitGroup
	closeOnce sync.Once
}

// NewProducer checks the cluster and creates an asynchronous producer.
// Delivery failures are logged; Produce only reports messages it could not enqueue.
func NewProducer(log logger.Logger, config *ProducerConfig) (Producer, error) {
	log = logger.OrNop(log)
	if config == nil {
		config = DefaultProducerConfig()
	} else {
		config = config.MergeDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := validateKafkaCluster(log, config.Brokers); err != nil {
		return nil, err
	}

	kp, err := kafka.NewProducer(config.BuildConfigMap())
	if err != nil {
		return nil, ErrConnection(err)
	}

	p := &producer{log: log, config: config, p: kp}
	p.reports.Add(1)
	routine.Go(log, "kafka-delivery-reports", p.reportDeliveries)

	log.Info("kafka producer created", zap.Strings("brokers", config.Brokers), zap.String("topic", config.Topic))
	return p, nil
}

// reportDeliveries drains the event channel until the producer is closed
func (p *producer) reportDeliveries() {
	defer p.reports.Done()
	for e := range p.p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if err := ev.TopicPartition.Error; err != nil {
				msg := toMessage(ev)
				p.log.Warn("kafka message not delivered",
					zap.String("topic", msg.Topic()),
					zap.ByteString("key", msg.Key),
					zap.Error(err),
				)
			}
		case kafka.Error:
			p.log.Error("kafka producer error", zap.Int("code", int(ev.Code())), zap.Error(ev))
		}
	}
}

// Produce enqueues msg. A message without a topic goes to the configured topic.
func (p *producer) Produce(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.Value == nil {
		return ErrInvalidMessage
	}

	topic := p.config.Topic
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	if err := p.p.Produce(toKafkaMessage(msg, topic), nil); err != nil {
		return ErrProduce(topic, err)
	}
	return nil
}

// Close flushes pending messages for at most FlushTimeout and closes the producer.
// It can be called multiple times safely.
func (p *producer) Close() error {
	p.closeOnce.Do(func() {
		if remaining := p.p.Flush(int(p.config.FlushTimeout.Milliseconds())); remaining > 0 {
			p.log.Warn("kafka producer closed with undelivered messages", zap.Int("remaining", remaining))
		}
		p.p.Close()
		p.reports.Wait()
		p.log.Info("kafka producer closed")
	})
	return nil
}
