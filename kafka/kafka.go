// Package kafka connects caches to kafka: a topic can trigger refreshes and
// refreshes can be announced to a topic.
package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Message is a consumed or produced kafka message
type Message struct {
	Value          []byte
	Key            []byte
	Timestamp      time.Time
	TopicPartition TopicPartition
	Headers        []Header
}

// Topic returns the message topic, or "" when unset
func (m *Message) Topic() string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}

// GetHeader returns the value of the first header named k, or nil
func (m *Message) GetHeader(k string) []byte {
	for _, header := range m.Headers {
		if header.Key == k {
			return header.Value
		}
	}
	return nil
}

// PartitionAny lets the producer's partitioner choose the partition
const PartitionAny = kafka.PartitionAny

// TopicPartition locates a message
type TopicPartition struct {
	Topic     *string
	Partition int32
	Offset    Offset
}

// Offset of a message in its partition
type Offset int64

// Header is a message header
type Header struct {
	Key   string
	Value []byte
}

// ConsumerMsgHandler handles one consumed message. Errors are logged and the
// message is not redelivered.
type ConsumerMsgHandler func(ctx context.Context, msg *Message) error

// Consumer delivers the messages of its subscribed topics to a handler
type Consumer interface {
	Start(ctx context.Context, handler ConsumerMsgHandler) error
	Close() error
}

// Producer enqueues messages for asynchronous delivery
type Producer interface {
	Produce(ctx context.Context, msg *Message) error
	Close() error
}

func toMessage(msg *kafka.Message) *Message {
	m := &Message{
		Value:     msg.Value,
		Key:       msg.Key,
		Timestamp: msg.Timestamp,
		TopicPartition: TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: msg.TopicPartition.Partition,
			Offset:    Offset(msg.TopicPartition.Offset),
		},
	}
	if len(msg.Headers) > 0 {
		m.Headers = make([]Header, len(msg.Headers))
		for i, h := range msg.Headers {
			m.Headers[i] = Header{Key: h.Key, Value: h.Value}
		}
	}
	return m
}

// toKafkaMessage addresses msg to topic. Partition is passed through, so
// callers without a preference set PartitionAny.
func toKafkaMessage(msg *Message, topic string) *kafka.Message {
	km := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: msg.TopicPartition.Partition},
		Key:            msg.Key,
		Value:          msg.Value,
		Timestamp:      msg.Timestamp,
	}
	for _, h := range msg.Headers {
		km.Headers = append(km.Headers, kafka.Header{Key: h.Key, Value: h.Value})
	}
	return km
}
