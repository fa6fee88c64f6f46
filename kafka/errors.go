package kafka

import "fmt"

var (
	// ErrInvalidConfig is wrapped by every consumer and producer configuration error
	ErrInvalidConfig = fmt.Errorf("kafka: invalid config")
	// ErrInvalidMessage is returned by Produce for a message without a value
	ErrInvalidMessage = fmt.Errorf("kafka: invalid message")
)

// ErrConsumerConfig returns a consumer configuration error
func ErrConsumerConfig(msg string) error {
	return fmt.Errorf("%w: consumer: %s", ErrInvalidConfig, msg)
}

// ErrProducerConfig returns a producer configuration error
func ErrProducerConfig(msg string) error {
	return fmt.Errorf("%w: producer: %s", ErrInvalidConfig, msg)
}

// ErrConnection wraps a failure to create a kafka client
func ErrConnection(err error) error {
	return fmt.Errorf("kafka: connection failed: %w", err)
}

// ErrUnreachable is returned when the cluster metadata cannot be fetched
func ErrUnreachable(brokers []string, err error) error {
	return fmt.Errorf("kafka: brokers %v unreachable: %w", brokers, err)
}

// ErrSubscribe wraps a failed subscription of a trigger consumer group
func ErrSubscribe(group string, topics []string, err error) error {
	return fmt.Errorf("kafka: group %s subscribe to %v failed: %w", group, topics, err)
}

// ErrConsume is returned when a consumer group loses the cluster
func ErrConsume(group string, err error) error {
	return fmt.Errorf("kafka: group %s consume failed: %w", group, err)
}

// ErrProduce wraps a message the producer refused to enqueue
func ErrProduce(topic string, err error) error {
	return fmt.Errorf("kafka: produce to %s failed: %w", topic, err)
}
