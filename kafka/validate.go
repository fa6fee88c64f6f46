package kafka

import (
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dailyyoga/warmcache/logger"
	"go.uber.org/zap"
)

const (
	metadataTimeout = 10 * time.Second
	metadataRetries = 3
	metadataBackoff = 2 * time.Second
)

// validateKafkaCluster fetches the cluster metadata so that a misconfigured
// trigger or announcer fails at construction instead of silently never firing
func validateKafkaCluster(log logger.Logger, brokers []string) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(brokers, ","),
		"request.timeout.ms": int(metadataTimeout.Milliseconds()),
	})
	if err != nil {
		return ErrConnection(err)
	}
	defer admin.Close()

	for attempt := 1; ; attempt++ {
		md, err := admin.GetMetadata(nil, false, int(metadataTimeout.Milliseconds()))
		if err == nil {
			log.Info("kafka cluster reachable", zap.Strings("brokers", brokers), zap.Int("broker_count", len(md.Brokers)))
			return nil
		}
		if attempt == metadataRetries {
			return ErrUnreachable(brokers, err)
		}
		log.Warn("kafka cluster metadata unavailable, retrying",
			zap.Strings("brokers", brokers),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(metadataBackoff)
	}
}
