package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/storefront-ledger/internal/config"
)

const (
	topicReadAttempts = 5
	topicReadBackoff  = 2 * time.Second
)

// ensureTopic dials the first broker and creates topic when it has no partitions
func ensureTopic(ctx context.Context, cfg *config.KafkaConfig, topic string, log *slog.Logger) error {
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopicWith(ctx, conn, topicSettings(cfg, topic), topicReadBackoff, log)
}

// topicSettings fills in single-broker defaults for unset partition settings
func topicSettings(cfg *config.KafkaConfig, topic string) kafka.TopicConfig {
	tc := kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     cfg.NumPartitions,
		ReplicationFactor: cfg.ReplicationFactor,
	}
	if tc.NumPartitions <= 0 {
		tc.NumPartitions = 1
	}
	if tc.ReplicationFactor <= 0 {
		tc.ReplicationFactor = 1
	}
	return tc
}

func ensureTopicWith(ctx context.Context, admin topicAdmin, tc kafka.TopicConfig, backoff time.Duration, log *slog.Logger) error {
	log = log.With("topic", tc.Topic)

	var readErr error
	for attempt := 1; attempt <= topicReadAttempts; attempt++ {
		partitions, err := admin.ReadPartitions(tc.Topic)
		if err == nil && len(partitions) > 0 {
			log.Debug("Kafka topic exists", "partitions", len(partitions))
			return nil
		}
		if err == nil {
			break
		}
		readErr = err
		log.Warn("Failed to read topic partitions, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	log.Info("Creating Kafka topic",
		"partitions", tc.NumPartitions,
		"replication_factor", tc.ReplicationFactor,
		"last_read_error", readErr,
	)
	if err := admin.CreateTopics(tc); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", tc.Topic, err)
	}
	return nil
}
