package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/storefront-ledger/internal/domain/event"
)

// EventPublisher queues business events for asynchronous posting
type EventPublisher interface {
	Publish(ctx context.Context, key string, env *event.Envelope) error
	Close() error
}

// DeadLetterPublisher parks events that can never be posted
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// topicAdmin is the part of *kafka.Conn used to manage topics
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}
