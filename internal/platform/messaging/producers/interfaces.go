package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// MessagePublisher delivers trace events to the primary topic. The key is
// the batch id, which keeps all events of one batch on one partition.
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetterPublisher parks undeliverable or poison events on the DLQ topic
// together with the reason they could not be processed
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter is the slice of kafka.Writer the producers use, extracted so
// tests can substitute the broker
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
