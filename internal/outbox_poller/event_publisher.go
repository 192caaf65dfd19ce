package outbox_poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agritrace-ledger/internal/domain/outbox"
	"github.com/agritrace-ledger/internal/platform/messaging/producers"
)

// EventPublisher pushes an outbox message onto the event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher on top of a Kafka producer
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent writes the stored event payload to the stream, keyed by batch
// so consumers see a batch's events in order, then marks the row processed.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	var payload json.RawMessage
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		p.logger.Error("Outbox payload is not valid JSON, marking as FAILED_TO_PUBLISH",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after payload error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("invalid payload for outbox %d: %w", message.ID, err)
	}

	if err := p.producer.Publish(ctx, message.BatchID, payload); err != nil {
		return fmt.Errorf("failed to publish outbox %d to event stream: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		p.logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("publish for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	p.logger.Info("Outbox message published and marked as PROCESSED",
		"outbox_id", message.ID, "transaction_id", message.TransactionID, "event_type", message.EventType,
	)
	return nil
}
