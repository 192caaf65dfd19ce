package trace_projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/platform/messaging/producers"
)

type ArchiveServiceImpl struct {
	archive ArchiveWriter
	dlq     producers.DeadLetterPublisher
	logger  *slog.Logger
}

func NewArchiveService(
	archive ArchiveWriter,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) ArchiveService {
	return &ArchiveServiceImpl{
		archive: archive,
		dlq:     dlq,
		logger:  logger,
	}
}

// ArchiveEvent projects a single trace event into the archive. Poison
// messages go to the DLQ and are acknowledged; transient archive failures
// return an error so the offset stays uncommitted and the message is
// redelivered.
func (s *ArchiveServiceImpl) ArchiveEvent(ctx context.Context, key []byte, value []byte) error {
	var ev trace.Event
	if err := json.Unmarshal(value, &ev); err != nil {
		s.logger.Error("Failed to unmarshal trace event, routing to DLQ",
			"key", string(key), "error", err,
		)
		return s.sendToDLQ(ctx, key, value, fmt.Sprintf("unmarshal failed: %v", err))
	}

	if ev.TransactionID == "" || ev.Record == nil {
		s.logger.Error("Trace event is missing transaction id or record, routing to DLQ",
			"key", string(key), "event_type", ev.Type,
		)
		return s.sendToDLQ(ctx, key, value, "missing transaction_id or record")
	}

	if err := s.archive.Upsert(ctx, &ev); err != nil {
		s.logger.Error("Failed to archive trace event",
			"transaction_id", ev.TransactionID, "batch_id", ev.BatchID, "error", err,
		)
		return fmt.Errorf("failed to archive event %s: %w", ev.TransactionID, err)
	}

	s.logger.Debug("Archived trace event",
		"transaction_id", ev.TransactionID, "batch_id", ev.BatchID, "event_type", ev.Type,
	)
	return nil
}

func (s *ArchiveServiceImpl) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string) error {
	if s.dlq == nil {
		s.logger.Warn("DLQ is disabled, dropping poison message", "key", string(key), "reason", reason)
		return nil
	}
	if err := s.dlq.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		return fmt.Errorf("failed to route poison message to DLQ: %w", err)
	}
	return nil
}
