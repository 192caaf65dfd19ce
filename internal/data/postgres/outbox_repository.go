package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agritrace-ledger/internal/domain/outbox"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

// OutboxRepository implements outbox.Repository for PostgreSQL. Event rows
// are inserted inside the same transaction as the append they describe.
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Create stores a new outbox message in pending status
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	query := `
		INSERT INTO trace_outbox (batch_id, transaction_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.querier.QueryRow(ctx, query,
		message.BatchID,
		message.TransactionID,
		message.EventType,
		message.Payload,
		string(message.Status),
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		r.logger.Error("failed to create outbox message",
			"batch_id", message.BatchID, "transaction_id", message.TransactionID, "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}
	return nil
}

// GetPending fetches up to limit unpublished messages in insertion order
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	query := `
		SELECT id, batch_id, transaction_id, event_type, payload, status, attempts, created_at, last_attempt_at
		FROM trace_outbox
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
	`
	rows, err := r.querier.Query(ctx, query, string(outbox.StatusPending), limit)
	if err != nil {
		r.logger.Error("failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	defer rows.Close()

	var messages []*outbox.Message
	for rows.Next() {
		var (
			m      outbox.Message
			status string
		)
		if err := rows.Scan(&m.ID, &m.BatchID, &m.TransactionID, &m.EventType,
			&m.Payload, &status, &m.Attempts, &m.CreatedAt, &m.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}
		m.Status = outbox.Status(status)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outbox messages: %w", err)
	}
	return messages, nil
}

// UpdateStatus transitions a message to the given publishing state
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	query := `UPDATE trace_outbox SET status = $1, last_attempt_at = NOW() WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("failed to update outbox message status", "id", id, "error", err)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

// IncrementAttempts records a failed publish attempt
func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `UPDATE trace_outbox SET attempts = attempts + 1, last_attempt_at = NOW() WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to increment outbox attempts", "id", id, "error", err)
		return fmt.Errorf("failed to increment outbox attempts: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

// Delete removes a message, used by retention cleanups
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM trace_outbox WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("failed to delete outbox message", "id", id, "error", err)
		return fmt.Errorf("failed to delete outbox message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}
