package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

// SummaryRepository implements trace.SummaryRepository for PostgreSQL
type SummaryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Get returns the batch summary; unknown batches report Exists=false
func (r *SummaryRepository) Get(ctx context.Context, batchID string) (trace.BatchSummary, error) {
	query := `SELECT batch_id, sold, transaction_count FROM batch_summaries WHERE batch_id = $1`

	summary := trace.BatchSummary{BatchID: batchID}
	err := r.querier.QueryRow(ctx, query, batchID).Scan(
		&summary.BatchID,
		&summary.Sold,
		&summary.TransactionCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trace.BatchSummary{BatchID: batchID}, nil
		}
		r.logger.Error("failed to get batch summary", "batch_id", batchID, "error", err)
		return trace.BatchSummary{}, fmt.Errorf("failed to get batch summary: %w", err)
	}
	summary.Exists = true
	return summary, nil
}

// Create registers a new batch. The ledger has already checked existence
// under its write lock, so a unique violation here means another process won
// the creation race.
func (r *SummaryRepository) Create(ctx context.Context, batchID string) error {
	query := `INSERT INTO batch_summaries (batch_id, sold, transaction_count) VALUES ($1, FALSE, 0)`

	if _, err := r.querier.Exec(ctx, query, batchID); err != nil {
		if isUniqueViolation(err) {
			return trace.ErrConflict{BatchID: batchID}
		}
		r.logger.Error("failed to create batch summary", "batch_id", batchID, "error", err)
		return fmt.Errorf("failed to create batch summary: %w", err)
	}
	return nil
}

// IncrementCount bumps the transaction count after an append
func (r *SummaryRepository) IncrementCount(ctx context.Context, batchID string) error {
	query := `UPDATE batch_summaries SET transaction_count = transaction_count + 1 WHERE batch_id = $1`

	result, err := r.querier.Exec(ctx, query, batchID)
	if err != nil {
		r.logger.Error("failed to increment transaction count", "batch_id", batchID, "error", err)
		return fmt.Errorf("failed to increment transaction count: %w", err)
	}
	if result.RowsAffected() == 0 {
		return trace.ErrBatchNotFound{BatchID: batchID}
	}
	return nil
}

// MarkSold flips the sold flag exactly once; a second writer loses the race
// and gets ReadOnly
func (r *SummaryRepository) MarkSold(ctx context.Context, batchID string) error {
	query := `UPDATE batch_summaries SET sold = TRUE WHERE batch_id = $1 AND sold = FALSE`

	result, err := r.querier.Exec(ctx, query, batchID)
	if err != nil {
		r.logger.Error("failed to mark batch sold", "batch_id", batchID, "error", err)
		return fmt.Errorf("failed to mark batch sold: %w", err)
	}
	if result.RowsAffected() == 0 {
		summary, err := r.Get(ctx, batchID)
		if err != nil {
			return err
		}
		if !summary.Exists {
			return trace.ErrBatchNotFound{BatchID: batchID}
		}
		return trace.ErrBatchReadOnly{BatchID: batchID}
	}
	return nil
}
