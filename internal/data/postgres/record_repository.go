package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

// stagePayload is the jsonb envelope holding the single populated variant
type stagePayload struct {
	Farmer      *trace.FarmerData      `json:"farmer,omitempty"`
	Processor   *trace.ProcessorData   `json:"processor,omitempty"`
	Distributor *trace.DistributorData `json:"distributor,omitempty"`
	Retailer    *trace.RetailerData    `json:"retailer,omitempty"`
	Consumer    *trace.ConsumerData    `json:"consumer,omitempty"`
}

const recordColumns = `batch_id, seq, transaction_id, ts, creator_role, parent_batch_id,
		current_owner, previous_owners, cost_price, selling_price,
		transaction_hash, previous_hash, correction_of, is_active, payload`

// RecordRepository implements trace.RecordRepository for PostgreSQL
type RecordRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// Append inserts a record at its chain position. The primary key
// (batch_id, seq) and the unique transaction_id turn a lost writer race into
// trace.ErrConflict.
func (r *RecordRepository) Append(ctx context.Context, rec *trace.TransactionRecord) error {
	owners, err := json.Marshal(rec.PreviousOwners)
	if err != nil {
		return fmt.Errorf("failed to marshal previous owners: %w", err)
	}
	payload, err := json.Marshal(stagePayload{
		Farmer:      rec.Farmer,
		Processor:   rec.Processor,
		Distributor: rec.Distributor,
		Retailer:    rec.Retailer,
		Consumer:    rec.Consumer,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal stage payload: %w", err)
	}

	query := `
		INSERT INTO trace_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.querier.Exec(ctx, query,
		rec.BatchID,
		rec.Seq,
		rec.TransactionID,
		rec.Timestamp,
		string(rec.CreatorRole),
		rec.ParentBatchID,
		rec.CurrentOwner,
		owners,
		rec.CostPrice,
		rec.SellingPrice,
		string(rec.TransactionHash),
		string(rec.PreviousHash),
		rec.CorrectionOf,
		rec.IsActive,
		payload,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return trace.ErrConflict{BatchID: rec.BatchID}
		}
		r.logger.Error("failed to append trace record",
			"batch_id", rec.BatchID, "transaction_id", rec.TransactionID, "error", err)
		return fmt.Errorf("failed to append trace record: %w", err)
	}
	return nil
}

// GetByBatchID returns the chain in append order, empty for unknown batches
func (r *RecordRepository) GetByBatchID(ctx context.Context, batchID string) ([]*trace.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM trace_records WHERE batch_id = $1 ORDER BY seq ASC`

	rows, err := r.querier.Query(ctx, query, batchID)
	if err != nil {
		r.logger.Error("failed to query trace records", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to query trace records: %w", err)
	}
	defer rows.Close()

	var records []*trace.TransactionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace records: %w", err)
	}
	return records, nil
}

// Head returns the most recently appended record of the batch
func (r *RecordRepository) Head(ctx context.Context, batchID string) (*trace.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM trace_records WHERE batch_id = $1 ORDER BY seq DESC LIMIT 1`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trace.ErrBatchNotFound{BatchID: batchID}
		}
		r.logger.Error("failed to get chain head", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to get chain head: %w", err)
	}
	return rec, nil
}

// GetByTransactionID resolves a transaction id within one batch
func (r *RecordRepository) GetByTransactionID(ctx context.Context, batchID, transactionID string) (*trace.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM trace_records WHERE batch_id = $1 AND transaction_id = $2`

	rec, err := scanRecord(r.querier.QueryRow(ctx, query, batchID, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trace.ErrTransactionNotFound{TransactionID: transactionID}
		}
		r.logger.Error("failed to get trace record",
			"batch_id", batchID, "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("failed to get trace record: %w", err)
	}
	return rec, nil
}

// Deactivate clears is_active on a superseded record
func (r *RecordRepository) Deactivate(ctx context.Context, batchID, transactionID string) error {
	query := `UPDATE trace_records SET is_active = FALSE WHERE batch_id = $1 AND transaction_id = $2`

	result, err := r.querier.Exec(ctx, query, batchID, transactionID)
	if err != nil {
		r.logger.Error("failed to deactivate trace record",
			"batch_id", batchID, "transaction_id", transactionID, "error", err)
		return fmt.Errorf("failed to deactivate trace record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return trace.ErrTransactionNotFound{TransactionID: transactionID}
	}
	return nil
}

// scanRecord reads one record row; works for both pgx.Row and pgx.Rows
func scanRecord(row pgx.Row) (*trace.TransactionRecord, error) {
	var (
		rec     trace.TransactionRecord
		role    string
		txHash  string
		prev    string
		owners  []byte
		payload []byte
	)
	err := row.Scan(
		&rec.BatchID,
		&rec.Seq,
		&rec.TransactionID,
		&rec.Timestamp,
		&role,
		&rec.ParentBatchID,
		&rec.CurrentOwner,
		&owners,
		&rec.CostPrice,
		&rec.SellingPrice,
		&txHash,
		&prev,
		&rec.CorrectionOf,
		&rec.IsActive,
		&payload,
	)
	if err != nil {
		return nil, err
	}

	rec.CreatorRole = trace.Role(role)
	rec.TransactionHash = trace.Hash(txHash)
	rec.PreviousHash = trace.Hash(prev)
	if err := json.Unmarshal(owners, &rec.PreviousOwners); err != nil {
		return nil, fmt.Errorf("failed to unmarshal previous owners: %w", err)
	}
	var p stagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage payload: %w", err)
	}
	rec.Farmer = p.Farmer
	rec.Processor = p.Processor
	rec.Distributor = p.Distributor
	rec.Retailer = p.Retailer
	rec.Consumer = p.Consumer
	return &rec, nil
}
