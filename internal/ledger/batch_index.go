package ledger

import (
	"context"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// BatchIndex maintains the per-batch existence/sold/count summary so status
// queries never re-scan a chain. Its mutators are invoked only by BatchLedger
// inside the same atomic unit as the append they describe, which keeps the
// summary and the record count from ever drifting apart.
type BatchIndex struct {
	summaries trace.SummaryRepository
}

// NewBatchIndex creates an index over the given summary repository
func NewBatchIndex(summaries trace.SummaryRepository) *BatchIndex {
	return &BatchIndex{summaries: summaries}
}

// GetSummary returns the batch summary; unknown batches report Exists=false
func (i *BatchIndex) GetSummary(ctx context.Context, batchID string) (trace.BatchSummary, error) {
	return i.summaries.Get(ctx, batchID)
}

// MarkCreated registers a new batch; fails if the id is already taken
func (i *BatchIndex) MarkCreated(ctx context.Context, batchID string) error {
	return i.summaries.Create(ctx, batchID)
}

// IncrementCount bumps the transaction count after an append
func (i *BatchIndex) IncrementCount(ctx context.Context, batchID string) error {
	return i.summaries.IncrementCount(ctx, batchID)
}

// MarkSold permanently flips the sold flag
func (i *BatchIndex) MarkSold(ctx context.Context, batchID string) error {
	return i.summaries.MarkSold(ctx, batchID)
}
