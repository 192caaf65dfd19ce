package service

import (
	"context"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// Ledger is the batch ledger contract the gateway service drives. Satisfied
// by ledger.BatchLedger.
type Ledger interface {
	CreateBatch(ctx context.Context, rec *trace.TransactionRecord) (*trace.TransactionRecord, error)
	AddProcessorData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error)
	AddDistributorData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error)
	AddRetailerData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error)
	MarkAsSold(ctx context.Context, rec *trace.TransactionRecord) (*trace.TransactionRecord, error)
	GetFullTrace(ctx context.Context, batchID string) ([]*trace.TransactionRecord, error)
	GetCurrentTransaction(ctx context.Context, batchID string) (*trace.TransactionRecord, error)
	GetBatchStatus(ctx context.Context, batchID string) (trace.BatchSummary, error)
	VerifyCertificate(ctx context.Context, verificationHash string) (string, bool, error)
}

// CreateBatchInput carries the creation-stage request after boundary
// conversion. Prices are minor units.
type CreateBatchInput struct {
	BatchID       string
	ParentBatchID string
	Owner         string
	CostPrice     int64
	SellingPrice  int64
	Farmer        trace.FarmerData
}

// ProcessorInput carries a processing-stage request
type ProcessorInput struct {
	Owner        string
	CostPrice    int64
	SellingPrice int64
	CorrectionOf string
	Data         trace.ProcessorData
}

// DistributorInput carries a distribution-stage request
type DistributorInput struct {
	Owner        string
	CostPrice    int64
	SellingPrice int64
	CorrectionOf string
	Data         trace.DistributorData
}

// RetailerInput carries a retail-stage request
type RetailerInput struct {
	Owner        string
	CostPrice    int64
	SellingPrice int64
	CorrectionOf string
	Data         trace.RetailerData
}

// ConsumerInput carries the purchase request that closes a batch
type ConsumerInput struct {
	Owner        string
	CostPrice    int64
	SellingPrice int64
	Data         trace.ConsumerData
}

// ScanPayload is the aggregate returned for a QR scan: batch state plus the
// latest record.
type ScanPayload struct {
	BatchID          string
	Sold             bool
	TransactionCount uint64
	Current          *trace.TransactionRecord
}

// TraceabilityService defines the gateway-facing batch operations
type TraceabilityService interface {
	// CreateBatch opens a new batch with the farmer record.
	// Returns ErrBatchAlreadyExists if the batch id is taken.
	CreateBatch(ctx context.Context, in *CreateBatchInput) (*trace.TransactionRecord, error)

	// AddProcessorData appends a processing record to an open batch
	AddProcessorData(ctx context.Context, batchID string, in *ProcessorInput) (*trace.TransactionRecord, error)

	// AddDistributorData appends a distribution record to an open batch
	AddDistributorData(ctx context.Context, batchID string, in *DistributorInput) (*trace.TransactionRecord, error)

	// AddRetailerData appends a retail record to an open batch
	AddRetailerData(ctx context.Context, batchID string, in *RetailerInput) (*trace.TransactionRecord, error)

	// MarkAsSold closes the batch with the consumer record
	MarkAsSold(ctx context.Context, batchID string, in *ConsumerInput) (*trace.TransactionRecord, error)

	// GetFullTrace returns the whole chain of a batch in append order
	GetFullTrace(ctx context.Context, batchID string) ([]*trace.TransactionRecord, error)

	// GetCurrentTransaction returns the latest record of a batch
	GetCurrentTransaction(ctx context.Context, batchID string) (*trace.TransactionRecord, error)

	// GetBatchStatus returns the denormalized batch summary
	GetBatchStatus(ctx context.Context, batchID string) (trace.BatchSummary, error)

	// GetScanPayload aggregates status and the latest record for a QR scan.
	// Returns ErrBatchNotFound for an unknown batch.
	GetScanPayload(ctx context.Context, batchID string) (*ScanPayload, error)

	// VerifyCertificate looks up a certificate by verification hash
	VerifyCertificate(ctx context.Context, verificationHash string) (string, bool, error)
}
