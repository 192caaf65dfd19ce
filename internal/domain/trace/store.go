package trace

import (
	"context"

	"github.com/agritrace-ledger/internal/domain/outbox"
)

// RecordRepository persists the append-only chain of a batch.
// Implementations keep records in append order and never delete them;
// Deactivate is the single permitted mutation (correction superseding).
type RecordRepository interface {
	// Append stores a new record at rec.Seq. The (batch_id, seq) slot and the
	// transaction id must both be unused; a violation surfaces as
	// ErrConflict (lost race) from stores that can detect it.
	Append(ctx context.Context, rec *TransactionRecord) error

	// GetByBatchID returns the full chain in append order, empty if unknown
	GetByBatchID(ctx context.Context, batchID string) ([]*TransactionRecord, error)

	// Head returns the most recently appended record of the batch.
	// Returns ErrBatchNotFound for an unknown batch.
	Head(ctx context.Context, batchID string) (*TransactionRecord, error)

	// GetByTransactionID resolves a transaction within one batch.
	// Returns ErrTransactionNotFound when it does not resolve there.
	GetByTransactionID(ctx context.Context, batchID, transactionID string) (*TransactionRecord, error)

	// Deactivate clears is_active on the superseded record
	Deactivate(ctx context.Context, batchID, transactionID string) error
}

// SummaryRepository maintains the per-batch denormalized summary
type SummaryRepository interface {
	// Get returns the summary; Exists=false (not an error) for unknown batches
	Get(ctx context.Context, batchID string) (BatchSummary, error)

	// Create registers a new batch. Returns ErrBatchAlreadyExists if the
	// batch id is taken, ErrConflict on a lost creation race.
	Create(ctx context.Context, batchID string) error

	// IncrementCount bumps the transaction count after an append
	IncrementCount(ctx context.Context, batchID string) error

	// MarkSold permanently flips the sold flag
	MarkSold(ctx context.Context, batchID string) error
}

// CertificateRepository is the verification-hash to certificate-id index
type CertificateRepository interface {
	// Put binds a hash to a certificate id, first writer wins.
	// Returns ErrDuplicateCertificate if the hash is bound to a different id;
	// rebinding the same id is a no-op.
	Put(ctx context.Context, verificationHash, certificateID string) error

	// Get returns the bound certificate id, or "" when the hash is unknown
	Get(ctx context.Context, verificationHash string) (string, error)
}

// Store bundles the ledger's persistence concerns behind one atomic boundary
type Store interface {
	Records() RecordRepository
	Summaries() SummaryRepository
	Certificates() CertificateRepository
	Outbox() outbox.Repository

	// Atomically runs fn against a store view whose mutations commit together
	// or not at all. Readers never observe a partially applied unit.
	Atomically(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
