package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agritrace-ledger/internal/domain/outbox"
	"github.com/agritrace-ledger/internal/domain/trace"
)

// BatchLedger owns the append-only chain of every batch and drives each batch
// through Nonexistent -> Open -> Sold. All writes are serialized by a single
// mutex and execute as one atomic store unit: record append, chain linkage,
// summary update, certificate registration and the event outbox row commit
// together or not at all. Reads go straight to the store and never block
// other readers.
//
// Inside the atomic unit every validation runs before the first mutation, so
// a failed write leaves the ledger exactly as it was.
type BatchLedger struct {
	store  trace.Store
	chain  HashChain
	logger *slog.Logger

	mu sync.Mutex // Global write serialization point
}

// NewBatchLedger creates a ledger over the given store. One instance is
// constructed per process and passed by reference to the facade; there are
// no ambient globals.
func NewBatchLedger(logger *slog.Logger, store trace.Store) *BatchLedger {
	return &BatchLedger{
		store:  store,
		logger: logger,
	}
}

// CreateBatch appends the farmer/creation record of a new batch. The batch id
// must be unused. Certificates carried on the farmer payload are registered
// in the same unit; a verification hash already bound to a different
// certificate fails the whole write.
func (l *BatchLedger) CreateBatch(ctx context.Context, rec *trace.TransactionRecord) (*trace.TransactionRecord, error) {
	if err := validateAmounts(rec); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Atomically(ctx, func(ctx context.Context, tx trace.Store) error {
		index := NewBatchIndex(tx.Summaries())
		registry := NewCertificateRegistry(tx.Certificates())

		summary, err := index.GetSummary(ctx, rec.BatchID)
		if err != nil {
			return err
		}
		if summary.Exists {
			return trace.ErrBatchAlreadyExists{BatchID: rec.BatchID}
		}
		if rec.Farmer == nil {
			return trace.ErrInvalidInput{Field: "farmer", Reason: "creation record requires a farmer payload"}
		}
		seen := make(map[string]string, len(rec.Farmer.Certificates))
		for _, cert := range rec.Farmer.Certificates {
			if cert.VerificationHash == "" {
				continue
			}
			if prior, ok := seen[cert.VerificationHash]; ok && prior != cert.CertificateID {
				return trace.ErrDuplicateCertificate{VerificationHash: cert.VerificationHash}
			}
			seen[cert.VerificationHash] = cert.CertificateID
			existing, found, err := registry.Lookup(ctx, cert.VerificationHash)
			if err != nil {
				return err
			}
			if found && existing != cert.CertificateID {
				return trace.ErrDuplicateCertificate{VerificationHash: cert.VerificationHash}
			}
		}

		rec.Seq = 0
		rec.PreviousOwners = []string{}
		rec.PreviousHash = trace.ZeroHash
		rec.CorrectionOf = ""
		rec.IsActive = true
		rec.IsSold = false
		rec.TransactionHash = l.chain.Compute(rec, trace.ZeroHash)

		if err := index.MarkCreated(ctx, rec.BatchID); err != nil {
			return err
		}
		if err := tx.Records().Append(ctx, rec); err != nil {
			return err
		}
		if err := index.IncrementCount(ctx, rec.BatchID); err != nil {
			return err
		}
		for _, cert := range rec.Farmer.Certificates {
			if cert.VerificationHash == "" {
				continue
			}
			if err := registry.Register(ctx, cert.VerificationHash, cert.CertificateID); err != nil {
				return err
			}
		}
		return l.enqueueEvent(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("batch created",
		"batch_id", rec.BatchID,
		"transaction_id", rec.TransactionID,
		"parent_batch_id", rec.ParentBatchID,
	)
	return rec.Clone(), nil
}

// AddProcessorData appends a processing-stage record
func (l *BatchLedger) AddProcessorData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error) {
	if rec.Processor == nil {
		return nil, trace.ErrInvalidInput{Field: "processor", Reason: "processor payload is required"}
	}
	return l.appendStage(ctx, rec, correctionOf)
}

// AddDistributorData appends a distribution-stage record
func (l *BatchLedger) AddDistributorData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error) {
	if rec.Distributor == nil {
		return nil, trace.ErrInvalidInput{Field: "distributor", Reason: "distributor payload is required"}
	}
	return l.appendStage(ctx, rec, correctionOf)
}

// AddRetailerData appends a retail-stage record
func (l *BatchLedger) AddRetailerData(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error) {
	if rec.Retailer == nil {
		return nil, trace.ErrInvalidInput{Field: "retailer", Reason: "retailer payload is required"}
	}
	return l.appendStage(ctx, rec, correctionOf)
}

// MarkAsSold appends the consumer record and locks the batch permanently.
// This is the terminal transition; every later write fails with ReadOnly.
func (l *BatchLedger) MarkAsSold(ctx context.Context, rec *trace.TransactionRecord) (*trace.TransactionRecord, error) {
	if rec.Consumer == nil {
		return nil, trace.ErrInvalidInput{Field: "consumer", Reason: "consumer payload is required"}
	}
	if err := validateAmounts(rec); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Atomically(ctx, func(ctx context.Context, tx trace.Store) error {
		index := NewBatchIndex(tx.Summaries())

		head, err := l.openBatchHead(ctx, tx, rec.BatchID)
		if err != nil {
			return err
		}

		l.linkToHead(rec, head)
		rec.CorrectionOf = ""
		rec.IsSold = true
		rec.TransactionHash = l.chain.Compute(rec, head.TransactionHash)

		if err := tx.Records().Append(ctx, rec); err != nil {
			return err
		}
		if err := index.IncrementCount(ctx, rec.BatchID); err != nil {
			return err
		}
		if err := index.MarkSold(ctx, rec.BatchID); err != nil {
			return err
		}
		return l.enqueueEvent(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("batch sold",
		"batch_id", rec.BatchID,
		"transaction_id", rec.TransactionID,
	)
	return rec.Clone(), nil
}

// GetFullTrace returns every record of the batch in append order, empty for
// an unknown batch. The sold flag of the batch is reflected on every record.
func (l *BatchLedger) GetFullTrace(ctx context.Context, batchID string) ([]*trace.TransactionRecord, error) {
	records, err := l.store.Records().GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []*trace.TransactionRecord{}, nil
	}
	summary, err := l.store.Summaries().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	out := make([]*trace.TransactionRecord, 0, len(records))
	for _, rec := range records {
		c := rec.Clone()
		c.IsSold = summary.Sold
		out = append(out, c)
	}
	return out, nil
}

// GetCurrentTransaction returns the chain head: the most recently appended
// record, which a correction still advances
func (l *BatchLedger) GetCurrentTransaction(ctx context.Context, batchID string) (*trace.TransactionRecord, error) {
	head, err := l.store.Records().Head(ctx, batchID)
	if err != nil {
		return nil, err
	}
	summary, err := l.store.Summaries().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	c := head.Clone()
	c.IsSold = summary.Sold
	return c, nil
}

// GetBatchStatus returns the denormalized summary, Exists=false if unknown
func (l *BatchLedger) GetBatchStatus(ctx context.Context, batchID string) (trace.BatchSummary, error) {
	return NewBatchIndex(l.store.Summaries()).GetSummary(ctx, batchID)
}

// VerifyCertificate resolves a verification hash via the certificate registry
func (l *BatchLedger) VerifyCertificate(ctx context.Context, verificationHash string) (string, bool, error) {
	return NewCertificateRegistry(l.store.Certificates()).Lookup(ctx, verificationHash)
}

// appendStage is the shared Open -> Open transition for processor,
// distributor and retailer records. Stage order is deliberately not enforced
// and any stage may repeat; corrections and re-handling are expected.
func (l *BatchLedger) appendStage(ctx context.Context, rec *trace.TransactionRecord, correctionOf string) (*trace.TransactionRecord, error) {
	if err := validateAmounts(rec); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	err := l.store.Atomically(ctx, func(ctx context.Context, tx trace.Store) error {
		index := NewBatchIndex(tx.Summaries())

		head, err := l.openBatchHead(ctx, tx, rec.BatchID)
		if err != nil {
			return err
		}
		if correctionOf != "" {
			if _, err := tx.Records().GetByTransactionID(ctx, rec.BatchID, correctionOf); err != nil {
				if trace.IsNotFound(err) {
					return trace.ErrInvalidCorrectionTarget{BatchID: rec.BatchID, TransactionID: correctionOf}
				}
				return err
			}
		}

		l.linkToHead(rec, head)
		rec.CorrectionOf = correctionOf
		rec.IsSold = false
		rec.TransactionHash = l.chain.Compute(rec, head.TransactionHash)

		if correctionOf != "" {
			if err := tx.Records().Deactivate(ctx, rec.BatchID, correctionOf); err != nil {
				return err
			}
		}
		if err := tx.Records().Append(ctx, rec); err != nil {
			return err
		}
		if err := index.IncrementCount(ctx, rec.BatchID); err != nil {
			return err
		}
		return l.enqueueEvent(ctx, tx, rec)
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("stage data added",
		"batch_id", rec.BatchID,
		"transaction_id", rec.TransactionID,
		"creator_role", string(rec.CreatorRole),
		"correction_of", correctionOf,
	)
	return rec.Clone(), nil
}

// validateAmounts enforces the numeric bounds of a record before it may
// enter the chain: prices are non-negative minor units, quantities positive
func validateAmounts(rec *trace.TransactionRecord) error {
	if rec.CostPrice < 0 {
		return trace.ErrInvalidInput{Field: "cost_price", Reason: "price must not be negative"}
	}
	if rec.SellingPrice < 0 {
		return trace.ErrInvalidInput{Field: "selling_price", Reason: "price must not be negative"}
	}
	if rec.Farmer != nil && rec.Farmer.QuantityKg <= 0 {
		return trace.ErrInvalidInput{Field: "farmer.quantity_kg", Reason: "quantity must be positive"}
	}
	if rec.Processor != nil && rec.Processor.OutputQuantityKg <= 0 {
		return trace.ErrInvalidInput{Field: "processor.output_quantity_kg", Reason: "output quantity must be positive"}
	}
	if rec.Retailer != nil && rec.Retailer.RetailPrice < 0 {
		return trace.ErrInvalidInput{Field: "retailer.retail_price", Reason: "price must not be negative"}
	}
	return nil
}

// openBatchHead validates the batch is in the Open state and returns its
// chain head
func (l *BatchLedger) openBatchHead(ctx context.Context, tx trace.Store, batchID string) (*trace.TransactionRecord, error) {
	summary, err := tx.Summaries().Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if !summary.Exists {
		return nil, trace.ErrBatchNotFound{BatchID: batchID}
	}
	if summary.Sold {
		return nil, trace.ErrBatchReadOnly{BatchID: batchID}
	}
	return tx.Records().Head(ctx, batchID)
}

// linkToHead chains rec behind head and carries the ownership history forward
func (l *BatchLedger) linkToHead(rec, head *trace.TransactionRecord) {
	rec.Seq = head.Seq + 1
	rec.PreviousOwners = append(append([]string(nil), head.PreviousOwners...), head.CurrentOwner)
	rec.PreviousHash = head.TransactionHash
	rec.IsActive = true
}

func (l *BatchLedger) enqueueEvent(ctx context.Context, tx trace.Store, rec *trace.TransactionRecord) error {
	ev := trace.NewEvent(rec)
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal trace event for %s: %w", rec.TransactionID, err)
	}
	return tx.Outbox().Create(ctx, outbox.NewMessage(string(ev.Type), ev.BatchID, ev.TransactionID, payload))
}
