// Package memory provides the in-process implementation of the trace store.
// It is the default backing for standalone deployments and for tests. A
// single RWMutex serializes the whole store: Atomically holds the write lock
// for the entire unit, so readers never observe a half-applied append.
package memory

import (
	"context"
	"sync"

	"github.com/agritrace-ledger/internal/domain/outbox"
	"github.com/agritrace-ledger/internal/domain/trace"
)

// Store keeps every chain, summary, certificate binding and outbox row in
// process memory. Records are append-only slices per batch.
type Store struct {
	mu sync.RWMutex

	records      map[string][]*trace.TransactionRecord
	summaries    map[string]*trace.BatchSummary
	certificates map[string]string
	outboxSeq    int64
	outboxRows   map[int64]*outbox.Message

	inTx bool // Set on the view handed to Atomically callbacks
}

// NewStore creates an empty in-memory trace store
func NewStore() *Store {
	return &Store{
		records:      make(map[string][]*trace.TransactionRecord),
		summaries:    make(map[string]*trace.BatchSummary),
		certificates: make(map[string]string),
		outboxRows:   make(map[int64]*outbox.Message),
	}
}

func (s *Store) Records() trace.RecordRepository           { return (*recordRepo)(s) }
func (s *Store) Summaries() trace.SummaryRepository        { return (*summaryRepo)(s) }
func (s *Store) Certificates() trace.CertificateRepository { return (*certificateRepo)(s) }
func (s *Store) Outbox() outbox.Repository                 { return (*outboxRepo)(s) }

// Atomically runs fn while holding the write lock. The ledger performs all
// validations before its first mutation, so a failing unit leaves the maps
// untouched without journaling.
func (s *Store) Atomically(_ context.Context, fn func(ctx context.Context, tx trace.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{
		records:      s.records,
		summaries:    s.summaries,
		certificates: s.certificates,
		outboxRows:   s.outboxRows,
		outboxSeq:    s.outboxSeq,
		inTx:         true,
	}
	err := fn(context.Background(), view)
	if err == nil {
		s.outboxSeq = view.outboxSeq
	}
	return err
}

// lockR takes the read lock unless already inside an atomic unit
func (s *Store) lockR() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) lockW() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type recordRepo Store

func (r *recordRepo) Append(_ context.Context, rec *trace.TransactionRecord) error {
	defer (*Store)(r).lockW()()
	chain := r.records[rec.BatchID]
	if uint64(len(chain)) != rec.Seq {
		return trace.ErrConflict{BatchID: rec.BatchID}
	}
	r.records[rec.BatchID] = append(chain, rec.Clone())
	return nil
}

func (r *recordRepo) GetByBatchID(_ context.Context, batchID string) ([]*trace.TransactionRecord, error) {
	defer (*Store)(r).lockR()()
	chain := r.records[batchID]
	out := make([]*trace.TransactionRecord, 0, len(chain))
	for _, rec := range chain {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *recordRepo) Head(_ context.Context, batchID string) (*trace.TransactionRecord, error) {
	defer (*Store)(r).lockR()()
	chain := r.records[batchID]
	if len(chain) == 0 {
		return nil, trace.ErrBatchNotFound{BatchID: batchID}
	}
	return chain[len(chain)-1].Clone(), nil
}

func (r *recordRepo) GetByTransactionID(_ context.Context, batchID, transactionID string) (*trace.TransactionRecord, error) {
	defer (*Store)(r).lockR()()
	for _, rec := range r.records[batchID] {
		if rec.TransactionID == transactionID {
			return rec.Clone(), nil
		}
	}
	return nil, trace.ErrTransactionNotFound{TransactionID: transactionID}
}

func (r *recordRepo) Deactivate(_ context.Context, batchID, transactionID string) error {
	defer (*Store)(r).lockW()()
	for _, rec := range r.records[batchID] {
		if rec.TransactionID == transactionID {
			rec.IsActive = false
			return nil
		}
	}
	return trace.ErrTransactionNotFound{TransactionID: transactionID}
}

type summaryRepo Store

func (r *summaryRepo) Get(_ context.Context, batchID string) (trace.BatchSummary, error) {
	defer (*Store)(r).lockR()()
	if s, ok := r.summaries[batchID]; ok {
		return *s, nil
	}
	return trace.BatchSummary{BatchID: batchID}, nil
}

func (r *summaryRepo) Create(_ context.Context, batchID string) error {
	defer (*Store)(r).lockW()()
	if _, ok := r.summaries[batchID]; ok {
		return trace.ErrBatchAlreadyExists{BatchID: batchID}
	}
	r.summaries[batchID] = &trace.BatchSummary{BatchID: batchID, Exists: true}
	return nil
}

func (r *summaryRepo) IncrementCount(_ context.Context, batchID string) error {
	defer (*Store)(r).lockW()()
	s, ok := r.summaries[batchID]
	if !ok {
		return trace.ErrBatchNotFound{BatchID: batchID}
	}
	s.TransactionCount++
	return nil
}

func (r *summaryRepo) MarkSold(_ context.Context, batchID string) error {
	defer (*Store)(r).lockW()()
	s, ok := r.summaries[batchID]
	if !ok {
		return trace.ErrBatchNotFound{BatchID: batchID}
	}
	if s.Sold {
		return trace.ErrBatchReadOnly{BatchID: batchID}
	}
	s.Sold = true
	return nil
}

type certificateRepo Store

func (r *certificateRepo) Put(_ context.Context, verificationHash, certificateID string) error {
	defer (*Store)(r).lockW()()
	if existing, ok := r.certificates[verificationHash]; ok {
		if existing != certificateID {
			return trace.ErrDuplicateCertificate{VerificationHash: verificationHash}
		}
		return nil
	}
	r.certificates[verificationHash] = certificateID
	return nil
}

func (r *certificateRepo) Get(_ context.Context, verificationHash string) (string, error) {
	defer (*Store)(r).lockR()()
	return r.certificates[verificationHash], nil
}

type outboxRepo Store

func (r *outboxRepo) Create(_ context.Context, message *outbox.Message) error {
	defer (*Store)(r).lockW()()
	r.outboxSeq++
	message.ID = r.outboxSeq
	clone := *message
	r.outboxRows[message.ID] = &clone
	return nil
}

func (r *outboxRepo) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	defer (*Store)(r).lockR()()
	var out []*outbox.Message
	for id := int64(1); id <= r.outboxSeq && len(out) < limit; id++ {
		if m, ok := r.outboxRows[id]; ok && m.Status == outbox.StatusPending {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id int64, status outbox.Status) error {
	defer (*Store)(r).lockW()()
	m, ok := r.outboxRows[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.Status = status
	return nil
}

func (r *outboxRepo) IncrementAttempts(_ context.Context, id int64) error {
	defer (*Store)(r).lockW()()
	m, ok := r.outboxRows[id]
	if !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.IncrementAttempts()
	return nil
}

func (r *outboxRepo) Delete(_ context.Context, id int64) error {
	defer (*Store)(r).lockW()()
	if _, ok := r.outboxRows[id]; !ok {
		return outbox.ErrMessageNotFound{ID: id}
	}
	delete(r.outboxRows, id)
	return nil
}
