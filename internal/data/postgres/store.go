// Package postgres provides the durable PostgreSQL implementation of the
// trace store. Repositories follow the Querier pattern so the same code runs
// against the pool or inside a transaction; Atomically binds every
// repository to one pgx transaction so an append, its summary update, its
// certificate bindings and its outbox row commit together.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/agritrace-ledger/internal/domain/outbox"
	"github.com/agritrace-ledger/internal/domain/trace"
	"github.com/agritrace-ledger/internal/platform/persistence"
)

// Store implements trace.Store on PostgreSQL
type Store struct {
	db      *persistence.PostgresDB
	querier persistence.Querier
	logger  *slog.Logger
}

// NewStore creates a store over the given connection pool
func NewStore(logger *slog.Logger, db *persistence.PostgresDB) *Store {
	return &Store{
		db:      db,
		querier: db.Pool(),
		logger:  logger,
	}
}

func (s *Store) Records() trace.RecordRepository {
	return &RecordRepository{querier: s.querier, logger: s.logger}
}

func (s *Store) Summaries() trace.SummaryRepository {
	return &SummaryRepository{querier: s.querier, logger: s.logger}
}

func (s *Store) Certificates() trace.CertificateRepository {
	return &CertificateRepository{querier: s.querier, logger: s.logger}
}

func (s *Store) Outbox() outbox.Repository {
	return &OutboxRepository{querier: s.querier, logger: s.logger}
}

// Atomically runs fn inside a single database transaction
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx trace.Store) error) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &Store{db: s.db, querier: tx, logger: s.logger})
	})
}

// isUniqueViolation reports a 23505 unique-constraint error, the signal for a
// lost race between two writers
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
