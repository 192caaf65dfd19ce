package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritrace-ledger/internal/domain/trace"
)

func TestSummaryRepository_Get(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SummaryRepository{querier: mock, logger: logger}

	query := `SELECT batch_id, sold, transaction_count FROM batch_summaries WHERE batch_id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"batch_id", "sold", "transaction_count"}).
			AddRow("BATCH-001", true, uint64(5))
		mock.ExpectQuery(query).WithArgs("BATCH-001").WillReturnRows(rows)

		summary, err := repo.Get(ctx, "BATCH-001")
		assert.NoError(t, err)
		assert.Equal(t, trace.BatchSummary{
			BatchID:          "BATCH-001",
			Exists:           true,
			Sold:             true,
			TransactionCount: 5,
		}, summary)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown batch reports not exists", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("BATCH-MISSING").WillReturnError(pgx.ErrNoRows)

		summary, err := repo.Get(ctx, "BATCH-MISSING")
		assert.NoError(t, err)
		assert.False(t, summary.Exists)
		assert.Equal(t, "BATCH-MISSING", summary.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs("BATCH-001").WillReturnError(expectedErr)

		_, err := repo.Get(ctx, "BATCH-001")
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SummaryRepository{querier: mock, logger: logger}

	query := `INSERT INTO batch_summaries \(batch_id, sold, transaction_count\) VALUES \(\$1, FALSE, 0\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-001").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, "BATCH-001")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost creation race maps to conflict", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-001").
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Create(ctx, "BATCH-001")
		var conflictErr trace.ErrConflict
		assert.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, "BATCH-001", conflictErr.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryRepository_IncrementCount(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SummaryRepository{querier: mock, logger: logger}

	query := `UPDATE batch_summaries SET transaction_count = transaction_count \+ 1 WHERE batch_id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-001").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.IncrementCount(ctx, "BATCH-001")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown batch", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-MISSING").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.IncrementCount(ctx, "BATCH-MISSING")
		var notFoundErr trace.ErrBatchNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryRepository_MarkSold(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &SummaryRepository{querier: mock, logger: logger}

	updateQuery := `UPDATE batch_summaries SET sold = TRUE WHERE batch_id = \$1 AND sold = FALSE`
	getQuery := `SELECT batch_id, sold, transaction_count FROM batch_summaries WHERE batch_id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(updateQuery).WithArgs("BATCH-001").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.MarkSold(ctx, "BATCH-001")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already sold maps to read only", func(t *testing.T) {
		mock.ExpectExec(updateQuery).WithArgs("BATCH-001").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		rows := pgxmock.NewRows([]string{"batch_id", "sold", "transaction_count"}).
			AddRow("BATCH-001", true, uint64(5))
		mock.ExpectQuery(getQuery).WithArgs("BATCH-001").WillReturnRows(rows)

		err := repo.MarkSold(ctx, "BATCH-001")
		var readOnlyErr trace.ErrBatchReadOnly
		assert.ErrorAs(t, err, &readOnlyErr)
		assert.Equal(t, "BATCH-001", readOnlyErr.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown batch", func(t *testing.T) {
		mock.ExpectExec(updateQuery).WithArgs("BATCH-MISSING").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectQuery(getQuery).WithArgs("BATCH-MISSING").WillReturnError(pgx.ErrNoRows)

		err := repo.MarkSold(ctx, "BATCH-MISSING")
		var notFoundErr trace.ErrBatchNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "BATCH-MISSING", notFoundErr.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
