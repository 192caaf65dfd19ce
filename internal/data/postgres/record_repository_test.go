package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agritrace-ledger/internal/domain/trace"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var recordCols = []string{
	"batch_id", "seq", "transaction_id", "ts", "creator_role", "parent_batch_id",
	"current_owner", "previous_owners", "cost_price", "selling_price",
	"transaction_hash", "previous_hash", "correction_of", "is_active", "payload",
}

func sampleRecord(t *testing.T) *trace.TransactionRecord {
	t.Helper()
	return &trace.TransactionRecord{
		TransactionID:  "TXN-1756000000000-a1b2c3d4e5",
		Timestamp:      time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
		CreatorRole:    trace.RoleFarmer,
		BatchID:        "BATCH-001",
		Seq:            0,
		CurrentOwner:   "farm-coop",
		PreviousOwners: []string{},
		CostPrice:      2550,
		SellingPrice:   2550,
		TransactionHash: trace.Hash(
			"0x1111111111111111111111111111111111111111111111111111111111111111"),
		PreviousHash: trace.ZeroHash,
		IsActive:     true,
		Farmer: &trace.FarmerData{
			FarmID:      "FARM-9",
			CropType:    "wheat",
			HarvestDate: "2026-08-20",
			QuantityKg:  500,
			GeoLocation: "52.52,13.40",
			GS1: trace.GS1Block{
				BatchOrLot:      "LOT-77",
				CountryOfOrigin: "DE",
				ProductionDate:  "2026-08-20",
			},
		},
	}
}

// marshaled column values the repository is expected to produce
func encodedColumns(t *testing.T, rec *trace.TransactionRecord) (owners, payload []byte) {
	t.Helper()
	owners, err := json.Marshal(rec.PreviousOwners)
	require.NoError(t, err)
	payload, err = json.Marshal(stagePayload{
		Farmer:      rec.Farmer,
		Processor:   rec.Processor,
		Distributor: rec.Distributor,
		Retailer:    rec.Retailer,
		Consumer:    rec.Consumer,
	})
	require.NoError(t, err)
	return owners, payload
}

func recordRow(t *testing.T, rec *trace.TransactionRecord) *pgxmock.Rows {
	t.Helper()
	owners, payload := encodedColumns(t, rec)
	return pgxmock.NewRows(recordCols).AddRow(
		rec.BatchID, rec.Seq, rec.TransactionID, rec.Timestamp,
		string(rec.CreatorRole), rec.ParentBatchID, rec.CurrentOwner, owners,
		rec.CostPrice, rec.SellingPrice, string(rec.TransactionHash),
		string(rec.PreviousHash), rec.CorrectionOf, rec.IsActive, payload,
	)
}

func TestRecordRepository_Append(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecordRepository{querier: mock, logger: logger}
	rec := sampleRecord(t)
	owners, payload := encodedColumns(t, rec)

	query := `INSERT INTO trace_records`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rec.BatchID, rec.Seq, rec.TransactionID, rec.Timestamp,
				string(rec.CreatorRole), rec.ParentBatchID, rec.CurrentOwner, owners,
				rec.CostPrice, rec.SellingPrice, string(rec.TransactionHash),
				string(rec.PreviousHash), rec.CorrectionOf, rec.IsActive, payload).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Append(ctx, rec)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to conflict", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(rec.BatchID, rec.Seq, rec.TransactionID, rec.Timestamp,
				string(rec.CreatorRole), rec.ParentBatchID, rec.CurrentOwner, owners,
				rec.CostPrice, rec.SellingPrice, string(rec.TransactionHash),
				string(rec.PreviousHash), rec.CorrectionOf, rec.IsActive, payload).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.Append(ctx, rec)
		var conflictErr trace.ErrConflict
		assert.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, rec.BatchID, conflictErr.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(rec.BatchID, rec.Seq, rec.TransactionID, rec.Timestamp,
				string(rec.CreatorRole), rec.ParentBatchID, rec.CurrentOwner, owners,
				rec.CostPrice, rec.SellingPrice, string(rec.TransactionHash),
				string(rec.PreviousHash), rec.CorrectionOf, rec.IsActive, payload).
			WillReturnError(expectedErr)

		err := repo.Append(ctx, rec)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append trace record")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_GetByBatchID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecordRepository{querier: mock, logger: logger}
	rec := sampleRecord(t)

	query := `SELECT .+ FROM trace_records WHERE batch_id = \$1 ORDER BY seq ASC`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(rec.BatchID).WillReturnRows(recordRow(t, rec))

		records, err := repo.GetByBatchID(ctx, rec.BatchID)
		assert.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, rec, records[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown batch yields empty chain", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("BATCH-MISSING").
			WillReturnRows(pgxmock.NewRows(recordCols))

		records, err := repo.GetByBatchID(ctx, "BATCH-MISSING")
		assert.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(rec.BatchID).WillReturnError(expectedErr)

		records, err := repo.GetByBatchID(ctx, rec.BatchID)
		assert.Error(t, err)
		assert.Nil(t, records)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_Head(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecordRepository{querier: mock, logger: logger}
	rec := sampleRecord(t)

	query := `SELECT .+ FROM trace_records WHERE batch_id = \$1 ORDER BY seq DESC LIMIT 1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(rec.BatchID).WillReturnRows(recordRow(t, rec))

		head, err := repo.Head(ctx, rec.BatchID)
		assert.NoError(t, err)
		assert.Equal(t, rec, head)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("BATCH-MISSING").WillReturnError(pgx.ErrNoRows)

		head, err := repo.Head(ctx, "BATCH-MISSING")
		assert.Error(t, err)
		assert.Nil(t, head)
		var notFoundErr trace.ErrBatchNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "BATCH-MISSING", notFoundErr.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_GetByTransactionID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecordRepository{querier: mock, logger: logger}
	rec := sampleRecord(t)

	query := `SELECT .+ FROM trace_records WHERE batch_id = \$1 AND transaction_id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(rec.BatchID, rec.TransactionID).
			WillReturnRows(recordRow(t, rec))

		got, err := repo.GetByTransactionID(ctx, rec.BatchID, rec.TransactionID)
		assert.NoError(t, err)
		assert.Equal(t, rec, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(rec.BatchID, "TXN-unknown").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByTransactionID(ctx, rec.BatchID, "TXN-unknown")
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFoundErr trace.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "TXN-unknown", notFoundErr.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordRepository_Deactivate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecordRepository{querier: mock, logger: logger}

	query := `UPDATE trace_records SET is_active = FALSE WHERE batch_id = \$1 AND transaction_id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-001", "TXN-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Deactivate(ctx, "BATCH-001", "TXN-1")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows affected", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("BATCH-001", "TXN-unknown").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Deactivate(ctx, "BATCH-001", "TXN-unknown")
		var notFoundErr trace.ErrTransactionNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, "TXN-unknown", notFoundErr.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).WithArgs("BATCH-001", "TXN-1").WillReturnError(expectedErr)

		err := repo.Deactivate(ctx, "BATCH-001", "TXN-1")
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
