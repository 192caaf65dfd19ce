// Package mongo provides the MongoDB trace archive: a read model of
// committed ledger records projected from the event stream. It is never the
// authoritative read path; the projector upserts by transaction id so
// at-least-once delivery stays idempotent.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/agritrace-ledger/internal/domain/trace"
)

// ArchiveCollectionName is the name of the trace archive collection
const ArchiveCollectionName = "trace_archive"

// ArchivedRecord wraps a ledger record with projection metadata
type ArchivedRecord struct {
	TransactionID string                   `bson:"transaction_id"`
	BatchID       string                   `bson:"batch_id"`
	EventType     trace.EventType          `bson:"event_type"`
	Record        *trace.TransactionRecord `bson:"record"`
	ArchivedAt    time.Time                `bson:"archived_at"`
}

// ArchiveRepository stores projected trace records in MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB trace archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) *ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores or refreshes the archived record for an event. Replays of the
// same event converge on the same document.
func (r *ArchiveRepository) Upsert(ctx context.Context, ev *trace.Event) error {
	if ev.Record == nil {
		return errors.New("trace event carries no record")
	}
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"transaction_id": ev.TransactionID}
	update := bson.M{
		"$set": ArchivedRecord{
			TransactionID: ev.TransactionID,
			BatchID:       ev.BatchID,
			EventType:     ev.Type,
			Record:        ev.Record,
			ArchivedAt:    time.Now().UTC(),
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("failed to archive trace record",
			"transaction_id", ev.TransactionID, "batch_id", ev.BatchID, "error", err)
		return fmt.Errorf("failed to archive trace record: %w", err)
	}
	return nil
}

// GetByBatchID returns the archived records of a batch in chain order
func (r *ArchiveRepository) GetByBatchID(ctx context.Context, batchID string) ([]*ArchivedRecord, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{"batch_id": batchID}
	opts := options.Find().SetSort(bson.M{"record.seq": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("failed to get archived records", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to get archived records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*ArchivedRecord
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("failed to decode archived records", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("failed to decode archived records: %w", err)
	}
	return records, nil
}

// CountByBatchID counts the archived records of a batch
func (r *ArchiveRepository) CountByBatchID(ctx context.Context, batchID string) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"batch_id": batchID})
	if err != nil {
		r.logger.Error("failed to count archived records", "batch_id", batchID, "error", err)
		return 0, fmt.Errorf("failed to count archived records: %w", err)
	}
	return count, nil
}
