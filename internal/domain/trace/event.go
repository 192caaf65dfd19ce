package trace

import "time"

// EventType categorizes ledger notifications
type EventType string

const (
	EventBatchCreated   EventType = "BATCH_CREATED"
	EventDataAdded      EventType = "DATA_ADDED"
	EventBatchSold      EventType = "BATCH_SOLD"
	EventCorrectionMade EventType = "CORRECTION_MADE"
)

// Event is emitted for every committed append. It carries the full record so
// downstream projections never need to read the ledger back. Events are
// written to the outbox in the same atomic unit as the append and delivered
// at least once.
type Event struct {
	Type          EventType          `json:"type" bson:"type"`
	BatchID       string             `json:"batch_id" bson:"batch_id"`
	TransactionID string             `json:"transaction_id" bson:"transaction_id"`
	Actor         string             `json:"actor" bson:"actor"`
	CorrectionOf  string             `json:"correction_of,omitempty" bson:"correction_of,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at" bson:"occurred_at"`
	Record        *TransactionRecord `json:"record" bson:"record"`
}

// NewEvent builds the notification for a committed record
func NewEvent(rec *TransactionRecord) *Event {
	var typ EventType
	switch {
	case rec.CorrectionOf != "":
		typ = EventCorrectionMade
	case rec.CreatorRole == RoleFarmer:
		typ = EventBatchCreated
	case rec.CreatorRole == RoleConsumer:
		typ = EventBatchSold
	default:
		typ = EventDataAdded
	}

	return &Event{
		Type:          typ,
		BatchID:       rec.BatchID,
		TransactionID: rec.TransactionID,
		Actor:         rec.CurrentOwner,
		CorrectionOf:  rec.CorrectionOf,
		OccurredAt:    rec.Timestamp,
		Record:        rec,
	}
}
