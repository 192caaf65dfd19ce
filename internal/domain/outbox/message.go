// Package outbox implements the transactional-outbox message model used to
// publish ledger events reliably: the event row commits atomically with the
// append it describes, and a poller drains pending rows to the broker.
package outbox

import (
	"encoding/json"
	"time"
)

// Status defines message publishing states
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// Message stores a serialized ledger event awaiting publication
type Message struct {
	ID            int64           `json:"id"`
	BatchID       string          `json:"batch_id"`
	TransactionID string          `json:"transaction_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps an already-serialized event for the outbox
func NewMessage(eventType, batchID, transactionID string, payload json.RawMessage) *Message {
	return &Message{
		BatchID:       batchID,
		TransactionID: transactionID,
		EventType:     eventType,
		Payload:       payload,
		Status:        StatusPending,
		Attempts:      0,
		CreatedAt:     time.Now().UTC(),
	}
}

// IncrementAttempts records a failed publish attempt
func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// MarkAsProcessed flags the message as successfully published
func (m *Message) MarkAsProcessed() {
	m.Status = StatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// MarkAsFailed parks the message after exhausting retries
func (m *Message) MarkAsFailed() {
	m.Status = StatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}
