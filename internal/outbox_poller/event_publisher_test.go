package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agritrace-ledger/internal/domain/outbox"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newPollerTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func pendingMessage(id int64) *outbox.Message {
	msg := outbox.NewMessage("BATCH_CREATED", "BATCH-001", "TXN-1",
		json.RawMessage(`{"event_type":"BATCH_CREATED","batch_id":"BATCH-001"}`))
	msg.ID = id
	return msg
}

func TestEventPublisher_PublishEvent(t *testing.T) {
	ctx := context.Background()
	logger := newPollerTestLogger()

	t.Run("publishes keyed by batch and marks processed", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockProducer := new(MockMessagePublisher)
		publisher := NewEventPublisher(mockRepo, mockProducer, logger)
		msg := pendingMessage(1)

		mockProducer.On("Publish", ctx, "BATCH-001", mock.Anything).Return(nil)
		mockRepo.On("UpdateStatus", ctx, int64(1), outbox.StatusProcessed).Return(nil)

		err := publisher.PublishEvent(ctx, msg)
		assert.NoError(t, err)
		mockProducer.AssertExpectations(t)
		mockRepo.AssertExpectations(t)
	})

	t.Run("invalid payload is parked immediately", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockProducer := new(MockMessagePublisher)
		publisher := NewEventPublisher(mockRepo, mockProducer, logger)
		msg := pendingMessage(2)
		msg.Payload = json.RawMessage(`{not json`)

		mockRepo.On("UpdateStatus", ctx, int64(2), outbox.StatusFailedToPublish).Return(nil)

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		mockRepo.AssertExpectations(t)
	})

	t.Run("broker failure leaves the message pending", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockProducer := new(MockMessagePublisher)
		publisher := NewEventPublisher(mockRepo, mockProducer, logger)
		msg := pendingMessage(3)
		expectedErr := errors.New("broker down")

		mockProducer.On("Publish", ctx, "BATCH-001", mock.Anything).Return(expectedErr)

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mark processed failure surfaces", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockProducer := new(MockMessagePublisher)
		publisher := NewEventPublisher(mockRepo, mockProducer, logger)
		msg := pendingMessage(4)
		expectedErr := errors.New("db down")

		mockProducer.On("Publish", ctx, "BATCH-001", mock.Anything).Return(nil)
		mockRepo.On("UpdateStatus", ctx, int64(4), outbox.StatusProcessed).Return(expectedErr)

		err := publisher.PublishEvent(ctx, msg)
		assert.Error(t, err)
		assert.ErrorIs(t, err, expectedErr)
	})
}
