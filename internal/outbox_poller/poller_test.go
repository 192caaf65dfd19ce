package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/agritrace-ledger/internal/config"
	"github.com/agritrace-ledger/internal/domain/outbox"
)

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func newTestPoller(repo outbox.Repository, publisher EventPublisher) *Poller {
	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}
	return NewPoller(cfg, repo, publisher, newPollerTestLogger())
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes each pending message", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		first := pendingMessage(1)
		second := pendingMessage(2)
		mockRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{first, second}, nil)
		mockPublisher.On("PublishEvent", ctx, first).Return(nil)
		mockPublisher.On("PublishEvent", ctx, second).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		mockPublisher.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything, mock.Anything)
	})

	t.Run("no pending messages is a no-op", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		mockRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		mockPublisher.AssertNotCalled(t, "PublishEvent", mock.Anything, mock.Anything)
	})

	t.Run("fetch failure surfaces", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)
		expectedErr := errors.New("db down")

		mockRepo.On("GetPending", ctx, 10).Return(nil, expectedErr)

		err := poller.processPendingMessages(ctx)
		assert.ErrorIs(t, err, expectedErr)
	})

	t.Run("publish failure records an attempt", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		msg := pendingMessage(1)
		mockRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		mockPublisher.On("PublishEvent", ctx, msg).Return(errors.New("broker down"))
		mockRepo.On("IncrementAttempts", ctx, int64(1)).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
		mockRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("exhausted retries park the message", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		msg := pendingMessage(1)
		msg.Attempts = 2
		mockRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		mockPublisher.On("PublishEvent", ctx, msg).Return(errors.New("broker down"))
		mockRepo.On("IncrementAttempts", ctx, int64(1)).Return(nil)
		mockRepo.On("UpdateStatus", ctx, int64(1), outbox.StatusFailedToPublish).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("one failure does not block the rest", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		failing := pendingMessage(1)
		healthy := pendingMessage(2)
		mockRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{failing, healthy}, nil)
		mockPublisher.On("PublishEvent", ctx, failing).Return(errors.New("broker down"))
		mockRepo.On("IncrementAttempts", ctx, int64(1)).Return(nil)
		mockPublisher.On("PublishEvent", ctx, healthy).Return(nil)

		err := poller.processPendingMessages(ctx)
		assert.NoError(t, err)
		mockPublisher.AssertExpectations(t)
	})
}

func TestPoller_Start(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		mockRepo := new(MockOutboxRepository)
		mockPublisher := new(MockEventPublisher)
		poller := newTestPoller(mockRepo, mockPublisher)

		mockRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			poller.Start(ctx)
			close(done)
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("poller did not stop after context cancellation")
		}
	})
}
