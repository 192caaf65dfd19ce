package trace_projector

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
)

// WorkerPoolArchiveService fans archive work out to a bounded goroutine pool
// while preserving the per-message result for the caller.
type WorkerPoolArchiveService struct {
	baseService ArchiveService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolArchiveService(
	baseService ArchiveService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolArchiveService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolArchiveService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ArchiveEvent submits the event to the worker pool and waits for its result,
// so consumer offset commits still track per-message success.
func (s *WorkerPoolArchiveService) ArchiveEvent(ctx context.Context, key []byte, value []byte) error {
	resultChan := make(chan error, 1)

	keyCopy := append([]byte(nil), key...)
	valueCopy := append([]byte(nil), value...)

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ArchiveEvent(ctx, keyCopy, valueCopy)
		close(resultChan)
	})
	if err != nil {
		s.logger.Error("Failed to submit event to worker pool", "key", string(key), "error", err)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolArchiveService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolArchiveService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolArchiveService) Capacity() int {
	return s.pool.Cap()
}
