package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/storefront-ledger/internal/domain/event"
)

// WorkerPoolProcessingService bounds concurrent postings with an ants pool.
// Postings still serialize on the ledger lock; the pool caps the number of
// connections waiting on it.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

// ErrPostingPanicked is returned when the posting goroutine panics. The ledger
// transaction has rolled back, so the event can be redelivered.
var ErrPostingPanicked = errors.New("posting panicked")

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessEvent runs the base service on a pool worker and waits for the result
func (s *WorkerPoolProcessingService) ProcessEvent(ctx context.Context, env *event.Envelope) error {
	resultChan := make(chan error, 1)
	envCopy := *env

	if err := s.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Posting panicked",
					"source_type", string(envCopy.Type),
					"source_id", envCopy.SourceID,
					"panic", fmt.Sprint(r),
					"stack", string(debug.Stack()),
				)
				resultChan <- fmt.Errorf("%w: %v", ErrPostingPanicked, r)
			}
		}()
		resultChan <- s.baseService.ProcessEvent(ctx, &envCopy)
	}); err != nil {
		s.logger.Error("Failed to submit event to worker pool",
			"source_type", string(env.Type),
			"source_id", env.SourceID,
			"error", err,
		)
		return fmt.Errorf("failed to submit event to worker pool: %w", err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool, waiting up to timeout for running postings
func (s *WorkerPoolProcessingService) Shutdown(timeout time.Duration) {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	if err := s.pool.ReleaseTimeout(timeout); err != nil {
		s.logger.Warn("Worker pool did not drain before timeout", "error", err)
	}
}

func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
