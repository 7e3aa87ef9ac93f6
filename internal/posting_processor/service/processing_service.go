package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

type ProcessingServiceImpl struct {
	poster          Poster
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(poster Poster, failureRecorder FailureRecorder, logger *slog.Logger) ProcessingService {
	return &ProcessingServiceImpl{
		poster:          poster,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessEvent decodes the envelope and posts the event. Rejections the ledger
// will never accept are recorded and acknowledged; infrastructure failures are
// returned so the message is retried.
func (s *ProcessingServiceImpl) ProcessEvent(ctx context.Context, env *event.Envelope) error {
	ctx = logger.WithCorrelationID(ctx, env.CorrelationID)
	log := logger.FromContext(ctx, s.logger).With("source_type", string(env.Type), "source_id", env.SourceID)

	ev, err := env.Decode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	entry, err := s.poster.Post(ctx, ev)
	switch {
	case err == nil:
		log.Info("Event posted", "entry_id", entry.ID.String(), "sequence", entry.Sequence)
		return nil
	case errors.Is(err, shared.DuplicatePostingError{}):
		log.Info("Event already posted, acknowledging")
		return nil
	}

	reason, permanent := shared.ClassifyFailure(err)
	if !permanent {
		return fmt.Errorf("posting %s/%s failed: %w", env.Type, env.SourceID, err)
	}

	if recordErr := s.failureRecorder.RecordFailure(ctx, env, fmt.Sprintf("%s: %s", reason, err)); recordErr != nil {
		log.Error("Failed to record rejected event", "error", recordErr)
		return fmt.Errorf("failed to record rejection of %s/%s: %w", env.Type, env.SourceID, recordErr)
	}
	log.Warn("Event rejected", "reason", string(reason), "error", err)
	return nil
}
