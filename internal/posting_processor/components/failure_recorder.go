package components

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/posting_processor/service"
)

type FailureRecorderImpl struct {
	auditRepo audit.Repository
	logger    *slog.Logger
}

func NewFailureRecorder(auditRepo audit.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// RecordFailure marks the event's status record FAILED. Events published without
// an intake record, such as replays, get a new FAILED record.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, env *event.Envelope, failureReason string) error {
	log := logger.FromContext(ctx, r.logger).With("source_type", string(env.Type), "source_id", env.SourceID)

	err := r.auditRepo.MarkFailed(ctx, env.Type, env.SourceID, failureReason)
	if err == nil {
		log.Info("Marked posting record as FAILED", "reason", failureReason)
		return nil
	}
	if !errors.Is(err, audit.ErrRecordNotFound{}) {
		log.Error("Failed to mark posting record as FAILED", "error", err)
		return err
	}

	log.Info("Creating new FAILED posting record")
	record := audit.NewPendingRecord(env.Type, env.SourceID, principal(env), env.CorrelationID)
	now := time.Now().UTC()
	record.Status = shared.PostingStatusFailed
	record.FailureReason = failureReason
	record.ProcessedAt = &now
	if !env.SubmittedAt.IsZero() {
		record.CreatedAt = env.SubmittedAt
	}

	createErr := r.auditRepo.Create(ctx, record)
	if errors.Is(createErr, audit.ErrDuplicateRecord{}) {
		// The intake record landed between the two calls
		createErr = r.auditRepo.MarkFailed(ctx, env.Type, env.SourceID, failureReason)
	}
	if createErr != nil {
		log.Error("Failed to create FAILED posting record", "error", createErr)
		return createErr
	}
	return nil
}

func principal(env *event.Envelope) int64 {
	ev, err := env.Decode()
	if err != nil {
		return 0
	}
	return ev.Principal()
}
