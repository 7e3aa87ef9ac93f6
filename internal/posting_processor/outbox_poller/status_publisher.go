package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/outbox"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

// ErrMalformedPayload marks an outbox message that can never be published
var ErrMalformedPayload = errors.New("malformed outbox payload")

// StatusPublisher delivers one outbox message
type StatusPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// AuditStatusPublisher completes the posting record of the event behind each
// journal.posted message
type AuditStatusPublisher struct {
	outboxRepo outbox.Repository
	auditRepo  audit.Repository
	logger     *slog.Logger
}

func NewAuditStatusPublisher(
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) *AuditStatusPublisher {
	return &AuditStatusPublisher{
		outboxRepo: outboxRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// Publish marks the posting record COMPLETED and then the message PROCESSED.
// Both steps are idempotent so a message relayed twice is harmless.
func (p *AuditStatusPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	posted, err := message.PostedEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal posted entry from outbox payload", "outbox_id", message.ID, "error", err)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error",
				"outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %w", ErrMalformedPayload, message.ID, err)
	}

	ctx = logger.WithCorrelationID(ctx, posted.CorrelationID)
	log := logger.FromContext(ctx, p.logger).With("outbox_id", message.ID, "entry_id", posted.EntryID.String())

	record := &audit.Record{
		SourceType:    posted.SourceType,
		SourceID:      posted.SourceID,
		Amount:        posted.Amount,
		CorrelationID: posted.CorrelationID,
		CreatedAt:     posted.PostedAt,
	}
	if err := p.auditRepo.MarkCompleted(ctx, record, posted.EntryID); err != nil {
		return fmt.Errorf("failed to complete posting record %s/%s: %w", posted.SourceType, posted.SourceID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		log.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("posting record completed, but failed to mark outbox %d as PROCESSED: %w", message.ID, err)
	}

	log.Info("Posting record completed", "source_type", string(posted.SourceType), "source_id", posted.SourceID)
	return nil
}
