package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
)

type EventServiceImpl struct {
	auditRepo audit.Repository
	producer  producers.EventPublisher
	logger    *slog.Logger
}

func NewEventService(logger *slog.Logger, auditRepo audit.Repository, producer producers.EventPublisher) EventService {
	return &EventServiceImpl{
		auditRepo: auditRepo,
		producer:  producer,
		logger:    logger,
	}
}

// SubmitEvent publishes first and records second: a failed publish leaves no
// PENDING record behind, so the caller can simply submit again.
func (s *EventServiceImpl) SubmitEvent(ctx context.Context, ev event.Event) (*audit.Record, bool, error) {
	source := ev.Source()
	if source.ID == "" {
		return nil, false, shared.ValidationError{Field: "source_id", Reason: "is required"}
	}
	log := logger.FromContext(ctx, s.logger).With("source_type", string(source.Type), "source_id", source.ID)

	existing, err := s.auditRepo.GetBySource(ctx, source.Type, source.ID)
	switch {
	case err == nil:
		log.Info("Event already submitted", "status", string(existing.Status))
		return existing, false, nil
	case !errors.Is(err, audit.ErrRecordNotFound{}):
		return nil, false, err
	}

	correlationID := logger.CorrelationID(ctx)
	env, err := event.NewEnvelope(ev, correlationID)
	if err != nil {
		return nil, false, err
	}

	if err := s.producer.Publish(ctx, event.PartitionKey(ev), env); err != nil {
		log.Error("Failed to publish event", "error", err)
		return nil, false, fmt.Errorf("failed to publish %s event: %w", source.Type, err)
	}

	record := audit.NewPendingRecord(source.Type, source.ID, ev.Principal(), correlationID)
	record.CreatedAt = env.SubmittedAt
	if err := s.auditRepo.Create(ctx, record); err != nil {
		if !errors.Is(err, audit.ErrDuplicateRecord{}) {
			return nil, false, err
		}
		// The processor got there first
		if current, getErr := s.auditRepo.GetBySource(ctx, source.Type, source.ID); getErr == nil {
			record = current
		}
	}

	log.Info("Event queued for posting", "amount", ev.Principal())
	return record, true, nil
}

func (s *EventServiceImpl) GetEventStatus(ctx context.Context, sourceType shared.SourceType, sourceID string) (*audit.Record, error) {
	record, err := s.auditRepo.GetBySource(ctx, sourceType, sourceID)
	if errors.Is(err, audit.ErrRecordNotFound{}) {
		return nil, shared.NotFoundError{Resource: "posting_record", ID: string(sourceType) + "/" + sourceID}
	}
	return record, err
}

func (s *EventServiceImpl) ListEvents(ctx context.Context, status shared.PostingStatus, page, perPage int) ([]*audit.Record, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.auditRepo.ListByStatus(ctx, status, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditRepo.CountByStatus(ctx, status)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
