package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/platform/messaging/consumers"
	"github.com/storefront-ledger/internal/platform/messaging/producers"
	"github.com/storefront-ledger/internal/posting_processor/service"
)

// EventHandler feeds queued business events to the processing service
type EventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *EventHandler {
	return &EventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. Messages that can never be posted
// go to the dead letter queue; any other failure is returned so the message is
// delivered again.
func (h *EventHandler) HandleMessage(ctx context.Context, msg consumers.Message) error {
	var env event.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return h.deadLetter(ctx, msg, fmt.Errorf("failed to unmarshal event envelope: %w", err))
	}

	if env.CorrelationID == "" {
		env.CorrelationID = logger.CorrelationID(ctx)
	}
	log := h.logger.With("correlation_id", env.CorrelationID)
	log.Info("Received event for posting",
		"source_type", string(env.Type),
		"source_id", env.SourceID,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)

	if err := h.processingService.ProcessEvent(ctx, &env); err != nil {
		if errors.Is(err, service.ErrUndecodable) {
			return h.deadLetter(ctx, msg, err)
		}
		log.Error("Failed to process event",
			"source_type", string(env.Type),
			"source_id", env.SourceID,
			"error", err,
		)
		return fmt.Errorf("processing %s/%s failed: %w", env.Type, env.SourceID, err)
	}
	return nil
}

// deadLetter parks an unprocessable message. Without a dead letter topic the
// message is dropped so it cannot stall its partition.
func (h *EventHandler) deadLetter(ctx context.Context, msg consumers.Message, cause error) error {
	log := logger.FromContext(ctx, h.logger).With("message_key", string(msg.Key), "offset", msg.Offset)
	log.Error("Unprocessable message", "error", cause)

	if h.producer == nil {
		log.Error("Dropping unprocessable message, no dead letter queue configured")
		return nil
	}

	err := h.producer.PublishToDLQ(ctx, string(msg.Key), msg.Value, cause.Error())
	switch {
	case err == nil:
		log.Info("Published unprocessable message to DLQ")
		return nil
	case errors.Is(err, producers.ErrDLQDisabled):
		log.Error("Dropping unprocessable message, no dead letter queue configured")
		return nil
	default:
		log.Error("Failed to publish message to DLQ", "dlq_error", err)
		return fmt.Errorf("failed to dead-letter message: %w", err)
	}
}
