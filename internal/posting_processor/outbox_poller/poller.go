package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/domain/outbox"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Poller relays journal.posted messages written by the posting transaction
type Poller struct {
	outboxRepo       outbox.Repository
	statusPublisher  StatusPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	statusPublisher StatusPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		statusPublisher:  statusPublisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start relays pending messages right away and then on every tick until ctx is
// cancelled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		p.drain(ctx)
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// drain keeps relaying while whole batches go out, so a backlog built up during a
// broker outage clears without waiting a tick per batch
func (p *Poller) drain(ctx context.Context) {
	for ctx.Err() == nil {
		published, err := p.ProcessPending(ctx)
		if err != nil {
			p.logger.Error("Failed to relay pending outbox messages", "error", err)
			return
		}
		if published < p.batchSize {
			return
		}
	}
}

// ProcessPending relays one batch and returns how many messages were published
func (p *Poller) ProcessPending(ctx context.Context) (int, error) {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}
	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return 0, nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	published := 0
	for _, msg := range messages {
		log := p.logger.With("outbox_id", msg.ID, "entry_id", msg.EntryID.String(), "source_id", msg.SourceID)

		err := p.statusPublisher.Publish(ctx, msg)
		if err == nil {
			published++
			continue
		}

		attempts := msg.Attempts + 1
		log.Error("Failed to publish outbox message", "attempt", attempts, "error", err)

		if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
			log.Error("Failed to increment attempts for outbox message", "error", errInc)
			continue
		}

		if attempts >= p.maxRetryAttempts {
			log.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH", "attempts_made", attempts)
			if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
				log.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "error", errUpdate)
			}
		}
	}
	return published, nil
}
