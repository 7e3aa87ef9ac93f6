// Package scheduler posts the due runs of recurring expenses
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storefront-ledger/internal/config"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

// batchSize caps the schedules loaded per tick
const batchSize = 100

// ExpensePoster posts one expense event. *posting.Engine satisfies it.
type ExpensePoster interface {
	PostExpense(ctx context.Context, exp event.Expense) (*journal.Entry, error)
}

type Scheduler struct {
	expenses     recurring.Repository
	poster       ExpensePoster
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time
}

func NewScheduler(cfg *config.SchedulerConfig, expenses recurring.Repository, poster ExpensePoster, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		expenses:     expenses,
		poster:       poster,
		logger:       logger,
		pollInterval: cfg.PollingInterval,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start runs due schedules immediately and then on every tick until ctx is canceled
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting recurring expense scheduler", "poll_interval", s.pollInterval.String())
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunDue(ctx, s.now()); err != nil {
			s.logger.Error("Recurring expense run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Recurring expense scheduler stopping due to context cancellation.")
			return
		case <-ticker.C:
		}
	}
}

// RunDue posts every run due on or before today, catching up missed periods, and
// returns the number of entries posted. A run already in the journal is skipped.
// A run the ledger rejects pauses its schedule; any other failure stops the
// schedule's catch-up until the next call.
func (s *Scheduler) RunDue(ctx context.Context, today time.Time) (int, error) {
	due, err := s.expenses.ListDue(ctx, today, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due recurring expenses: %w", err)
	}

	posted := 0
	var errs []error
	for _, exp := range due {
		n, err := s.catchUp(ctx, exp, today)
		posted += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return posted, errors.Join(errs...)
}

func (s *Scheduler) catchUp(ctx context.Context, exp *recurring.Expense, today time.Time) (int, error) {
	log := logger.FromContext(ctx, s.logger).With("recurring_expense_id", exp.ID.String(), "name", exp.Name)

	posted := 0
	for exp.IsDue(today) {
		run := exp.RunEvent()
		entry, err := s.poster.PostExpense(ctx, run)
		switch {
		case err == nil:
			posted++
			log.Info("Recurring expense posted", "run_date", exp.NextRunDate.Format(time.DateOnly), "entry_id", entry.ID.String())
		case errors.Is(err, shared.DuplicatePostingError{}):
			log.Info("Recurring expense run already posted", "run_date", exp.NextRunDate.Format(time.DateOnly))
		default:
			if _, permanent := shared.ClassifyFailure(err); !permanent {
				return posted, fmt.Errorf("recurring expense %s: %w", exp.ID, err)
			}
			log.Warn("Recurring expense rejected, pausing schedule", "run_date", exp.NextRunDate.Format(time.DateOnly), "error", err)
			if statusErr := exp.SetStatus(recurring.StatusPaused); statusErr != nil {
				return posted, statusErr
			}
			if updateErr := s.expenses.Update(ctx, exp); updateErr != nil {
				return posted, fmt.Errorf("failed to pause recurring expense %s: %w", exp.ID, updateErr)
			}
			return posted, nil
		}

		exp.Advance()
		if err := s.expenses.Update(ctx, exp); err != nil {
			// The posted run is idempotent, so the next call resumes safely
			return posted, fmt.Errorf("failed to advance recurring expense %s: %w", exp.ID, err)
		}
	}
	return posted, nil
}
