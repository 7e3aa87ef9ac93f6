// Package reporting builds financial statements by replaying journal lines.
// Reports never read the live account balance except to verify it, and every
// report is computed from one consistent read snapshot.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

// Snapshotter runs fn in a read-only repeatable-read transaction.
// *persistence.PostgresDB satisfies it.
type Snapshotter interface {
	ExecuteSnapshotTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type Config struct {
	BalanceToleranceCents int64
}

// Builder produces reports. It never writes.
type Builder struct {
	db       Snapshotter
	accounts account.Repository
	journal  journal.Repository
	invoices invoice.Repository
	cfg      Config
	logger   *slog.Logger
}

func NewBuilder(
	db Snapshotter,
	accounts account.Repository,
	journalRepo journal.Repository,
	invoices invoice.Repository,
	cfg Config,
	logger *slog.Logger,
) *Builder {
	return &Builder{
		db:       db,
		accounts: accounts,
		journal:  journalRepo,
		invoices: invoices,
		cfg:      cfg,
		logger:   logger,
	}
}

// snapshot is everything one report reads, loaded in a single transaction
type snapshot struct {
	accounts []*account.Account // Chart order
	byID     map[uuid.UUID]*account.Account
	lines    []journal.PostedLine
	invoices []*invoice.Invoice
}

func (b *Builder) load(ctx context.Context, dateRange journal.DateRange, kinds ...invoice.Kind) (*snapshot, error) {
	s := &snapshot{}
	err := b.db.ExecuteSnapshotTx(ctx, func(tx pgx.Tx) error {
		var err error
		if s.accounts, err = b.accounts.WithTx(tx).List(ctx, account.Filter{}); err != nil {
			return err
		}
		if s.lines, err = b.journal.WithTx(tx).Lines(ctx, dateRange); err != nil {
			return err
		}
		for _, kind := range kinds {
			invoices, err := b.invoices.WithTx(tx).IssuedThrough(ctx, kind, dateRange)
			if err != nil {
				return err
			}
			s.invoices = append(s.invoices, invoices...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load report snapshot: %w", err)
	}

	s.byID = make(map[uuid.UUID]*account.Account, len(s.accounts))
	for _, acc := range s.accounts {
		s.byID[acc.ID] = acc
	}
	return s, nil
}

// activity sums debits and credits per account
type activity struct {
	debits  int64
	credits int64
}

func (a activity) balance(t account.Type) int64 {
	return t.SignedAmount(true, a.debits) + t.SignedAmount(false, a.credits)
}

func (s *snapshot) activity() map[uuid.UUID]activity {
	totals := make(map[uuid.UUID]activity)
	for _, line := range s.lines {
		a := totals[line.AccountID]
		if line.Type == journal.Debit {
			a.debits += line.Amount
		} else {
			a.credits += line.Amount
		}
		totals[line.AccountID] = a
	}
	return totals
}

func (b *Builder) integrityFailure(ctx context.Context, check, details string) error {
	err := shared.IntegrityError{Check: check, Details: details}
	logger.FromContext(ctx, b.logger).Error("Ledger integrity check failed", "check", check, "details", details)
	return err
}

func validateRange(start, end time.Time) error {
	if start.IsZero() {
		return shared.ValidationError{Field: "start", Reason: "is required"}
	}
	if end.IsZero() {
		return shared.ValidationError{Field: "end", Reason: "is required"}
	}
	if journal.StartOfDay(end).Before(journal.StartOfDay(start)) {
		return shared.ValidationError{Field: "end", Reason: "must not be before start"}
	}
	return nil
}
