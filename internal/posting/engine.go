// Package posting turns typed business events into balanced journal entries.
// It is the only code that moves account balances.
package posting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/outbox"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
)

// Transactor runs fn in a transaction holding the ledger lock.
// *persistence.PostgresDB satisfies it.
type Transactor interface {
	ExecuteLedgerTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Config holds the posting rules that vary per store
type Config struct {
	PaymentTermsDays int
}

// Engine posts business events. Each posting runs in one ledger transaction.
type Engine struct {
	db       Transactor
	accounts account.Repository
	journal  journal.Repository
	invoices invoice.Repository
	outbox   outbox.Repository
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(
	db Transactor,
	accounts account.Repository,
	journalRepo journal.Repository,
	invoices invoice.Repository,
	outboxRepo outbox.Repository,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		db:       db,
		accounts: accounts,
		journal:  journalRepo,
		invoices: invoices,
		outbox:   outboxRepo,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// repos are the repositories bound to the running posting transaction
type repos struct {
	accounts account.Repository
	journal  journal.Repository
	invoices invoice.Repository
	outbox   outbox.Repository
}

// draft is what a posting rule computes before the entry is built
type draft struct {
	date        time.Time
	description string
	reference   string
	invoiceID   string
	lines       lineSet
	invoice     *invoice.Invoice // Created alongside the entry when set
}

type rule func(ctx context.Context, r *repos) (*draft, error)

// Post dispatches a decoded event to its posting rule
func (e *Engine) Post(ctx context.Context, ev event.Event) (*journal.Entry, error) {
	switch v := ev.(type) {
	case event.Sale:
		return e.PostSale(ctx, v)
	case event.Payment:
		return e.PostPayment(ctx, v)
	case event.SupplierInvoice:
		return e.PostSupplierInvoice(ctx, v)
	case event.SupplierPayment:
		return e.PostSupplierPayment(ctx, v)
	case event.Expense:
		return e.PostExpense(ctx, v)
	case event.Adjustment:
		return e.PostAdjustment(ctx, v)
	case event.Refund:
		return e.PostRefund(ctx, v)
	default:
		return nil, fmt.Errorf("%w: %T", event.ErrUnsupportedType, ev)
	}
}

// post runs a rule and commits its entry atomically: idempotency check, account
// locks in id order, journal append, balance deltas, invoice and outbox rows.
// The transaction is detached from caller cancellation.
func (e *Engine) post(ctx context.Context, source journal.Source, build rule) (*journal.Entry, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	correlationID := logger.CorrelationID(ctx)
	log := logger.FromContext(ctx, e.logger).With("source_type", string(source.Type), "source_id", source.ID)
	ctx = context.WithoutCancel(ctx)

	var entry *journal.Entry
	err := e.db.ExecuteLedgerTx(ctx, func(tx pgx.Tx) error {
		r := &repos{
			accounts: e.accounts.WithTx(tx),
			journal:  e.journal.WithTx(tx),
			invoices: e.invoices.WithTx(tx),
			outbox:   e.outbox.WithTx(tx),
		}

		existing, err := r.journal.GetBySource(ctx, source)
		if err != nil {
			return err
		}
		if existing != nil {
			return shared.DuplicatePostingError{SourceType: source.Type, SourceID: source.ID, EntryID: existing.ID}
		}

		d, err := build(ctx, r)
		if err != nil {
			return err
		}

		if d.date.IsZero() {
			d.date = e.now()
		}
		entry, err = journal.NewEntry(d.date, d.description, d.reference, source, d.lines.lines())
		if err != nil {
			return err
		}
		entry.InvoiceID = d.invoiceID
		entry.CorrelationID = correlationID

		if err := lockAndApply(ctx, r.accounts, r.journal, entry); err != nil {
			return err
		}

		if d.invoice != nil {
			d.invoice.EntryID = entry.ID
			if err := r.invoices.Create(ctx, d.invoice); err != nil {
				return err
			}
		}

		msg, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to create outbox message payload: %w", err)
		}
		if err := r.outbox.Create(ctx, msg); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		e.logFailure(log, err)
		return nil, err
	}

	log.Info("Journal entry posted",
		"entry_id", entry.ID.String(),
		"sequence", entry.Sequence,
		"amount", entry.Total(),
	)
	return entry, nil
}

func (e *Engine) logFailure(log *slog.Logger, err error) {
	switch {
	case errors.Is(err, shared.UnbalancedEntryError{}):
		log.Error("Posting rule produced an unbalanced entry", "error", err)
	case errors.Is(err, shared.DuplicatePostingError{}):
		log.Info("Source already posted", "error", err)
	case errors.Is(err, ErrBalanceMatches):
		log.Debug("Nothing to adjust", "error", err)
	default:
		if _, permanent := shared.ClassifyFailure(err); permanent {
			log.Warn("Posting rejected", "error", err)
			return
		}
		log.Error("Posting failed", "error", err)
	}
}

func (e *Engine) dateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t.UTC()
}

func (e *Engine) defaultDueDate(issued time.Time) time.Time {
	return journal.StartOfDay(issued).AddDate(0, 0, e.cfg.PaymentTermsDays)
}
