package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/posting"
	"github.com/storefront-ledger/internal/reconciliation"
	"github.com/storefront-ledger/internal/registry"
	"github.com/storefront-ledger/internal/reporting"
)

// AccountService manages the chart of accounts
type AccountService interface {
	CreateAccount(ctx context.Context, def registry.AccountSpec) (*account.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error)

	// EditAccount rejects the patch with a ConflictError when expectedVersion is
	// non-zero and stale
	EditAccount(ctx context.Context, id uuid.UUID, patch account.Patch, expectedVersion int) (*account.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	// AccountLines returns the account's journal lines oldest-first.
	// Returns NotFoundError if the account doesn't exist.
	AccountLines(ctx context.Context, id uuid.UUID, dateRange journal.DateRange) ([]journal.PostedLine, error)
}

// JournalService reads the journal and reverses entries
type JournalService interface {
	QueryEntries(ctx context.Context, filter journal.Filter) ([]*journal.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*journal.Entry, error)
	ReverseEntry(ctx context.Context, req posting.Reversal) (*journal.Entry, error)
}

// PostingService posts business events synchronously
type PostingService interface {
	Post(ctx context.Context, ev event.Event) (*journal.Entry, error)
	Adjust(ctx context.Context, adj event.Adjustment) (*journal.Entry, error)
	Reconcile(ctx context.Context, count reconciliation.Count) (*journal.Entry, bool, error)
}

// ReportService builds financial reports. *reporting.Builder satisfies it.
type ReportService interface {
	TrialBalance(ctx context.Context, asOf time.Time) (*reporting.TrialBalance, error)
	ProfitAndLoss(ctx context.Context, start, end time.Time) (*reporting.ProfitAndLoss, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (*reporting.BalanceSheet, error)
	ArAging(ctx context.Context, asOf time.Time) (*reporting.Aging, error)
	ApAging(ctx context.Context, asOf time.Time) (*reporting.Aging, error)
	SalesTax(ctx context.Context, start, end time.Time) (*reporting.SalesTax, error)
	CustomerStatement(ctx context.Context, customerID string, asOf time.Time) (*reporting.CustomerStatement, error)
}

// EventService queues business events for asynchronous posting
type EventService interface {
	// SubmitEvent publishes the event and starts tracking it. An event submitted
	// before returns its existing record and accepted=false.
	SubmitEvent(ctx context.Context, ev event.Event) (record *audit.Record, accepted bool, err error)

	// GetEventStatus returns NotFoundError for events never submitted or posted
	GetEventStatus(ctx context.Context, sourceType shared.SourceType, sourceID string) (*audit.Record, error)

	// ListEvents returns one page of records with the given status and the total count
	ListEvents(ctx context.Context, status shared.PostingStatus, page, perPage int) ([]*audit.Record, int64, error)
}

// RecurringExpenseSpec describes a recurring expense to create
type RecurringExpenseSpec struct {
	Name             string
	Payee            string
	Amount           int64
	ExpenseAccountID uuid.UUID
	PaymentAccountID uuid.UUID
	Frequency        recurring.Frequency
	StartDate        time.Time
	EndDate          *time.Time
}

// RecurringExpenseService administers recurring expense schedules
type RecurringExpenseService interface {
	CreateRecurringExpense(ctx context.Context, def RecurringExpenseSpec) (*recurring.Expense, error)
	ListRecurringExpenses(ctx context.Context) ([]*recurring.Expense, error)
	SetRecurringExpenseStatus(ctx context.Context, id uuid.UUID, status recurring.Status) (*recurring.Expense, error)
}
