// Package invoice holds the receivable and payable documents that aging reports
// are built from. Invoices carry only their issued total; what has been paid is
// always derived from journal lines linked to the invoice.
package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/journal"
)

// Kind distinguishes money owed to the store from money the store owes
type Kind string

const (
	KindReceivable Kind = "receivable"
	KindPayable    Kind = "payable"
)

// SettlingSide is the side of the control account line that reduces the invoice:
// credits to receivables, debits to payables.
func (k Kind) SettlingSide() journal.LineType {
	if k == KindPayable {
		return journal.Debit
	}
	return journal.Credit
}

// Invoice is an open item on the receivables or payables control account
type Invoice struct {
	ID               string    `json:"id"` // The sale or supplier invoice id
	Kind             Kind      `json:"kind"`
	Number           string    `json:"number"`
	CounterpartyID   string    `json:"counterparty_id,omitempty"`
	CounterpartyName string    `json:"counterparty_name"`
	IssueDate        time.Time `json:"issue_date"`
	DueDate          time.Time `json:"due_date"`
	Total            int64     `json:"total"` // Stored in cents
	ControlAccountID uuid.UUID `json:"control_account_id"`
	EntryID          uuid.UUID `json:"entry_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// Settled sums the control-account lines that reduce this invoice, excluding the
// originating entry itself.
func (inv *Invoice) Settled(lines []journal.PostedLine) int64 {
	var settled int64
	side := inv.Kind.SettlingSide()
	for _, line := range lines {
		if line.InvoiceID != inv.ID || line.EntryID == inv.EntryID {
			continue
		}
		if line.AccountID != inv.ControlAccountID {
			continue
		}
		if line.Type == side {
			settled += line.Amount
		} else {
			settled -= line.Amount
		}
	}
	return settled
}

// Repository persists invoices alongside the entry that created them
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error

	// GetByID returns shared.NotFoundError when the invoice does not exist
	GetByID(ctx context.Context, kind Kind, id string) (*Invoice, error)

	// LockForUpdate serializes settlements of one invoice
	LockForUpdate(ctx context.Context, kind Kind, id string) (*Invoice, error)

	// SettledAmount sums settling control-account lines posted so far
	SettledAmount(ctx context.Context, inv *Invoice) (int64, error)

	// IssuedThrough lists invoices issued before the end of the range, oldest due first
	IssuedThrough(ctx context.Context, kind Kind, dateRange journal.DateRange) ([]*Invoice, error)

	WithTx(tx pgx.Tx) Repository
}
