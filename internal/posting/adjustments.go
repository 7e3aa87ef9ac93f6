package posting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

// ErrBalanceMatches is returned by AdjustToBalance when the account already
// carries the counted balance
var ErrBalanceMatches = errors.New("account balance already matches the counted balance")

// PostAdjustment moves a signed amount between two accounts. A positive amount
// debits the target and credits the offset; a negative amount does the reverse.
func (e *Engine) PostAdjustment(ctx context.Context, adj event.Adjustment) (*journal.Entry, error) {
	if err := ValidateAdjustment(adj); err != nil {
		return nil, err
	}

	return e.post(ctx, adj.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}

		target, err := res.byID(ctx, adj.AccountID, roleAdjustment)
		if err != nil {
			return nil, err
		}
		offset, err := res.byID(ctx, adj.OffsetAccountID, roleAdjustmentOffset)
		if err != nil {
			return nil, err
		}

		d := &draft{
			date:        e.dateOrNow(adj.Date),
			description: strings.TrimSpace(adj.Description),
			reference:   adj.Reference,
		}
		if amount := adj.Amount.Cents(); amount > 0 {
			d.lines.debit(target, amount)
			d.lines.credit(offset, amount)
		} else {
			d.lines.debit(offset, -amount)
			d.lines.credit(target, -amount)
		}
		return d, nil
	})
}

// ValidateAdjustment checks an adjustment before any account is read
func ValidateAdjustment(adj event.Adjustment) error {
	if err := requireID("adjustment_id", adj.AdjustmentID); err != nil {
		return err
	}
	if adj.Amount == 0 {
		return shared.ValidationError{Field: "amount", Reason: "must not be zero"}
	}
	return validateAdjustmentAccounts(adj)
}

func validateAdjustmentAccounts(adj event.Adjustment) error {
	if adj.AccountID == uuid.Nil {
		return shared.ValidationError{Field: "account_id", Reason: "is required"}
	}
	if adj.OffsetAccountID == uuid.Nil {
		return shared.ValidationError{Field: "offset_account_id", Reason: "is required"}
	}
	if adj.OffsetAccountID == adj.AccountID {
		return shared.ValidationError{Field: "offset_account_id", Reason: "must differ from the adjusted account"}
	}
	return requireText("description", adj.Description)
}

// AdjustToBalance posts the adjustment that brings the target account to counted,
// a normal-side balance such as a stock count or a bank statement. The difference
// is computed under the ledger lock; adj.Amount is ignored. Returns
// ErrBalanceMatches when nothing needs posting.
func (e *Engine) AdjustToBalance(ctx context.Context, adj event.Adjustment, counted int64) (*journal.Entry, error) {
	if err := requireID("adjustment_id", adj.AdjustmentID); err != nil {
		return nil, err
	}
	if err := validateAdjustmentAccounts(adj); err != nil {
		return nil, err
	}

	return e.post(ctx, adj.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}

		target, err := res.byID(ctx, adj.AccountID, roleAdjustment)
		if err != nil {
			return nil, err
		}
		offset, err := res.byID(ctx, adj.OffsetAccountID, roleAdjustmentOffset)
		if err != nil {
			return nil, err
		}

		delta := counted - target.Balance
		if delta == 0 {
			return nil, ErrBalanceMatches
		}
		debit := target.Type.SignedAmount(true, delta)

		d := &draft{
			date: e.dateOrNow(adj.Date),
			description: fmt.Sprintf("%s (balance %s counted %s)",
				strings.TrimSpace(adj.Description), money.Format(target.Balance), money.Format(counted)),
			reference: adj.Reference,
		}
		if debit > 0 {
			d.lines.debit(target, debit)
			d.lines.credit(offset, debit)
		} else {
			d.lines.debit(offset, -debit)
			d.lines.credit(target, -debit)
		}
		return d, nil
	})
}

// Reversal asks for an entry to be cancelled by its mirror image
type Reversal struct {
	EntryID uuid.UUID
	Date    time.Time // Defaults to today
	Reason  string
}

// ReverseEntry posts the mirror image of an entry. The reversal's source is the
// reversed entry id, so an entry can only be reversed once. Reversals cannot be
// reversed, and an invoice's originating entry can only be reversed while
// nothing has been settled against the invoice.
func (e *Engine) ReverseEntry(ctx context.Context, req Reversal) (*journal.Entry, error) {
	if req.EntryID == uuid.Nil {
		return nil, shared.ValidationError{Field: "entry_id", Reason: "is required"}
	}
	source := journal.Source{Type: shared.SourceTypeReversal, ID: req.EntryID.String()}

	return e.post(ctx, source, func(ctx context.Context, r *repos) (*draft, error) {
		original, err := r.journal.GetByID(ctx, req.EntryID)
		if err != nil {
			return nil, err
		}
		if original.Source.Type == shared.SourceTypeReversal {
			return nil, shared.ConflictError{Resource: "journal_entry", Reason: "a reversal cannot be reversed"}
		}
		if original.Source.Type == shared.SourceTypeSale {
			refunded, err := refundedSoFar(ctx, r.journal, original.Source.ID)
			if err != nil {
				return nil, err
			}
			if refunded > 0 {
				return nil, shared.ConflictError{Resource: "journal_entry", Reason: "sale has refunds, reverse them first"}
			}
		}

		if kind, ok := originatedInvoice(original); ok {
			inv, due, err := openInvoice(ctx, r, kind, original.InvoiceID)
			if err != nil {
				return nil, err
			}
			if due != inv.Total {
				return nil, shared.ConflictError{
					Resource: "journal_entry",
					Reason:   "invoice " + inv.Number + " has settlements, reverse them first",
				}
			}
		}

		d := &draft{
			date:        e.dateOrNow(req.Date),
			description: fmt.Sprintf("Reversal of entry #%d: %s", original.Sequence, original.Description),
			reference:   original.Source.String(),
			invoiceID:   original.InvoiceID,
		}
		if reason := strings.TrimSpace(req.Reason); reason != "" {
			d.description += " (" + reason + ")"
		}
		for _, line := range original.Lines {
			line.Type = line.Type.Opposite()
			d.lines = append(d.lines, line)
		}
		return d, nil
	})
}

// originatedInvoice reports whether entry is the one that opened its invoice
func originatedInvoice(entry *journal.Entry) (invoice.Kind, bool) {
	if entry.InvoiceID == "" {
		return "", false
	}
	switch entry.Source.Type {
	case shared.SourceTypeSale:
		return invoice.KindReceivable, true
	case shared.SourceTypeSupplierInvoice:
		return invoice.KindPayable, true
	}
	return "", false
}
