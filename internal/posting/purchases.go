package posting

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
)

// PostSupplierInvoice books a bill: each line debits inventory or an expense
// account and the total is credited to payables.
func (e *Engine) PostSupplierInvoice(ctx context.Context, bill event.SupplierInvoice) (*journal.Entry, error) {
	if err := validateSupplierInvoice(bill); err != nil {
		return nil, err
	}

	return e.post(ctx, bill.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}
		date := e.dateOrNow(bill.Date)
		total := bill.Principal()

		payable, err := res.bySubType(ctx, account.SubTypeAccountsPayable, rolePayable)
		if err != nil {
			return nil, err
		}

		due := e.defaultDueDate(date)
		if !bill.DueDate.IsZero() {
			due = journal.StartOfDay(bill.DueDate)
		}
		if due.Before(journal.StartOfDay(date)) {
			return nil, shared.ValidationError{Field: "due_date", Reason: "must not be before the invoice date"}
		}

		supplier := strings.TrimSpace(bill.SupplierName)
		number := strings.TrimSpace(bill.InvoiceNumber)
		d := &draft{
			date:        date,
			description: fmt.Sprintf("Supplier invoice %s - %s", number, supplier),
			reference:   number,
			invoiceID:   bill.InvoiceID,
			invoice: &invoice.Invoice{
				ID:               bill.InvoiceID,
				Kind:             invoice.KindPayable,
				Number:           number,
				CounterpartyID:   bill.SupplierID,
				CounterpartyName: supplier,
				IssueDate:        date,
				DueDate:          due,
				Total:            total,
				ControlAccountID: payable.ID,
				CreatedAt:        e.now(),
			},
		}
		if po := strings.TrimSpace(bill.PONumber); po != "" {
			d.description += " (PO " + po + ")"
		}

		for _, line := range bill.Lines {
			acc, err := res.byID(ctx, line.AccountID, roleSupplierLine, account.TypeAsset, account.TypeExpense)
			if err != nil {
				return nil, err
			}
			d.lines.debit(acc, line.Amount.Cents())
		}
		d.lines.credit(payable, total)
		return d, nil
	})
}

func validateSupplierInvoice(bill event.SupplierInvoice) error {
	if err := requireID("invoice_id", bill.InvoiceID); err != nil {
		return err
	}
	if err := requireID("invoice_number", bill.InvoiceNumber); err != nil {
		return err
	}
	if err := requireText("supplier_name", bill.SupplierName); err != nil {
		return err
	}
	if len(bill.Lines) == 0 {
		return shared.ValidationError{Field: "lines", Reason: "at least one line is required"}
	}
	for _, line := range bill.Lines {
		if err := requirePositive("lines.amount", line.Amount.Cents()); err != nil {
			return err
		}
	}
	return nil
}

// PostSupplierPayment settles part or all of a supplier invoice
func (e *Engine) PostSupplierPayment(ctx context.Context, p event.SupplierPayment) (*journal.Entry, error) {
	if err := requireID("payment_id", p.PaymentID); err != nil {
		return nil, err
	}
	if err := requireID("invoice_id", p.InvoiceID); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", p.Amount.Cents()); err != nil {
		return nil, err
	}

	return e.post(ctx, p.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}

		inv, due, err := openInvoice(ctx, r, invoice.KindPayable, p.InvoiceID)
		if err != nil {
			return nil, err
		}
		if err := withinBalanceDue(p.Amount.Cents(), due); err != nil {
			return nil, err
		}

		payable, err := res.byID(ctx, inv.ControlAccountID, rolePayable, account.TypeLiability)
		if err != nil {
			return nil, err
		}
		payment, err := res.byIDOr(ctx, p.PaymentAccountID, account.SubTypeCash, rolePayment, account.TypeAsset)
		if err != nil {
			return nil, err
		}

		d := &draft{
			date:        e.dateOrNow(p.Date),
			description: fmt.Sprintf("Payment to %s for invoice %s", inv.CounterpartyName, inv.Number),
			reference:   firstNonEmpty(p.Reference, inv.Number),
			invoiceID:   inv.ID,
		}
		d.lines.debit(payable, p.Amount.Cents())
		d.lines.credit(payment, p.Amount.Cents())
		return d, nil
	})
}

// PostExpense books an operating cost paid from an asset or charged to a liability
func (e *Engine) PostExpense(ctx context.Context, exp event.Expense) (*journal.Entry, error) {
	if err := requireID("expense_id", exp.ExpenseID); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", exp.Amount.Cents()); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(exp.Description)
	payee := strings.TrimSpace(exp.Payee)
	switch {
	case description == "" && payee == "":
		return nil, shared.ValidationError{Field: "description", Reason: "description or payee is required"}
	case description == "":
		description = "Expense paid to " + payee
	case payee != "":
		description += " - " + payee
	}

	return e.post(ctx, exp.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}

		expense, err := res.byID(ctx, exp.ExpenseAccountID, roleExpense, account.TypeExpense)
		if err != nil {
			return nil, err
		}
		payment, err := res.byID(ctx, exp.PaymentAccountID, roleExpensePayment, account.TypeAsset, account.TypeLiability)
		if err != nil {
			return nil, err
		}

		d := &draft{
			date:        e.dateOrNow(exp.Date),
			description: description,
			reference:   exp.Reference,
		}
		d.lines.debit(expense, exp.Amount.Cents())
		d.lines.credit(payment, exp.Amount.Cents())
		return d, nil
	})
}
