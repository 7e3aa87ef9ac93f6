package posting

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

// PostSale books a checkout. Cash sales debit the payment account, credit sales
// debit receivables and open an invoice, store credit tenders draw down the
// store credit liability. A positive cost of goods moves stock from inventory
// to COGS in the same entry.
func (e *Engine) PostSale(ctx context.Context, sale event.Sale) (*journal.Entry, error) {
	if err := validateSale(sale); err != nil {
		return nil, err
	}

	return e.post(ctx, sale.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}
		date := e.dateOrNow(sale.Date)
		number := strings.TrimSpace(sale.Number)
		if number == "" {
			number = sale.SaleID
		}
		gross := sale.Principal()

		revenue, err := res.byIDOr(ctx, sale.RevenueAccountID, account.SubTypeSalesRevenue, roleRevenue, account.TypeRevenue)
		if err != nil {
			return nil, err
		}

		d := &draft{date: date, reference: number}
		if sale.OnCredit {
			receivable, err := res.bySubType(ctx, account.SubTypeAccountsReceivable, roleReceivable)
			if err != nil {
				return nil, err
			}
			due := e.defaultDueDate(date)
			if sale.DueDate != nil {
				due = journal.StartOfDay(*sale.DueDate)
			}
			if due.Before(journal.StartOfDay(date)) {
				return nil, shared.ValidationError{Field: "due_date", Reason: "must not be before the sale date"}
			}

			customer := strings.TrimSpace(sale.CustomerName)
			d.description = fmt.Sprintf("Credit sale #%s - %s", number, customer)
			d.invoiceID = sale.SaleID
			d.invoice = &invoice.Invoice{
				ID:               sale.SaleID,
				Kind:             invoice.KindReceivable,
				Number:           number,
				CounterpartyID:   sale.CustomerID,
				CounterpartyName: customer,
				IssueDate:        date,
				DueDate:          due,
				Total:            gross,
				ControlAccountID: receivable.ID,
				CreatedAt:        e.now(),
			}
			d.lines.debit(receivable, gross)
		} else if sale.StoreCredit {
			credit, err := res.bySubType(ctx, account.SubTypeStoreCreditPayable, roleStoreCredit)
			if err != nil {
				return nil, err
			}
			d.description = "Store credit sale #" + number
			d.lines.debit(credit, gross)
		} else {
			payment, err := res.byIDOr(ctx, sale.PaymentAccountID, account.SubTypeCash, rolePayment, account.TypeAsset)
			if err != nil {
				return nil, err
			}
			d.description = "Cash sale #" + number
			d.lines.debit(payment, gross)
		}

		d.lines.credit(revenue, sale.Subtotal.Cents())
		if sale.Tax > 0 {
			tax, err := res.bySubType(ctx, account.SubTypeSalesTaxPayable, roleSalesTax)
			if err != nil {
				return nil, err
			}
			d.lines.credit(tax, sale.Tax.Cents())
		}

		if sale.CostOfGoods > 0 {
			cogs, err := res.bySubType(ctx, account.SubTypeCOGS, roleCOGS)
			if err != nil {
				return nil, err
			}
			inventory, err := res.bySubType(ctx, account.SubTypeInventory, roleInventory)
			if err != nil {
				return nil, err
			}
			d.lines.debit(cogs, sale.CostOfGoods.Cents())
			d.lines.credit(inventory, sale.CostOfGoods.Cents())
		}

		if sale.Discount > 0 {
			d.description += " (discount " + sale.Discount.String() + ")"
		}
		return d, nil
	})
}

func validateSale(sale event.Sale) error {
	if err := requireID("sale_id", sale.SaleID); err != nil {
		return err
	}
	if err := requirePositive("subtotal", sale.Subtotal.Cents()); err != nil {
		return err
	}
	amounts := []struct {
		field string
		value money.Amount
	}{{"discount", sale.Discount}, {"tax", sale.Tax}, {"cost_of_goods", sale.CostOfGoods}}
	for _, a := range amounts {
		if a.value < 0 {
			return shared.ValidationError{Field: a.field, Reason: "must not be negative"}
		}
	}
	if sale.OnCredit && sale.StoreCredit {
		return shared.ValidationError{Field: "store_credit", Reason: "a credit sale cannot be tendered with store credit"}
	}
	if sale.OnCredit {
		if err := requireID("customer_id", sale.CustomerID); err != nil {
			return err
		}
		if err := requireText("customer_name", sale.CustomerName); err != nil {
			return err
		}
	}
	return nil
}

// PostPayment settles part or all of a customer invoice
func (e *Engine) PostPayment(ctx context.Context, p event.Payment) (*journal.Entry, error) {
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

		inv, due, err := openInvoice(ctx, r, invoice.KindReceivable, p.InvoiceID)
		if err != nil {
			return nil, err
		}
		if err := withinBalanceDue(p.Amount.Cents(), due); err != nil {
			return nil, err
		}

		payment, err := res.byIDOr(ctx, p.PaymentAccountID, account.SubTypeCash, rolePayment, account.TypeAsset)
		if err != nil {
			return nil, err
		}
		receivable, err := res.byID(ctx, inv.ControlAccountID, roleReceivable, account.TypeAsset)
		if err != nil {
			return nil, err
		}

		d := &draft{
			date:        e.dateOrNow(p.Date),
			description: fmt.Sprintf("Payment received for invoice %s - %s", inv.Number, inv.CounterpartyName),
			reference:   firstNonEmpty(p.Reference, inv.Number),
			invoiceID:   inv.ID,
		}
		if method := strings.TrimSpace(p.Method); method != "" {
			d.description += " (" + method + ")"
		}
		d.lines.debit(payment, p.Amount.Cents())
		d.lines.credit(receivable, p.Amount.Cents())
		return d, nil
	})
}

// PostRefund returns money for a posted sale. Open credit sales are refunded
// against their invoice, store credit refunds are issued as a liability and
// everything else is paid out of the payment account. Refunds of one sale never
// exceed its gross amount in total, and a reversed sale takes no refunds.
func (e *Engine) PostRefund(ctx context.Context, refund event.Refund) (*journal.Entry, error) {
	if err := requireID("refund_id", refund.RefundID); err != nil {
		return nil, err
	}
	if err := requireID("sale_id", refund.SaleID); err != nil {
		return nil, err
	}
	if err := requirePositive("amount", refund.Amount.Cents()); err != nil {
		return nil, err
	}
	if refund.Tax < 0 || refund.Tax > refund.Amount {
		return nil, shared.ValidationError{Field: "tax", Reason: "must be between zero and the refund amount"}
	}

	return e.post(ctx, refund.Source(), func(ctx context.Context, r *repos) (*draft, error) {
		res := resolver{accounts: r.accounts}

		sale, err := r.journal.GetBySource(ctx, journal.Source{Type: shared.SourceTypeSale, ID: refund.SaleID})
		if err != nil {
			return nil, err
		}
		if sale == nil {
			return nil, shared.NotFoundError{Resource: "sale", ID: refund.SaleID}
		}
		reversal, err := r.journal.GetBySource(ctx, journal.Source{Type: shared.SourceTypeReversal, ID: sale.ID.String()})
		if err != nil {
			return nil, err
		}
		if reversal != nil {
			return nil, shared.ConflictError{Resource: "sale", Reason: "sale " + refund.SaleID + " has been reversed"}
		}

		revenue, saleRevenue, saleTax, err := saleIncome(ctx, res, sale)
		if err != nil {
			return nil, err
		}
		if refund.Tax.Cents() > saleTax {
			return nil, shared.ValidationError{Field: "tax", Reason: "exceeds the tax collected on the sale"}
		}

		refunded, err := refundedSoFar(ctx, r.journal, refund.SaleID)
		if err != nil {
			return nil, err
		}
		if refunded+refund.Amount.Cents() > saleRevenue+saleTax {
			return nil, shared.ValidationError{
				Field:  "amount",
				Reason: fmt.Sprintf("refunds would exceed the sale total %s", money.Format(saleRevenue+saleTax)),
			}
		}

		d := &draft{
			date:        e.dateOrNow(refund.Date),
			description: "Refund for sale #" + firstNonEmpty(sale.Reference, refund.SaleID),
			reference:   refund.SaleID,
		}
		if reason := strings.TrimSpace(refund.Reason); reason != "" {
			d.description += ": " + reason
		}

		d.lines.debit(revenue, refund.Amount.Cents()-refund.Tax.Cents())
		if refund.Tax > 0 {
			tax, err := res.bySubType(ctx, account.SubTypeSalesTaxPayable, roleSalesTax)
			if err != nil {
				return nil, err
			}
			d.lines.debit(tax, refund.Tax.Cents())
		}

		if refund.StoreCredit {
			credit, err := res.bySubType(ctx, account.SubTypeStoreCreditPayable, roleStoreCredit)
			if err != nil {
				return nil, err
			}
			d.description += " (store credit)"
			d.lines.credit(credit, refund.Amount.Cents())
			return d, nil
		}

		if sale.InvoiceID != "" {
			inv, due, err := openInvoice(ctx, r, invoice.KindReceivable, sale.InvoiceID)
			if err != nil {
				return nil, err
			}
			if due > 0 {
				if err := withinBalanceDue(refund.Amount.Cents(), due); err != nil {
					return nil, err
				}
				receivable, err := res.byID(ctx, inv.ControlAccountID, roleReceivable, account.TypeAsset)
				if err != nil {
					return nil, err
				}
				d.invoiceID = inv.ID
				d.lines.credit(receivable, refund.Amount.Cents())
				return d, nil
			}
		}

		payment, err := res.byIDOr(ctx, refund.PaymentAccountID, account.SubTypeCash, rolePayment, account.TypeAsset)
		if err != nil {
			return nil, err
		}
		d.lines.credit(payment, refund.Amount.Cents())
		return d, nil
	})
}

// saleIncome finds the revenue account a sale credited and the revenue and tax it booked
func saleIncome(ctx context.Context, res resolver, sale *journal.Entry) (revenue *account.Account, revenueAmount, taxAmount int64, err error) {
	for _, line := range sale.Lines {
		if line.Type != journal.Credit {
			continue
		}
		acc, err := res.byID(ctx, line.AccountID, roleRevenue)
		if err != nil {
			return nil, 0, 0, err
		}
		switch {
		case acc.Type == account.TypeRevenue:
			if revenue == nil {
				revenue = acc
			}
			revenueAmount += line.Amount
		case acc.SubType == account.SubTypeSalesTaxPayable:
			taxAmount += line.Amount
		}
	}
	if revenue == nil {
		return nil, 0, 0, shared.InvalidAccountError{Role: roleRevenue, Reason: "sale " + sale.Source.ID + " credited no revenue account"}
	}
	return revenue, revenueAmount, taxAmount, nil
}

// refundedSoFar sums the refunds already posted against a sale. Refund entries
// carry the sale id as their reference; reversed refunds no longer count.
func refundedSoFar(ctx context.Context, journalRepo journal.Repository, saleID string) (int64, error) {
	var total int64
	filter := journal.Filter{
		SourceType: shared.SourceTypeRefund,
		Text:       saleID,
		Order:      journal.OldestFirst,
		Limit:      journal.MaxQueryLimit,
	}
	for {
		entries, err := journalRepo.Query(ctx, filter)
		if err != nil {
			return 0, err
		}
		for _, entry := range entries {
			if entry.Reference != saleID {
				continue
			}
			reversal, err := journalRepo.GetBySource(ctx, journal.Source{Type: shared.SourceTypeReversal, ID: entry.ID.String()})
			if err != nil {
				return 0, err
			}
			if reversal == nil {
				total += entry.Total()
			}
		}
		if len(entries) < filter.Limit {
			return total, nil
		}
		filter.Offset += filter.Limit
	}
}

// openInvoice locks an invoice and returns its balance due
func openInvoice(ctx context.Context, r *repos, kind invoice.Kind, id string) (*invoice.Invoice, int64, error) {
	inv, err := r.invoices.LockForUpdate(ctx, kind, id)
	if err != nil {
		return nil, 0, err
	}
	settled, err := r.invoices.SettledAmount(ctx, inv)
	if err != nil {
		return nil, 0, err
	}
	return inv, inv.Total - settled, nil
}

func withinBalanceDue(amount, due int64) error {
	if amount > due {
		return shared.ValidationError{
			Field:  "amount",
			Reason: fmt.Sprintf("%s exceeds the balance due %s", money.Format(amount), money.Format(due)),
		}
	}
	return nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return shared.ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// requireID also bounds the value to the width of the id columns
func requireID(field, value string) error {
	if err := requireText(field, value); err != nil {
		return err
	}
	if utf8.RuneCountInString(value) > journal.MaxIDLength {
		return shared.ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", journal.MaxIDLength)}
	}
	return nil
}

func requirePositive(field string, cents int64) error {
	if cents <= 0 {
		return shared.ValidationError{Field: field, Reason: "must be positive"}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
