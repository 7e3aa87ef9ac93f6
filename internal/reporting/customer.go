package reporting

import (
	"context"
	"strings"
	"time"

	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

// CustomerActivity is one movement on a customer's account. Charges raise
// what the customer owes, credits lower it.
type CustomerActivity struct {
	Date          time.Time         `json:"date"`
	Description   string            `json:"description"`
	InvoiceID     string            `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	SourceType    shared.SourceType `json:"source_type"`
	SourceID      string            `json:"source_id"`
	Charge        money.Amount      `json:"charge"`
	Credit        money.Amount      `json:"credit"`
	Balance       money.Amount      `json:"balance"`
}

type CustomerStatement struct {
	CustomerID   string             `json:"customer_id"`
	CustomerName string             `json:"customer_name"`
	AsOf         time.Time          `json:"as_of"`
	Activity     []CustomerActivity `json:"activity"`
	TotalCharged money.Amount       `json:"total_charged"`
	TotalCredits money.Amount       `json:"total_credits"`
	Balance      money.Amount       `json:"balance"`
}

// CustomerStatement lists a customer's invoices and everything posted against
// them through asOf, with a running balance
func (b *Builder) CustomerStatement(ctx context.Context, customerID string, asOf time.Time) (*CustomerStatement, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, shared.ValidationError{Field: "customer_id", Reason: "is required"}
	}
	if asOf.IsZero() {
		return nil, shared.ValidationError{Field: "as_of", Reason: "is required"}
	}

	s, err := b.load(ctx, journal.Through(asOf), invoice.KindReceivable)
	if err != nil {
		return nil, err
	}

	report := &CustomerStatement{CustomerID: customerID, AsOf: journal.StartOfDay(asOf)}
	invoices := make(map[string]*invoice.Invoice)
	for _, inv := range s.invoices {
		if inv.CounterpartyID != customerID {
			continue
		}
		invoices[inv.ID] = inv
		if report.CustomerName == "" {
			report.CustomerName = inv.CounterpartyName
		}
	}
	if len(invoices) == 0 {
		return nil, shared.NotFoundError{Resource: "customer", ID: customerID}
	}

	var balance int64
	for _, line := range s.lines {
		inv, ok := invoices[line.InvoiceID]
		if !ok || line.AccountID != inv.ControlAccountID {
			continue
		}
		row := CustomerActivity{
			Date:          line.Date,
			Description:   line.Description,
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			SourceType:    line.SourceType,
			SourceID:      line.SourceID,
		}
		if line.Type == journal.Debit {
			row.Charge = money.Amount(line.Amount)
			balance += line.Amount
			report.TotalCharged += row.Charge
		} else {
			row.Credit = money.Amount(line.Amount)
			balance -= line.Amount
			report.TotalCredits += row.Credit
		}
		row.Balance = money.Amount(balance)
		report.Activity = append(report.Activity, row)
	}
	report.Balance = money.Amount(balance)
	return report, nil
}
