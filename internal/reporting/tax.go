package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

type SalesTax struct {
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	TaxableSales money.Amount `json:"taxable_sales"` // Net revenue on entries that moved sales tax
	Collected    money.Amount `json:"collected"`
	Refunded     money.Amount `json:"refunded"` // Refunds and reversals
	Remitted     money.Amount `json:"remitted"` // Any other debit, such as payments to the tax authority
	OtherCredits money.Amount `json:"other_credits"`
	NetChange    money.Amount `json:"net_change"` // Change in the sales tax payable balance
}

// SalesTax summarizes the sales tax payable account over whole days
func (b *Builder) SalesTax(ctx context.Context, start, end time.Time) (*SalesTax, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	s, err := b.load(ctx, journal.DaysInclusive(start, end))
	if err != nil {
		return nil, err
	}

	var tax *account.Account
	for _, acc := range s.accounts {
		if acc.SubType == account.SubTypeSalesTaxPayable {
			tax = acc
			break
		}
	}
	if tax == nil {
		return nil, shared.NotFoundError{Resource: "account", ID: string(account.SubTypeSalesTaxPayable)}
	}

	report := &SalesTax{Start: journal.StartOfDay(start), End: journal.StartOfDay(end)}
	taxed := make(map[uuid.UUID]bool)
	for _, line := range s.lines {
		if line.AccountID != tax.ID {
			continue
		}
		switch {
		case line.Type == journal.Credit && line.SourceType == shared.SourceTypeSale:
			report.Collected += money.Amount(line.Amount)
			taxed[line.EntryID] = true
		case line.Type == journal.Credit:
			report.OtherCredits += money.Amount(line.Amount)
		case line.SourceType == shared.SourceTypeRefund || line.SourceType == shared.SourceTypeReversal:
			report.Refunded += money.Amount(line.Amount)
			taxed[line.EntryID] = true
		default:
			report.Remitted += money.Amount(line.Amount)
		}
	}
	report.NetChange = report.Collected + report.OtherCredits - report.Refunded - report.Remitted

	for _, line := range s.lines {
		acc, ok := s.byID[line.AccountID]
		if !ok || acc.Type != account.TypeRevenue || !taxed[line.EntryID] {
			continue
		}
		report.TaxableSales += money.Amount(acc.Type.SignedAmount(line.Type == journal.Debit, line.Amount))
	}
	return report, nil
}
