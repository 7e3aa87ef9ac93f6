package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
)

// TrialBalanceRow is one account's activity up to the report date
type TrialBalanceRow struct {
	AccountID uuid.UUID    `json:"account_id"`
	Number    string       `json:"number"`
	Name      string       `json:"name"`
	Type      account.Type `json:"type"`
	Debits    money.Amount `json:"debits"`
	Credits   money.Amount `json:"credits"`
	Balance   money.Amount `json:"balance"` // Normal side
}

type TrialBalance struct {
	AsOf         time.Time         `json:"as_of"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  money.Amount      `json:"total_debits"`
	TotalCredits money.Amount      `json:"total_credits"`
}

// TrialBalance sums every line up to the end of asOf's day. Unequal debit and
// credit totals mean the journal is corrupt and fail with shared.IntegrityError.
func (b *Builder) TrialBalance(ctx context.Context, asOf time.Time) (*TrialBalance, error) {
	s, err := b.load(ctx, journal.Through(asOf))
	if err != nil {
		return nil, err
	}

	report := &TrialBalance{AsOf: journal.StartOfDay(asOf)}
	totals := s.activity()
	for _, acc := range s.accounts {
		a := totals[acc.ID]
		report.Rows = append(report.Rows, TrialBalanceRow{
			AccountID: acc.ID,
			Number:    acc.Number,
			Name:      acc.Name,
			Type:      acc.Type,
			Debits:    money.Amount(a.debits),
			Credits:   money.Amount(a.credits),
			Balance:   money.Amount(a.balance(acc.Type)),
		})
		report.TotalDebits += money.Amount(a.debits)
		report.TotalCredits += money.Amount(a.credits)
		delete(totals, acc.ID)
	}
	if len(totals) > 0 {
		return nil, b.integrityFailure(ctx, "trial_balance",
			fmt.Sprintf("%d accounts referenced by journal lines are missing from the chart", len(totals)))
	}
	if report.TotalDebits != report.TotalCredits {
		return nil, b.integrityFailure(ctx, "trial_balance",
			fmt.Sprintf("debits %s != credits %s", report.TotalDebits, report.TotalCredits))
	}
	return report, nil
}

// StatementRow is one account's contribution to a statement section
type StatementRow struct {
	AccountID uuid.UUID    `json:"account_id"`
	Number    string       `json:"number"`
	Name      string       `json:"name"`
	Amount    money.Amount `json:"amount"`
}

type ProfitAndLoss struct {
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Revenue       []StatementRow `json:"revenue"`
	Expenses      []StatementRow `json:"expenses"`
	TotalRevenue  money.Amount   `json:"total_revenue"`
	TotalExpenses money.Amount   `json:"total_expenses"`
	NetIncome     money.Amount   `json:"net_income"`
}

// ProfitAndLoss nets revenue and expense lines dated from the start of start's day
// through the end of end's day. Only accounts with activity in the range appear.
func (b *Builder) ProfitAndLoss(ctx context.Context, start, end time.Time) (*ProfitAndLoss, error) {
	if err := validateRange(start, end); err != nil {
		return nil, err
	}
	s, err := b.load(ctx, journal.DaysInclusive(start, end))
	if err != nil {
		return nil, err
	}

	report := &ProfitAndLoss{Start: journal.StartOfDay(start), End: journal.StartOfDay(end)}
	totals := s.activity()
	for _, acc := range s.accounts {
		a, ok := totals[acc.ID]
		if !ok {
			continue
		}
		row := StatementRow{AccountID: acc.ID, Number: acc.Number, Name: acc.Name, Amount: money.Amount(a.balance(acc.Type))}
		switch acc.Type {
		case account.TypeRevenue:
			report.Revenue = append(report.Revenue, row)
			report.TotalRevenue += row.Amount
		case account.TypeExpense:
			report.Expenses = append(report.Expenses, row)
			report.TotalExpenses += row.Amount
		}
	}
	report.NetIncome = report.TotalRevenue - report.TotalExpenses
	return report, nil
}

type BalanceSheet struct {
	AsOf        time.Time      `json:"as_of"`
	Assets      []StatementRow `json:"assets"`
	Liabilities []StatementRow `json:"liabilities"`
	Equity      []StatementRow `json:"equity"`

	// CurrentEarnings is revenue less expenses to date, not yet closed to equity
	CurrentEarnings money.Amount `json:"current_earnings"`

	TotalAssets               money.Amount `json:"total_assets"`
	TotalLiabilities          money.Amount `json:"total_liabilities"`
	TotalEquity               money.Amount `json:"total_equity"` // Includes current earnings
	TotalLiabilitiesAndEquity money.Amount `json:"total_liabilities_and_equity"`
}

// BalanceSheet replays balances up to the end of asOf's day. Assets must equal
// liabilities plus equity within the configured tolerance.
func (b *Builder) BalanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheet, error) {
	s, err := b.load(ctx, journal.Through(asOf))
	if err != nil {
		return nil, err
	}

	report := &BalanceSheet{AsOf: journal.StartOfDay(asOf)}
	totals := s.activity()
	for _, acc := range s.accounts {
		a := totals[acc.ID]
		row := StatementRow{AccountID: acc.ID, Number: acc.Number, Name: acc.Name, Amount: money.Amount(a.balance(acc.Type))}
		switch acc.Type {
		case account.TypeAsset:
			report.Assets = append(report.Assets, row)
			report.TotalAssets += row.Amount
		case account.TypeLiability:
			report.Liabilities = append(report.Liabilities, row)
			report.TotalLiabilities += row.Amount
		case account.TypeEquity:
			report.Equity = append(report.Equity, row)
			report.TotalEquity += row.Amount
		case account.TypeRevenue:
			report.CurrentEarnings += row.Amount
		case account.TypeExpense:
			report.CurrentEarnings -= row.Amount
		}
	}
	report.TotalEquity += report.CurrentEarnings
	report.TotalLiabilitiesAndEquity = report.TotalLiabilities + report.TotalEquity

	diff := int64(report.TotalAssets - report.TotalLiabilitiesAndEquity)
	if diff < 0 {
		diff = -diff
	}
	if diff > b.cfg.BalanceToleranceCents {
		return nil, b.integrityFailure(ctx, "balance_sheet",
			fmt.Sprintf("assets %s != liabilities and equity %s", report.TotalAssets, report.TotalLiabilitiesAndEquity))
	}
	return report, nil
}
