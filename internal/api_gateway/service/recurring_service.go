package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
)

type RecurringExpenseServiceImpl struct {
	expenses recurring.Repository
	accounts account.Repository
	logger   *slog.Logger
}

func NewRecurringExpenseService(logger *slog.Logger, expenses recurring.Repository, accounts account.Repository) RecurringExpenseService {
	return &RecurringExpenseServiceImpl{
		expenses: expenses,
		accounts: accounts,
		logger:   logger,
	}
}

// CreateRecurringExpense checks the accounts up front so a misconfigured schedule
// is rejected here instead of being paused on its first run
func (s *RecurringExpenseServiceImpl) CreateRecurringExpense(ctx context.Context, def RecurringExpenseSpec) (*recurring.Expense, error) {
	exp, err := recurring.NewExpense(def.Name, def.Payee, def.Amount, def.ExpenseAccountID, def.PaymentAccountID,
		def.Frequency, def.StartDate, def.EndDate)
	if err != nil {
		return nil, err
	}

	if err := s.requireType(ctx, exp.ExpenseAccountID, "expense", account.TypeExpense); err != nil {
		return nil, err
	}
	if err := s.requireType(ctx, exp.PaymentAccountID, "expense payment", account.TypeAsset, account.TypeLiability); err != nil {
		return nil, err
	}

	if err := s.expenses.Create(ctx, exp); err != nil {
		return nil, err
	}
	s.logger.Info("Recurring expense created",
		"recurring_expense_id", exp.ID.String(),
		"frequency", string(exp.Frequency),
		"next_run_date", exp.NextRunDate.Format("2006-01-02"),
	)
	return exp, nil
}

func (s *RecurringExpenseServiceImpl) requireType(ctx context.Context, id uuid.UUID, role string, types ...account.Type) error {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{}) {
			return shared.InvalidAccountError{AccountID: id, Role: role, Reason: "account does not exist"}
		}
		return err
	}
	for _, t := range types {
		if acc.Type == t {
			return nil
		}
	}
	return shared.InvalidAccountError{AccountID: id, Role: role, Reason: "account " + acc.Number + " is of type " + string(acc.Type)}
}

func (s *RecurringExpenseServiceImpl) ListRecurringExpenses(ctx context.Context) ([]*recurring.Expense, error) {
	return s.expenses.List(ctx)
}

func (s *RecurringExpenseServiceImpl) SetRecurringExpenseStatus(ctx context.Context, id uuid.UUID, status recurring.Status) (*recurring.Expense, error) {
	exp, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Status == status {
		return exp, nil
	}
	if err := exp.SetStatus(status); err != nil {
		return nil, err
	}
	if err := s.expenses.Update(ctx, exp); err != nil {
		return nil, err
	}
	s.logger.Info("Recurring expense status changed", "recurring_expense_id", id.String(), "status", string(status))
	return exp, nil
}
