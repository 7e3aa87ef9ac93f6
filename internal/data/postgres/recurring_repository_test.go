package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recurringColumnNames = []string{"id", "name", "payee", "amount", "expense_account_id", "payment_account_id", "frequency", "next_run_date", "anchor_day", "end_date", "status", "version", "created_at", "updated_at"}

func sampleRecurring(t *testing.T) *recurring.Expense {
	t.Helper()
	exp, err := recurring.NewExpense("Shop rent", "Landlord Ltd", 150000, uuid.New(), uuid.New(),
		recurring.Monthly, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	return exp
}

func recurringRow(exp *recurring.Expense) *pgxmock.Rows {
	return pgxmock.NewRows(recurringColumnNames).AddRow(
		exp.ID, exp.Name, exp.Payee, exp.Amount, exp.ExpenseAccountID, exp.PaymentAccountID, exp.Frequency,
		exp.NextRunDate, exp.AnchorDay, exp.EndDate, exp.Status, exp.Version, exp.CreatedAt, exp.UpdatedAt,
	)
}

func TestRecurringRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecurringRepository{querier: mock, logger: newTestLogger()}
	exp := sampleRecurring(t)

	mock.ExpectExec(`INSERT INTO recurring_expenses`).
		WithArgs(exp.ID, exp.Name, exp.Payee, exp.Amount, exp.ExpenseAccountID, exp.PaymentAccountID, exp.Frequency,
			exp.NextRunDate, exp.AnchorDay, exp.EndDate, exp.Status, exp.Version, exp.CreatedAt, exp.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	assert.NoError(t, repo.Create(ctx, exp))

	mock.ExpectExec(`INSERT INTO recurring_expenses`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	assert.ErrorIs(t, repo.Create(ctx, exp), shared.InvalidAccountError{})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecurringRepository{querier: mock, logger: newTestLogger()}
	exp := sampleRecurring(t)

	mock.ExpectQuery(`FROM recurring_expenses WHERE id = \$1`).WithArgs(exp.ID).WillReturnRows(recurringRow(exp))
	got, err := repo.GetByID(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, recurring.Monthly, got.Frequency)
	assert.Nil(t, got.EndDate)

	mock.ExpectQuery(`FROM recurring_expenses WHERE id = \$1`).WithArgs(exp.ID).WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(ctx, exp.ID)
	assert.ErrorIs(t, err, shared.NotFoundError{Resource: "recurring_expense"})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringRepository_ListDue(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecurringRepository{querier: mock, logger: newTestLogger()}
	exp := sampleRecurring(t)
	today := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE status = \$1 AND next_run_date <= \$2 ORDER BY next_run_date, id LIMIT \$3`).
		WithArgs(recurring.StatusActive, today, 25).
		WillReturnRows(recurringRow(exp))

	due, err := repo.ListDue(ctx, today, 25)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, due[0].IsDue(today))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringRepository_Update(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &RecurringRepository{querier: mock, logger: newTestLogger()}
	exp := sampleRecurring(t)
	exp.Advance()

	query := `UPDATE recurring_expenses SET next_run_date = \$1, status = \$2, version = \$3, updated_at = \$4 WHERE id = \$5 AND version = \$6`

	mock.ExpectExec(query).
		WithArgs(exp.NextRunDate, recurring.StatusActive, 2, exp.UpdatedAt, exp.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.Update(ctx, exp))

	mock.ExpectExec(query).
		WithArgs(exp.NextRunDate, recurring.StatusActive, 2, exp.UpdatedAt, exp.ID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Update(ctx, exp), shared.ConflictError{Resource: "recurring_expense"})

	assert.NoError(t, mock.ExpectationsWereMet())
}
