package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/recurring"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/platform/persistence"
)

const recurringColumns = `id, name, payee, amount, expense_account_id, payment_account_id, frequency, next_run_date, anchor_day, end_date, status, version, created_at, updated_at`

// RecurringRepository implements recurring.Repository for PostgreSQL
type RecurringRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewRecurringRepository(logger *slog.Logger, db *persistence.PostgresDB) recurring.Repository {
	return &RecurringRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func scanRecurring(row pgx.Row) (*recurring.Expense, error) {
	var exp recurring.Expense
	err := row.Scan(
		&exp.ID,
		&exp.Name,
		&exp.Payee,
		&exp.Amount,
		&exp.ExpenseAccountID,
		&exp.PaymentAccountID,
		&exp.Frequency,
		&exp.NextRunDate,
		&exp.AnchorDay,
		&exp.EndDate,
		&exp.Status,
		&exp.Version,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

func (r *RecurringRepository) Create(ctx context.Context, exp *recurring.Expense) error {
	query := `
		INSERT INTO recurring_expenses (` + recurringColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, query,
		exp.ID,
		exp.Name,
		exp.Payee,
		exp.Amount,
		exp.ExpenseAccountID,
		exp.PaymentAccountID,
		exp.Frequency,
		exp.NextRunDate,
		exp.AnchorDay,
		exp.EndDate,
		exp.Status,
		exp.Version,
		exp.CreatedAt,
		exp.UpdatedAt,
	)
	if err != nil {
		if persistence.ForeignKeyViolation(err) {
			return shared.InvalidAccountError{Role: "recurring expense", Reason: "referenced account does not exist"}
		}
		r.logger.Error("Failed to create recurring expense", "name", exp.Name, "error", err)
		return fmt.Errorf("failed to create recurring expense: %w", err)
	}

	return nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, id uuid.UUID) (*recurring.Expense, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_expenses WHERE id = $1`

	exp, err := scanRecurring(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "recurring_expense", ID: id.String()}
		}
		r.logger.Error("Failed to get recurring expense", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get recurring expense: %w", err)
	}

	return exp, nil
}

func (r *RecurringRepository) List(ctx context.Context) ([]*recurring.Expense, error) {
	query := `SELECT ` + recurringColumns + ` FROM recurring_expenses ORDER BY next_run_date, name`
	return r.list(ctx, query)
}

// ListDue returns active schedules whose next run is on or before today, oldest first
func (r *RecurringRepository) ListDue(ctx context.Context, today time.Time, limit int) ([]*recurring.Expense, error) {
	query := `
		SELECT ` + recurringColumns + `
		FROM recurring_expenses
		WHERE status = $1 AND next_run_date <= $2
		ORDER BY next_run_date, id
		LIMIT $3
	`
	return r.list(ctx, query, recurring.StatusActive, today, limit)
}

func (r *RecurringRepository) list(ctx context.Context, query string, args ...interface{}) ([]*recurring.Expense, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list recurring expenses", "error", err)
		return nil, fmt.Errorf("failed to list recurring expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*recurring.Expense
	for rows.Next() {
		exp, err := scanRecurring(rows)
		if err != nil {
			r.logger.Error("Failed to scan recurring expense", "error", err)
			return nil, fmt.Errorf("failed to scan recurring expense: %w", err)
		}
		expenses = append(expenses, exp)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over recurring expenses", "error", err)
		return nil, fmt.Errorf("error iterating over recurring expenses: %w", err)
	}

	return expenses, nil
}

// Update writes the schedule state with optimistic locking on Version-1
func (r *RecurringRepository) Update(ctx context.Context, exp *recurring.Expense) error {
	query := `
		UPDATE recurring_expenses
		SET next_run_date = $1, status = $2, version = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`

	result, err := r.querier.Exec(ctx, query,
		exp.NextRunDate,
		exp.Status,
		exp.Version,
		exp.UpdatedAt,
		exp.ID,
		exp.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update recurring expense", "id", exp.ID.String(), "error", err)
		return fmt.Errorf("failed to update recurring expense: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ConflictError{Resource: "recurring_expense", Reason: "modified concurrently, reload and retry"}
	}

	return nil
}
