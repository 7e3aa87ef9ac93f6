// Package postgres provides PostgreSQL implementations of the domain repositories.
// Every repository can be bound to a transaction with WithTx so the posting engine
// can append, apply balances and queue outbox messages atomically.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/platform/persistence"
)

const accountColumns = `id, number, name, type, sub_type, balance, description, version, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) account.Repository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository that runs every statement inside tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var acc account.Account
	err := row.Scan(
		&acc.ID,
		&acc.Number,
		&acc.Name,
		&acc.Type,
		&acc.SubType,
		&acc.Balance,
		&acc.Description,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	acc.IsDebitNormal = acc.Type.IsDebitNormal()
	return &acc, nil
}

// accountConflict translates unique violations on the accounts table
func accountConflict(err error, acc *account.Account) error {
	constraint, ok := persistence.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch constraint {
	case "accounts_sub_type_key":
		return shared.ConflictError{Resource: "account", Reason: fmt.Sprintf("an account with sub type %s already exists", acc.SubType)}
	default:
		return shared.ConflictError{Resource: "account", Reason: fmt.Sprintf("account number %s already exists", acc.Number)}
	}
}

// Create stores a new account. Duplicate numbers or system subtypes return shared.ConflictError.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, number, name, type, sub_type, balance, description, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Number,
		acc.Name,
		acc.Type,
		acc.SubType,
		acc.Balance,
		acc.Description,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if conflict := accountConflict(err, acc); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to create account", "number", acc.Number, "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "account", ID: id.String()}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// GetByNumber returns nil, nil when no account carries the number
func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE number = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get account by number", "number", number, "error", err)
		return nil, fmt.Errorf("failed to get account by number: %w", err)
	}

	return acc, nil
}

// GetBySubType returns shared.NotFoundError when the chart lacks the system account
func (r *AccountRepository) GetBySubType(ctx context.Context, subType account.SubType) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE sub_type = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, subType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "account", ID: string(subType)}
		}
		r.logger.Error("Failed to get account by sub type", "sub_type", string(subType), "error", err)
		return nil, fmt.Errorf("failed to get account by sub type: %w", err)
	}

	return acc, nil
}

// List returns accounts in chart order
func (r *AccountRepository) List(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(number ILIKE $%d OR name ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY CASE type
			WHEN 'asset' THEN 0
			WHEN 'liability' THEN 1
			WHEN 'equity' THEN 2
			WHEN 'revenue' THEN 3
			ELSE 4
		END, number`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			r.logger.Error("Failed to scan account", "error", err)
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over accounts", "error", err)
		return nil, fmt.Errorf("error iterating over accounts: %w", err)
	}

	return accounts, nil
}

// Update persists the editable fields with optimistic locking. The caller has already
// incremented Version, so the stored row must still carry Version-1.
func (r *AccountRepository) Update(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET number = $1, name = $2, description = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Number,
		acc.Name,
		acc.Description,
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1,
	)
	if err != nil {
		if conflict := accountConflict(err, acc); conflict != nil {
			return conflict
		}
		r.logger.Error("Failed to update account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ConflictError{Resource: "account", Reason: "modified concurrently, reload and retry"}
	}

	return nil
}

// Delete removes an account that no journal line references
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		if persistence.ForeignKeyViolation(err) {
			return shared.ConflictError{Resource: "account", Reason: "account is referenced by posted history"}
		}
		r.logger.Error("Failed to delete account", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "account", ID: id.String()}
	}

	return nil
}

func (r *AccountRepository) HasJournalLines(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check account history", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to check account history: %w", err)
	}

	return exists, nil
}

// LockForUpdate retrieves an account with a row-level lock (SELECT ... FOR UPDATE)
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "account", ID: id.String()}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

// ApplyDelta moves the running balance. Version only tracks metadata edits.
func (r *AccountRepository) ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) error {
	query := `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`

	result, err := r.querier.Exec(ctx, query, delta, id)
	if err != nil {
		r.logger.Error("Failed to apply balance delta", "id", id.String(), "delta", delta, "error", err)
		return fmt.Errorf("failed to apply balance delta: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "account", ID: id.String()}
	}

	return nil
}
