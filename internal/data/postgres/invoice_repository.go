package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/platform/persistence"
)

const invoiceColumns = `id, kind, number, counterparty_id, counterparty_name, issue_date, due_date, total, control_account_id, entry_id, created_at`

// InvoiceRepository implements invoice.Repository for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.Kind,
		&inv.Number,
		&inv.CounterpartyID,
		&inv.CounterpartyName,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Total,
		&inv.ControlAccountID,
		&inv.EntryID,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		inv.ID,
		inv.Kind,
		inv.Number,
		inv.CounterpartyID,
		inv.CounterpartyName,
		inv.IssueDate,
		inv.DueDate,
		inv.Total,
		inv.ControlAccountID,
		inv.EntryID,
		inv.CreatedAt,
	)
	if err != nil {
		if _, ok := persistence.UniqueViolation(err); ok {
			return shared.ConflictError{Resource: "invoice", Reason: fmt.Sprintf("%s invoice %s already exists", inv.Kind, inv.ID)}
		}
		r.logger.Error("Failed to create invoice", "id", inv.ID, "kind", string(inv.Kind), "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, kind invoice.Kind, id string) (*invoice.Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE kind = $1 AND id = $2`, kind, id)
}

func (r *InvoiceRepository) LockForUpdate(ctx context.Context, kind invoice.Kind, id string) (*invoice.Invoice, error) {
	return r.get(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE kind = $1 AND id = $2 FOR UPDATE`, kind, id)
}

func (r *InvoiceRepository) get(ctx context.Context, query string, kind invoice.Kind, id string) (*invoice.Invoice, error) {
	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, kind, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: string(kind) + "_invoice", ID: id}
		}
		r.logger.Error("Failed to get invoice", "id", id, "kind", string(kind), "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

// SettledAmount sums control-account lines on the settling side, net of lines on
// the other side, over every entry linked to the invoice except its origin.
func (r *InvoiceRepository) SettledAmount(ctx context.Context, inv *invoice.Invoice) (int64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN l.type = $1 THEN l.amount ELSE -l.amount END), 0)
		FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.invoice_id = $2 AND e.id <> $3 AND l.account_id = $4
	`

	var settled int64
	err := r.querier.QueryRow(ctx, query, inv.Kind.SettlingSide(), inv.ID, inv.EntryID, inv.ControlAccountID).Scan(&settled)
	if err != nil {
		r.logger.Error("Failed to sum invoice settlements", "id", inv.ID, "error", err)
		return 0, fmt.Errorf("failed to sum invoice settlements: %w", err)
	}

	return settled, nil
}

func (r *InvoiceRepository) IssuedThrough(ctx context.Context, kind invoice.Kind, dateRange journal.DateRange) ([]*invoice.Invoice, error) {
	_, to := rangeBounds(dateRange)
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE kind = $1 AND ($2::timestamptz IS NULL OR issue_date < $2)
		ORDER BY due_date, id
	`

	rows, err := r.querier.Query(ctx, query, kind, to)
	if err != nil {
		r.logger.Error("Failed to list invoices", "kind", string(kind), "error", err)
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			r.logger.Error("Failed to scan invoice", "error", err)
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over invoices", "error", err)
		return nil, fmt.Errorf("error iterating over invoices: %w", err)
	}

	return invoices, nil
}
