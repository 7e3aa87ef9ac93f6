package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/platform/persistence"
)

const (
	entryColumns      = `e.id, e.sequence, e.entry_date, e.description, e.reference, e.source_type, e.source_id, e.invoice_id, e.correlation_id, e.created_at`
	postedLineColumns = `e.id, e.sequence, e.entry_date, e.description, e.source_type, e.source_id, e.invoice_id, l.line_index, l.account_id, l.account_name, l.type, l.amount`
)

// JournalRepository implements the append-only journal.Repository for PostgreSQL
type JournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) journal.Repository {
	return &JournalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *JournalRepository) WithTx(tx pgx.Tx) journal.Repository {
	return &JournalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Append inserts the entry header and its lines. It must run inside the posting
// transaction; the sequence comes back from the database.
func (r *JournalRepository) Append(ctx context.Context, entry *journal.Entry) error {
	query := `
		INSERT INTO journal_entries (id, entry_date, description, reference, source_type, source_id, invoice_id, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING sequence
	`

	err := r.querier.QueryRow(ctx, query,
		entry.ID,
		entry.Date,
		entry.Description,
		entry.Reference,
		entry.Source.Type,
		entry.Source.ID,
		entry.InvoiceID,
		entry.CorrelationID,
		entry.CreatedAt,
	).Scan(&entry.Sequence)
	if err != nil {
		if constraint, ok := persistence.UniqueViolation(err); ok && constraint == "journal_entries_source_key" {
			return shared.DuplicatePostingError{SourceType: entry.Source.Type, SourceID: entry.Source.ID}
		}
		r.logger.Error("Failed to append journal entry",
			"source", entry.Source.String(),
			"error", err,
		)
		return fmt.Errorf("failed to append journal entry: %w", err)
	}

	lineQuery := `
		INSERT INTO journal_lines (entry_id, line_index, account_id, account_name, type, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, line := range entry.Lines {
		if _, err := r.querier.Exec(ctx, lineQuery, entry.ID, i, line.AccountID, line.AccountName, line.Type, line.Amount); err != nil {
			r.logger.Error("Failed to append journal line",
				"entry_id", entry.ID.String(),
				"line_index", i,
				"error", err,
			)
			return fmt.Errorf("failed to append journal line %d: %w", i, err)
		}
	}

	return nil
}

// GetByID returns shared.NotFoundError for an unknown entry
func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	entry, err := r.getOne(ctx, `e.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.NotFoundError{Resource: "journal_entry", ID: id.String()}
	}
	return entry, nil
}

func (r *JournalRepository) GetBySource(ctx context.Context, source journal.Source) (*journal.Entry, error) {
	return r.getOne(ctx, `e.source_type = $1 AND e.source_id = $2`, source.Type, source.ID)
}

func (r *JournalRepository) getOne(ctx context.Context, condition string, args ...interface{}) (*journal.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries e WHERE ` + condition

	var entry journal.Entry
	err := r.querier.QueryRow(ctx, query, args...).Scan(
		&entry.ID,
		&entry.Sequence,
		&entry.Date,
		&entry.Description,
		&entry.Reference,
		&entry.Source.Type,
		&entry.Source.ID,
		&entry.InvoiceID,
		&entry.CorrelationID,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get journal entry", "error", err)
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	lines, err := r.linesOf(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines
	return &entry, nil
}

func (r *JournalRepository) linesOf(ctx context.Context, entryID uuid.UUID) ([]journal.Line, error) {
	query := `
		SELECT account_id, account_name, type, amount
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY line_index
	`

	rows, err := r.querier.Query(ctx, query, entryID)
	if err != nil {
		r.logger.Error("Failed to get journal lines", "entry_id", entryID.String(), "error", err)
		return nil, fmt.Errorf("failed to get journal lines: %w", err)
	}
	defer rows.Close()

	var lines []journal.Line
	for rows.Next() {
		var line journal.Line
		if err := rows.Scan(&line.AccountID, &line.AccountName, &line.Type, &line.Amount); err != nil {
			r.logger.Error("Failed to scan journal line", "error", err)
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over journal lines", "error", err)
		return nil, fmt.Errorf("error iterating over journal lines: %w", err)
	}

	return lines, nil
}

// Query pages through entries matching the filter. The page is selected first
// and joined with its lines so one round trip returns complete entries.
func (r *JournalRepository) Query(ctx context.Context, filter journal.Filter) ([]*journal.Entry, error) {
	filter = filter.Normalize()

	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filter.Range.From.IsZero() {
		conditions = append(conditions, "e.entry_date >= "+arg(filter.Range.From))
	}
	if !filter.Range.To.IsZero() {
		conditions = append(conditions, "e.entry_date < "+arg(filter.Range.To))
	}
	if filter.AccountID != uuid.Nil {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM journal_lines al WHERE al.entry_id = e.id AND al.account_id = "+arg(filter.AccountID)+")")
	}
	if filter.SourceType != "" {
		conditions = append(conditions, "e.source_type = "+arg(filter.SourceType))
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		p := arg("%" + text + "%")
		conditions = append(conditions, fmt.Sprintf("(e.description ILIKE %s OR e.reference ILIKE %s OR e.source_id ILIKE %s)", p, p, p))
	}

	direction := "DESC"
	if filter.Order == journal.OldestFirst {
		direction = "ASC"
	}

	page := `SELECT ` + entryColumns + ` FROM journal_entries e`
	if len(conditions) > 0 {
		page += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	page += fmt.Sprintf(` ORDER BY e.entry_date %s, e.sequence %s LIMIT %s OFFSET %s`,
		direction, direction, arg(filter.Limit), arg(filter.Offset))

	query := `WITH e AS (` + page + `)
		SELECT ` + entryColumns + `, l.account_id, l.account_name, l.type, l.amount
		FROM e JOIN journal_lines l ON l.entry_id = e.id
		ORDER BY e.entry_date ` + direction + `, e.sequence ` + direction + `, l.line_index`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query journal", "error", err)
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []*journal.Entry
	for rows.Next() {
		var (
			entry journal.Entry
			line  journal.Line
		)
		err := rows.Scan(
			&entry.ID,
			&entry.Sequence,
			&entry.Date,
			&entry.Description,
			&entry.Reference,
			&entry.Source.Type,
			&entry.Source.ID,
			&entry.InvoiceID,
			&entry.CorrelationID,
			&entry.CreatedAt,
			&line.AccountID,
			&line.AccountName,
			&line.Type,
			&line.Amount,
		)
		if err != nil {
			r.logger.Error("Failed to scan journal row", "error", err)
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}

		if n := len(entries); n > 0 && entries[n-1].ID == entry.ID {
			entries[n-1].Lines = append(entries[n-1].Lines, line)
			continue
		}
		entry.Lines = []journal.Line{line}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over journal rows", "error", err)
		return nil, fmt.Errorf("error iterating over journal rows: %w", err)
	}

	return entries, nil
}

func (r *JournalRepository) LinesForAccount(ctx context.Context, accountID uuid.UUID, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	from, to := rangeBounds(dateRange)
	query := `
		SELECT ` + postedLineColumns + `
		FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		WHERE l.account_id = $1
		  AND ($2::timestamptz IS NULL OR e.entry_date >= $2)
		  AND ($3::timestamptz IS NULL OR e.entry_date < $3)
		ORDER BY e.entry_date, e.sequence, l.line_index
	`
	return r.postedLines(ctx, query, accountID, from, to)
}

func (r *JournalRepository) Lines(ctx context.Context, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	from, to := rangeBounds(dateRange)
	query := `
		SELECT ` + postedLineColumns + `
		FROM journal_lines l JOIN journal_entries e ON e.id = l.entry_id
		WHERE ($1::timestamptz IS NULL OR e.entry_date >= $1)
		  AND ($2::timestamptz IS NULL OR e.entry_date < $2)
		ORDER BY e.entry_date, e.sequence, l.line_index
	`
	return r.postedLines(ctx, query, from, to)
}

func (r *JournalRepository) postedLines(ctx context.Context, query string, args ...interface{}) ([]journal.PostedLine, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load journal lines", "error", err)
		return nil, fmt.Errorf("failed to load journal lines: %w", err)
	}
	defer rows.Close()

	var lines []journal.PostedLine
	for rows.Next() {
		var pl journal.PostedLine
		err := rows.Scan(
			&pl.EntryID,
			&pl.Sequence,
			&pl.Date,
			&pl.Description,
			&pl.SourceType,
			&pl.SourceID,
			&pl.InvoiceID,
			&pl.LineIndex,
			&pl.AccountID,
			&pl.AccountName,
			&pl.Type,
			&pl.Amount,
		)
		if err != nil {
			r.logger.Error("Failed to scan journal line", "error", err)
			return nil, fmt.Errorf("failed to scan journal line: %w", err)
		}
		lines = append(lines, pl)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over journal lines", "error", err)
		return nil, fmt.Errorf("error iterating over journal lines: %w", err)
	}

	return lines, nil
}

// rangeBounds turns open range ends into NULL parameters
func rangeBounds(dateRange journal.DateRange) (from, to *time.Time) {
	if !dateRange.From.IsZero() {
		f := dateRange.From
		from = &f
	}
	if !dateRange.To.IsZero() {
		t := dateRange.To
		to = &t
	}
	return from, to
}
