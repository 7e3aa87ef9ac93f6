package journal

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the append-only journal store. There are no update or delete
// operations: corrections are new entries.
type Repository interface {
	// Append persists the entry and its lines and assigns Sequence. A second entry for
	// the same source fails with shared.DuplicatePostingError.
	Append(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// GetBySource returns nil, nil when the source has not been posted
	GetBySource(ctx context.Context, source Source) (*Entry, error)
	Query(ctx context.Context, filter Filter) ([]*Entry, error)

	// LinesForAccount returns the account's lines oldest-first
	LinesForAccount(ctx context.Context, accountID uuid.UUID, dateRange DateRange) ([]PostedLine, error)

	// Lines returns every line in the range oldest-first, the substrate of report replay
	Lines(ctx context.Context, dateRange DateRange) ([]PostedLine, error)

	WithTx(tx pgx.Tx) Repository
}
