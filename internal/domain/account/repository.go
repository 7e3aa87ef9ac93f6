package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows ListAccounts results
type Filter struct {
	Type   Type
	Search string // Case-insensitive match on number or name
}

// Repository defines account persistence operations.
// List returns accounts in chart order: type rank, then number.
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByNumber(ctx context.Context, number string) (*Account, error)
	GetBySubType(ctx context.Context, subType SubType) (*Account, error)
	List(ctx context.Context, filter Filter) ([]*Account, error)

	// Update persists editable fields using the version read by the caller
	Update(ctx context.Context, account *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	HasJournalLines(ctx context.Context, id uuid.UUID) (bool, error)

	// LockForUpdate acquires a row lock for the duration of a posting transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// ApplyDelta adds a signed amount to the balance. Only the posting engine calls it,
	// inside the same transaction as the journal append.
	ApplyDelta(ctx context.Context, id uuid.UUID, delta int64) error

	WithTx(tx pgx.Tx) Repository
}
