package outbox

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/shared"
)

// Repository stores journal.posted messages. Create runs inside the posting
// transaction through WithTx; the relay methods run on their own.
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	GetByEntryID(ctx context.Context, entryID uuid.UUID) (*Message, error)
	WithTx(tx pgx.Tx) Repository
}

// NotFound is the error returned for a missing message id
func NotFound(id int64) error {
	return shared.NotFoundError{Resource: "outbox_message", ID: strconv.FormatInt(id, 10)}
}

// EntryNotAnnounced is returned when a journal entry has no outbox message
func EntryNotAnnounced(entryID uuid.UUID) error {
	return shared.NotFoundError{Resource: "outbox_message", ID: "entry " + entryID.String()}
}
