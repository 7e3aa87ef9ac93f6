package audit

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Repository persists posting records with pagination support
type Repository interface {
	Create(ctx context.Context, record *Record) error
	GetBySource(ctx context.Context, sourceType shared.SourceType, sourceID string) (*Record, error)

	// MarkCompleted upserts the record so events posted synchronously are tracked too
	MarkCompleted(ctx context.Context, record *Record, entryID uuid.UUID) error
	MarkFailed(ctx context.Context, sourceType shared.SourceType, sourceID string, reason string) error
	ListByStatus(ctx context.Context, status shared.PostingStatus, limit, offset int) ([]*Record, error)
	CountByStatus(ctx context.Context, status shared.PostingStatus) (int64, error)
}

// ErrRecordNotFound indicates a missing posting record
type ErrRecordNotFound struct {
	SourceType shared.SourceType
	SourceID   string
}

func (e ErrRecordNotFound) Error() string {
	return "posting record not found: " + string(e.SourceType) + "/" + e.SourceID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	// An empty target source matches any missing record
	if t.SourceID == "" {
		return true
	}
	return e.SourceType == t.SourceType && e.SourceID == t.SourceID
}

// ErrDuplicateRecord indicates the event was already submitted
type ErrDuplicateRecord struct {
	SourceType shared.SourceType
	SourceID   string
}

func (e ErrDuplicateRecord) Error() string {
	return "duplicate posting record: " + string(e.SourceType) + "/" + e.SourceID
}

// Is implements the errors.Is interface for ErrDuplicateRecord
func (e ErrDuplicateRecord) Is(target error) bool {
	t, ok := target.(ErrDuplicateRecord)
	if !ok {
		return false
	}
	if t.SourceID == "" {
		return true
	}
	return e.SourceType == t.SourceType && e.SourceID == t.SourceID
}
