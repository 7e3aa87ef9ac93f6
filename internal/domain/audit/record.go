// Package audit tracks the processing status of business events submitted for
// posting. Records live in MongoDB and are keyed by the event source.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Record is the status document of one submitted business event
type Record struct {
	SourceType    shared.SourceType    `json:"source_type" bson:"source_type"`
	SourceID      string               `json:"source_id" bson:"source_id"`
	Amount        int64                `json:"amount" bson:"amount"` // Stored in cents
	Status        shared.PostingStatus `json:"status" bson:"status"`
	EntryID       *uuid.UUID           `json:"entry_id,omitempty" bson:"entry_id,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	ProcessedAt   *time.Time           `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// NewPendingRecord starts tracking an event accepted for asynchronous posting
func NewPendingRecord(sourceType shared.SourceType, sourceID string, amount int64, correlationID string) *Record {
	return &Record{
		SourceType:    sourceType,
		SourceID:      sourceID,
		Amount:        amount,
		Status:        shared.PostingStatusPending,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}

// IsFinal reports whether the event has reached a terminal status
func (r *Record) IsFinal() bool {
	return r.Status == shared.PostingStatusCompleted || r.Status == shared.PostingStatusFailed
}
