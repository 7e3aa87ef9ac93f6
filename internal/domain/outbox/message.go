package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
)

// EventJournalPosted is the only event the posting engine emits
const EventJournalPosted = "journal.posted"

// Message is written in the posting transaction and relayed by the outbox poller
type Message struct {
	ID            int64               `json:"id"`
	EventType     string              `json:"event_type"`
	EntryID       uuid.UUID           `json:"entry_id"`
	SourceType    shared.SourceType   `json:"source_type"`
	SourceID      string              `json:"source_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// PostedEntry is the payload of a journal.posted message
type PostedEntry struct {
	EntryID       uuid.UUID         `json:"entry_id"`
	Sequence      int64             `json:"sequence"`
	Date          time.Time         `json:"date"`
	Description   string            `json:"description"`
	SourceType    shared.SourceType `json:"source_type"`
	SourceID      string            `json:"source_id"`
	InvoiceID     string            `json:"invoice_id,omitempty"`
	Amount        int64             `json:"amount"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	PostedAt      time.Time         `json:"posted_at"`
}

// NewMessage builds the journal.posted message for an appended entry
func NewMessage(entry *journal.Entry) (*Message, error) {
	payload, err := json.Marshal(PostedEntry{
		EntryID:       entry.ID,
		Sequence:      entry.Sequence,
		Date:          entry.Date,
		Description:   entry.Description,
		SourceType:    entry.Source.Type,
		SourceID:      entry.Source.ID,
		InvoiceID:     entry.InvoiceID,
		Amount:        entry.Total(),
		CorrelationID: entry.CorrelationID,
		PostedAt:      entry.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType:  EventJournalPosted,
		EntryID:    entry.ID,
		SourceType: entry.Source.Type,
		SourceID:   entry.Source.ID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// PostedEntry decodes the payload
func (m *Message) PostedEntry() (*PostedEntry, error) {
	var posted PostedEntry
	if err := json.Unmarshal(m.Payload, &posted); err != nil {
		return nil, err
	}
	return &posted, nil
}
