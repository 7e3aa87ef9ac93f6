package journal

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/shared"
)

// LineType is the side of a journal line
type LineType string

const (
	Debit  LineType = "debit"
	Credit LineType = "credit"
)

func (t LineType) IsValid() bool {
	return t == Debit || t == Credit
}

// Opposite returns the other side
func (t LineType) Opposite() LineType {
	if t == Debit {
		return Credit
	}
	return Debit
}

// Line is one debit or credit against an account. AccountName is a snapshot taken
// at posting time and survives later renames.
type Line struct {
	AccountID   uuid.UUID `json:"account_id"`
	AccountName string    `json:"account_name"`
	Type        LineType  `json:"type"`
	Amount      int64     `json:"amount"` // Stored in cents, always positive
}

// Column widths of the journal_entries table
const (
	MaxIDLength        = 128
	MaxReferenceLength = 255
)

// Source points back to the business object that produced the entry
type Source struct {
	Type shared.SourceType `json:"type"`
	ID   string            `json:"id"`
}

func (s Source) String() string {
	return string(s.Type) + "/" + s.ID
}

func (s Source) Validate() error {
	if !s.Type.IsValid() {
		return shared.ValidationError{Field: "source.type", Reason: "unknown source type " + string(s.Type)}
	}
	if strings.TrimSpace(s.ID) == "" {
		return shared.ValidationError{Field: "source.id", Reason: "cannot be empty"}
	}
	return checkLength("source.id", s.ID, MaxIDLength)
}

// Entry is an immutable, balanced set of journal lines
type Entry struct {
	ID            uuid.UUID `json:"id"`
	Sequence      int64     `json:"sequence"` // Commit order, assigned on append
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
	Reference     string    `json:"reference,omitempty"`
	Source        Source    `json:"source"`
	InvoiceID     string    `json:"invoice_id,omitempty"` // Invoice this entry originates or settles
	CorrelationID string    `json:"correlation_id,omitempty"`
	Lines         []Line    `json:"lines"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewEntry builds and validates an entry ready to be appended
func NewEntry(date time.Time, description, reference string, source Source, lines []Line) (*Entry, error) {
	entry := &Entry{
		ID:          uuid.New(),
		Date:        date.UTC(),
		Description: strings.TrimSpace(description),
		Reference:   strings.TrimSpace(reference),
		Source:      source,
		Lines:       lines,
		CreatedAt:   time.Now().UTC(),
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// Totals returns the debit and credit sums in cents
func (e *Entry) Totals() (debits, credits int64) {
	for _, line := range e.Lines {
		if line.Type == Debit {
			debits += line.Amount
		} else {
			credits += line.Amount
		}
	}
	return debits, credits
}

// Validate checks the structural rules and the balance law
func (e *Entry) Validate() error {
	if err := e.Source.Validate(); err != nil {
		return err
	}
	if err := checkLength("reference", e.Reference, MaxReferenceLength); err != nil {
		return err
	}
	if err := checkLength("invoice_id", e.InvoiceID, MaxIDLength); err != nil {
		return err
	}
	if e.Description == "" {
		return shared.ValidationError{Field: "description", Reason: "cannot be empty"}
	}
	if e.Date.IsZero() {
		return shared.ValidationError{Field: "date", Reason: "is required"}
	}
	if len(e.Lines) < 2 {
		return shared.ValidationError{Field: "lines", Reason: "an entry needs at least two lines"}
	}

	for _, line := range e.Lines {
		if line.AccountID == uuid.Nil {
			return shared.ValidationError{Field: "lines.account_id", Reason: "is required"}
		}
		if !line.Type.IsValid() {
			return shared.ValidationError{Field: "lines.type", Reason: "must be debit or credit"}
		}
		if line.Amount <= 0 {
			return shared.ValidationError{Field: "lines.amount", Reason: "must be positive"}
		}
	}

	debits, credits := e.Totals()
	if debits != credits {
		return shared.UnbalancedEntryError{Debits: debits, Credits: credits}
	}
	return nil
}

func checkLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return shared.ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// Total is the debit side sum, which equals the credit side of a valid entry
func (e *Entry) Total() int64 {
	debits, _ := e.Totals()
	return debits
}

// PostedLine is a line flattened together with the entry it belongs to
type PostedLine struct {
	EntryID     uuid.UUID         `json:"entry_id"`
	Sequence    int64             `json:"sequence"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	SourceType  shared.SourceType `json:"source_type"`
	SourceID    string            `json:"source_id"`
	InvoiceID   string            `json:"invoice_id,omitempty"`
	LineIndex   int               `json:"line_index"`
	Line
}

// Flatten expands an entry into posted lines, in line order
func (e *Entry) Flatten() []PostedLine {
	lines := make([]PostedLine, 0, len(e.Lines))
	for i, line := range e.Lines {
		lines = append(lines, PostedLine{
			EntryID:     e.ID,
			Sequence:    e.Sequence,
			Date:        e.Date,
			Description: e.Description,
			SourceType:  e.Source.Type,
			SourceID:    e.Source.ID,
			InvoiceID:   e.InvoiceID,
			LineIndex:   i,
			Line:        line,
		})
	}
	return lines
}
