// Package recurring models expenses that repeat on a schedule, such as rent or
// subscriptions. Each due run is posted as an ordinary expense event.
package recurring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

type Frequency string

const (
	Daily     Frequency = "daily"
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// Next returns the run date following t. Month based frequencies land on
// anchorDay, clamped to the last day of shorter months.
func (f Frequency) Next(t time.Time, anchorDay int) time.Time {
	switch f {
	case Daily:
		return t.AddDate(0, 0, 1)
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return addMonths(t, 1, anchorDay)
	case Quarterly:
		return addMonths(t, 3, anchorDay)
	default:
		return addMonths(t, 12, anchorDay)
	}
}

func addMonths(t time.Time, months, anchorDay int) time.Time {
	if anchorDay <= 0 {
		anchorDay = t.Day()
	}
	first := time.Date(t.Year(), t.Month()+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(anchorDay, last)-1)
}

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusPaused || s == StatusCancelled
}

// Expense is a recurring expense definition
type Expense struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Payee            string     `json:"payee,omitempty"`
	Amount           int64      `json:"amount"` // Stored in cents
	ExpenseAccountID uuid.UUID  `json:"expense_account_id"`
	PaymentAccountID uuid.UUID  `json:"payment_account_id"`
	Frequency        Frequency  `json:"frequency"`
	NextRunDate      time.Time  `json:"next_run_date"`
	AnchorDay        int        `json:"anchor_day"` // Day of month the schedule was started on
	EndDate          *time.Time `json:"end_date,omitempty"`
	Status           Status     `json:"status"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// NewExpense validates a definition; the first run happens on startDate
func NewExpense(name, payee string, amount int64, expenseAccountID, paymentAccountID uuid.UUID, frequency Frequency, startDate time.Time, endDate *time.Time) (*Expense, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, shared.ValidationError{Field: "name", Reason: "cannot be empty"}
	case amount <= 0:
		return nil, shared.ValidationError{Field: "amount", Reason: "must be positive"}
	case expenseAccountID == uuid.Nil:
		return nil, shared.ValidationError{Field: "expense_account_id", Reason: "is required"}
	case paymentAccountID == uuid.Nil:
		return nil, shared.ValidationError{Field: "payment_account_id", Reason: "is required"}
	case !frequency.IsValid():
		return nil, shared.ValidationError{Field: "frequency", Reason: "unknown frequency " + string(frequency)}
	case startDate.IsZero():
		return nil, shared.ValidationError{Field: "start_date", Reason: "is required"}
	}

	start := journal.StartOfDay(startDate)
	if endDate != nil {
		end := journal.StartOfDay(*endDate)
		if end.Before(start) {
			return nil, shared.ValidationError{Field: "end_date", Reason: "must not be before the start date"}
		}
		endDate = &end
	}

	now := time.Now().UTC()
	return &Expense{
		ID:               uuid.New(),
		Name:             name,
		Payee:            strings.TrimSpace(payee),
		Amount:           amount,
		ExpenseAccountID: expenseAccountID,
		PaymentAccountID: paymentAccountID,
		Frequency:        frequency,
		NextRunDate:      start,
		AnchorDay:        start.Day(),
		EndDate:          endDate,
		Status:           StatusActive,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsDue reports whether a run is pending on or before today
func (e *Expense) IsDue(today time.Time) bool {
	return e.Status == StatusActive && !e.NextRunDate.After(journal.StartOfDay(today))
}

// RunEvent builds the expense event for the pending run. The source id embeds the
// run date so a retried run cannot post twice.
func (e *Expense) RunEvent() event.Expense {
	runDate := e.NextRunDate.Format("2006-01-02")
	return event.Expense{
		ExpenseID:        fmt.Sprintf("%s:%s", e.ID, runDate),
		Date:             e.NextRunDate,
		Description:      fmt.Sprintf("Recurring expense: %s (%s)", e.Name, runDate),
		Payee:            e.Payee,
		Reference:        e.ID.String(),
		Amount:           money.Amount(e.Amount),
		ExpenseAccountID: e.ExpenseAccountID,
		PaymentAccountID: e.PaymentAccountID,
	}
}

// Advance moves to the next run date and cancels the schedule past its end date
func (e *Expense) Advance() {
	e.NextRunDate = e.Frequency.Next(e.NextRunDate, e.AnchorDay)
	if e.EndDate != nil && e.NextRunDate.After(*e.EndDate) {
		e.Status = StatusCancelled
	}
	e.UpdatedAt = time.Now().UTC()
	e.Version++
}

// SetStatus changes the schedule status. Cancelled schedules stay cancelled.
func (e *Expense) SetStatus(status Status) error {
	if !status.IsValid() {
		return shared.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}
	if e.Status == StatusCancelled && status != StatusCancelled {
		return shared.ConflictError{Resource: "recurring_expense", Reason: "a cancelled schedule cannot be resumed"}
	}
	e.Status = status
	e.UpdatedAt = time.Now().UTC()
	e.Version++
	return nil
}

// Repository persists recurring expense definitions
type Repository interface {
	Create(ctx context.Context, expense *Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context) ([]*Expense, error)
	ListDue(ctx context.Context, today time.Time, limit int) ([]*Expense, error)

	// Update uses optimistic locking on Version
	Update(ctx context.Context, expense *Expense) error
}
