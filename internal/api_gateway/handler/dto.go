package handler

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/audit"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/recurring"
)

// CreateAccountRequest represents a request to add an account to the chart
type CreateAccountRequest struct {
	Number      string `json:"number" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type" binding:"required,oneof=asset liability equity revenue expense"`
	SubType     string `json:"sub_type,omitempty"`
	Description string `json:"description,omitempty"`
}

// UpdateAccountRequest is a partial edit. Version, when set, must match the stored version.
type UpdateAccountRequest struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Number      *string       `json:"number,omitempty"`
	Type        *account.Type `json:"type,omitempty"`
	Version     int           `json:"version,omitempty" binding:"min=0"`
}

// AccountListParams filters the chart listing
type AccountListParams struct {
	Type   string `form:"type" binding:"omitempty,oneof=asset liability equity revenue expense"`
	Search string `form:"q"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID            string       `json:"id"`
	Number        string       `json:"number"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	SubType       string       `json:"sub_type,omitempty"`
	IsDebitNormal bool         `json:"is_debit_normal"`
	Balance       money.Amount `json:"balance"`
	Description   string       `json:"description,omitempty"`
	Version       int          `json:"version"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

// DateRangeParams bounds a query by calendar day, both ends inclusive
type DateRangeParams struct {
	From time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To   time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
}

func (p DateRangeParams) Range() journal.DateRange {
	var r journal.DateRange
	if !p.From.IsZero() {
		r.From = journal.StartOfDay(p.From)
	}
	if !p.To.IsZero() {
		r.To = journal.StartOfDay(p.To).AddDate(0, 0, 1)
	}
	return r
}

// JournalQueryParams filters the journal listing
type JournalQueryParams struct {
	DateRangeParams
	AccountID  string `form:"account_id" binding:"omitempty,uuid"`
	SourceType string `form:"source_type"`
	Text       string `form:"q"`
	Order      string `form:"order" binding:"omitempty,oneof=asc desc"`
	Limit      int    `form:"limit" binding:"min=0,max=500"`
	Offset     int    `form:"offset" binding:"min=0"`
}

// LineResponse is one debit or credit of an entry
type LineResponse struct {
	AccountID   string       `json:"account_id"`
	AccountName string       `json:"account_name"`
	Type        string       `json:"type"`
	Amount      money.Amount `json:"amount"`
}

// EntryResponse represents a journal entry in API responses
type EntryResponse struct {
	ID            string         `json:"id"`
	Sequence      int64          `json:"sequence"`
	Date          string         `json:"date"`
	Description   string         `json:"description"`
	Reference     string         `json:"reference,omitempty"`
	SourceType    string         `json:"source_type"`
	SourceID      string         `json:"source_id"`
	InvoiceID     string         `json:"invoice_id,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Total         money.Amount   `json:"total"`
	Lines         []LineResponse `json:"lines"`
	CreatedAt     string         `json:"created_at"`
}

// AccountLineResponse is a line of an account's history
type AccountLineResponse struct {
	EntryID     string       `json:"entry_id"`
	Sequence    int64        `json:"sequence"`
	Date        string       `json:"date"`
	Description string       `json:"description"`
	SourceType  string       `json:"source_type"`
	SourceID    string       `json:"source_id"`
	Type        string       `json:"type"`
	Amount      money.Amount `json:"amount"`
}

// ReversalRequest asks for an entry to be reversed
type ReversalRequest struct {
	Date   *time.Time `json:"date,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// ReconcileRequest brings an account to a counted balance
type ReconcileRequest struct {
	AdjustmentID    string       `json:"adjustment_id,omitempty"`
	Date            *time.Time   `json:"date,omitempty"`
	AccountID       uuid.UUID    `json:"account_id" binding:"required"`
	OffsetAccountID uuid.UUID    `json:"offset_account_id" binding:"required"`
	Counted         money.Amount `json:"counted"`
	Description     string       `json:"description" binding:"required"`
	Reference       string       `json:"reference,omitempty"`
}

// ReconcileResponse reports the adjustment posted, if any
type ReconcileResponse struct {
	Matched bool           `json:"matched"`
	Entry   *EntryResponse `json:"entry,omitempty"`
}

// AsOfParams selects a point-in-time report; the default is today
type AsOfParams struct {
	AsOf time.Time `form:"as_of" time_format:"2006-01-02" time_utc:"1"`
}

// PeriodParams selects a period report, both days inclusive
type PeriodParams struct {
	Start time.Time `form:"start" time_format:"2006-01-02" time_utc:"1" binding:"required"`
	End   time.Time `form:"end" time_format:"2006-01-02" time_utc:"1" binding:"required"`
}

// SubmitEventRequest queues a business event for asynchronous posting
type SubmitEventRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// EventStatusParams filters the event listing
type EventStatusParams struct {
	PaginationParams
	Status string `form:"status,default=FAILED" binding:"oneof=PENDING COMPLETED FAILED"`
}

// EventStatusResponse represents a posting record in API responses
type EventStatusResponse struct {
	SourceType    string       `json:"source_type"`
	SourceID      string       `json:"source_id"`
	Amount        money.Amount `json:"amount"`
	Status        string       `json:"status"`
	EntryID       string       `json:"entry_id,omitempty"`
	FailureReason string       `json:"failure_reason,omitempty"`
	CorrelationID string       `json:"correlation_id,omitempty"`
	CreatedAt     string       `json:"created_at"`
	ProcessedAt   string       `json:"processed_at,omitempty"`
}

// CreateRecurringExpenseRequest defines a recurring expense. Dates are yyyy-mm-dd.
type CreateRecurringExpenseRequest struct {
	Name             string       `json:"name" binding:"required"`
	Payee            string       `json:"payee,omitempty"`
	Amount           money.Amount `json:"amount"`
	ExpenseAccountID uuid.UUID    `json:"expense_account_id" binding:"required"`
	PaymentAccountID uuid.UUID    `json:"payment_account_id" binding:"required"`
	Frequency        string       `json:"frequency" binding:"required,oneof=daily weekly monthly quarterly yearly"`
	StartDate        string       `json:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate          string       `json:"end_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateRecurringStatusRequest changes a schedule's status
type UpdateRecurringStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active paused cancelled"`
}

// RecurringExpenseResponse represents a recurring expense in API responses
type RecurringExpenseResponse struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Payee            string       `json:"payee,omitempty"`
	Amount           money.Amount `json:"amount"`
	ExpenseAccountID string       `json:"expense_account_id"`
	PaymentAccountID string       `json:"payment_account_id"`
	Frequency        string       `json:"frequency"`
	NextRunDate      string       `json:"next_run_date"`
	EndDate          string       `json:"end_date,omitempty"`
	Status           string       `json:"status"`
	Version          int          `json:"version"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:            acc.ID.String(),
		Number:        acc.Number,
		Name:          acc.Name,
		Type:          string(acc.Type),
		SubType:       string(acc.SubType),
		IsDebitNormal: acc.IsDebitNormal,
		Balance:       money.Amount(acc.Balance),
		Description:   acc.Description,
		Version:       acc.Version,
		CreatedAt:     acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(entry *journal.Entry) EntryResponse {
	response := EntryResponse{
		ID:            entry.ID.String(),
		Sequence:      entry.Sequence,
		Date:          entry.Date.Format(time.DateOnly),
		Description:   entry.Description,
		Reference:     entry.Reference,
		SourceType:    string(entry.Source.Type),
		SourceID:      entry.Source.ID,
		InvoiceID:     entry.InvoiceID,
		CorrelationID: entry.CorrelationID,
		Total:         money.Amount(entry.Total()),
		Lines:         make([]LineResponse, 0, len(entry.Lines)),
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
	for _, line := range entry.Lines {
		response.Lines = append(response.Lines, LineResponse{
			AccountID:   line.AccountID.String(),
			AccountName: line.AccountName,
			Type:        string(line.Type),
			Amount:      money.Amount(line.Amount),
		})
	}
	return response
}

func mapAccountLineToResponse(line journal.PostedLine) AccountLineResponse {
	return AccountLineResponse{
		EntryID:     line.EntryID.String(),
		Sequence:    line.Sequence,
		Date:        line.Date.Format(time.DateOnly),
		Description: line.Description,
		SourceType:  string(line.SourceType),
		SourceID:    line.SourceID,
		Type:        string(line.Type),
		Amount:      money.Amount(line.Amount),
	}
}

func mapRecordToResponse(record *audit.Record) EventStatusResponse {
	response := EventStatusResponse{
		SourceType:    string(record.SourceType),
		SourceID:      record.SourceID,
		Amount:        money.Amount(record.Amount),
		Status:        string(record.Status),
		FailureReason: record.FailureReason,
		CorrelationID: record.CorrelationID,
		CreatedAt:     record.CreatedAt.Format(time.RFC3339),
	}
	if record.EntryID != nil {
		response.EntryID = record.EntryID.String()
	}
	if record.ProcessedAt != nil {
		response.ProcessedAt = record.ProcessedAt.Format(time.RFC3339)
	}
	return response
}

func mapRecurringToResponse(exp *recurring.Expense) RecurringExpenseResponse {
	response := RecurringExpenseResponse{
		ID:               exp.ID.String(),
		Name:             exp.Name,
		Payee:            exp.Payee,
		Amount:           money.Amount(exp.Amount),
		ExpenseAccountID: exp.ExpenseAccountID.String(),
		PaymentAccountID: exp.PaymentAccountID.String(),
		Frequency:        string(exp.Frequency),
		NextRunDate:      exp.NextRunDate.Format(time.DateOnly),
		Status:           string(exp.Status),
		Version:          exp.Version,
	}
	if exp.EndDate != nil {
		response.EndDate = exp.EndDate.Format(time.DateOnly)
	}
	return response
}
