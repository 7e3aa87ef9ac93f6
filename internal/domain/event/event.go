// Package event defines the typed business events the posting engine accepts.
// The same payloads are bound from HTTP requests and decoded from Kafka messages.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Event is implemented by every postable business event
type Event interface {
	// Source identifies the originating business object; it is the idempotency key
	Source() journal.Source
	// Principal is the headline amount in cents, used for status tracking
	Principal() int64
}

// Sale is a completed checkout. Subtotal is net of Discount and excludes Tax.
type Sale struct {
	SaleID           string       `json:"sale_id"`
	Number           string       `json:"number"`
	Date             time.Time    `json:"date"`
	Subtotal         money.Amount `json:"subtotal"`
	Discount         money.Amount `json:"discount"`
	Tax              money.Amount `json:"tax"`
	CostOfGoods      money.Amount `json:"cost_of_goods"`
	OnCredit         bool         `json:"on_credit"`
	StoreCredit      bool         `json:"store_credit,omitempty"`
	CustomerID       string       `json:"customer_id,omitempty"`
	CustomerName     string       `json:"customer_name,omitempty"`
	DueDate          *time.Time   `json:"due_date,omitempty"`
	PaymentAccountID *uuid.UUID   `json:"payment_account_id,omitempty"`
	RevenueAccountID *uuid.UUID   `json:"revenue_account_id,omitempty"`
}

func (s Sale) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeSale, ID: s.SaleID}
}

// Principal is the gross amount collected or invoiced
func (s Sale) Principal() int64 { return s.Subtotal.Cents() + s.Tax.Cents() }

// Payment is money received against a customer invoice
type Payment struct {
	PaymentID        string       `json:"payment_id"`
	InvoiceID        string       `json:"invoice_id"`
	Date             time.Time    `json:"date"`
	Amount           money.Amount `json:"amount"`
	Method           string       `json:"method,omitempty"`
	Reference        string       `json:"reference,omitempty"`
	PaymentAccountID *uuid.UUID   `json:"payment_account_id,omitempty"`
}

func (p Payment) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypePayment, ID: p.PaymentID}
}

func (p Payment) Principal() int64 { return p.Amount.Cents() }

// SupplierInvoiceLine books part of a supplier invoice to inventory or an expense
type SupplierInvoiceLine struct {
	AccountID   uuid.UUID    `json:"account_id"`
	Description string       `json:"description,omitempty"`
	Amount      money.Amount `json:"amount"`
}

// SupplierInvoice is a bill received from a supplier
type SupplierInvoice struct {
	InvoiceID     string                `json:"invoice_id"`
	InvoiceNumber string                `json:"invoice_number"`
	SupplierID    string                `json:"supplier_id,omitempty"`
	SupplierName  string                `json:"supplier_name"`
	PONumber      string                `json:"po_number,omitempty"`
	Date          time.Time             `json:"date"`
	DueDate       time.Time             `json:"due_date"`
	Lines         []SupplierInvoiceLine `json:"lines"`
}

func (s SupplierInvoice) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeSupplierInvoice, ID: s.InvoiceID}
}

// Principal is the invoice total
func (s SupplierInvoice) Principal() int64 {
	var total int64
	for _, line := range s.Lines {
		total += line.Amount.Cents()
	}
	return total
}

// SupplierPayment is money disbursed against a supplier invoice
type SupplierPayment struct {
	PaymentID        string       `json:"payment_id"`
	InvoiceID        string       `json:"invoice_id"`
	Date             time.Time    `json:"date"`
	Amount           money.Amount `json:"amount"`
	Reference        string       `json:"reference,omitempty"`
	PaymentAccountID *uuid.UUID   `json:"payment_account_id,omitempty"`
}

func (p SupplierPayment) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeSupplierPayment, ID: p.PaymentID}
}

func (p SupplierPayment) Principal() int64 { return p.Amount.Cents() }

// Expense is an operating cost paid from an asset or charged to a liability
type Expense struct {
	ExpenseID        string       `json:"expense_id"`
	Date             time.Time    `json:"date"`
	Description      string       `json:"description"`
	Payee            string       `json:"payee,omitempty"`
	Reference        string       `json:"reference,omitempty"`
	Amount           money.Amount `json:"amount"`
	ExpenseAccountID uuid.UUID    `json:"expense_account_id"`
	PaymentAccountID uuid.UUID    `json:"payment_account_id"`
}

func (e Expense) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeExpense, ID: e.ExpenseID}
}

func (e Expense) Principal() int64 { return e.Amount.Cents() }

// Adjustment moves a signed amount between a target account and an offset account.
// A positive amount debits the target.
type Adjustment struct {
	AdjustmentID    string       `json:"adjustment_id"`
	Date            time.Time    `json:"date"`
	AccountID       uuid.UUID    `json:"account_id"`
	OffsetAccountID uuid.UUID    `json:"offset_account_id"`
	Amount          money.Amount `json:"amount"`
	Description     string       `json:"description"`
	Reference       string       `json:"reference,omitempty"`
}

func (a Adjustment) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeAdjustment, ID: a.AdjustmentID}
}

// Principal is the absolute size of the adjustment
func (a Adjustment) Principal() int64 {
	if a.Amount < 0 {
		return -a.Amount.Cents()
	}
	return a.Amount.Cents()
}

// Refund returns money for a previously posted sale. Amount includes Tax.
type Refund struct {
	RefundID         string       `json:"refund_id"`
	SaleID           string       `json:"sale_id"`
	Date             time.Time    `json:"date"`
	Amount           money.Amount `json:"amount"`
	Tax              money.Amount `json:"tax"`
	Reason           string       `json:"reason,omitempty"`
	StoreCredit      bool         `json:"store_credit,omitempty"`
	PaymentAccountID *uuid.UUID   `json:"payment_account_id,omitempty"`
}

func (r Refund) Source() journal.Source {
	return journal.Source{Type: shared.SourceTypeRefund, ID: r.RefundID}
}

func (r Refund) Principal() int64 { return r.Amount.Cents() }
