package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/storefront-ledger/internal/domain/shared"
)

var (
	ErrUnsupportedType = errors.New("unsupported event type")
	ErrMissingSourceID = errors.New("event source id is required")
)

// Envelope is the wire format of an event queued for asynchronous posting
type Envelope struct {
	Type          shared.SourceType `json:"type"`
	SourceID      string            `json:"source_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	Payload       json.RawMessage   `json:"payload"`
}

// NewEnvelope wraps a typed event for publishing
func NewEnvelope(ev Event, correlationID string) (*Envelope, error) {
	source := ev.Source()
	if source.ID == "" {
		return nil, ErrMissingSourceID
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", source.Type, err)
	}
	return &Envelope{
		Type:          source.Type,
		SourceID:      source.ID,
		CorrelationID: correlationID,
		SubmittedAt:   time.Now().UTC(),
		Payload:       payload,
	}, nil
}

// Decode returns the typed event carried by the envelope
func (e *Envelope) Decode() (Event, error) {
	target, err := newEvent(e.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}

	ev := deref(target)
	if ev.Source().ID == "" {
		return nil, ErrMissingSourceID
	}
	if ev.Source().ID != e.SourceID {
		return nil, fmt.Errorf("envelope source id %q does not match payload %q", e.SourceID, ev.Source().ID)
	}
	return ev, nil
}

// DecodeAs unmarshals a bare payload of the given type, used by the HTTP intake
func DecodeAs(typ shared.SourceType, payload []byte) (Event, error) {
	target, err := newEvent(typ)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", typ, err)
	}
	return deref(target), nil
}

func newEvent(typ shared.SourceType) (any, error) {
	switch typ {
	case shared.SourceTypeSale:
		return &Sale{}, nil
	case shared.SourceTypePayment:
		return &Payment{}, nil
	case shared.SourceTypeSupplierInvoice:
		return &SupplierInvoice{}, nil
	case shared.SourceTypeSupplierPayment:
		return &SupplierPayment{}, nil
	case shared.SourceTypeExpense:
		return &Expense{}, nil
	case shared.SourceTypeAdjustment:
		return &Adjustment{}, nil
	case shared.SourceTypeRefund:
		return &Refund{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, typ)
	}
}

func deref(target any) Event {
	switch v := target.(type) {
	case *Sale:
		return *v
	case *Payment:
		return *v
	case *SupplierInvoice:
		return *v
	case *SupplierPayment:
		return *v
	case *Expense:
		return *v
	case *Adjustment:
		return *v
	case *Refund:
		return *v
	}
	return nil
}

// PartitionKey groups events that must be posted in order. Settlements and
// refunds share the key of the sale or supplier invoice they refer to.
func PartitionKey(ev Event) string {
	switch v := ev.(type) {
	case Payment:
		return v.InvoiceID
	case SupplierPayment:
		return v.InvoiceID
	case Refund:
		return v.SaleID
	}
	return ev.Source().ID
}
