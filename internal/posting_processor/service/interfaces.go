package service

import (
	"context"
	"errors"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
)

// ErrUndecodable marks an envelope whose payload can never be posted. The
// consumer sends such messages to the dead letter queue.
var ErrUndecodable = errors.New("undecodable event")

// ProcessingService posts queued business events
type ProcessingService interface {
	// ProcessEvent returns nil when the event is settled, posted, already posted or
	// permanently rejected. Any other error means it should be delivered again.
	ProcessEvent(ctx context.Context, env *event.Envelope) error
}

// Poster posts one decoded event. *posting.Engine satisfies it.
type Poster interface {
	Post(ctx context.Context, ev event.Event) (*journal.Entry, error)
}

// FailureRecorder stores why an event was rejected
type FailureRecorder interface {
	RecordFailure(ctx context.Context, env *event.Envelope, reason string) error
}
