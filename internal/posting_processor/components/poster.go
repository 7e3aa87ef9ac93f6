package components

import (
	"context"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/posting_processor/service"
)

// Adjuster applies adjustment policy. *reconciliation.Handler satisfies it.
type Adjuster interface {
	Adjust(ctx context.Context, adj event.Adjustment) (*journal.Entry, error)
}

// routingPoster sends adjustments through the adjuster and everything else
// straight to the engine
type routingPoster struct {
	engine      service.Poster
	adjustments Adjuster
}

// NewPoster returns the Poster the processing service drives
func NewPoster(engine service.Poster, adjustments Adjuster) service.Poster {
	return &routingPoster{engine: engine, adjustments: adjustments}
}

func (p *routingPoster) Post(ctx context.Context, ev event.Event) (*journal.Entry, error) {
	if adj, ok := ev.(event.Adjustment); ok {
		return p.adjustments.Adjust(ctx, adj)
	}
	return p.engine.Post(ctx, ev)
}
