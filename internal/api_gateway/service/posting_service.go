package service

import (
	"context"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/reconciliation"
)

// Poster posts one decoded event. *posting.Engine satisfies it.
type Poster interface {
	Post(ctx context.Context, ev event.Event) (*journal.Entry, error)
}

// PostingServiceImpl routes adjustments through the reconciliation handler and
// every other event straight to the engine
type PostingServiceImpl struct {
	poster      Poster
	adjustments *reconciliation.Handler
}

func NewPostingService(poster Poster, adjustments *reconciliation.Handler) PostingService {
	return &PostingServiceImpl{
		poster:      poster,
		adjustments: adjustments,
	}
}

func (s *PostingServiceImpl) Post(ctx context.Context, ev event.Event) (*journal.Entry, error) {
	if adj, ok := ev.(event.Adjustment); ok {
		return s.adjustments.Adjust(ctx, adj)
	}
	return s.poster.Post(ctx, ev)
}

func (s *PostingServiceImpl) Adjust(ctx context.Context, adj event.Adjustment) (*journal.Entry, error) {
	return s.adjustments.Adjust(ctx, adj)
}

func (s *PostingServiceImpl) Reconcile(ctx context.Context, count reconciliation.Count) (*journal.Entry, bool, error) {
	return s.adjustments.Reconcile(ctx, count)
}
