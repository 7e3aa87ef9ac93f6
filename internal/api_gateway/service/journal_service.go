package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/posting"
)

// Reverser posts reversals. *posting.Engine satisfies it.
type Reverser interface {
	ReverseEntry(ctx context.Context, req posting.Reversal) (*journal.Entry, error)
}

type JournalServiceImpl struct {
	journalRepo journal.Repository
	reverser    Reverser
}

func NewJournalService(journalRepo journal.Repository, reverser Reverser) JournalService {
	return &JournalServiceImpl{
		journalRepo: journalRepo,
		reverser:    reverser,
	}
}

func (s *JournalServiceImpl) QueryEntries(ctx context.Context, filter journal.Filter) ([]*journal.Entry, error) {
	return s.journalRepo.Query(ctx, filter.Normalize())
}

func (s *JournalServiceImpl) GetEntry(ctx context.Context, id uuid.UUID) (*journal.Entry, error) {
	return s.journalRepo.GetByID(ctx, id)
}

func (s *JournalServiceImpl) ReverseEntry(ctx context.Context, req posting.Reversal) (*journal.Entry, error) {
	return s.reverser.ReverseEntry(ctx, req)
}
