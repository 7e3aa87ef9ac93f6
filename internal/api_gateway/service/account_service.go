package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/registry"
)

// AccountServiceImpl exposes the registry together with per-account journal lines
type AccountServiceImpl struct {
	*registry.Service
	journalRepo journal.Repository
}

func NewAccountService(registry *registry.Service, journalRepo journal.Repository) AccountService {
	return &AccountServiceImpl{
		Service:     registry,
		journalRepo: journalRepo,
	}
}

func (s *AccountServiceImpl) AccountLines(ctx context.Context, id uuid.UUID, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	if _, err := s.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return s.journalRepo.LinesForAccount(ctx, id, dateRange)
}
