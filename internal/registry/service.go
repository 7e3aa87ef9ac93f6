// Package registry manages the chart of accounts. Balances are never changed
// here; only the posting engine moves them.
package registry

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/shared"
)

// AccountSpec describes an account to create
type AccountSpec struct {
	Number      string
	Name        string
	Type        account.Type
	SubType     account.SubType
	Description string
}

// Transactor runs fn holding the ledger lock, which postings also take.
// *persistence.PostgresDB satisfies it.
type Transactor interface {
	ExecuteLedgerTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service is the account registry
type Service struct {
	db       Transactor
	accounts account.Repository
	logger   *slog.Logger
}

func NewService(logger *slog.Logger, db Transactor, accounts account.Repository) *Service {
	return &Service{
		db:       db,
		accounts: accounts,
		logger:   logger,
	}
}

// CreateAccount adds an account with a zero balance
func (s *Service) CreateAccount(ctx context.Context, def AccountSpec) (*account.Account, error) {
	acc, err := account.NewAccount(def.Number, def.Name, def.Type, def.SubType, def.Description)
	if err != nil {
		return nil, err
	}

	existing, err := s.accounts.GetByNumber(ctx, acc.Number)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, shared.ConflictError{Resource: "account", Reason: "account number " + acc.Number + " already exists"}
	}

	if acc.SubType != account.SubTypeNone {
		_, err := s.accounts.GetBySubType(ctx, acc.SubType)
		switch {
		case err == nil:
			return nil, shared.ConflictError{Resource: "account", Reason: "an account with sub type " + string(acc.SubType) + " already exists"}
		case !errors.Is(err, shared.NotFoundError{Resource: "account"}):
			return nil, err
		}
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created",
		"account_id", acc.ID.String(),
		"number", acc.Number,
		"type", string(acc.Type),
	)
	return acc, nil
}

// GetAccount returns shared.NotFoundError for an unknown id
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts returns accounts in chart order
func (s *Service) ListAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, shared.ValidationError{Field: "type", Reason: "unknown account type " + string(filter.Type)}
	}
	return s.accounts.List(ctx, filter)
}

// EditAccount applies a patch. expectedVersion, when non-zero, must match the stored
// version so edits based on a stale read are rejected. The history check and the
// update run under the ledger lock so no posting lands in between.
func (s *Service) EditAccount(ctx context.Context, id uuid.UUID, patch account.Patch, expectedVersion int) (*account.Account, error) {
	var acc *account.Account
	err := s.db.ExecuteLedgerTx(ctx, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		var err error
		acc, err = accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion != 0 && expectedVersion != acc.Version {
			return shared.ConflictError{Resource: "account", Reason: "modified concurrently, reload and retry"}
		}

		hasHistory := false
		if patch.Number != nil {
			if hasHistory, err = accounts.HasJournalLines(ctx, id); err != nil {
				return err
			}
		}

		previousNumber := acc.Number
		if err := acc.ApplyPatch(patch, hasHistory); err != nil {
			return err
		}

		if acc.Number != previousNumber {
			existing, err := accounts.GetByNumber(ctx, acc.Number)
			if err != nil {
				return err
			}
			if existing != nil {
				return shared.ConflictError{Resource: "account", Reason: "account number " + acc.Number + " already exists"}
			}
		}

		return accounts.Update(ctx, acc)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account updated", "account_id", id.String(), "version", acc.Version)
	return acc, nil
}

// DeleteAccount removes an account that is neither a system account nor referenced
// by any journal line
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	var number string
	err := s.db.ExecuteLedgerTx(ctx, func(tx pgx.Tx) error {
		accounts := s.accounts.WithTx(tx)

		acc, err := accounts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if acc.IsSystem() {
			return shared.ConflictError{Resource: "account", Reason: "system account " + string(acc.SubType) + " cannot be deleted"}
		}
		number = acc.Number

		hasHistory, err := accounts.HasJournalLines(ctx, id)
		if err != nil {
			return err
		}
		if hasHistory {
			return shared.ConflictError{Resource: "account", Reason: "account has posted journal lines"}
		}

		return accounts.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Account deleted", "account_id", id.String(), "number", number)
	return nil
}

// SeedResult lists the chart numbers created and skipped by SeedChart
type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// SeedChart creates the chart's accounts. Numbers or system subtypes that already
// exist are skipped, so seeding twice is harmless.
func (s *Service) SeedChart(ctx context.Context, chart *Chart) (*SeedResult, error) {
	if err := chart.Validate(); err != nil {
		return nil, err
	}

	result := &SeedResult{}
	for _, def := range chart.Accounts {
		_, err := s.CreateAccount(ctx, AccountSpec{
			Number:      def.Number,
			Name:        def.Name,
			Type:        def.Type,
			SubType:     def.SubType,
			Description: def.Description,
		})
		switch {
		case err == nil:
			result.Created = append(result.Created, def.Number)
		case errors.Is(err, shared.ConflictError{Resource: "account"}):
			result.Skipped = append(result.Skipped, def.Number)
		default:
			return result, err
		}
	}

	s.logger.Info("Chart of accounts seeded", "created", len(result.Created), "skipped", len(result.Skipped))
	return result, nil
}
