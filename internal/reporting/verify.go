package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
)

// Mismatch is an account whose stored balance disagrees with its journal history
type Mismatch struct {
	AccountID uuid.UUID    `json:"account_id"`
	Number    string       `json:"number"`
	Stored    money.Amount `json:"stored"`
	Replayed  money.Amount `json:"replayed"`
}

// VerifyBalances replays the whole journal and compares every account's stored
// balance with the result. Any mismatch fails with shared.IntegrityError; the
// mismatches are returned as well so callers can print them.
func (b *Builder) VerifyBalances(ctx context.Context) ([]Mismatch, error) {
	s, err := b.load(ctx, journal.DateRange{})
	if err != nil {
		return nil, err
	}

	var mismatches []Mismatch
	totals := s.activity()
	for _, acc := range s.accounts {
		replayed := totals[acc.ID].balance(acc.Type)
		if replayed != acc.Balance {
			mismatches = append(mismatches, Mismatch{
				AccountID: acc.ID,
				Number:    acc.Number,
				Stored:    money.Amount(acc.Balance),
				Replayed:  money.Amount(replayed),
			})
		}
	}
	if len(mismatches) == 0 {
		return nil, nil
	}

	details := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		details = append(details, fmt.Sprintf("%s stored %s replayed %s", m.Number, m.Stored, m.Replayed))
	}
	return mismatches, b.integrityFailure(ctx, "balance_reconstruction", strings.Join(details, "; "))
}
