package posting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
)

// Account roles as they appear in InvalidAccountError
const (
	rolePayment          = "payment"
	roleRevenue          = "revenue"
	roleReceivable       = "receivable"
	rolePayable          = "payable"
	roleSalesTax         = "sales tax"
	roleCOGS             = "cost of goods"
	roleInventory        = "inventory"
	roleStoreCredit      = "store credit"
	roleExpense          = "expense"
	roleExpensePayment   = "expense payment"
	roleSupplierLine     = "supplier invoice line"
	roleAdjustment       = "adjustment"
	roleAdjustmentOffset = "adjustment offset"
)

// lineSet accumulates the lines of a draft, dropping zero amounts
type lineSet []journal.Line

func (s *lineSet) debit(acc *account.Account, amount int64) {
	s.add(acc, journal.Debit, amount)
}

func (s *lineSet) credit(acc *account.Account, amount int64) {
	s.add(acc, journal.Credit, amount)
}

func (s *lineSet) add(acc *account.Account, side journal.LineType, amount int64) {
	if amount == 0 {
		return
	}
	*s = append(*s, journal.Line{AccountID: acc.ID, AccountName: acc.Name, Type: side, Amount: amount})
}

func (s lineSet) lines() []journal.Line {
	return []journal.Line(s)
}

// resolver looks up the accounts a rule needs and checks they fit their role
type resolver struct {
	accounts account.Repository
}

func (r resolver) byID(ctx context.Context, id uuid.UUID, role string, allowed ...account.Type) (*account.Account, error) {
	if id == uuid.Nil {
		return nil, shared.InvalidAccountError{Role: role, Reason: "account id is required"}
	}
	acc, err := r.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{Resource: "account"}) {
			return nil, shared.InvalidAccountError{AccountID: id, Role: role, Reason: "account does not exist"}
		}
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, acc.Type) {
		return nil, shared.InvalidAccountError{
			AccountID: id,
			Role:      role,
			Reason:    fmt.Sprintf("must be %s, got %s", typeList(allowed), acc.Type),
		}
	}
	return acc, nil
}

func (r resolver) bySubType(ctx context.Context, subType account.SubType, role string) (*account.Account, error) {
	acc, err := r.accounts.GetBySubType(ctx, subType)
	if err != nil {
		if errors.Is(err, shared.NotFoundError{Resource: "account"}) {
			return nil, shared.InvalidAccountError{Role: role, Reason: "chart has no " + string(subType) + " account"}
		}
		return nil, err
	}
	return acc, nil
}

// byIDOr resolves id when given, otherwise the system account of fallback
func (r resolver) byIDOr(ctx context.Context, id *uuid.UUID, fallback account.SubType, role string, allowed ...account.Type) (*account.Account, error) {
	if id != nil && *id != uuid.Nil {
		return r.byID(ctx, *id, role, allowed...)
	}
	acc, err := r.bySubType(ctx, fallback, role)
	if err != nil {
		return nil, err
	}
	if len(allowed) > 0 && !slices.Contains(allowed, acc.Type) {
		return nil, shared.InvalidAccountError{AccountID: acc.ID, Role: role, Reason: "must be " + typeList(allowed)}
	}
	return acc, nil
}

func typeList(types []account.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, " or ")
}

// lockAndApply locks every touched account in id order, refreshes the name
// snapshots from the locked rows, appends the entry and applies the deltas.
func lockAndApply(ctx context.Context, accounts account.Repository, journalRepo journal.Repository, entry *journal.Entry) error {
	ids := make([]uuid.UUID, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		if !slices.Contains(ids, line.AccountID) {
			ids = append(ids, line.AccountID)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	locked := make(map[uuid.UUID]*account.Account, len(ids))
	for _, id := range ids {
		acc, err := accounts.LockForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.NotFoundError{Resource: "account"}) {
				return shared.InvalidAccountError{AccountID: id, Role: "posting", Reason: "account does not exist"}
			}
			return fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		locked[id] = acc
	}

	deltas := make(map[uuid.UUID]int64, len(ids))
	for i := range entry.Lines {
		line := &entry.Lines[i]
		acc := locked[line.AccountID]
		line.AccountName = acc.Name
		deltas[acc.ID] += acc.Type.SignedAmount(line.Type == journal.Debit, line.Amount)
	}

	if err := journalRepo.Append(ctx, entry); err != nil {
		return err
	}

	for _, id := range ids {
		if deltas[id] == 0 {
			continue
		}
		if err := accounts.ApplyDelta(ctx, id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}
