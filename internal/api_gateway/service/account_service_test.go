package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/posting"
	"github.com/storefront-ledger/internal/posting/postingtest"
	"github.com/storefront-ledger/internal/registry"
)

func newEngine(l *postingtest.Ledger) *posting.Engine {
	return posting.NewEngine(l, l.Accounts(), l.Journal(), l.Invoices(), l.Outbox(),
		posting.Config{PaymentTermsDays: 30}, slog.Default())
}

func TestAccountService_AccountLines(t *testing.T) {
	ctx := context.Background()
	l := postingtest.NewSeededLedger()
	svc := NewAccountService(registry.NewService(slog.Default(), l, l.Accounts()), l.Journal())
	engine := newEngine(l)

	for i, day := range []int{3, 9} {
		_, err := engine.PostSale(ctx, event.Sale{
			SaleID:   []string{"s-1", "s-2"}[i],
			Date:     time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC),
			Subtotal: 5000,
		})
		require.NoError(t, err)
	}
	cash := l.Account("1000")

	t.Run("AllLines", func(t *testing.T) {
		lines, err := svc.AccountLines(ctx, cash.ID, journal.DateRange{})
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "s-1", lines[0].SourceID)
		assert.Equal(t, journal.Debit, lines[0].Type)
	})

	t.Run("Range", func(t *testing.T) {
		lines, err := svc.AccountLines(ctx, cash.ID, journal.DaysInclusive(
			time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		require.Len(t, lines, 1)
		assert.Equal(t, "s-2", lines[0].SourceID)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		_, err := svc.AccountLines(ctx, uuid.New(), journal.DateRange{})
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "account"})
	})

	t.Run("RegistryOperations", func(t *testing.T) {
		acc, err := svc.CreateAccount(ctx, registry.AccountSpec{Number: "1600", Name: "Delivery Van", Type: account.TypeAsset})
		require.NoError(t, err)

		list, err := svc.ListAccounts(ctx, account.Filter{Search: "van"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, acc.ID, list[0].ID)

		require.NoError(t, svc.DeleteAccount(ctx, acc.ID))
		assert.ErrorIs(t, svc.DeleteAccount(ctx, cash.ID), shared.ConflictError{})
	})
}
