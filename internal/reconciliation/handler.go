// Package reconciliation records manual corrections: adjustments between two
// accounts and corrections that bring an account to a counted balance.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/posting"
)

// Poster is the part of the posting engine the handler needs.
// *posting.Engine satisfies it.
type Poster interface {
	PostAdjustment(ctx context.Context, adj event.Adjustment) (*journal.Entry, error)
	AdjustToBalance(ctx context.Context, adj event.Adjustment, counted int64) (*journal.Entry, error)
}

// Handler applies adjustment policy before anything reaches the engine
type Handler struct {
	poster Poster
	logger *slog.Logger
	newID  func() string
}

func NewHandler(poster Poster, logger *slog.Logger) *Handler {
	return &Handler{
		poster: poster,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Adjust posts a manual adjustment. An empty AdjustmentID is generated, so
// callers that retry must send the id they got back on the first attempt.
func (h *Handler) Adjust(ctx context.Context, adj event.Adjustment) (*journal.Entry, error) {
	adj = h.normalize(adj)
	if err := posting.ValidateAdjustment(adj); err != nil {
		return nil, err
	}

	entry, err := h.poster.PostAdjustment(ctx, adj)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, h.logger).Info("Manual adjustment posted",
		"adjustment_id", adj.AdjustmentID,
		"account_id", adj.AccountID.String(),
		"offset_account_id", adj.OffsetAccountID.String(),
		"amount", adj.Amount.String(),
		"entry_id", entry.ID.String(),
	)
	return entry, nil
}

// Count is a physical or statement balance for one account
type Count struct {
	AdjustmentID    string
	Date            time.Time
	AccountID       uuid.UUID
	OffsetAccountID uuid.UUID
	Counted         money.Amount // Normal-side balance, as it would be reported
	Description     string
	Reference       string
}

// Reconcile brings an account to its counted balance. matched is true when the
// ledger already agreed and nothing was posted.
func (h *Handler) Reconcile(ctx context.Context, c Count) (entry *journal.Entry, matched bool, err error) {
	adj := h.normalize(event.Adjustment{
		AdjustmentID:    c.AdjustmentID,
		Date:            c.Date,
		AccountID:       c.AccountID,
		OffsetAccountID: c.OffsetAccountID,
		Description:     c.Description,
		Reference:       c.Reference,
	})

	entry, err = h.poster.AdjustToBalance(ctx, adj, c.Counted.Cents())
	if errors.Is(err, posting.ErrBalanceMatches) {
		logger.FromContext(ctx, h.logger).Info("Counted balance matches the ledger",
			"account_id", c.AccountID.String(),
			"counted", c.Counted.String(),
		)
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	logger.FromContext(ctx, h.logger).Info("Account reconciled to counted balance",
		"adjustment_id", adj.AdjustmentID,
		"account_id", c.AccountID.String(),
		"counted", c.Counted.String(),
		"entry_id", entry.ID.String(),
	)
	return entry, false, nil
}

func (h *Handler) normalize(adj event.Adjustment) event.Adjustment {
	adj.AdjustmentID = strings.TrimSpace(adj.AdjustmentID)
	if adj.AdjustmentID == "" {
		adj.AdjustmentID = h.newID()
	}
	adj.Description = strings.TrimSpace(adj.Description)
	return adj
}
