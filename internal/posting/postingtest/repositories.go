package postingtest

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/outbox"
	"github.com/storefront-ledger/internal/domain/shared"
)

type accountRepo struct{ l *Ledger }

func (r *accountRepo) WithTx(pgx.Tx) account.Repository { return r }

func (r *accountRepo) Create(_ context.Context, acc *account.Account) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, existing := range r.l.accounts {
		if existing.Number == acc.Number {
			return shared.ConflictError{Resource: "account", Reason: "account number " + acc.Number + " already exists"}
		}
		if acc.SubType != account.SubTypeNone && existing.SubType == acc.SubType {
			return shared.ConflictError{Resource: "account", Reason: "an account with sub type " + string(acc.SubType) + " already exists"}
		}
	}
	cp := *acc
	r.l.accounts[acc.ID] = &cp
	return nil
}

func (r *accountRepo) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	acc, ok := r.l.accounts[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: "account", ID: id.String()}
	}
	cp := *acc
	return &cp, nil
}

func (r *accountRepo) GetByNumber(_ context.Context, number string) (*account.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, acc := range r.l.accounts {
		if acc.Number == number {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *accountRepo) GetBySubType(_ context.Context, subType account.SubType) (*account.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, acc := range r.l.accounts {
		if acc.SubType == subType {
			cp := *acc
			return &cp, nil
		}
	}
	return nil, shared.NotFoundError{Resource: "account", ID: string(subType)}
}

func (r *accountRepo) List(_ context.Context, filter account.Filter) ([]*account.Account, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	search := strings.ToLower(filter.Search)
	var list []*account.Account
	for _, acc := range r.l.accounts {
		if filter.Type != "" && acc.Type != filter.Type {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(acc.Number), search) && !strings.Contains(strings.ToLower(acc.Name), search) {
			continue
		}
		cp := *acc
		list = append(list, &cp)
	}
	slices.SortFunc(list, func(a, b *account.Account) int {
		return cmp.Or(cmp.Compare(a.Type.Rank(), b.Type.Rank()), strings.Compare(a.Number, b.Number))
	})
	return list, nil
}

func (r *accountRepo) Update(_ context.Context, acc *account.Account) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	stored, ok := r.l.accounts[acc.ID]
	if !ok {
		return shared.NotFoundError{Resource: "account", ID: acc.ID.String()}
	}
	if stored.Version != acc.Version-1 {
		return shared.ConflictError{Resource: "account", Reason: "modified concurrently, reload and retry"}
	}
	stored.Number, stored.Name, stored.Description = acc.Number, acc.Name, acc.Description
	stored.Version, stored.UpdatedAt = acc.Version, acc.UpdatedAt
	return nil
}

func (r *accountRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if _, ok := r.l.accounts[id]; !ok {
		return shared.NotFoundError{Resource: "account", ID: id.String()}
	}
	delete(r.l.accounts, id)
	return nil
}

func (r *accountRepo) HasJournalLines(_ context.Context, id uuid.UUID) (bool, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, entry := range r.l.entries {
		for _, line := range entry.Lines {
			if line.AccountID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *accountRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *accountRepo) ApplyDelta(_ context.Context, id uuid.UUID, delta int64) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	acc, ok := r.l.accounts[id]
	if !ok {
		return shared.NotFoundError{Resource: "account", ID: id.String()}
	}
	acc.Balance += delta
	return nil
}

type journalRepo struct{ l *Ledger }

func (r *journalRepo) WithTx(pgx.Tx) journal.Repository { return r }

func (r *journalRepo) Append(_ context.Context, entry *journal.Entry) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	if err := r.l.FailAppend; err != nil {
		r.l.FailAppend = nil
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	for _, existing := range r.l.entries {
		if existing.Source == entry.Source {
			return shared.DuplicatePostingError{SourceType: entry.Source.Type, SourceID: entry.Source.ID}
		}
	}
	r.l.sequence++
	entry.Sequence = r.l.sequence
	r.l.entries = append(r.l.entries, copyEntry(entry))
	return nil
}

func (r *journalRepo) GetByID(_ context.Context, id uuid.UUID) (*journal.Entry, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, entry := range r.l.entries {
		if entry.ID == id {
			return copyEntry(entry), nil
		}
	}
	return nil, shared.NotFoundError{Resource: "journal_entry", ID: id.String()}
}

func (r *journalRepo) GetBySource(_ context.Context, source journal.Source) (*journal.Entry, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, entry := range r.l.entries {
		if entry.Source == source {
			return copyEntry(entry), nil
		}
	}
	return nil, nil
}

func (r *journalRepo) Query(_ context.Context, filter journal.Filter) ([]*journal.Entry, error) {
	filter = filter.Normalize()
	text := strings.ToLower(filter.Text)

	r.l.mu.Lock()
	var matches []*journal.Entry
	for _, entry := range r.l.entries {
		if !filter.Range.Contains(entry.Date) {
			continue
		}
		if filter.SourceType != "" && entry.Source.Type != filter.SourceType {
			continue
		}
		if filter.AccountID != uuid.Nil && !slices.ContainsFunc(entry.Lines, func(l journal.Line) bool { return l.AccountID == filter.AccountID }) {
			continue
		}
		if text != "" && !containsText(text, entry.Description, entry.Reference, entry.Source.ID) {
			continue
		}
		matches = append(matches, copyEntry(entry))
	}
	r.l.mu.Unlock()

	slices.SortFunc(matches, func(a, b *journal.Entry) int {
		c := cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.Sequence, b.Sequence))
		if filter.Order == journal.NewestFirst {
			return -c
		}
		return c
	})
	if filter.Offset >= len(matches) {
		return nil, nil
	}
	matches = matches[filter.Offset:]
	if len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

func (r *journalRepo) LinesForAccount(ctx context.Context, accountID uuid.UUID, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	lines, _ := r.Lines(ctx, dateRange)
	return slices.DeleteFunc(lines, func(l journal.PostedLine) bool { return l.AccountID != accountID }), nil
}

func (r *journalRepo) Lines(_ context.Context, dateRange journal.DateRange) ([]journal.PostedLine, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var lines []journal.PostedLine
	for _, entry := range r.l.entries {
		if dateRange.Contains(entry.Date) {
			lines = append(lines, entry.Flatten()...)
		}
	}
	slices.SortStableFunc(lines, func(a, b journal.PostedLine) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.Sequence, b.Sequence), cmp.Compare(a.LineIndex, b.LineIndex))
	})
	return lines, nil
}

func containsText(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func copyEntry(entry *journal.Entry) *journal.Entry {
	cp := *entry
	cp.Lines = slices.Clone(entry.Lines)
	return &cp
}

type invoiceRepo struct{ l *Ledger }

func (r *invoiceRepo) WithTx(pgx.Tx) invoice.Repository { return r }

func (r *invoiceRepo) Create(_ context.Context, inv *invoice.Invoice) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	key := invoiceKey(inv.Kind, inv.ID)
	if _, ok := r.l.invoices[key]; ok {
		return shared.ConflictError{Resource: "invoice", Reason: "invoice " + inv.ID + " already exists"}
	}
	cp := *inv
	r.l.invoices[key] = &cp
	return nil
}

func (r *invoiceRepo) GetByID(_ context.Context, kind invoice.Kind, id string) (*invoice.Invoice, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	inv, ok := r.l.invoices[invoiceKey(kind, id)]
	if !ok {
		return nil, shared.NotFoundError{Resource: string(kind) + "_invoice", ID: id}
	}
	cp := *inv
	return &cp, nil
}

func (r *invoiceRepo) LockForUpdate(ctx context.Context, kind invoice.Kind, id string) (*invoice.Invoice, error) {
	return r.GetByID(ctx, kind, id)
}

func (r *invoiceRepo) SettledAmount(_ context.Context, inv *invoice.Invoice) (int64, error) {
	return inv.Settled(r.l.Lines()), nil
}

func (r *invoiceRepo) IssuedThrough(_ context.Context, kind invoice.Kind, dateRange journal.DateRange) ([]*invoice.Invoice, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var list []*invoice.Invoice
	for _, inv := range r.l.invoices {
		if inv.Kind != kind {
			continue
		}
		if !dateRange.To.IsZero() && !inv.IssueDate.Before(dateRange.To) {
			continue
		}
		cp := *inv
		list = append(list, &cp)
	}
	slices.SortFunc(list, func(a, b *invoice.Invoice) int {
		return cmp.Or(a.DueDate.Compare(b.DueDate), strings.Compare(a.ID, b.ID))
	})
	return list, nil
}

type outboxRepo struct{ l *Ledger }

func (r *outboxRepo) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *outboxRepo) Create(_ context.Context, msg *outbox.Message) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	msg.ID = int64(len(r.l.messages) + 1)
	r.l.messages = append(r.l.messages, msg)
	return nil
}

func (r *outboxRepo) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	var pending []*outbox.Message
	for _, msg := range r.l.messages {
		if msg.Status == shared.OutboxStatusPending && len(pending) < limit {
			pending = append(pending, msg)
		}
	}
	return pending, nil
}

func (r *outboxRepo) find(id int64) (*outbox.Message, error) {
	for _, msg := range r.l.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, outbox.NotFound(id)
}

func (r *outboxRepo) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	msg, err := r.find(id)
	if err != nil {
		return err
	}
	msg.Status = status
	return nil
}

func (r *outboxRepo) IncrementAttempts(_ context.Context, id int64) error {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	msg, err := r.find(id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	msg.Attempts++
	msg.LastAttemptAt = &now
	return nil
}

func (r *outboxRepo) GetByEntryID(_ context.Context, entryID uuid.UUID) (*outbox.Message, error) {
	r.l.mu.Lock()
	defer r.l.mu.Unlock()
	for _, msg := range r.l.messages {
		if msg.EntryID == entryID {
			return msg, nil
		}
	}
	return nil, outbox.EntryNotAnnounced(entryID)
}
