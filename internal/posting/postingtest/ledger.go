// Package postingtest provides an in-memory ledger for exercising the posting
// engine and the packages built on it without a database. Ledger transactions
// are serialized and roll back every repository change when fn fails.
package postingtest

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/outbox"
	"github.com/storefront-ledger/internal/registry"
)

// Ledger holds accounts, entries, invoices and outbox messages in memory
type Ledger struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts map[uuid.UUID]*account.Account
	entries  []*journal.Entry
	invoices map[string]*invoice.Invoice
	messages []*outbox.Message
	sequence int64

	// FailAppend, when set, is returned by the next journal append
	FailAppend error
}

func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[uuid.UUID]*account.Account),
		invoices: make(map[string]*invoice.Invoice),
	}
}

// NewSeededLedger returns a ledger holding the built-in retail chart
func NewSeededLedger() *Ledger {
	l := NewLedger()
	chart, err := registry.DefaultChart()
	if err != nil {
		panic(err)
	}
	for _, def := range chart.Accounts {
		acc, err := account.NewAccount(def.Number, def.Name, def.Type, def.SubType, def.Description)
		if err != nil {
			panic(err)
		}
		l.accounts[acc.ID] = acc
	}
	return l
}

type snapshot struct {
	accounts map[uuid.UUID]account.Account
	invoices map[string]*invoice.Invoice
	entries  int
	messages int
	sequence int64
}

func (l *Ledger) snapshot() snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := snapshot{
		accounts: make(map[uuid.UUID]account.Account, len(l.accounts)),
		invoices: maps.Clone(l.invoices),
		entries:  len(l.entries),
		messages: len(l.messages),
		sequence: l.sequence,
	}
	for id, acc := range l.accounts {
		s.accounts[id] = *acc
	}
	return s
}

func (l *Ledger) restore(s snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[uuid.UUID]*account.Account, len(s.accounts))
	for id, acc := range s.accounts {
		l.accounts[id] = &acc
	}
	l.invoices = s.invoices
	l.entries = l.entries[:s.entries]
	l.messages = l.messages[:s.messages]
	l.sequence = s.sequence
}

// ExecuteLedgerTx runs fn with a nil transaction; the repositories ignore it
func (l *Ledger) ExecuteLedgerTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	l.txMu.Lock()
	defer l.txMu.Unlock()

	before := l.snapshot()
	if err := fn(nil); err != nil {
		l.restore(before)
		return err
	}
	return nil
}

// ExecuteSnapshotTx runs fn under the ledger lock so it sees a stable state
func (l *Ledger) ExecuteSnapshotTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	l.txMu.Lock()
	defer l.txMu.Unlock()
	return fn(nil)
}

// Account returns a copy of the account with the given chart number
func (l *Ledger) Account(number string) *account.Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, acc := range l.accounts {
		if acc.Number == number {
			cp := *acc
			return &cp
		}
	}
	return nil
}

// AddAccount stores an account directly, bypassing registry checks
func (l *Ledger) AddAccount(acc *account.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *acc
	l.accounts[acc.ID] = &cp
}

// Entries returns the appended entries in sequence order
func (l *Ledger) Entries() []*journal.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*journal.Entry(nil), l.entries...)
}

// Messages returns the outbox messages written so far
func (l *Ledger) Messages() []*outbox.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*outbox.Message(nil), l.messages...)
}

// Invoice returns the stored invoice or nil
func (l *Ledger) Invoice(kind invoice.Kind, id string) *invoice.Invoice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.invoices[invoiceKey(kind, id)]
}

// Lines flattens every entry, oldest first
func (l *Ledger) Lines() []journal.PostedLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	var lines []journal.PostedLine
	for _, entry := range l.entries {
		lines = append(lines, entry.Flatten()...)
	}
	return lines
}

func (l *Ledger) Accounts() account.Repository { return &accountRepo{l: l} }
func (l *Ledger) Journal() journal.Repository  { return &journalRepo{l: l} }
func (l *Ledger) Invoices() invoice.Repository { return &invoiceRepo{l: l} }
func (l *Ledger) Outbox() outbox.Repository    { return &outboxRepo{l: l} }

func invoiceKey(kind invoice.Kind, id string) string {
	return string(kind) + "/" + id
}
