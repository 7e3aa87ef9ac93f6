package posting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/event"
	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
	"github.com/storefront-ledger/internal/domain/shared"
	"github.com/storefront-ledger/internal/logger"
	"github.com/storefront-ledger/internal/posting/postingtest"
)

var (
	saleDay = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	today   = time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	ledger *postingtest.Ledger
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(postingtest.NewSeededLedger())
}

func newFixtureWith(l *postingtest.Ledger) *fixture {
	engine := NewEngine(l, l.Accounts(), l.Journal(), l.Invoices(), l.Outbox(),
		Config{PaymentTermsDays: 30}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	engine.now = func() time.Time { return today }
	return &fixture{ledger: l, engine: engine}
}

func (f *fixture) balance(number string) int64 {
	return f.ledger.Account(number).Balance
}

func (f *fixture) id(number string) uuid.UUID {
	return f.ledger.Account(number).ID
}

func (f *fixture) idp(number string) *uuid.UUID {
	id := f.id(number)
	return &id
}

// assertReconstructs replays every posted line and compares with live balances
func assertReconstructs(t *testing.T, l *postingtest.Ledger) {
	t.Helper()
	accounts, err := l.Accounts().List(context.Background(), account.Filter{})
	require.NoError(t, err)

	replayed := make(map[uuid.UUID]int64)
	types := make(map[uuid.UUID]account.Type)
	for _, acc := range accounts {
		types[acc.ID] = acc.Type
	}
	var debits, credits int64
	for _, line := range l.Lines() {
		replayed[line.AccountID] += types[line.AccountID].SignedAmount(line.Type == journal.Debit, line.Amount)
		if line.Type == journal.Debit {
			debits += line.Amount
		} else {
			credits += line.Amount
		}
	}
	assert.Equal(t, debits, credits, "ledger debits and credits")
	for _, acc := range accounts {
		assert.Equal(t, replayed[acc.ID], acc.Balance, "balance of %s %s", acc.Number, acc.Name)
	}
}

func cashSale(id string, subtotal, tax int64) event.Sale {
	return event.Sale{
		SaleID:   id,
		Number:   "S-" + id,
		Date:     saleDay,
		Subtotal: money.Amount(subtotal),
		Tax:      money.Amount(tax),
	}
}

func creditSale(id string, subtotal, tax int64) event.Sale {
	sale := cashSale(id, subtotal, tax)
	sale.OnCredit = true
	sale.CustomerID = "cust-7"
	sale.CustomerName = "Ada Lovelace"
	return sale
}

func TestPostSale_Cash(t *testing.T) {
	f := newFixture(t)

	entry, err := f.engine.PostSale(context.Background(), cashSale("1", 10000, 1000))
	require.NoError(t, err)

	assert.Equal(t, int64(1), entry.Sequence)
	assert.Equal(t, "Cash sale #S-1", entry.Description)
	assert.Equal(t, "S-1", entry.Reference)
	assert.Empty(t, entry.InvoiceID)
	require.Len(t, entry.Lines, 3)
	assert.Equal(t, journal.Line{AccountID: f.id("1000"), AccountName: "Cash", Type: journal.Debit, Amount: 11000}, entry.Lines[0])
	assert.Equal(t, journal.Line{AccountID: f.id("4000"), AccountName: "Sales Revenue", Type: journal.Credit, Amount: 10000}, entry.Lines[1])
	assert.Equal(t, journal.Line{AccountID: f.id("2100"), AccountName: "Sales Tax Payable", Type: journal.Credit, Amount: 1000}, entry.Lines[2])

	assert.Equal(t, int64(11000), f.balance("1000"))
	assert.Equal(t, int64(10000), f.balance("4000"))
	assert.Equal(t, int64(1000), f.balance("2100"))

	messages := f.ledger.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, entry.ID, messages[0].EntryID)
	assert.Equal(t, shared.OutboxStatusPending, messages[0].Status)

	assertReconstructs(t, f.ledger)
}

func TestPostSale_CostOfGoodsAndDiscount(t *testing.T) {
	f := newFixture(t)
	sale := cashSale("2", 9500, 0)
	sale.Discount = 500
	sale.CostOfGoods = 4000

	entry, err := f.engine.PostSale(context.Background(), sale)
	require.NoError(t, err)

	assert.Equal(t, "Cash sale #S-2 (discount 5.00)", entry.Description)
	require.Len(t, entry.Lines, 4, "zero tax adds no line")
	assert.Equal(t, int64(9500), f.balance("1000"))
	assert.Equal(t, int64(9500), f.balance("4000"))
	assert.Equal(t, int64(4000), f.balance("5000"))
	assert.Equal(t, int64(-4000), f.balance("1200"))
	assert.Zero(t, f.balance("2100"))
	assertReconstructs(t, f.ledger)
}

func TestPostSale_CustomAccounts(t *testing.T) {
	f := newFixture(t)
	sale := cashSale("3", 20000, 0)
	sale.PaymentAccountID = f.idp("1500")
	sale.RevenueAccountID = f.idp("4100")

	_, err := f.engine.PostSale(context.Background(), sale)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), f.balance("1500"))
	assert.Equal(t, int64(20000), f.balance("4100"))
	assert.Zero(t, f.balance("4000"))

	t.Run("RevenueAccountOfWrongType", func(t *testing.T) {
		sale := cashSale("4", 1000, 0)
		sale.RevenueAccountID = f.idp("6000")
		_, err := f.engine.PostSale(context.Background(), sale)
		assert.ErrorIs(t, err, shared.InvalidAccountError{AccountID: f.id("6000")})
	})

	t.Run("UnknownPaymentAccount", func(t *testing.T) {
		sale := cashSale("5", 1000, 0)
		missing := uuid.New()
		sale.PaymentAccountID = &missing
		_, err := f.engine.PostSale(context.Background(), sale)
		assert.ErrorIs(t, err, shared.InvalidAccountError{AccountID: missing})
	})
}

func TestPostSale_Validation(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name   string
		mutate func(s *event.Sale)
		field  string
	}{
		{"MissingSaleID", func(s *event.Sale) { s.SaleID = "" }, "sale_id"},
		{"ZeroSubtotal", func(s *event.Sale) { s.Subtotal = 0 }, "subtotal"},
		{"NegativeTax", func(s *event.Sale) { s.Tax = -1 }, "tax"},
		{"NegativeDiscount", func(s *event.Sale) { s.Discount = -100 }, "discount"},
		{"CreditWithoutCustomer", func(s *event.Sale) { s.OnCredit = true; s.CustomerName = "Ada" }, "customer_id"},
		{"CreditWithoutName", func(s *event.Sale) { s.OnCredit = true; s.CustomerID = "c-1" }, "customer_name"},
		{"DueBeforeSale", func(s *event.Sale) {
			s.OnCredit, s.CustomerID, s.CustomerName = true, "c-1", "Ada"
			due := saleDay.AddDate(0, 0, -1)
			s.DueDate = &due
		}, "due_date"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sale := cashSale("v", 1000, 100)
			tc.mutate(&sale)
			_, err := f.engine.PostSale(context.Background(), sale)
			assert.ErrorIs(t, err, shared.ValidationError{Field: tc.field})
		})
	}

	assert.Empty(t, f.ledger.Entries())
	assert.Zero(t, f.balance("1000"))
}

func TestPostSale_MissingSystemAccount(t *testing.T) {
	f := newFixtureWith(postingtest.NewLedger())

	_, err := f.engine.PostSale(context.Background(), cashSale("1", 1000, 0))
	var invalid shared.InvalidAccountError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, roleRevenue, invalid.Role)
	assert.Contains(t, err.Error(), "chart has no sales_revenue account")
}

func TestCreditSaleThenPartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.engine.PostSale(ctx, creditSale("10", 10000, 1000))
	require.NoError(t, err)
	assert.Equal(t, "Credit sale #S-10 - Ada Lovelace", sale.Description)
	assert.Equal(t, "10", sale.InvoiceID)
	assert.Equal(t, int64(11000), f.balance("1100"))

	inv := f.ledger.Invoice(invoice.KindReceivable, "10")
	require.NotNil(t, inv)
	assert.Equal(t, int64(11000), inv.Total)
	assert.Equal(t, sale.ID, inv.EntryID)
	assert.Equal(t, f.id("1100"), inv.ControlAccountID)
	assert.Equal(t, time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), inv.DueDate, "30 day payment terms")

	payment, err := f.engine.PostPayment(ctx, event.Payment{
		PaymentID: "pay-1",
		InvoiceID: "10",
		Date:      saleDay.AddDate(0, 0, 5),
		Amount:    4000,
		Method:    "card",
	})
	require.NoError(t, err)
	assert.Equal(t, "Payment received for invoice S-10 - Ada Lovelace (card)", payment.Description)
	assert.Equal(t, "S-10", payment.Reference)
	assert.Equal(t, "10", payment.InvoiceID)

	assert.Equal(t, int64(7000), f.balance("1100"))
	assert.Equal(t, int64(4000), f.balance("1000"))

	settled, err := f.ledger.Invoices().SettledAmount(ctx, inv)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), settled)

	t.Run("Overpayment", func(t *testing.T) {
		_, err := f.engine.PostPayment(ctx, event.Payment{PaymentID: "pay-2", InvoiceID: "10", Amount: 7001})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "amount"})
		assert.Contains(t, err.Error(), "exceeds the balance due 70.00")
	})

	t.Run("UnknownInvoice", func(t *testing.T) {
		_, err := f.engine.PostPayment(ctx, event.Payment{PaymentID: "pay-3", InvoiceID: "nope", Amount: 100})
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "receivable_invoice", ID: "nope"})
	})

	t.Run("ExactRemainder", func(t *testing.T) {
		_, err := f.engine.PostPayment(ctx, event.Payment{PaymentID: "pay-4", InvoiceID: "10", Amount: 7000})
		require.NoError(t, err)
		assert.Zero(t, f.balance("1100"))
	})

	assertReconstructs(t, f.ledger)
}

func TestDuplicatePaymentSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.PostSale(ctx, creditSale("20", 5000, 0))
	require.NoError(t, err)

	pay := event.Payment{PaymentID: "pay-20", InvoiceID: "20", Amount: 2000}
	first, err := f.engine.PostPayment(ctx, pay)
	require.NoError(t, err)

	_, err = f.engine.PostPayment(ctx, pay)
	require.ErrorIs(t, err, shared.DuplicatePostingError{SourceType: shared.SourceTypePayment, SourceID: "pay-20"})
	var dup shared.DuplicatePostingError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ID, dup.EntryID)

	assert.Equal(t, int64(3000), f.balance("1100"))
	assert.Equal(t, int64(2000), f.balance("1000"))
	assert.Len(t, f.ledger.Entries(), 2)
	assert.Len(t, f.ledger.Messages(), 2)
}

func TestPostAdjustment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up, err := f.engine.PostAdjustment(ctx, event.Adjustment{
		AdjustmentID:    "adj-1",
		Date:            saleDay,
		AccountID:       f.id("1200"),
		OffsetAccountID: f.id("5100"),
		Amount:          2500,
		Description:     "Stock count surplus",
	})
	require.NoError(t, err)
	assert.Equal(t, journal.Debit, up.Lines[0].Type)
	assert.Equal(t, f.id("1200"), up.Lines[0].AccountID)
	assert.Equal(t, int64(2500), f.balance("1200"))
	assert.Equal(t, int64(-2500), f.balance("5100"))

	down, err := f.engine.PostAdjustment(ctx, event.Adjustment{
		AdjustmentID:    "adj-2",
		AccountID:       f.id("1200"),
		OffsetAccountID: f.id("5100"),
		Amount:          -1000,
		Description:     "Shrinkage",
	})
	require.NoError(t, err)
	assert.Equal(t, f.id("5100"), down.Lines[0].AccountID)
	assert.Equal(t, journal.Debit, down.Lines[0].Type)
	assert.Equal(t, int64(1000), down.Lines[0].Amount)
	assert.Equal(t, today, down.Date, "missing date defaults to now")
	assert.Equal(t, int64(1500), f.balance("1200"))
	assert.Equal(t, int64(-1500), f.balance("5100"))

	t.Run("Validation", func(t *testing.T) {
		base := event.Adjustment{AdjustmentID: "adj-x", AccountID: f.id("1200"), OffsetAccountID: f.id("5100"), Amount: 1, Description: "x"}
		testCases := []struct {
			name   string
			mutate func(a *event.Adjustment)
			field  string
		}{
			{"ZeroAmount", func(a *event.Adjustment) { a.Amount = 0 }, "amount"},
			{"SameAccount", func(a *event.Adjustment) { a.OffsetAccountID = a.AccountID }, "offset_account_id"},
			{"MissingOffset", func(a *event.Adjustment) { a.OffsetAccountID = uuid.Nil }, "offset_account_id"},
			{"MissingDescription", func(a *event.Adjustment) { a.Description = "  " }, "description"},
			{"MissingID", func(a *event.Adjustment) { a.AdjustmentID = "" }, "adjustment_id"},
		}
		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				adj := base
				tc.mutate(&adj)
				_, err := f.engine.PostAdjustment(ctx, adj)
				assert.ErrorIs(t, err, shared.ValidationError{Field: tc.field})
			})
		}
	})

	assertReconstructs(t, f.ledger)
}

func TestAdjustToBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.PostSale(ctx, cashSale("s-1", 10000, 0))
	require.NoError(t, err)

	count := event.Adjustment{
		AdjustmentID:    "count-1",
		AccountID:       f.id("1000"),
		OffsetAccountID: f.id("5100"),
		Description:     "Drawer count",
	}
	entry, err := f.engine.AdjustToBalance(ctx, count, 9750)
	require.NoError(t, err)
	assert.Equal(t, "Drawer count (balance 100.00 counted 97.50)", entry.Description)
	assert.Equal(t, f.id("5100"), entry.Lines[0].AccountID)
	assert.Equal(t, journal.Debit, entry.Lines[0].Type)
	assert.Equal(t, int64(250), entry.Lines[0].Amount)
	assert.Equal(t, int64(9750), f.balance("1000"))

	// credit-normal target: raising payables credits the account
	_, err = f.engine.AdjustToBalance(ctx, event.Adjustment{
		AdjustmentID:    "count-2",
		AccountID:       f.id("2000"),
		OffsetAccountID: f.id("6300"),
		Description:     "Statement",
	}, 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), f.balance("2000"))
	assert.Equal(t, int64(4000), f.balance("6300"))

	count.AdjustmentID = "count-3"
	_, err = f.engine.AdjustToBalance(ctx, count, 9750)
	assert.ErrorIs(t, err, ErrBalanceMatches)
	assert.Len(t, f.ledger.Entries(), 3)

	assertReconstructs(t, f.ledger)
}

func TestSupplierInvoiceThenPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill, err := f.engine.PostSupplierInvoice(ctx, event.SupplierInvoice{
		InvoiceID:     "bill-1",
		InvoiceNumber: "ACME-881",
		SupplierID:    "sup-1",
		SupplierName:  "Acme Wholesale",
		PONumber:      "PO-12",
		Date:          saleDay,
		Lines: []event.SupplierInvoiceLine{
			{AccountID: f.id("1200"), Amount: 30000},
			{AccountID: f.id("6300"), Amount: 2000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Supplier invoice ACME-881 - Acme Wholesale (PO PO-12)", bill.Description)
	assert.Equal(t, int64(30000), f.balance("1200"))
	assert.Equal(t, int64(2000), f.balance("6300"))
	assert.Equal(t, int64(32000), f.balance("2000"))

	inv := f.ledger.Invoice(invoice.KindPayable, "bill-1")
	require.NotNil(t, inv)
	assert.Equal(t, int64(32000), inv.Total)
	assert.Equal(t, "Acme Wholesale", inv.CounterpartyName)

	pay, err := f.engine.PostSupplierPayment(ctx, event.SupplierPayment{PaymentID: "sp-1", InvoiceID: "bill-1", Amount: 12000})
	require.NoError(t, err)
	assert.Equal(t, "Payment to Acme Wholesale for invoice ACME-881", pay.Description)
	assert.Equal(t, int64(20000), f.balance("2000"))
	assert.Equal(t, int64(-12000), f.balance("1000"))

	t.Run("OverpaySupplier", func(t *testing.T) {
		_, err := f.engine.PostSupplierPayment(ctx, event.SupplierPayment{PaymentID: "sp-2", InvoiceID: "bill-1", Amount: 20001})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "amount"})
	})

	t.Run("PaymentAgainstReceivable", func(t *testing.T) {
		_, err := f.engine.PostSale(ctx, creditSale("30", 1000, 0))
		require.NoError(t, err)
		_, err = f.engine.PostSupplierPayment(ctx, event.SupplierPayment{PaymentID: "sp-3", InvoiceID: "30", Amount: 100})
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "payable_invoice"})
	})

	t.Run("RevenueLineRejected", func(t *testing.T) {
		_, err := f.engine.PostSupplierInvoice(ctx, event.SupplierInvoice{
			InvoiceID: "bill-2", InvoiceNumber: "X-1", SupplierName: "Acme",
			Lines: []event.SupplierInvoiceLine{{AccountID: f.id("4000"), Amount: 100}},
		})
		assert.ErrorIs(t, err, shared.InvalidAccountError{AccountID: f.id("4000")})
	})

	t.Run("MissingSupplier", func(t *testing.T) {
		_, err := f.engine.PostSupplierInvoice(ctx, event.SupplierInvoice{
			InvoiceID: "bill-3", InvoiceNumber: "X-2",
			Lines: []event.SupplierInvoiceLine{{AccountID: f.id("1200"), Amount: 100}},
		})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "supplier_name"})
	})

	assertReconstructs(t, f.ledger)
}

func TestPostExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry, err := f.engine.PostExpense(ctx, event.Expense{
		ExpenseID:        "exp-1",
		Date:             saleDay,
		Description:      "March rent",
		Payee:            "Landlord LLC",
		Amount:           150000,
		ExpenseAccountID: f.id("6000"),
		PaymentAccountID: f.id("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "March rent - Landlord LLC", entry.Description)
	assert.Equal(t, int64(150000), f.balance("6000"))
	assert.Equal(t, int64(-150000), f.balance("1000"))

	_, err = f.engine.PostExpense(ctx, event.Expense{
		ExpenseID: "exp-2", Payee: "Power Co", Amount: 9000,
		ExpenseAccountID: f.id("6100"), PaymentAccountID: f.id("2000"),
	})
	require.NoError(t, err, "expenses may be charged to a liability")
	assert.Equal(t, int64(9000), f.balance("2000"))

	t.Run("ExpenseAccountMustBeExpense", func(t *testing.T) {
		_, err := f.engine.PostExpense(ctx, event.Expense{
			ExpenseID: "exp-3", Description: "x", Amount: 100,
			ExpenseAccountID: f.id("1000"), PaymentAccountID: f.id("1000"),
		})
		assert.ErrorIs(t, err, shared.InvalidAccountError{AccountID: f.id("1000")})
	})

	t.Run("PaymentAccountCannotBeRevenue", func(t *testing.T) {
		_, err := f.engine.PostExpense(ctx, event.Expense{
			ExpenseID: "exp-4", Description: "x", Amount: 100,
			ExpenseAccountID: f.id("6000"), PaymentAccountID: f.id("4000"),
		})
		var invalid shared.InvalidAccountError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, roleExpensePayment, invalid.Role)
	})

	t.Run("NeedsDescriptionOrPayee", func(t *testing.T) {
		_, err := f.engine.PostExpense(ctx, event.Expense{ExpenseID: "exp-5", Amount: 100})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "description"})
	})

	assertReconstructs(t, f.ledger)
}

func TestPostRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("CashSale", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, cashSale("1", 10000, 1000))
		require.NoError(t, err)

		refund, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-1", SaleID: "1", Amount: 5500, Tax: 500, Reason: "damaged"})
		require.NoError(t, err)
		assert.Equal(t, "Refund for sale #S-1: damaged", refund.Description)
		assert.Equal(t, "1", refund.Reference)
		assert.Equal(t, int64(5500), f.balance("1000"))
		assert.Equal(t, int64(5000), f.balance("4000"))
		assert.Equal(t, int64(500), f.balance("2100"))

		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-2", SaleID: "1", Amount: 6000})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "amount"}, "refunds are capped at the sale total")

		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-3", SaleID: "1", Amount: 5500, Tax: 500})
		require.NoError(t, err)
		assert.Zero(t, f.balance("1000"))
		assertReconstructs(t, f.ledger)
	})

	t.Run("OpenCreditSale", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, creditSale("2", 10000, 1000))
		require.NoError(t, err)

		refund, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-4", SaleID: "2", Amount: 2200, Tax: 200})
		require.NoError(t, err)
		assert.Equal(t, "2", refund.InvoiceID)
		assert.Equal(t, int64(8800), f.balance("1100"))
		assert.Zero(t, f.balance("1000"))

		settled, err := f.ledger.Invoices().SettledAmount(ctx, f.ledger.Invoice(invoice.KindReceivable, "2"))
		require.NoError(t, err)
		assert.Equal(t, int64(2200), settled)
		assertReconstructs(t, f.ledger)
	})

	t.Run("UnknownSale", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-5", SaleID: "ghost", Amount: 100})
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "sale", ID: "ghost"})
	})

	t.Run("TaxAboveCollected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, cashSale("3", 10000, 0))
		require.NoError(t, err)
		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-6", SaleID: "3", Amount: 1000, Tax: 100})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "tax"})
	})
}

func TestRefundsAndReversals(t *testing.T) {
	ctx := context.Background()

	t.Run("RefundAfterSaleReversed", func(t *testing.T) {
		f := newFixture(t)
		sale, err := f.engine.PostSale(ctx, cashSale("1", 10000, 1000))
		require.NoError(t, err)
		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		require.NoError(t, err)

		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-1", SaleID: "1", Amount: 11000, Tax: 1000})
		assert.ErrorIs(t, err, shared.ConflictError{Resource: "sale"})
		assert.Zero(t, f.balance("1000"))
		assert.Zero(t, f.balance("4000"))
		assert.Zero(t, f.balance("2100"))
		assertReconstructs(t, f.ledger)
	})

	t.Run("ReversalAfterRefund", func(t *testing.T) {
		f := newFixture(t)
		sale, err := f.engine.PostSale(ctx, cashSale("2", 10000, 1000))
		require.NoError(t, err)
		refund, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-2", SaleID: "2", Amount: 1100, Tax: 100})
		require.NoError(t, err)

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		assert.ErrorIs(t, err, shared.ConflictError{Resource: "journal_entry"})
		assert.Equal(t, int64(9900), f.balance("1000"))

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: refund.ID})
		require.NoError(t, err)
		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		require.NoError(t, err, "the sale can be reversed once its refunds are")
		assert.Zero(t, f.balance("1000"))
		assertReconstructs(t, f.ledger)
	})

	t.Run("ReversedRefundFreesTheSaleTotal", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, cashSale("3", 10000, 1000))
		require.NoError(t, err)
		full, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-3", SaleID: "3", Amount: 11000, Tax: 1000})
		require.NoError(t, err)
		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: full.ID})
		require.NoError(t, err)

		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-4", SaleID: "3", Amount: 5000})
		require.NoError(t, err)
		assert.Equal(t, int64(6000), f.balance("1000"))

		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-5", SaleID: "3", Amount: 6001})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "amount"}, "live refunds still count")
		assertReconstructs(t, f.ledger)
	})
}

func TestStoreCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("RefundIssuesCredit", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, cashSale("1", 10000, 1000))
		require.NoError(t, err)

		refund, err := f.engine.PostRefund(ctx, event.Refund{RefundID: "r-1", SaleID: "1", Amount: 5500, Tax: 500, StoreCredit: true})
		require.NoError(t, err)
		assert.Equal(t, "Refund for sale #S-1 (store credit)", refund.Description)
		assert.Equal(t, int64(11000), f.balance("1000"), "no cash leaves the drawer")
		assert.Equal(t, int64(5500), f.balance("2200"))
		assert.Equal(t, int64(5000), f.balance("4000"))
		assertReconstructs(t, f.ledger)
	})

	t.Run("SaleRedeemsCredit", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.PostSale(ctx, cashSale("2", 10000, 1000))
		require.NoError(t, err)
		_, err = f.engine.PostRefund(ctx, event.Refund{RefundID: "r-2", SaleID: "2", Amount: 11000, Tax: 1000, StoreCredit: true})
		require.NoError(t, err)

		sale := cashSale("3", 4000, 400)
		sale.StoreCredit = true
		entry, err := f.engine.PostSale(ctx, sale)
		require.NoError(t, err)
		assert.Equal(t, "Store credit sale #S-3", entry.Description)
		assert.Equal(t, int64(6600), f.balance("2200"))
		assert.Equal(t, int64(11000), f.balance("1000"))
		assert.Equal(t, int64(4000), f.balance("4000"))
		assertReconstructs(t, f.ledger)
	})

	t.Run("NotOnCredit", func(t *testing.T) {
		f := newFixture(t)
		sale := creditSale("4", 1000, 0)
		sale.StoreCredit = true
		_, err := f.engine.PostSale(ctx, sale)
		assert.ErrorIs(t, err, shared.ValidationError{Field: "store_credit"})
	})
}

func TestPost_IdentifierLength(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	long := strings.Repeat("x", journal.MaxIDLength+1)

	_, err := f.engine.PostSale(ctx, cashSale(long, 1000, 0))
	assert.ErrorIs(t, err, shared.ValidationError{Field: "sale_id"})

	_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: uuid.New()})
	assert.ErrorIs(t, err, shared.NotFoundError{}, "uuid sources fit")

	_, err = f.engine.PostSale(ctx, cashSale(strings.Repeat("x", journal.MaxIDLength), 1000, 0))
	require.NoError(t, err)
	assert.Len(t, f.ledger.Entries(), 1)
}

func TestReverseEntry(t *testing.T) {
	ctx := context.Background()

	t.Run("CashSale", func(t *testing.T) {
		f := newFixture(t)
		sale, err := f.engine.PostSale(ctx, cashSale("1", 10000, 1000))
		require.NoError(t, err)

		reversal, err := f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID, Reason: "keyed twice"})
		require.NoError(t, err)
		assert.Equal(t, journal.Source{Type: shared.SourceTypeReversal, ID: sale.ID.String()}, reversal.Source)
		assert.Equal(t, "Reversal of entry #1: Cash sale #S-1 (keyed twice)", reversal.Description)
		for i, line := range reversal.Lines {
			assert.Equal(t, sale.Lines[i].Type.Opposite(), line.Type)
			assert.Equal(t, sale.Lines[i].Amount, line.Amount)
		}
		assert.Zero(t, f.balance("1000"))
		assert.Zero(t, f.balance("4000"))
		assert.Zero(t, f.balance("2100"))

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		assert.ErrorIs(t, err, shared.DuplicatePostingError{}, "an entry is reversed once")

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: reversal.ID})
		assert.ErrorIs(t, err, shared.ConflictError{Resource: "journal_entry"})
		assertReconstructs(t, f.ledger)
	})

	t.Run("SettledInvoice", func(t *testing.T) {
		f := newFixture(t)
		sale, err := f.engine.PostSale(ctx, creditSale("2", 5000, 0))
		require.NoError(t, err)
		payment, err := f.engine.PostPayment(ctx, event.Payment{PaymentID: "p-2", InvoiceID: "2", Amount: 1000})
		require.NoError(t, err)

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		assert.ErrorIs(t, err, shared.ConflictError{})

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: payment.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), f.balance("1100"))

		_, err = f.engine.ReverseEntry(ctx, Reversal{EntryID: sale.ID})
		require.NoError(t, err, "the sale can be reversed once its payment is")
		assert.Zero(t, f.balance("1100"))

		settled, err := f.ledger.Invoices().SettledAmount(ctx, f.ledger.Invoice(invoice.KindReceivable, "2"))
		require.NoError(t, err)
		assert.Equal(t, int64(5000), settled, "the reversal closes the invoice")
		assertReconstructs(t, f.ledger)
	})

	t.Run("UnknownEntry", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.ReverseEntry(ctx, Reversal{EntryID: uuid.New()})
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: "journal_entry"})

		_, err = f.engine.ReverseEntry(ctx, Reversal{})
		assert.ErrorIs(t, err, shared.ValidationError{Field: "entry_id"})
	})
}

func TestPost_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("AppendFails", func(t *testing.T) {
		f := newFixture(t)
		f.ledger.FailAppend = errors.New("connection reset")

		_, err := f.engine.PostSale(ctx, cashSale("1", 1000, 0))
		require.Error(t, err)
		assert.Empty(t, f.ledger.Entries())
		assert.Empty(t, f.ledger.Messages())
		assert.Zero(t, f.balance("1000"))
	})

	t.Run("InvoiceInsertFailsAfterBalancesMoved", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ledger.Invoices().Create(ctx, &invoice.Invoice{ID: "9", Kind: invoice.KindReceivable}))

		_, err := f.engine.PostSale(ctx, creditSale("9", 1000, 100))
		assert.ErrorIs(t, err, shared.ConflictError{Resource: "invoice"})
		assert.Empty(t, f.ledger.Entries())
		assert.Zero(t, f.balance("1100"))
		assert.Zero(t, f.balance("4000"))
		assert.Empty(t, f.ledger.Messages())
	})
}

func TestPost_Dispatch(t *testing.T) {
	f := newFixture(t)
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")

	entry, err := f.engine.Post(ctx, cashSale("1", 1000, 0))
	require.NoError(t, err)
	assert.Equal(t, "corr-9", entry.CorrelationID)

	posted, err := f.ledger.Messages()[0].PostedEntry()
	require.NoError(t, err)
	assert.Equal(t, "corr-9", posted.CorrelationID)
	assert.Equal(t, int64(1000), posted.Amount)

	_, err = f.engine.Post(ctx, nil)
	assert.ErrorIs(t, err, event.ErrUnsupportedType)
}

func TestPost_ConcurrentSalesSerialize(t *testing.T) {
	f := newFixture(t)
	const sales = 20

	var wg sync.WaitGroup
	for i := range sales {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.PostSale(context.Background(), cashSale(fmt.Sprint(i), 1000, 100))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries := f.ledger.Entries()
	require.Len(t, entries, sales)
	for i, entry := range entries {
		assert.Equal(t, int64(i+1), entry.Sequence)
	}
	assert.Equal(t, int64(sales*1100), f.balance("1000"))
	assertReconstructs(t, f.ledger)
}
