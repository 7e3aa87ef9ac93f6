package reporting

import (
	"context"
	"time"

	"github.com/storefront-ledger/internal/domain/invoice"
	"github.com/storefront-ledger/internal/domain/journal"
	"github.com/storefront-ledger/internal/domain/money"
)

// Aging buckets, by whole days past the due date
const (
	BucketCurrent = "current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	BucketOver90  = "90+"
)

var bucketOrder = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, BucketOver90}

// BucketFor returns the bucket an invoice falls into
func BucketFor(daysPastDue int) string {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket1To30
	case daysPastDue <= 60:
		return Bucket31To60
	case daysPastDue <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// DaysPastDue counts calendar days from the due date to asOf
func DaysPastDue(due, asOf time.Time) int {
	return int(journal.StartOfDay(asOf).Sub(journal.StartOfDay(due)).Hours() / 24)
}

type AgingRow struct {
	InvoiceID    string       `json:"invoice_id"`
	Number       string       `json:"number"`
	Counterparty string       `json:"counterparty"`
	IssueDate    time.Time    `json:"issue_date"`
	DueDate      time.Time    `json:"due_date"`
	Total        money.Amount `json:"total"`
	Paid         money.Amount `json:"paid"`
	BalanceDue   money.Amount `json:"balance_due"`
	DaysPastDue  int          `json:"days_past_due"`
	Bucket       string       `json:"bucket"`
}

type BucketTotal struct {
	Bucket string       `json:"bucket"`
	Count  int          `json:"count"`
	Amount money.Amount `json:"amount"`
}

type Aging struct {
	Kind     invoice.Kind  `json:"kind"`
	AsOf     time.Time     `json:"as_of"`
	Invoices []AgingRow    `json:"invoices"`
	Buckets  []BucketTotal `json:"buckets"`
	TotalDue money.Amount  `json:"total_due"`
}

// ArAging lists receivables still open at the end of asOf's day
func (b *Builder) ArAging(ctx context.Context, asOf time.Time) (*Aging, error) {
	return b.aging(ctx, invoice.KindReceivable, asOf)
}

// ApAging lists supplier invoices still open at the end of asOf's day
func (b *Builder) ApAging(ctx context.Context, asOf time.Time) (*Aging, error) {
	return b.aging(ctx, invoice.KindPayable, asOf)
}

func (b *Builder) aging(ctx context.Context, kind invoice.Kind, asOf time.Time) (*Aging, error) {
	s, err := b.load(ctx, journal.Through(asOf), kind)
	if err != nil {
		return nil, err
	}

	report := &Aging{Kind: kind, AsOf: journal.StartOfDay(asOf)}
	buckets := make(map[string]*BucketTotal, len(bucketOrder))
	for _, name := range bucketOrder {
		report.Buckets = append(report.Buckets, BucketTotal{Bucket: name})
	}
	for i := range report.Buckets {
		buckets[report.Buckets[i].Bucket] = &report.Buckets[i]
	}

	for _, inv := range s.invoices {
		paid := inv.Settled(s.lines)
		due := inv.Total - paid
		if due <= 0 {
			continue
		}
		days := DaysPastDue(inv.DueDate, asOf)
		row := AgingRow{
			InvoiceID:    inv.ID,
			Number:       inv.Number,
			Counterparty: inv.CounterpartyName,
			IssueDate:    inv.IssueDate,
			DueDate:      inv.DueDate,
			Total:        money.Amount(inv.Total),
			Paid:         money.Amount(paid),
			BalanceDue:   money.Amount(due),
			DaysPastDue:  max(days, 0),
			Bucket:       BucketFor(days),
		}
		report.Invoices = append(report.Invoices, row)

		bucket := buckets[row.Bucket]
		bucket.Count++
		bucket.Amount += row.BalanceDue
		report.TotalDue += row.BalanceDue
	}
	return report, nil
}
