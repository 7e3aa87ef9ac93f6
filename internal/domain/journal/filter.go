package journal

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront-ledger/internal/domain/shared"
)

// SortOrder controls the direction entries are returned in
type SortOrder string

const (
	NewestFirst SortOrder = "desc" // display order
	OldestFirst SortOrder = "asc"  // replay order
)

// DateRange is half-open: From inclusive, To exclusive. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// StartOfDay truncates t to midnight UTC
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInclusive covers whole calendar days from start through end, in UTC
func DaysInclusive(start, end time.Time) DateRange {
	return DateRange{From: StartOfDay(start), To: StartOfDay(end).AddDate(0, 0, 1)}
}

// Through covers everything up to and including the calendar day of asOf
func Through(asOf time.Time) DateRange {
	return DateRange{To: StartOfDay(asOf).AddDate(0, 0, 1)}
}

// Filter narrows journal queries
type Filter struct {
	Range      DateRange
	AccountID  uuid.UUID // uuid.Nil means any account
	SourceType shared.SourceType
	Text       string // Case-insensitive match on description, reference or source id
	Order      SortOrder
	Limit      int
	Offset     int
}

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// Normalize fills defaults and clamps paging
func (f Filter) Normalize() Filter {
	if f.Order != OldestFirst {
		f.Order = NewestFirst
	}
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
