// Package money converts between integer minor units and display decimals.
// Balances and comparisons always use int64 cents; decimal values only exist
// at the parsing and formatting boundary.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrTooPrecise = errors.New("amount has more than 2 decimal places")
	ErrOutOfRange = errors.New("amount out of range")
)

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Parse converts a decimal string such as "110.00" into cents
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts d into cents, rejecting sub-cent precision
func FromDecimal(d decimal.Decimal) (int64, error) {
	if !d.Equal(d.Round(2)) {
		return 0, ErrTooPrecise
	}
	shifted := d.Shift(2)
	if shifted.GreaterThan(maxCents) || shifted.LessThan(minCents) {
		return 0, ErrOutOfRange
	}
	return shifted.IntPart(), nil
}

// ToDecimal returns the display value of cents
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Format renders cents with exactly two decimal places
func Format(cents int64) string {
	return ToDecimal(cents).StringFixed(2)
}

// Amount is an int64 cent value that travels as a decimal string in JSON
type Amount int64

// Cents returns the raw minor-unit value
func (a Amount) Cents() int64 { return int64(a) }

func (a Amount) String() string { return Format(int64(a)) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Format(int64(a)) + `"`), nil
}

// UnmarshalJSON accepts both "110.00" and 110.00
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || raw == "null" {
		*a = 0
		return nil
	}
	cents, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = Amount(cents)
	return nil
}
