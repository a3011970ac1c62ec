// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer hundredths (Money.Cents) so sums computed by
// the store are exact; shopspring/decimal is used at the edges for parsing,
// rounding and rendering.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Money is a currency-agnostic amount with two decimal places.
type Money struct {
	Cents int64
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.346") -> 1235, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			// signs and exponents are rejected here
			return 0, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// Prevents overflow once amounts are summed by the store.
const maxCents = (1<<63 - 1) / 1000

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents > maxCents {
		return ErrInvalidAmount
	}
	return nil
}

// Decimal returns the exact decimal value of m.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns m as a float64 for display purposes.
// Note: Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// String renders m with the grouped format used by FormatNumber.
func (m Money) String() string {
	return formatDecimal(m.Decimal())
}

// MarshalJSON writes m as a plain JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().StringFixed(2)), nil
}
