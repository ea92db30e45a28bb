// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer cents. Conversion from and to decimal text
// goes through shopspring/decimal so that no value is ever rounded silently.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Cents int64
}

var maxCents = decimal.NewFromInt(1<<62 - 1)

// Cents is a shorthand constructor.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// MoneyFromDecimal converts a decimal amount to cents.
//
// Values with more than two fractional digits are rejected instead of rounded.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	scaled := d.Shift(2)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Money{}, fmt.Errorf("%w: amount %s has more than two decimal places", ErrInvalidInput, d)
	}
	if scaled.Abs().GreaterThan(maxCents) {
		return Money{}, fmt.Errorf("%w: amount %s out of range", ErrInvalidInput, d)
	}
	return Money{Cents: scaled.IntPart()}, nil
}

// ParseMoney parses a decimal string, accepting both dot and comma separators.
//
// Examples:
//
//	ParseMoney("12.34") -> 1234
//	ParseMoney("12,3")  -> 1230
//	ParseMoney("12.345") -> error
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: amount %q is not a number", ErrInvalidInput, s)
	}
	return MoneyFromDecimal(d)
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with exactly two decimals, e.g. "125.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsNegative() bool {
	return m.Cents < 0
}

// Validate requires a strictly positive amount.
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
