// Package core provides money parsing and rounding utilities.
//
// Amounts are carried as decimal.Decimal end to end; float64 only appears at
// the JSON boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.NewFromFloat(0.5)
	hundred = decimal.NewFromInt(100)
)

// ParseAmount converts a user supplied amount to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected; the result is always strictly positive.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, NewValidationError("amount", "required")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, NewValidationError("amount", "must be positive")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", "not a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, NewValidationError("amount", "must be positive")
	}
	return d, nil
}

// RoundHalfUp rounds to the nearest integer, ties toward positive infinity
// (2.5 -> 3, -2.5 -> -2).
func RoundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}

// Percent returns part/whole*100. A non-positive whole yields zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}
