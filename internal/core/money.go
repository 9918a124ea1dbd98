// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals with two fractional digits. Parsing
// accepts both dot and comma separators and rounds half-up.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of fractional digits kept on every amount.
const AmountPlaces = 2

// maxAmount mirrors a decimal(12,2) column.
var maxAmount = decimal.RequireFromString("9999999999.99")

// ParseAmount converts a decimal string to an amount with proper rounding.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,34")  -> 12.34
//	ParseAmount("12.345") -> 12.35 (half-up)
//	ParseAmount("-3")     -> error, only positive values
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, amountError("cannot be empty")
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, amountError("must be a plain positive number")
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, amountError("malformed number")
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, amountError("malformed number")
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, amountError("malformed number")
	}
	d = RoundAmount(d)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// RoundAmount rounds half-up to AmountPlaces.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// ValidateAmount requires a strictly positive amount with at most two
// fractional digits that fits a decimal(12,2) column.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return amountError("must be greater than zero")
	}
	if !d.Equal(RoundAmount(d)) {
		return amountError("at most two decimal places")
	}
	if d.GreaterThan(maxAmount) {
		return amountError("too large")
	}
	return nil
}

// FormatAmount renders an amount with exactly two decimals, e.g. "2500.75".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

func amountError(reason string) error {
	return &ValidationError{Field: "value", Reason: reason, Err: ErrInvalidAmount}
}
