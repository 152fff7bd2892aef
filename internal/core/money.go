package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountDigits bounds the integer part of an amount.
const MaxAmountDigits = 15

var maxAmount = decimal.New(1, MaxAmountDigits)

// ParseAmount converts a user-typed amount to a positive decimal rounded to cents.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The
// third decimal rounds half-up. Signs, exponents, thousands separators and
// amounts that round to zero or reach 10^15 are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0.004")  -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	v = v.Round(2)
	if !v.IsPositive() || v.GreaterThanOrEqual(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return v, nil
}
