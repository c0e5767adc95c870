// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals for their whole life inside the module and are
// converted to float64 only when handed to a presentation layer.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the precision of amounts handed to templates and JSON.
const DisplayPlaces = 2

// ParseAmount converts user input to a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// zero and anything decimal.NewFromString rejects are invalid.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("0")      -> error
//	ParseAmount("1.2.3")  -> error
//	ParseAmount("1.005")  -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := checkPrecision(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// MaxStoredPlaces is the scale every store keeps amounts at.
const MaxStoredPlaces = 2

// checkPrecision rejects amounts a NUMERIC(14,2) column would round.
func checkPrecision(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MaxStoredPlaces)) {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, MaxStoredPlaces)
	}
	return nil
}

// DisplayValue rounds d to display precision and returns it as float64.
// Use it only at the presentation boundary.
func DisplayValue(d decimal.Decimal) float64 {
	return d.Round(DisplayPlaces).InexactFloat64()
}

// FormatAmount renders d with exactly two decimals, e.g. "1234.50".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(DisplayPlaces)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
