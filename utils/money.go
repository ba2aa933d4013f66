package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are rendered as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// MustAmount parses a decimal literal and panics on malformed input. Intended for constants and tests.
func MustAmount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ParseAmount parses a user supplied decimal string
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}
