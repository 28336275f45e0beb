// Package core provides the payboard domain model.
//
// This file contains the formatting and parsing helpers for payout amounts.
// Amounts are plain float64 values; rounding to cents happens only when an
// amount is rendered for a person to read.
package core

import (
	"math"
	"strconv"
	"strings"
)

// FormatDollars renders an amount as a fixed two-decimal dollar string.
//
// Examples:
//
//	FormatDollars(20)    -> "$20.00"
//	FormatDollars(12.5)  -> "$12.50"
//	FormatDollars(-3.25) -> "-$3.25"
func FormatDollars(v float64) string {
	if v < 0 {
		return "-$" + strconv.FormatFloat(-v, 'f', 2, 64)
	}
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatNumber renders a value with the shortest decimal representation,
// e.g. 20 -> "20" and 12.5 -> "12.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseAmount parses a non-negative amount, accepting an optional leading
// dollar sign ("$12.50", "12.5", " 7 ").
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0, ErrInvalidRate
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidRate
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidRate
	}
	return v, nil
}
