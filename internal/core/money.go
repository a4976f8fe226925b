// Package core holds the portal's domain model: ledger transactions with a
// consistent signed-amount convention, monthly statement aggregation, and
// branch geometry. Everything here is pure; I/O lives in the adapters.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseSignedToCents converts an upstream decimal string to signed cents.
//
// The upstream API is not consistent about formats: amounts arrive as plain
// numbers, dot or comma decimals, with or without an explicit sign. A value
// that cannot be read as a number coerces to 0 so that one malformed row
// never drops or corrupts its siblings. Half-up rounding is applied on the
// third decimal place.
//
// Examples:
//
//	ParseSignedToCents("12.34")  -> 1234
//	ParseSignedToCents("-12,34") -> -1234
//	ParseSignedToCents("12.346") -> 1235
//	ParseSignedToCents("n/a")    -> 0
func ParseSignedToCents(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")

	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0
	}

	// Take first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}

	cents := iv*100 + fracCents
	if neg {
		cents = -cents
	}
	return cents
}

// Dollars returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// NegAbs returns the value forced to a negative magnitude.
func (m Money) NegAbs() Money {
	if m.Cents > 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}
