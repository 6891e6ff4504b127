package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TruncateDecimal drops fractional digits beyond places without rounding.
// Example: 1.123456789 with places=6 => 1.123456
func TruncateDecimal(d decimal.Decimal, places int) decimal.Decimal {
	if places < 0 {
		places = 0
	}
	return d.Truncate(int32(places))
}

// FractionDigits counts the digits after the decimal point of d's shortest representation.
func FractionDigits(d decimal.Decimal) int {
	s := d.String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// ParseDecimalLoose parses s as a decimal, treating empty or blank input as zero.
// ok is false only when s is non-blank and not a number.
func ParseDecimalLoose(s string) (d decimal.Decimal, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// TruncateNumericString cuts the fractional part of a user-typed numeric string to places
// digits, leaving everything else (including a trailing dot while typing) untouched.
func TruncateNumericString(s string, places int) string {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return s
	}
	if places <= 0 {
		return s[:i]
	}
	if len(s)-i-1 <= places {
		return s
	}
	return s[:i+1+places]
}
