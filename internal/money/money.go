// Package money converts between user-facing amounts and integer minor units.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxAmount is the largest amount accepted from users, in minor units (999,999.00).
const MaxAmount int64 = 999_999 * 100

var hundred = decimal.NewFromInt(100)

// ParseMinorUnits parses a decimal amount such as "15.50" or "15,50" and
// returns it in minor units, rounding half-up at the second decimal place.
func ParseMinorUnits(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return toMinor(d), nil
}

// FromFloat converts a major-unit amount to minor units, rounding half-up.
func FromFloat(amount float64) int64 {
	return toMinor(decimal.NewFromFloat(amount))
}

func toMinor(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ToMajor renders minor units as a plain two-decimal string ("12.50").
func ToMajor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// Format renders minor units with thousands grouping and the currency code,
// e.g. "1,234.50 EUR".
func Format(minor int64, code string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	p := message.NewPrinter(language.English)
	return fmt.Sprintf("%s%s.%02d %s", sign, p.Sprintf("%d", minor/100), minor%100, code)
}

// NormalizeCurrency upper-cases code and reports whether it is a known ISO 4217 code.
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", false
	}
	if _, err := currency.ParseISO(code); err != nil {
		return "", false
	}
	return code, true
}
