// Package price converts vendor price encodings into a canonical USD amount
// with two fractional digits.
package price

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every normalized amount carries.
const Places = 2

// Currency is the single currency all normalized amounts are expressed in.
const Currency = "USD"

var hundred = decimal.NewFromInt(100)

// MalformedPriceError reports a vendor price that could not be parsed as a
// non-negative number.
type MalformedPriceError struct {
	Raw    string
	Reason string
}

func (e *MalformedPriceError) Error() string {
	return fmt.Sprintf("malformed price %q: %s", e.Raw, e.Reason)
}

// FromMinorUnits converts a count of cents into a currency amount.
func FromMinorUnits(cents int64) (decimal.Decimal, error) {
	if cents < 0 {
		return decimal.Zero, &MalformedPriceError{Raw: fmt.Sprintf("%d", cents), Reason: "negative amount"}
	}
	return decimal.NewFromInt(cents).Div(hundred).Round(Places), nil
}

// ParseMinorUnits parses a numeric string holding a count of cents, e.g. "250".
// Fractional cents are accepted and rounded away.
func ParseMinorUnits(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "not a number"}
	}
	if d.IsNegative() {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "negative amount"}
	}
	return d.Div(hundred).Round(Places), nil
}

var (
	plainAmount   = regexp.MustCompile(`^\d+(\.\d+)?$`)
	groupedAmount = regexp.MustCompile(`^\d{1,3}(,\d{3})*(\.\d+)?$`)
)

// ParseFormatted parses a display price such as "$12,345.67" or "0.03 USD".
// Only a leading or trailing currency symbol, code or padding is dropped; the
// rest must be a plain or comma-grouped decimal.
func ParseFormatted(raw string) (decimal.Decimal, error) {
	s := strings.TrimFunc(raw, isCurrencyPadding)
	if s == "" {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "no digits"}
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "negative amount"}
	}
	if !plainAmount.MatchString(s) && !groupedAmount.MatchString(s) {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "not a number"}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, &MalformedPriceError{Raw: raw, Reason: "not a number"}
	}
	return d.Round(Places), nil
}

func isCurrencyPadding(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsLetter(r) || unicode.Is(unicode.Sc, r)
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string { return d.StringFixed(Places) }
