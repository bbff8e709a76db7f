// Package format holds the one shared rule for rendering money and dates.
package format

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Placeholder is rendered wherever an optional field is missing.
const Placeholder = "—"

// DateLayout renders dates like "Mar 5, 2024".
const DateLayout = "Jan 2, 2006"

var printer = message.NewPrinter(language.English)

// Currency renders amount as whole US dollars with thousands grouping.
// Fractions are rounded half away from zero: 5000 → "$5,000", -250 → "-$250".
// The sign follows amount, so -0.4 renders as "-$0".
func Currency(amount decimal.Decimal) string {
	whole := amount.Abs().Round(0)
	if amount.IsNegative() {
		return "-$" + group(whole)
	}
	return "$" + group(whole)
}

// SignedCurrency is Currency with an explicit "+" for non-negative amounts.
func SignedCurrency(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return Currency(amount)
	}
	return "+" + Currency(amount)
}

// Date renders t in the "Jan 2, 2006" layout. The zero time renders as
// the placeholder.
func Date(t time.Time) string {
	if t.IsZero() {
		return Placeholder
	}
	return t.Format(DateLayout)
}

// OrPlaceholder returns *s, or Placeholder when s is nil or empty.
func OrPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}

// group formats a non-negative whole number with comma separators.
func group(whole decimal.Decimal) string {
	if whole.IsInteger() && whole.LessThan(decimal.New(1, 18)) {
		return printer.Sprintf("%d", whole.IntPart())
	}
	// Out of int64 range; group the digit string by hand.
	digits := whole.StringFixed(0)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out)
}
