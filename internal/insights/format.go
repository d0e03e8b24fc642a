package insights

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	merchantHintRunes = 45
	fallbackHint      = "this transaction"
)

// Money renders x as pounds with thousands separators, e.g. £1,234.56.
func Money(x float64) string {
	s := decimal.NewFromFloat(x).StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "£" + sign + b.String() + "." + frac
}

// MerchantHint shortens a raw description into a short label for messages.
func MerchantHint(desc string) string {
	d := strings.TrimSpace(desc)
	if d == "" {
		return fallbackHint
	}
	short := strings.ReplaceAll(d, ",", " ")
	short = strings.TrimSpace(strings.ReplaceAll(short, "  ", " "))
	if utf8.RuneCountInString(short) <= merchantHintRunes {
		return short
	}
	return string([]rune(short)[:merchantHintRunes]) + "…"
}
