// Package receipts extracts line items from receipt text and links
// receipts to the transactions they most likely belong to.
package receipts

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// MaxItems caps the number of line items kept per receipt.
	MaxItems = 25

	maxNameRunes = 60
	minNameRunes = 2
	nameCutset   = " -:."
)

var priceRe = regexp.MustCompile(`\d+\.\d{2}`)

// ParseItems reads one item per line that carries a price. The last price
// on the line is the item total and the rest of the line is its name.
func ParseItems(text string) []domain.ReceiptItem {
	var items []domain.ReceiptItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		prices := priceRe.FindAllString(line, -1)
		if len(prices) == 0 {
			continue
		}
		total, err := decimal.NewFromString(prices[len(prices)-1])
		if err != nil {
			continue
		}

		name := strings.Trim(priceRe.ReplaceAllString(line, ""), nameCutset)
		if utf8.RuneCountInString(name) < minNameRunes {
			continue
		}
		if utf8.RuneCountInString(name) > maxNameRunes {
			name = string([]rune(name)[:maxNameRunes])
		}

		items = append(items, domain.ReceiptItem{
			Name:      name,
			Qty:       decimal.NewFromInt(1),
			UnitPrice: total,
			Total:     total,
		})
		if len(items) == MaxItems {
			break
		}
	}
	return items
}

// Merchant guesses the store name as the first line without a price.
func Merchant(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !priceRe.MatchString(line) {
			return line
		}
	}
	return ""
}

// Total returns the amount on the last line mentioning "total", or the sum
// of the parsed items when no such line exists.
func Total(text string, items []domain.ReceiptItem) decimal.Decimal {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.ToLower(lines[i])
		if !strings.Contains(line, "total") || strings.Contains(line, "subtotal") {
			continue
		}
		prices := priceRe.FindAllString(line, -1)
		if len(prices) == 0 {
			continue
		}
		if v, err := decimal.NewFromString(prices[len(prices)-1]); err == nil {
			return v
		}
	}

	sum := decimal.Zero
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), "total") {
			continue
		}
		sum = sum.Add(it.Total)
	}
	return sum
}
