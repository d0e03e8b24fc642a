package normalize

import "strings"

// Semantic fields resolved from arbitrary bank headers.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
)

// Aliases lists, per field, the known header spellings in priority order.
var Aliases = map[string][]string{
	FieldDate: {
		"date", "transaction date", "posted date",
		"posting date", "value date", "transaction_datetime",
	},
	FieldDescription: {
		"description", "details", "narrative",
		"reference", "merchant", "name", "memo",
	},
	FieldAmount: {
		"amount", "transaction amount",
		"value", "amount (£)", "amount (gbp)",
	},
	FieldDebit:  {"debit", "money out", "moneyout", "withdrawal", "paid out"},
	FieldCredit: {"credit", "money in", "moneyin", "deposit", "paid in"},
}

// resolution order matters: earlier fields claim columns first.
var fieldOrder = []string{FieldDate, FieldDescription, FieldAmount, FieldDebit, FieldCredit}

// CleanHeader lowercases and trims a header and drops any byte-order mark.
func CleanHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(h, "\ufeff", "")))
}

// columnMap holds the resolved column index per field, -1 when absent.
type columnMap map[string]int

func (m columnMap) has(field string) bool {
	return m[field] >= 0
}

// resolveColumns maps cleaned headers to semantic fields.
func resolveColumns(header []string) columnMap {
	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = CleanHeader(h)
	}

	claimed := make(map[int]bool)
	out := make(columnMap, len(fieldOrder))
	for _, field := range fieldOrder {
		idx := findColumn(cleaned, Aliases[field], claimed)
		out[field] = idx
		if idx >= 0 {
			claimed[idx] = true
		}
	}
	return out
}

// findColumn returns the column for the first alias with an exact match,
// falling back to the first alias contained in a column name.
func findColumn(columns, aliases []string, claimed map[int]bool) int {
	for _, alias := range aliases {
		for i, col := range columns {
			if !claimed[i] && col == alias {
				return i
			}
		}
	}
	for _, alias := range aliases {
		for i, col := range columns {
			if !claimed[i] && col != "" && strings.Contains(col, alias) {
				return i
			}
		}
	}
	return -1
}
