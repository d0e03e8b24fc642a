// Package categorise assigns spending categories from description keywords
// and the sign of the amount.
package categorise

import (
	"regexp"
	"strings"

	"github.com/dvloznov/smartspend/internal/domain"
)

var (
	digitsRe = regexp.MustCompile(`\d+`)
	punctRe  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// CleanDescription lowercases text and replaces digits and punctuation
// with spaces.
func CleanDescription(text string) string {
	text = strings.ToLower(text)
	text = digitsRe.ReplaceAllString(text, " ")
	return punctRe.ReplaceAllString(text, " ")
}

// Categoriser applies a taxonomy. The zero value uses DefaultTaxonomy.
type Categoriser struct {
	taxonomy Taxonomy
}

// New returns a Categoriser for t, or for the default taxonomy when t is empty.
func New(t Taxonomy) *Categoriser {
	if len(t) == 0 {
		t = DefaultTaxonomy()
	}
	return &Categoriser{taxonomy: t}
}

// Taxonomy returns the rules in precedence order.
func (c *Categoriser) Taxonomy() Taxonomy {
	if c == nil || len(c.taxonomy) == 0 {
		return DefaultTaxonomy()
	}
	return c.taxonomy
}

// Categorise returns Income for any positive amount regardless of the
// description, otherwise the first rule whose keywords match, otherwise Other.
func (c *Categoriser) Categorise(description string, amount float64) string {
	if amount > 0 {
		return domain.CategoryIncome
	}

	cleaned := CleanDescription(description)
	if strings.TrimSpace(cleaned) == "" {
		return domain.CategoryOther
	}

	for _, rule := range c.Taxonomy() {
		if rule.Matches(cleaned) {
			return rule.Category
		}
	}
	return domain.CategoryOther
}

// Apply sets Category on every transaction in place and returns a count
// per category.
func (c *Categoriser) Apply(txs []domain.Transaction) map[string]int {
	counts := make(map[string]int)
	for i := range txs {
		txs[i].Category = c.Categorise(txs[i].Description, txs[i].Amount)
		counts[txs[i].Category]++
	}
	return counts
}
