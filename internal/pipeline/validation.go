package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dvloznov/smartspend/internal/categorise"
)

// CategoryValidator validates transaction categories against the taxonomy.
type CategoryValidator struct {
	categories map[string]bool // normalized category names
}

// NewCategoryValidator creates a validator from a taxonomy. Income and
// Other are always valid.
func NewCategoryValidator(t categorise.Taxonomy) *CategoryValidator {
	v := &CategoryValidator{categories: make(map[string]bool)}
	for _, name := range t.Categories() {
		v.categories[normalizeCategory(name)] = true
	}
	return v
}

// ValidateCategory returns nil if the category is known.
func (v *CategoryValidator) ValidateCategory(category string) error {
	norm := normalizeCategory(category)
	if norm == "" {
		return fmt.Errorf("empty category")
	}
	if !v.categories[norm] {
		valid := make([]string, 0, len(v.categories))
		for c := range v.categories {
			valid = append(valid, c)
		}
		sort.Strings(valid)
		return fmt.Errorf("invalid category: %q (normalized: %q). Valid categories: %v", category, norm, valid)
	}
	return nil
}

// normalizeCategory normalizes a category name for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
