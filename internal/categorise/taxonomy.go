package categorise

import (
	"fmt"
	"os"
	"strings"

	"github.com/dvloznov/smartspend/internal/domain"
	"gopkg.in/yaml.v3"
)

// Rule pairs a category with the keyword substrings that select it.
type Rule struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Matches reports whether any keyword occurs in an already cleaned description.
func (r Rule) Matches(cleaned string) bool {
	for _, k := range r.Keywords {
		if k != "" && strings.Contains(cleaned, k) {
			return true
		}
	}
	return false
}

// Taxonomy is an ordered rule list; the first matching rule wins.
type Taxonomy []Rule

// DefaultTaxonomy returns the built-in rules. Income is not listed: it is
// derived from the amount sign alone.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Category: "Groceries", Keywords: []string{
			"tesco", "asda", "sainsbury", "aldi", "lidl",
			"supermarket", "costcutter", "food center", "food and wine",
			"pick n save",
		}},
		{Category: "Food", Keywords: []string{
			"restaurant", "cafe", "coffee", "pizza", "kebab",
			"subway", "deliveroo", "uber eats", "biryani", "chicken",
			"peri peri", "greggs", "wetherspoon", "pub", "pret", "nando",
		}},
		{Category: "Transport", Keywords: []string{
			"tfl", "train", "bus", "uber", "bolt",
			"tube", "journey", "trip", "transport",
		}},
		{Category: "Shopping", Keywords: []string{
			"amazon", "asos", "zara", "store", "retail", "laptop",
			"computer", "electronics", "currys", "pc world",
		}},
		{Category: "Subscriptions", Keywords: []string{"netflix", "spotify", "subscription"}},
		{Category: "Rent", Keywords: []string{"rent", "landlord", "housing"}},
		{Category: "Cash", Keywords: []string{"cash withdrawal", "atm"}},
	}
}

// Categories lists every category name the taxonomy can produce,
// including the derived Income and Other.
func (t Taxonomy) Categories() []string {
	out := make([]string, 0, len(t)+2)
	for _, r := range t {
		out = append(out, r.Category)
	}
	return append(out, domain.CategoryIncome, domain.CategoryOther)
}

// Validate rejects empty or keyword-less rules and any rule claiming
// the derived categories.
func (t Taxonomy) Validate() error {
	seen := make(map[string]bool, len(t))
	for i, r := range t {
		name := strings.TrimSpace(r.Category)
		switch {
		case name == "":
			return fmt.Errorf("taxonomy: rule %d has no category", i)
		case strings.EqualFold(name, domain.CategoryIncome):
			return fmt.Errorf("taxonomy: %q is derived from the amount sign and cannot have keywords", domain.CategoryIncome)
		case strings.EqualFold(name, domain.CategoryOther):
			return fmt.Errorf("taxonomy: %q is the fallback category and cannot have keywords", domain.CategoryOther)
		case len(r.Keywords) == 0:
			return fmt.Errorf("taxonomy: category %q has no keywords", name)
		case seen[strings.ToLower(name)]:
			return fmt.Errorf("taxonomy: category %q listed twice", name)
		}
		seen[strings.ToLower(name)] = true
	}
	return nil
}

type taxonomyFile struct {
	Categories []Rule `yaml:"categories"`
}

// LoadTaxonomy reads an ordered taxonomy from a YAML file of the form:
//
//	categories:
//	  - category: Groceries
//	    keywords: [tesco, aldi]
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTaxonomy: %w", err)
	}

	var f taxonomyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("LoadTaxonomy: parsing %s: %w", path, err)
	}

	t := make(Taxonomy, 0, len(f.Categories))
	for _, r := range f.Categories {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		t = append(t, Rule{Category: strings.TrimSpace(r.Category), Keywords: kws})
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
