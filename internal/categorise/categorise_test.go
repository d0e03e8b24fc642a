package categorise

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorise_PositiveAmountIsAlwaysIncome(t *testing.T) {
	c := New(nil)
	for _, desc := range []string{"TESCO REFUND", "Netflix", "rent from lodger", "", "ATM"} {
		assert.Equal(t, domain.CategoryIncome, c.Categorise(desc, 0.01), desc)
	}
}

func TestCategorise_KeywordMatch(t *testing.T) {
	c := New(nil)
	tests := []struct {
		desc string
		want string
	}{
		{"TESCO STORES 3345", "Groceries"},
		{"Sainsbury's S/mkt", "Groceries"},
		{"PRET A MANGER LONDON", "Food"},
		{"UBER *EATS 12345", "Transport"},
		{"Uber-Eats order", "Food"},
		{"TFL TRAVEL CH", "Transport"},
		{"AMAZON.CO.UK*AB12", "Shopping"},
		{"NETFLIX.COM", "Subscriptions"},
		{"Monthly rent - flat 2", "Rent"},
		{"CASH WITHDRAWAL 01APR", "Cash"},
		{"LINK ATM", "Cash"},
		{"HMRC VAT", "Other"},
		{"", "Other"},
		{"12345 !!!", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorise(tt.desc, -10))
		})
	}
}

func TestCategorise_ZeroAmountUsesKeywords(t *testing.T) {
	assert.Equal(t, "Groceries", New(nil).Categorise("aldi", 0))
}

func TestCategorise_FirstRuleWins(t *testing.T) {
	// "coffee" is Food, "store" is Shopping; Food is declared first.
	assert.Equal(t, "Food", New(nil).Categorise("coffee store", -3))

	custom := Taxonomy{
		{Category: "Shopping", Keywords: []string{"store"}},
		{Category: "Food", Keywords: []string{"coffee"}},
	}
	assert.Equal(t, "Shopping", New(custom).Categorise("coffee store", -3))
}

func TestCategorise_IncomeKeywordsIgnoredForExpenses(t *testing.T) {
	assert.Equal(t, domain.CategoryOther, New(nil).Categorise("SALARY ADJUSTMENT", -100))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "uber  eats ", CleanDescription("UBER *EATS 12345"))
	assert.Equal(t, "café   ", CleanDescription("Café 9!"))
}

func TestApply(t *testing.T) {
	txs := []domain.Transaction{
		{Date: time.Now(), Description: "tesco", Amount: -5},
		{Date: time.Now(), Description: "tesco", Amount: 5},
		{Date: time.Now(), Description: "unknown", Amount: -1},
	}
	counts := New(nil).Apply(txs)

	assert.Equal(t, "Groceries", txs[0].Category)
	assert.Equal(t, domain.CategoryIncome, txs[1].Category)
	assert.Equal(t, domain.CategoryOther, txs[2].Category)
	assert.Equal(t, map[string]int{"Groceries": 1, "Income": 1, "Other": 1}, counts)
}

func TestTaxonomy_Categories(t *testing.T) {
	cats := DefaultTaxonomy().Categories()
	assert.Equal(t, "Groceries", cats[0])
	assert.Contains(t, cats, domain.CategoryIncome)
	assert.Contains(t, cats, domain.CategoryOther)
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
categories:
  - category: Pets
    keywords: [" PETS AT HOME ", vet]
  - category: Groceries
    keywords: [tesco]
`), 0o600))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, tax, 2)
	assert.Equal(t, []string{"pets at home", "vet"}, tax[0].Keywords)
	assert.Equal(t, "Pets", New(tax).Categorise("Pets at Home Ltd", -20))
}

func TestLoadTaxonomy_Invalid(t *testing.T) {
	tests := map[string]string{
		"income rule":  "categories:\n  - category: Income\n    keywords: [salary]\n",
		"no keywords":  "categories:\n  - category: Pets\n",
		"duplicate":    "categories:\n  - category: A\n    keywords: [a]\n  - category: a\n    keywords: [b]\n",
		"broken yaml":  "categories: [",
		"other rule":   "categories:\n  - category: other\n    keywords: [x]\n",
		"missing name": "categories:\n  - keywords: [x]\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "taxonomy.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := LoadTaxonomy(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadTaxonomy_MissingFile(t *testing.T) {
	_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
