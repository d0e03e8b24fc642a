// Package insights turns anomaly flags and monthly trends into short,
// ranked explanations.
package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
)

// Kind is the severity of an insight.
type Kind string

const (
	Alert      Kind = "alert"
	Positive   Kind = "positive"
	Suggestion Kind = "suggestion"
)

func (k Kind) rank() int {
	switch k {
	case Alert:
		return 0
	case Positive:
		return 1
	case Suggestion:
		return 2
	}
	return 9
}

// Insight is one card shown to the user.
type Insight struct {
	Type    Kind   `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

const (
	MaxInsights       = 6
	MaxExplainedRows  = 6
	incomeWindow      = 8
	incomeMinHistory  = 3
	incomeNearPct     = 0.06
	incomeHighRatio   = 1.35
	incomeLowRatio    = 0.70
	categoryWindow    = 12
	categoryMinCount  = 4
	overallWindow     = 20
	expenseNearPct    = 0.08
	largeRatio        = 2.5
	largeMinSpend     = 25.0
	higherRatio       = 1.8
	higherMinSpend    = 15.0
	monthDecreasePct  = -0.10
	monthIncreasePct  = 0.15
	topCategoriesText = "Your biggest categories drive most of your month-to-month budget changes."
)

// Explain builds the insight list for one user's full transaction set and
// the matching anomaly flags. The result holds at most MaxInsights entries,
// alerts first.
func Explain(txs []domain.Transaction, flags []bool) []Insight {
	history := byDate(txs)

	var out []Insight
	for _, tx := range explainedRows(txs, flags) {
		if ins, ok := explainTransaction(tx, history); ok {
			out = append(out, ins)
		}
	}
	if ins, ok := monthOverMonth(txs); ok {
		out = append(out, ins)
	}
	out = append(out, Insight{
		Type:    Suggestion,
		Title:   "Keep an eye on top categories",
		Message: topCategoriesText,
	})

	return rank(out)
}

// explainedRows picks the newest flagged rows, without repeats of the same
// (date, description, amount).
func explainedRows(txs []domain.Transaction, flags []bool) []domain.Transaction {
	var flagged []domain.Transaction
	for i, tx := range txs {
		if i < len(flags) && flags[i] {
			flagged = append(flagged, tx)
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Date.After(flagged[j].Date)
	})

	type key struct {
		date   time.Time
		desc   string
		amount float64
	}
	seen := make(map[key]bool)
	var out []domain.Transaction
	for _, tx := range flagged {
		k := key{tx.Date, tx.Description, tx.Amount}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, tx)
		if len(out) == MaxExplainedRows {
			break
		}
	}
	return out
}

func byDate(txs []domain.Transaction) []domain.Transaction {
	sorted := append([]domain.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func explainTransaction(tx domain.Transaction, history []domain.Transaction) (Insight, bool) {
	label := MerchantHint(tx.Description)
	if tx.Amount > 0 {
		return explainIncome(tx.Amount, label, history)
	}
	return explainExpense(math.Abs(tx.Amount), tx.Category, label, history)
}

func explainIncome(amount float64, label string, history []domain.Transaction) (Insight, bool) {
	var incomes []float64
	for _, h := range history {
		if h.Amount > 0 {
			incomes = append(incomes, h.Amount)
		}
	}

	baseline, ok := recentBaseline(incomes, incomeWindow)
	if !ok || len(incomes) < incomeMinHistory {
		return Insight{
			Type:    Positive,
			Title:   "Income received",
			Message: fmt.Sprintf("You received %s (%s). Logged as income for your timeline.", Money(amount), label),
		}, true
	}

	switch {
	case nearEqual(amount, baseline, incomeNearPct):
		return Insight{}, false
	case amount >= baseline*incomeHighRatio:
		return Insight{
			Type:  Positive,
			Title: "Higher-than-usual income",
			Message: fmt.Sprintf("You received %s (%s), which is above your recent typical income (~%s).",
				Money(amount), label, Money(baseline)),
		}, true
	case amount <= baseline*incomeLowRatio:
		return Insight{
			Type:  Alert,
			Title: "Lower-than-usual income",
			Message: fmt.Sprintf("You received %s (%s), which is below your recent typical income (~%s).",
				Money(amount), label, Money(baseline)),
		}, true
	}
	return Insight{}, false
}

func explainExpense(spend float64, category, label string, history []domain.Transaction) (Insight, bool) {
	var sameCategory, all []float64
	for _, h := range history {
		if h.Amount >= 0 {
			continue
		}
		all = append(all, math.Abs(h.Amount))
		if h.Category == category {
			sameCategory = append(sameCategory, math.Abs(h.Amount))
		}
	}

	var (
		baseline      float64
		baselineLabel string
		found         bool
	)
	if b, ok := recentBaseline(sameCategory, categoryWindow); ok && len(sameCategory) >= categoryMinCount {
		baseline, baselineLabel, found = b, fmt.Sprintf("your typical %s spend", category), true
	} else if b, ok := recentBaseline(all, overallWindow); ok {
		baseline, baselineLabel, found = b, "your typical spend", true
	}

	if !found {
		return Insight{
			Type:    Alert,
			Title:   "Unusual expense recorded",
			Message: fmt.Sprintf("You spent %s (%s). Not enough history yet to compare against your normal spending.", Money(spend), label),
		}, true
	}

	switch {
	case nearEqual(spend, baseline, expenseNearPct):
		return Insight{}, false
	case spend >= baseline*largeRatio && spend >= largeMinSpend:
		return Insight{
			Type:  Alert,
			Title: "Unusually large expense",
			Message: fmt.Sprintf("You spent %s (%s). That’s much higher than %s (~%s).",
				Money(spend), label, baselineLabel, Money(baseline)),
		}, true
	case spend >= baseline*higherRatio && spend >= higherMinSpend:
		return Insight{
			Type:  Alert,
			Title: "Higher-than-usual spend",
			Message: fmt.Sprintf("%s (%s) is higher than %s (~%s).",
				Money(spend), label, baselineLabel, Money(baseline)),
		}, true
	}
	return Insight{}, false
}

// MonthlySpend sums absolute expenses per YYYY-MM, only for months that
// have at least one expense.
func MonthlySpend(txs []domain.Transaction) map[string]float64 {
	totals := make(map[string]float64)
	for _, tx := range txs {
		if tx.IsExpense() {
			totals[tx.Month()] += tx.Amount
		}
	}
	for m, v := range totals {
		totals[m] = math.Abs(v)
	}
	return totals
}

func monthOverMonth(txs []domain.Transaction) (Insight, bool) {
	totals := MonthlySpend(txs)
	if len(totals) < 2 {
		return Insight{}, false
	}
	months := make([]string, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Strings(months)

	last := totals[months[len(months)-1]]
	prev := totals[months[len(months)-2]]
	if prev <= 0 {
		return Insight{}, false
	}

	change := (last - prev) / prev
	pct := math.Abs(change) * 100
	switch {
	case change <= monthDecreasePct:
		return Insight{
			Type:    Positive,
			Title:   "Spending decreased this month",
			Message: fmt.Sprintf("Your spending is down %s (≈%.0f%%) compared to last month.", Money(prev-last), pct),
		}, true
	case change >= monthIncreasePct:
		return Insight{
			Type:    Alert,
			Title:   "Spending increased this month",
			Message: fmt.Sprintf("Your spending is up %s (≈%.0f%%) compared to last month.", Money(last-prev), pct),
		}, true
	}
	return Insight{}, false
}

// rank drops exact repeats, orders by severity (stable) and caps the list.
func rank(in []Insight) []Insight {
	seen := make(map[Insight]bool, len(in))
	out := make([]Insight, 0, len(in))
	for _, ins := range in {
		if seen[ins] {
			continue
		}
		seen[ins] = true
		out = append(out, ins)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type.rank() < out[j].Type.rank()
	})
	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}
