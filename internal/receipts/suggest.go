package receipts

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/dvloznov/smartspend/internal/domain"
)

const (
	amountWeight = 0.6
	nameWeight   = 0.4

	// DefaultSuggestions is the number of candidates returned when no
	// limit is given.
	DefaultSuggestions = 5
)

// Match is a candidate transaction for a receipt.
type Match struct {
	Transaction domain.Transaction `json:"transaction"`
	Score       float64            `json:"score"`
	AmountDelta float64            `json:"amount_delta"`
	NameScore   float64            `json:"name_score"`
}

// Suggest ranks the user's expenses by how well they fit the receipt: how
// close the amount is to the receipt total and how similar the description
// is to the merchant line.
func Suggest(text string, txs []domain.Transaction, limit int) []Match {
	if limit <= 0 {
		limit = DefaultSuggestions
	}
	total := Total(text, ParseItems(text)).InexactFloat64()
	merchant := normalizeName(Merchant(text))

	var matches []Match
	for _, tx := range txs {
		if !tx.IsExpense() {
			continue
		}
		spend := math.Abs(tx.Amount)
		delta := spend - total

		amountScore := 0.0
		if total > 0 {
			amountScore = 1 - math.Min(1, math.Abs(delta)/total)
		}
		nameScore := similarity(merchant, normalizeName(tx.Description))

		matches = append(matches, Match{
			Transaction: tx,
			Score:       amountWeight*amountScore + nameWeight*nameScore,
			AmountDelta: delta,
			NameScore:   nameScore,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Transaction.Date.After(matches[j].Transaction.Date)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// similarity is 1 minus the edit distance scaled by the longer string.
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
