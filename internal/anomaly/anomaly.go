// Package anomaly flags unusual transactions with an isolation forest over
// amount magnitude and day of month.
package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"github.com/dvloznov/smartspend/internal/domain"
)

const (
	DefaultTrees         = 200
	DefaultContamination = 0.05
	DefaultSeed          = 42

	// MaxSamples caps the per-tree subsample.
	MaxSamples = 256

	// MinSamples is the smallest set the detector will score. Below it the
	// contamination share rounds to zero rows.
	MinSamples = 20
)

// Detector holds the forest parameters. A fresh forest is fitted on every
// Detect call, so results never leak between users.
type Detector struct {
	Trees         int
	Contamination float64
	Seed          int64
}

// New returns a Detector with the default parameters.
func New() *Detector {
	return &Detector{
		Trees:         DefaultTrees,
		Contamination: DefaultContamination,
		Seed:          DefaultSeed,
	}
}

// Features maps a transaction to (|amount|, day of month).
func Features(tx domain.Transaction) []float64 {
	return []float64{math.Abs(tx.Amount), float64(tx.Date.Day())}
}

// Detect returns one flag per transaction, in input order. Identical input
// always yields identical flags.
func (d *Detector) Detect(txs []domain.Transaction) []bool {
	flags := make([]bool, len(txs))
	if len(txs) < MinSamples {
		return flags
	}

	x := make([][]float64, len(txs))
	for i, tx := range txs {
		x[i] = Features(tx)
	}
	if allIdentical(x) {
		return flags
	}

	trees := d.Trees
	if trees <= 0 {
		trees = DefaultTrees
	}
	contamination := d.Contamination
	if contamination <= 0 || contamination >= 0.5 {
		contamination = DefaultContamination
	}

	rng := rand.New(rand.NewSource(d.Seed))
	f := fitForest(x, trees, rng)

	// Negated so that lower means more anomalous.
	scores := make([]float64, len(x))
	for i, p := range x {
		scores[i] = -f.score(p)
	}
	threshold := percentile(scores, contamination*100)

	for i, s := range scores {
		flags[i] = s < threshold
	}
	return flags
}

// Flagged returns the transactions whose flag is set.
func Flagged(txs []domain.Transaction, flags []bool) []domain.Transaction {
	var out []domain.Transaction
	for i, tx := range txs {
		if i < len(flags) && flags[i] {
			out = append(out, tx)
		}
	}
	return out
}

func allIdentical(x [][]float64) bool {
	for _, row := range x[1:] {
		for d := range row {
			if row[d] != x[0][d] {
				return false
			}
		}
	}
	return true
}

// percentile uses linear interpolation between closest ranks.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	pos := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
