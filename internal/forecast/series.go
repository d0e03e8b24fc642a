package forecast

import (
	"fmt"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
)

// Series is a monthly series with one value per consecutive month.
type Series struct {
	Months []string  `json:"months"`
	Values []float64 `json:"values"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Values) }

// Point is one forecast month with its 95% interval.
type Point struct {
	Month string  `json:"month"`
	Mean  float64 `json:"mean"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// MonthlyBalance sums amounts per calendar month, fills months without
// transactions with zero and accumulates the result into a running balance.
func MonthlyBalance(txs []domain.Transaction) Series {
	if len(txs) == 0 {
		return Series{}
	}

	sums := make(map[string]float64)
	first, last := monthStart(txs[0].Date), monthStart(txs[0].Date)
	for _, tx := range txs {
		m := monthStart(tx.Date)
		if m.Before(first) {
			first = m
		}
		if m.After(last) {
			last = m
		}
		sums[m.Format(domain.MonthLayout)] += tx.Amount
	}

	var s Series
	balance := 0.0
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		label := m.Format(domain.MonthLayout)
		balance += sums[label]
		s.Months = append(s.Months, label)
		s.Values = append(s.Values, balance)
	}
	return s
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// nextMonths labels the steps months after the series end.
func nextMonths(s Series, steps int) ([]string, error) {
	out := make([]string, steps)
	if len(s.Months) == 0 {
		for i := range out {
			out[i] = fmt.Sprintf("+%d", i+1)
		}
		return out, nil
	}

	last, err := time.Parse(domain.MonthLayout, s.Months[len(s.Months)-1])
	if err != nil {
		return nil, fmt.Errorf("nextMonths: bad month label: %w", err)
	}
	for i := range out {
		out[i] = last.AddDate(0, i+1, 0).Format(domain.MonthLayout)
	}
	return out, nil
}
