// Package dashboard aggregates a user's transactions into the overview
// figures shown on the dashboard.
package dashboard

import (
	"sort"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/shopspring/decimal"
)

// RecentLimit is the number of transactions listed as recent activity.
const RecentLimit = 10

// MonthlyNet is income minus expenses for one month.
type MonthlyNet struct {
	Month string  `json:"month"`
	Net   float64 `json:"net"`
}

// BalancePoint is the running balance after one transaction.
type BalancePoint struct {
	Date    time.Time `json:"date"`
	Balance float64   `json:"balance"`
}

// CategorySpend is the absolute amount spent in one category.
type CategorySpend struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// Summary is the full dashboard payload.
type Summary struct {
	TotalIncome     float64              `json:"total_income"`
	TotalExpenses   float64              `json:"total_expenses"`
	NetChange       float64              `json:"net_change"`
	Monthly         []MonthlyNet         `json:"monthly"`
	RunningBalance  []BalancePoint       `json:"running_balance"`
	SpendByCategory []CategorySpend      `json:"spend_by_category"`
	Recent          []domain.Transaction `json:"recent"`
	UnusualExpenses []domain.Transaction `json:"unusual_expenses"`
	UnusualIncome   []domain.Transaction `json:"unusual_income"`
}

// Build computes the summary. flags may be nil or shorter than txs; missing
// flags count as not anomalous. Sums are accumulated as decimals so that
// totals of two-decimal amounts stay exact.
func Build(txs []domain.Transaction, flags []bool) Summary {
	type row struct {
		tx      domain.Transaction
		flagged bool
	}
	rows := make([]row, len(txs))
	for i, tx := range txs {
		rows[i] = row{tx: tx, flagged: i < len(flags) && flags[i]}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].tx.Date.Before(rows[j].tx.Date)
	})

	var (
		income, expenses, balance decimal.Decimal
		monthly                   = map[string]decimal.Decimal{}
		byCategory                = map[string]decimal.Decimal{}
		s                         Summary
	)
	for _, r := range rows {
		amt := decimal.NewFromFloat(r.tx.Amount)
		balance = balance.Add(amt)
		s.RunningBalance = append(s.RunningBalance, BalancePoint{Date: r.tx.Date, Balance: balance.InexactFloat64()})
		monthly[r.tx.Month()] = monthly[r.tx.Month()].Add(amt)

		switch {
		case r.tx.IsIncome():
			income = income.Add(amt)
			if r.flagged {
				s.UnusualIncome = append(s.UnusualIncome, r.tx)
			}
		case r.tx.IsExpense():
			expenses = expenses.Add(amt)
			byCategory[r.tx.Category] = byCategory[r.tx.Category].Add(amt)
			if r.flagged {
				s.UnusualExpenses = append(s.UnusualExpenses, r.tx)
			}
		}
	}

	s.TotalIncome = income.InexactFloat64()
	s.TotalExpenses = expenses.Abs().InexactFloat64()
	s.NetChange = income.Add(expenses).InexactFloat64()

	for m, v := range monthly {
		s.Monthly = append(s.Monthly, MonthlyNet{Month: m, Net: v.InexactFloat64()})
	}
	sort.Slice(s.Monthly, func(i, j int) bool { return s.Monthly[i].Month < s.Monthly[j].Month })

	for c, v := range byCategory {
		s.SpendByCategory = append(s.SpendByCategory, CategorySpend{Category: c, Amount: v.Abs().InexactFloat64()})
	}
	sort.Slice(s.SpendByCategory, func(i, j int) bool {
		a, b := s.SpendByCategory[i], s.SpendByCategory[j]
		if a.Amount != b.Amount {
			return a.Amount > b.Amount
		}
		return a.Category < b.Category
	})

	for i := len(rows) - 1; i >= 0 && len(s.Recent) < RecentLimit; i-- {
		s.Recent = append(s.Recent, rows[i].tx)
	}

	sort.SliceStable(s.UnusualExpenses, func(i, j int) bool {
		return s.UnusualExpenses[i].Amount < s.UnusualExpenses[j].Amount
	})
	sort.SliceStable(s.UnusualIncome, func(i, j int) bool {
		return s.UnusualIncome[i].Amount > s.UnusualIncome[j].Amount
	})
	return s
}
