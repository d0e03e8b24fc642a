package domain

import (
	"time"
)

// Category names that are derived rather than keyword-matched.
const (
	CategoryIncome = "Income"
	CategoryOther  = "Other"
)

// MonthLayout formats a date as its calendar month, e.g. "2025-03".
const MonthLayout = "2006-01"

// DateLayout is the canonical date encoding used in storage and JSON.
const DateLayout = "2006-01-02"

// Transaction is one canonical, post-normalization transaction owned by a user.
// Amount is signed: positive for money in, negative for money out.
type Transaction struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
}

// Month returns the YYYY-MM month the transaction falls in.
func (t Transaction) Month() string {
	return t.Date.Format(MonthLayout)
}

// IsIncome reports whether the transaction is an inflow.
func (t Transaction) IsIncome() bool {
	return t.Amount > 0
}

// IsExpense reports whether the transaction is an outflow.
func (t Transaction) IsExpense() bool {
	return t.Amount < 0
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
