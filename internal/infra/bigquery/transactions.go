package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smartspend/internal/domain"
)

// TransactionRow is one mirrored transaction in <dataset>.transactions.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	Seq           int64  `bigquery:"seq"`            // REQUIRED, position within the import batch

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	Description     string     `bigquery:"description"`      // REQUIRED
	Amount          *big.Rat   `bigquery:"amount"`           // REQUIRED NUMERIC

	Category bigquery.NullString `bigquery:"category"` // NULLABLE

	ImportedTS time.Time `bigquery:"imported_ts"` // REQUIRED
}

// NewTransactionRow converts a canonical transaction for the warehouse.
func NewTransactionRow(id, userID string, seq int64, t domain.Transaction, imported time.Time) *TransactionRow {
	row := &TransactionRow{
		TransactionID:   id,
		UserID:          userID,
		Seq:             seq,
		TransactionDate: civil.DateOf(t.Date),
		Description:     t.Description,
		Amount:          decimal.NewFromFloat(t.Amount).Rat(),
		ImportedTS:      imported.UTC(),
	}
	if t.Category != "" {
		row.Category = bigquery.NullString{StringVal: t.Category, Valid: true}
	}
	return row
}

// Transaction converts a warehouse row back to the canonical shape. The
// warehouse has no integer ids, so the caller supplies one.
func (r *TransactionRow) Transaction(id int64) domain.Transaction {
	amount := 0.0
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	category := domain.CategoryOther
	if r.Category.Valid && r.Category.StringVal != "" {
		category = r.Category.StringVal
	}
	return domain.Transaction{
		ID:          id,
		UserID:      r.UserID,
		Date:        r.TransactionDate.In(time.UTC),
		Description: r.Description,
		Amount:      amount,
		Category:    category,
	}
}
