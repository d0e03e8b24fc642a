// Package store defines the persistence contracts shared by the SQLite,
// Postgres and BigQuery backends.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/smartspend/internal/domain"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("store: not found")

// MaxErrorMessageLen bounds the error text kept on a failed import run.
const MaxErrorMessageLen = 2000

// TransactionStore persists canonical transactions per user.
type TransactionStore interface {
	// WriteTransactions inserts txs for userID. With replace set, every
	// existing row of the user is deleted first, in the same database
	// transaction. It returns the number of rows written.
	WriteTransactions(ctx context.Context, userID string, txs []domain.Transaction, replace bool) (int, error)

	// LoadTransactions returns the user's rows ordered by date, then id.
	LoadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
}

// TransactionGetter is implemented by stores that can fetch a single row.
type TransactionGetter interface {
	GetTransaction(ctx context.Context, userID string, id int64) (domain.Transaction, error)
}

// ReceiptStore persists receipts and their line items.
type ReceiptStore interface {
	// InsertReceipt stores r and its items atomically and returns the new id.
	InsertReceipt(ctx context.Context, r *domain.Receipt) (int64, error)

	// ReceiptsForTransaction lists receipts for a transaction, newest first.
	ReceiptsForTransaction(ctx context.Context, userID string, transactionID int64) ([]domain.Receipt, error)

	// ReceiptItems lists the items of one receipt in insertion order.
	ReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.ReceiptItem, error)
}

// ImportRunStore records the lifecycle of CSV imports.
type ImportRunStore interface {
	StartImportRun(ctx context.Context, userID, source string) (string, error)
	MarkImportRunSucceeded(ctx context.Context, runID string, imported, dropped int) error
	MarkImportRunFailed(ctx context.Context, runID string, runErr error) error
	ListImportRuns(ctx context.Context, userID string, limit int) ([]domain.ImportRun, error)
}

// Store is the full primary store used by the service.
type Store interface {
	TransactionStore
	TransactionGetter
	ReceiptStore
	ImportRunStore
	Close() error
}

// TruncateError renders err for storage, capped at MaxErrorMessageLen bytes.
func TruncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > MaxErrorMessageLen {
		msg = msg[:MaxErrorMessageLen]
	}
	return msg
}
