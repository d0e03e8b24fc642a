package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "smartspend.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func date(s string) time.Time {
	d, _ := time.Parse(domain.DateLayout, s)
	return d
}

func batch() []domain.Transaction {
	return []domain.Transaction{
		{Date: date("2025-03-02"), Description: "TESCO", Amount: -12.34, Category: "Groceries"},
		{Date: date("2025-03-01"), Description: "SALARY", Amount: 2500, Category: domain.CategoryIncome},
		{Date: date("2025-03-02"), Description: "TFL", Amount: -2.8, Category: "Transport"},
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestWriteLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	n, err := s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by date, then insertion id.
	assert.Equal(t, "SALARY", got[0].Description)
	assert.Equal(t, "TESCO", got[1].Description)
	assert.Equal(t, "TFL", got[2].Description)
	assert.Less(t, got[1].ID, got[2].ID)

	assert.Equal(t, -12.34, got[1].Amount)
	assert.Equal(t, "Groceries", got[1].Category)
	assert.Equal(t, "alice", got[1].UserID)
	assert.True(t, got[1].Date.Equal(date("2025-03-02")))
}

func TestWrite_ReplaceAndAppend(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	_, err := s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	_, err = s.WriteTransactions(ctx, "bob", batch()[:1], true)
	require.NoError(t, err)

	_, err = s.WriteTransactions(ctx, "alice", batch()[:2], false)
	require.NoError(t, err)
	got, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 5)

	_, err = s.WriteTransactions(ctx, "alice", batch()[:1], true)
	require.NoError(t, err)
	got, err = s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	other, err := s.LoadTransactions(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, other, 1, "replace must only touch the caller's rows")
}

func TestWrite_EmptyCategoryDefaultsToOther(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	_, err := s.WriteTransactions(ctx, "alice", []domain.Transaction{{Date: date("2025-01-01"), Amount: -1}}, false)
	require.NoError(t, err)
	got, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryOther, got[0].Category)
}

func TestGetTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	_, err := s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	all, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)

	got, err := s.GetTransaction(ctx, "alice", all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0], got)

	_, err = s.GetTransaction(ctx, "bob", all[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReceipts(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	_, err := s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	txs, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	txID := txs[1].ID

	first := &domain.Receipt{
		UserID:        "alice",
		TransactionID: txID,
		Filename:      "a.jpg",
		OCRText:       "Milk 1.45",
		CreatedAt:     time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC),
		Items: []domain.ReceiptItem{
			{Name: "Milk", Qty: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1.45"), Total: decimal.RequireFromString("1.45")},
			{Name: "Bread", Qty: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("0.95"), Total: decimal.RequireFromString("0.95")},
		},
	}
	id, err := s.InsertReceipt(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)
	assert.NotZero(t, first.Items[0].ID)

	second := &domain.Receipt{UserID: "alice", TransactionID: txID, Filename: "b.jpg", CreatedAt: first.CreatedAt.Add(time.Hour)}
	_, err = s.InsertReceipt(ctx, second)
	require.NoError(t, err)

	list, err := s.ReceiptsForTransaction(ctx, "alice", txID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.jpg", list[0].Filename)
	assert.Equal(t, "a.jpg", list[1].Filename)
	assert.True(t, list[1].CreatedAt.Equal(first.CreatedAt))

	items, err := s.ReceiptItems(ctx, "alice", first.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Milk", items[0].Name)
	assert.True(t, items[0].Total.Equal(decimal.RequireFromString("1.45")))
	assert.True(t, items[1].Qty.Equal(decimal.NewFromInt(1)))

	_, err = s.ReceiptItems(ctx, "bob", first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ReceiptsForTransaction(ctx, "bob", txID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertReceipt_UnknownTransaction(t *testing.T) {
	s := newTestStore(t)
	_, err := s.InsertReceipt(testCtx(t), &domain.Receipt{UserID: "alice", TransactionID: 999})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceCascadesReceipts(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	_, err := s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	txs, err := s.LoadTransactions(ctx, "alice")
	require.NoError(t, err)
	r := &domain.Receipt{UserID: "alice", TransactionID: txs[0].ID}
	_, err = s.InsertReceipt(ctx, r)
	require.NoError(t, err)

	_, err = s.WriteTransactions(ctx, "alice", batch(), true)
	require.NoError(t, err)
	_, err = s.ReceiptItems(ctx, "alice", r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := testCtx(t)

	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	okID, err := s.StartImportRun(ctx, "alice", "march.csv")
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	require.NoError(t, s.MarkImportRunSucceeded(ctx, okID, 10, 2))

	clock = clock.Add(time.Minute)
	failID, err := s.StartImportRun(ctx, "alice", "bad.csv")
	require.NoError(t, err)
	require.NoError(t, s.MarkImportRunFailed(ctx, failID, errors.New("no date column")))

	_, err = s.StartImportRun(ctx, "bob", "other.csv")
	require.NoError(t, err)

	runs, err := s.ListImportRuns(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, failID, runs[0].ID)
	assert.Equal(t, domain.ImportFailed, runs[0].Status)
	assert.Equal(t, "no date column", runs[0].ErrorMessage)
	require.NotNil(t, runs[0].FinishedAt)

	assert.Equal(t, okID, runs[1].ID)
	assert.Equal(t, domain.ImportSucceeded, runs[1].Status)
	assert.Equal(t, 10, runs[1].Imported)
	assert.Equal(t, 2, runs[1].Dropped)
	assert.True(t, runs[1].StartedAt.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))

	assert.ErrorIs(t, s.MarkImportRunSucceeded(ctx, "missing", 0, 0), store.ErrNotFound)
}
