package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/jackc/pgx/v5"
)

// WriteTransactions bulk-copies txs for the user inside one transaction,
// deleting the user's existing rows first when replace is set.
func (s *Store) WriteTransactions(ctx context.Context, userID string, txs []domain.Transaction, replace bool) (int, error) {
	created := s.now()
	rows := make([][]any, len(txs))
	for i, t := range txs {
		category := t.Category
		if category == "" {
			category = domain.CategoryOther
		}
		rows[i] = []any{userID, domain.Day(t.Date), t.Description, t.Amount, category, created}
	}

	var written int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if replace {
			if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID); err != nil {
				return fmt.Errorf("delete existing: %w", err)
			}
		}
		if len(rows) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"transactions"},
			[]string{"user_id", "date", "description", "amount", "category", "created_at"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("WriteTransactions: %w", err)
	}
	return int(written), nil
}

// LoadTransactions returns the user's transactions ordered by date, then id.
func (s *Store) LoadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, date, description, amount, category
		FROM transactions
		WHERE user_id = $1
		ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Description, &t.Amount, &t.Category); err != nil {
			return nil, fmt.Errorf("LoadTransactions: scan: %w", err)
		}
		t.Date = domain.Day(t.Date)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadTransactions: rows: %w", err)
	}
	return out, nil
}

// GetTransaction returns one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID string, id int64) (domain.Transaction, error) {
	var t domain.Transaction
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, date, description, amount, category
		FROM transactions
		WHERE id = $1 AND user_id = $2`, id, userID).
		Scan(&t.ID, &t.UserID, &t.Date, &t.Description, &t.Amount, &t.Category)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	t.Date = domain.Day(t.Date)
	return t, nil
}
