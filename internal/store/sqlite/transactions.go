package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
)

var _ store.Store = (*Store)(nil)

// WriteTransactions inserts txs for the user, deleting the user's existing
// rows first when replace is set. Either all rows are written or none.
func (s *Store) WriteTransactions(ctx context.Context, userID string, txs []domain.Transaction, replace bool) (int, error) {
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if replace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("delete existing: %w", err)
			}
		}
		if len(txs) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions(user_id, date, description, amount, category, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		created := s.now().Format(timeLayout)
		for i, t := range txs {
			category := t.Category
			if category == "" {
				category = domain.CategoryOther
			}
			if _, err := stmt.ExecContext(ctx, userID, t.Date.Format(domain.DateLayout), t.Description, t.Amount, category, created); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("WriteTransactions: %w", err)
	}
	return len(txs), nil
}

// LoadTransactions returns the user's transactions ordered by date, then id.
func (s *Store) LoadTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, date, description, amount, category
	FROM transactions
	WHERE user_id = ?
	ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("LoadTransactions: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("LoadTransactions: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LoadTransactions: rows: %w", err)
	}
	return out, nil
}

// GetTransaction returns one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID string, id int64) (domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT id, user_id, date, description, amount, category
	FROM transactions
	WHERE id = ? AND user_id = ?`, id, userID)

	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(sc scanner) (domain.Transaction, error) {
	var (
		t    domain.Transaction
		date string
	)
	if err := sc.Scan(&t.ID, &t.UserID, &date, &t.Description, &t.Amount, &t.Category); err != nil {
		return t, err
	}
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return t, fmt.Errorf("parse date %q: %w", date, err)
	}
	t.Date = d
	return t, nil
}
