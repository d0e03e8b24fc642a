package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
)

// InsertReceipt stores the receipt and its items. The transaction must
// belong to r.UserID.
func (s *Store) InsertReceipt(ctx context.Context, r *domain.Receipt) (int64, error) {
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM transactions WHERE id = ? AND user_id = ?`, r.TransactionID, r.UserID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check transaction: %w", err)
		}

		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.now()
		}
		res, err := tx.ExecContext(ctx, `
		INSERT INTO receipts(user_id, transaction_id, filename, image_uri, ocr_text, created_at)
		VALUES(?, ?, ?, ?, ?, ?)`,
			r.UserID, r.TransactionID, r.Filename, r.ImageURI, r.OCRText, r.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("receipt id: %w", err)
		}

		for i := range r.Items {
			it := &r.Items[i]
			it.ReceiptID = r.ID
			res, err := tx.ExecContext(ctx, `
			INSERT INTO receipt_items(receipt_id, item_name, qty, unit_price, total)
			VALUES(?, ?, ?, ?, ?)`,
				r.ID, it.Name, it.Qty.String(), it.UnitPrice.String(), it.Total.String())
			if err != nil {
				return fmt.Errorf("insert item %d: %w", i, err)
			}
			if it.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("item id: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("InsertReceipt: %w", err)
	}
	return r.ID, nil
}

// ReceiptsForTransaction lists the receipts attached to a transaction,
// newest first. Items are not loaded.
func (s *Store) ReceiptsForTransaction(ctx context.Context, userID string, transactionID int64) ([]domain.Receipt, error) {
	if _, err := s.GetTransaction(ctx, userID, transactionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, transaction_id, filename, image_uri, ocr_text, created_at
	FROM receipts
	WHERE transaction_id = ? AND user_id = ?
	ORDER BY created_at DESC, id DESC`, transactionID, userID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptsForTransaction: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var (
			r       domain.Receipt
			created string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.TransactionID, &r.Filename, &r.ImageURI, &r.OCRText, &created); err != nil {
			return nil, fmt.Errorf("ReceiptsForTransaction: scan: %w", err)
		}
		if r.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("ReceiptsForTransaction: created_at: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReceiptsForTransaction: rows: %w", err)
	}
	return out, nil
}

// ReceiptItems lists the items of a receipt owned by the user.
func (s *Store) ReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.ReceiptItem, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM receipts WHERE id = ? AND user_id = ?`, receiptID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ReceiptItems: check receipt: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, receipt_id, item_name, qty, unit_price, total
	FROM receipt_items
	WHERE receipt_id = ?
	ORDER BY id ASC`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptItems: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ReceiptItem
	for rows.Next() {
		var it domain.ReceiptItem
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.Name, &it.Qty, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("ReceiptItems: scan: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReceiptItems: rows: %w", err)
	}
	return out, nil
}
