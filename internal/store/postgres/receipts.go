package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// InsertReceipt stores the receipt and its items. The transaction must
// belong to r.UserID.
func (s *Store) InsertReceipt(ctx context.Context, r *domain.Receipt) (int64, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO receipts(user_id, transaction_id, filename, image_uri, ocr_text, created_at)
			SELECT $1, t.id, $3, $4, $5, $6
			FROM transactions t
			WHERE t.id = $2 AND t.user_id = $1
			RETURNING id`,
			r.UserID, r.TransactionID, r.Filename, r.ImageURI, r.OCRText, r.CreatedAt).Scan(&r.ID)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("insert receipt: %w", err)
		}

		if len(r.Items) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, it := range r.Items {
			batch.Queue(`
				INSERT INTO receipt_items(receipt_id, item_name, qty, unit_price, total)
				VALUES($1, $2, $3::numeric, $4::numeric, $5::numeric)
				RETURNING id`,
				r.ID, it.Name, it.Qty.String(), it.UnitPrice.String(), it.Total.String())
		}
		results := tx.SendBatch(ctx, batch)
		for i := range r.Items {
			r.Items[i].ReceiptID = r.ID
			if err := results.QueryRow().Scan(&r.Items[i].ID); err != nil {
				_ = results.Close()
				return fmt.Errorf("insert item %d: %w", i, err)
			}
		}
		return results.Close()
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
// newest first.
func (s *Store) ReceiptsForTransaction(ctx context.Context, userID string, transactionID int64) ([]domain.Receipt, error) {
	if _, err := s.GetTransaction(ctx, userID, transactionID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, transaction_id, filename, image_uri, ocr_text, created_at
		FROM receipts
		WHERE transaction_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC`, transactionID, userID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptsForTransaction: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		if err := rows.Scan(&r.ID, &r.UserID, &r.TransactionID, &r.Filename, &r.ImageURI, &r.OCRText, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("ReceiptsForTransaction: scan: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReceiptsForTransaction: rows: %w", err)
	}
	return out, nil
}

// ReceiptItems lists the items of a receipt owned by the user.
func (s *Store) ReceiptItems(ctx context.Context, userID string, receiptID int64) ([]domain.ReceiptItem, error) {
	var owner string
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM receipts WHERE id = $1`, receiptID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != userID) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ReceiptItems: check receipt: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, receipt_id, item_name, qty::text, unit_price::text, total::text
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY id ASC`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptItems: query: %w", err)
	}
	defer rows.Close()

	var out []domain.ReceiptItem
	for rows.Next() {
		var (
			it                  domain.ReceiptItem
			qty, unitPrice, tot string
		)
		if err := rows.Scan(&it.ID, &it.ReceiptID, &it.Name, &qty, &unitPrice, &tot); err != nil {
			return nil, fmt.Errorf("ReceiptItems: scan: %w", err)
		}
		if it.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("ReceiptItems: qty: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("ReceiptItems: unit_price: %w", err)
		}
		if it.Total, err = decimal.NewFromString(tot); err != nil {
			return nil, fmt.Errorf("ReceiptItems: total: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ReceiptItems: rows: %w", err)
	}
	return out, nil
}
