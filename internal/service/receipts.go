package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/store"
)

// ScanReceipt reads a receipt image with OCR, archives the image when an
// archiver is configured and attaches the receipt to the transaction.
// Archiving is best-effort; OCR is not.
func (s *Service) ScanReceipt(ctx context.Context, id identity.Identity, transactionID int64, filename string, image []byte) (*domain.Receipt, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if s.ocr == nil {
		return nil, ErrOCRUnavailable
	}
	if _, err := s.store.GetTransaction(ctx, id.UserID, transactionID); err != nil {
		return nil, fmt.Errorf("ScanReceipt: %w", err)
	}

	mimeType := detectContentType(image)
	text, err := s.ocr.ExtractText(ctx, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("ScanReceipt: %w", err)
	}

	var uri string
	if s.archiver != nil {
		uri, err = s.archiver.Archive(ctx, id.UserID, filename, image, mimeType)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().
				Err(err).
				Str("user_id", id.UserID).
				Int64("transaction_id", transactionID).
				Msg("receipt image not archived")
			uri = ""
		}
	}

	r, err := s.attach(ctx, id, transactionID, filename, uri, text)
	if err != nil {
		return nil, fmt.Errorf("ScanReceipt: %w", err)
	}
	return r, nil
}

// AddReceiptText attaches already-transcribed receipt text.
func (s *Service) AddReceiptText(ctx context.Context, id identity.Identity, transactionID int64, filename, text string) (*domain.Receipt, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("AddReceiptText: %w", receipts.ErrNoText)
	}
	r, err := s.attach(ctx, id, transactionID, filename, "", text)
	if err != nil {
		return nil, fmt.Errorf("AddReceiptText: %w", err)
	}
	return r, nil
}

func (s *Service) attach(ctx context.Context, id identity.Identity, transactionID int64, filename, uri, text string) (*domain.Receipt, error) {
	r := &domain.Receipt{
		TransactionID: transactionID,
		UserID:        id.UserID,
		Filename:      filename,
		ImageURI:      uri,
		OCRText:       text,
		Items:         receipts.ParseItems(text),
	}
	if _, err := s.store.InsertReceipt(ctx, r); err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", id.UserID).
		Int64("transaction_id", transactionID).
		Int64("receipt_id", r.ID).
		Int("items", len(r.Items)).
		Msg("receipt attached")
	return r, nil
}

// Receipts lists the receipts of one of the user's transactions.
func (s *Service) Receipts(ctx context.Context, id identity.Identity, transactionID int64) ([]domain.Receipt, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	rs, err := s.store.ReceiptsForTransaction(ctx, id.UserID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("Receipts: %w", err)
	}
	return rs, nil
}

// ReceiptItems lists the parsed items of one of the user's receipts.
func (s *Service) ReceiptItems(ctx context.Context, id identity.Identity, receiptID int64) ([]domain.ReceiptItem, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	items, err := s.store.ReceiptItems(ctx, id.UserID, receiptID)
	if err != nil {
		return nil, fmt.Errorf("ReceiptItems: %w", err)
	}
	return items, nil
}

// ReceiptImage returns the archived image of a receipt and its content type.
func (s *Service) ReceiptImage(ctx context.Context, id identity.Identity, transactionID, receiptID int64) ([]byte, string, error) {
	rs, err := s.Receipts(ctx, id, transactionID)
	if err != nil {
		return nil, "", err
	}
	fetcher, ok := s.archiver.(receipts.ImageFetcher)
	for _, r := range rs {
		if r.ID != receiptID {
			continue
		}
		if r.ImageURI == "" || !ok {
			return nil, "", fmt.Errorf("ReceiptImage: no archived image: %w", store.ErrNotFound)
		}
		data, err := fetcher.Fetch(ctx, r.ImageURI)
		if err != nil {
			return nil, "", fmt.Errorf("ReceiptImage: %w", err)
		}
		return data, detectContentType(data), nil
	}
	return nil, "", fmt.Errorf("ReceiptImage: %w", store.ErrNotFound)
}

// SuggestTransactions ranks the user's expenses against receipt text.
func (s *Service) SuggestTransactions(ctx context.Context, id identity.Identity, text string, limit int) ([]receipts.Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("SuggestTransactions: %w", receipts.ErrNoText)
	}
	txs, err := s.Transactions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("SuggestTransactions: %w", err)
	}
	return receipts.Suggest(text, txs, limit), nil
}
