package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is an OCR'd receipt linked to one transaction.
type Receipt struct {
	ID            int64         `json:"id"`
	TransactionID int64         `json:"transaction_id"`
	UserID        string        `json:"user_id,omitempty"`
	Filename      string        `json:"filename"`
	ImageURI      string        `json:"image_uri,omitempty"`
	OCRText       string        `json:"ocr_text"`
	CreatedAt     time.Time     `json:"created_at"`
	Items         []ReceiptItem `json:"items,omitempty"`
}

// ReceiptItem is a single priced line read from a receipt.
type ReceiptItem struct {
	ID        int64           `json:"id,omitempty"`
	ReceiptID int64           `json:"receipt_id,omitempty"`
	Name      string          `json:"item_name"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}
