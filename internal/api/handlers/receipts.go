package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/receipts"
)

var errMissingFile = errors.New("multipart field \"file\" is required")

// ReceiptService is the part of the service used by ReceiptsHandler.
type ReceiptService interface {
	ScanReceipt(ctx context.Context, id identity.Identity, transactionID int64, filename string, image []byte) (*domain.Receipt, error)
	AddReceiptText(ctx context.Context, id identity.Identity, transactionID int64, filename, text string) (*domain.Receipt, error)
	Receipts(ctx context.Context, id identity.Identity, transactionID int64) ([]domain.Receipt, error)
	ReceiptItems(ctx context.Context, id identity.Identity, receiptID int64) ([]domain.ReceiptItem, error)
	ReceiptImage(ctx context.Context, id identity.Identity, transactionID, receiptID int64) ([]byte, string, error)
	SuggestTransactions(ctx context.Context, id identity.Identity, text string, limit int) ([]receipts.Match, error)
}

// ReceiptsHandler handles receipt endpoints.
type ReceiptsHandler struct {
	svc       ReceiptService
	maxUpload int64
	log       zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(svc ReceiptService, maxUpload int64, log zerolog.Logger) *ReceiptsHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &ReceiptsHandler{svc: svc, maxUpload: maxUpload, log: log}
}

type receiptTextRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// Create handles POST /api/transactions/{id}/receipts. A JSON body
// {"text": ...} attaches transcribed text; anything else is treated as an
// image and sent through OCR.
func (h *ReceiptsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to add receipt")
		return
	}
	txID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req receiptTextRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUpload)).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		rec, err := h.svc.AddReceiptText(r.Context(), id, txID, cleanFilename(req.Filename, "receipt.txt"), req.Text)
		if err != nil {
			writeServiceError(w, h.log, err, "Failed to add receipt")
			return
		}
		middleware.WriteJSON(w, http.StatusCreated, rec)
		return
	}

	body, filename, cleanup, err := readUpload(w, r, h.maxUpload, "receipt")
	if err != nil {
		writeUploadError(w, h.log, err)
		return
	}
	defer cleanup()

	image, err := io.ReadAll(body)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to read receipt image")
		return
	}
	if len(image) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Receipt image is empty")
		return
	}

	rec, err := h.svc.ScanReceipt(r.Context(), id, txID, filename, image)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to scan receipt")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, rec)
}

// List handles GET /api/transactions/{id}/receipts
func (h *ReceiptsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receipts")
		return
	}
	txID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	list, err := h.svc.Receipts(r.Context(), id, txID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receipts")
		return
	}
	if list == nil {
		list = []domain.Receipt{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"receipts": list,
		"count":    len(list),
	})
}

// Image handles GET /api/transactions/{id}/receipts/{receipt}/image
func (h *ReceiptsHandler) Image(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch receipt image")
		return
	}
	txID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	receiptID, ok := pathID(w, r, "receipt")
	if !ok {
		return
	}

	data, contentType, err := h.svc.ReceiptImage(r.Context(), id, txID, receiptID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to fetch receipt image")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Items handles GET /api/receipts/{id}/items
func (h *ReceiptsHandler) Items(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receipt items")
		return
	}
	receiptID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	items, err := h.svc.ReceiptItems(r.Context(), id, receiptID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list receipt items")
		return
	}
	if items == nil {
		items = []domain.ReceiptItem{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Suggest handles POST /api/receipts/suggest
func (h *ReceiptsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to suggest transactions")
		return
	}

	var req struct {
		Text  string `json:"text"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, h.maxUpload)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	matches, err := h.svc.SuggestTransactions(r.Context(), id, req.Text, req.Limit)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to suggest transactions")
		return
	}
	if matches == nil {
		matches = []receipts.Match{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": matches,
		"count":       len(matches),
	})
}

// pathID parses a positive integer path value, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return v, true
}
