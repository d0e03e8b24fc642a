package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/pipeline"
)

// DefaultMaxUpload bounds request bodies when no limit is configured.
const DefaultMaxUpload = 10 << 20

// TransactionService is the part of the service used by TransactionsHandler.
type TransactionService interface {
	ImportCSV(ctx context.Context, id identity.Identity, r io.Reader, source string, replace bool) (*pipeline.ImportResult, error)
	Transactions(ctx context.Context, id identity.Identity) ([]domain.Transaction, error)
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	svc       TransactionService
	maxUpload int64
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler. maxUpload
// bounds the request body in bytes.
func NewTransactionsHandler(svc TransactionService, maxUpload int64, log zerolog.Logger) *TransactionsHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &TransactionsHandler{
		svc:       svc,
		maxUpload: maxUpload,
		log:       log,
	}
}

// Upload handles POST /api/transactions/upload. The CSV is either the raw
// request body or the "file" part of a multipart form.
func (h *TransactionsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to import transactions")
		return
	}

	replace := true
	if v := r.URL.Query().Get("replace"); v != "" {
		replace, err = strconv.ParseBool(v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid replace parameter")
			return
		}
	}

	body, filename, cleanup, err := readUpload(w, r, h.maxUpload, "statement.csv")
	if err != nil {
		writeUploadError(w, h.log, err)
		return
	}
	defer cleanup()

	res, err := h.svc.ImportCSV(r.Context(), id, body, filename, replace)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to import transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, res)
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list transactions")
		return
	}

	txs, err := h.svc.Transactions(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// readUpload returns the uploaded file from a multipart "file" part or the
// raw body, with a cleaned filename.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64, fallbackName string) (io.Reader, string, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", nil, err
			}
			return nil, "", nil, errMissingFile
		}
		return f, cleanFilename(hdr.Filename, fallbackName), func() { f.Close() }, nil
	}

	return r.Body, cleanFilename(r.URL.Query().Get("filename"), fallbackName), func() {}, nil
}

// cleanFilename strips any path or query from a client-supplied name.
func cleanFilename(name, fallback string) string {
	if idx := strings.Index(name, "?"); idx >= 0 {
		name = name[:idx]
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return fallback
	}
	return name
}

func writeUploadError(w http.ResponseWriter, log zerolog.Logger, err error) {
	if errors.Is(err, errMissingFile) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeServiceError(w, log, err, "Failed to read upload")
}
