package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/categorise"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/identity"
)

// ImportService is the part of the service used by ImportsHandler.
type ImportService interface {
	ImportRuns(ctx context.Context, id identity.Identity, limit int) ([]domain.ImportRun, error)
	Taxonomy() categorise.Taxonomy
}

// ImportsHandler lists import runs and the category taxonomy.
type ImportsHandler struct {
	svc ImportService
	log zerolog.Logger
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc ImportService, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{svc: svc, log: log}
}

// List handles GET /api/imports
func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list imports")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	runs, err := h.svc.ImportRuns(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list imports")
		return
	}
	if runs == nil {
		runs = []domain.ImportRun{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"imports": runs,
		"count":   len(runs),
	})
}

// Categories handles GET /api/categories
func (h *ImportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	t := h.svc.Taxonomy()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": t.Categories(),
		"rules":      t,
		"count":      len(t.Categories()),
	})
}
