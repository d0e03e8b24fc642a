package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/dashboard"
	"github.com/dvloznov/smartspend/internal/domain"
	"github.com/dvloznov/smartspend/internal/forecast"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/insights"
)

// AnalyticsService is the part of the service used by AnalyticsHandler.
type AnalyticsService interface {
	Dashboard(ctx context.Context, id identity.Identity) (dashboard.Summary, error)
	Anomalies(ctx context.Context, id identity.Identity) ([]domain.Transaction, error)
	Insights(ctx context.Context, id identity.Identity) ([]insights.Insight, error)
	Forecast(ctx context.Context, id identity.Identity) (*forecast.Outcome, error)
}

// AnalyticsHandler serves the dashboard, anomaly, insight and forecast views.
type AnalyticsHandler struct {
	svc AnalyticsService
	log zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc AnalyticsService, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc, log: log}
}

// Dashboard handles GET /api/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build dashboard")
		return
	}

	sum, err := h.svc.Dashboard(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to build dashboard")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, sum)
}

// Anomalies handles GET /api/anomalies
func (h *AnalyticsHandler) Anomalies(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to detect anomalies")
		return
	}

	flagged, err := h.svc.Anomalies(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to detect anomalies")
		return
	}

	if flagged == nil {
		flagged = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"anomalies": flagged,
		"count":     len(flagged),
	})
}

// Insights handles GET /api/insights
func (h *AnalyticsHandler) Insights(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to explain insights")
		return
	}

	ins, err := h.svc.Insights(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to explain insights")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"insights": ins,
		"count":    len(ins),
	})
}

// Forecast handles GET /api/forecast
func (h *AnalyticsHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	id, err := identity.FromContext(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to forecast balance")
		return
	}

	out, err := h.svc.Forecast(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to forecast balance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, out)
}
