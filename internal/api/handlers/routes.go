// Package handlers exposes the service over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/service"
)

// HealthPath is served without identity.
const HealthPath = "/health"

// NewRouter registers every route on a new ServeMux and wraps it in the
// middleware chain.
func NewRouter(svc *service.Service, maxUpload int64, log zerolog.Logger) http.Handler {
	transactions := NewTransactionsHandler(svc, maxUpload, log)
	analytics := NewAnalyticsHandler(svc, log)
	receiptsH := NewReceiptsHandler(svc, maxUpload, log)
	imports := NewImportsHandler(svc, log)

	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"ocr":    svc.OCREnabled(),
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Transactions endpoints
	mux.HandleFunc("POST /api/transactions/upload", transactions.Upload)
	mux.HandleFunc("GET /api/transactions", transactions.List)

	// Analytics endpoints
	mux.HandleFunc("GET /api/dashboard", analytics.Dashboard)
	mux.HandleFunc("GET /api/anomalies", analytics.Anomalies)
	mux.HandleFunc("GET /api/insights", analytics.Insights)
	mux.HandleFunc("GET /api/forecast", analytics.Forecast)

	// Imports and categories
	mux.HandleFunc("GET /api/imports", imports.List)
	mux.HandleFunc("GET /api/categories", imports.Categories)

	// Receipts endpoints
	mux.HandleFunc("POST /api/transactions/{id}/receipts", receiptsH.Create)
	mux.HandleFunc("GET /api/transactions/{id}/receipts", receiptsH.List)
	mux.HandleFunc("GET /api/transactions/{id}/receipts/{receipt}/image", receiptsH.Image)
	mux.HandleFunc("GET /api/receipts/{id}/items", receiptsH.Items)
	mux.HandleFunc("POST /api/receipts/suggest", receiptsH.Suggest)

	return middleware.Chain(log, mux, HealthPath)
}
