package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/smartspend/internal/api/middleware"
	"github.com/dvloznov/smartspend/internal/forecast"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/normalize"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/service"
	"github.com/dvloznov/smartspend/internal/store"
)

// writeServiceError maps service errors to HTTP responses. Unexpected
// errors are logged and reported as 500 with a generic message.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	var (
		schemaErr *normalize.SchemaError
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Upload too large")
	case errors.As(err, &schemaErr):
		middleware.WriteError(w, http.StatusUnprocessableEntity, schemaErr.Error())
	case errors.Is(err, identity.ErrMissingIdentity):
		middleware.WriteError(w, http.StatusUnauthorized, "Missing user identity")
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrOCRUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, "Receipt OCR is not configured")
	case errors.Is(err, receipts.ErrNoText):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No receipt text found")
	case errors.Is(err, forecast.ErrTooFewPoints):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Not enough history to forecast")
	default:
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, http.StatusInternalServerError, msg)
	}
}
