package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventpublisher/internal/delivery/http/helpers"
	"eventpublisher/internal/domain"
)

// writeServiceError maps a service error to its HTTP status and error code.
// Unexpected errors are logged and answered with 500.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		helpers.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrValidation):
		helpers.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrStatsUnavailable):
		logger.WarnContext(r.Context(), "stats unavailable", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// pathIDs reads the named UUID path values in order. On the first invalid one it writes a 400 and returns false.
func pathIDs(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, err := helpers.PathUUID(r, name)
		if err != nil {
			helpers.WriteError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
