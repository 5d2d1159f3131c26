package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/service/booking"
	"meetlines/backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps service failures onto status codes. Anything not
// recognized is an internal error; the detail goes to the log, not the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr    *domain.ValidationError
		transitionErr    *domain.TransitionError
		configurationErr *booking.ConfigurationError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "requested slot is not available")
	case errors.Is(err, store.ErrStale):
		writeError(w, http.StatusConflict, "appointment changed concurrently, retry")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.As(err, &configurationErr):
		writeError(w, http.StatusUnprocessableEntity, configurationErr.Error())
	default:
		h.log.Error(
			"request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
