package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the booking API under /api/v1.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.handleBook)
			r.Get("/{id}", h.handleGet)
			r.Delete("/{id}", h.handleDelete)
			r.Post("/{id}/cancel", h.handleCancel)
			r.Post("/{id}/reschedule", h.handleReschedule)
			r.Put("/{id}/admin-notes", h.handleAdminNotes)
		})

		r.Route("/scopes/{scopeID}", func(r chi.Router) {
			r.Get("/appointments", h.handleListByScope)
			r.Get("/available-slots", h.handleAvailableSlots)
			r.Get("/working-hours", h.handleWorkingHours)
		})

		r.Get("/subjects/{subjectID}/appointments", h.handleListBySubject)
	})

	return r
}
