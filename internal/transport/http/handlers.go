package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/service/booking"
)

// BookingService is the surface the HTTP layer needs from the booking service.
type BookingService interface {
	Book(ctx context.Context, in booking.BookInput) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, interval domain.Interval) (domain.Appointment, error)
	AddAdminNotes(ctx context.Context, id uuid.UUID, notes string) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByScope(ctx context.Context, scopeID uuid.UUID, status *domain.Status) ([]domain.Appointment, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Appointment, error)
	ActiveBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Appointment, error)
	AvailableSlots(ctx context.Context, scopeID uuid.UUID, assigneeID *uuid.UUID, date time.Time) ([]domain.Interval, error)
	WorkingHours(ctx context.Context, scopeID uuid.UUID, date time.Time) (booking.WorkingHours, error)
}

type Handler struct {
	svc BookingService
	log *slog.Logger
}

func NewHandler(svc BookingService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		svc: svc,
		log: log.With(slog.String("component", "transport.http")),
	}
}

type bookRequest struct {
	ResourceScopeID uuid.UUID       `json:"resource_scope_id"`
	SubjectID       uuid.UUID       `json:"subject_id"`
	ServiceID       int64           `json:"service_id"`
	AssigneeID      *uuid.UUID      `json:"assignee_id"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	UserNotes       string          `json:"user_notes"`
}

type appointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	ResourceScopeID uuid.UUID  `json:"resource_scope_id"`
	SubjectID       uuid.UUID  `json:"subject_id"`
	ServiceID       int64      `json:"service_id"`
	AssigneeID      *uuid.UUID `json:"assignee_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Status          string     `json:"status"`
	Price           string     `json:"price_snapshot"`
	Currency        string     `json:"currency_snapshot"`
	MeetingLink     string     `json:"meeting_link,omitempty"`
	UserNotes       string     `json:"user_notes,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toAppointmentResponse(appt domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              appt.ID,
		ResourceScopeID: appt.ScopeID,
		SubjectID:       appt.SubjectID,
		ServiceID:       appt.ServiceID,
		AssigneeID:      appt.AssigneeID,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		Status:          string(appt.Status),
		Price:           appt.PriceSnapshot.String(),
		Currency:        appt.CurrencySnapshot,
		MeetingLink:     appt.MeetingLink,
		UserNotes:       appt.UserNotes,
		AdminNotes:      appt.AdminNotes,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}
}

func toAppointmentResponses(appts []domain.Appointment) []appointmentResponse {
	out := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		out = append(out, toAppointmentResponse(appt))
	}
	return out
}

type slotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type workingHoursResponse struct {
	Opens  string `json:"opens,omitempty"`
	Closes string `json:"closes,omitempty"`
	IsOpen bool   `json:"is_open"`
	Closed bool   `json:"closed"`
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookInput{
		ScopeID:    req.ResourceScopeID,
		SubjectID:  req.SubjectID,
		ServiceID:  req.ServiceID,
		AssigneeID: req.AssigneeID,
		Interval:   domain.Interval{Start: req.StartTime, End: req.EndTime},
		Price:      req.Price,
		Currency:   req.Currency,
		UserNotes:  req.UserNotes,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	appt, err := h.svc.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.Reschedule(r.Context(), id, domain.Interval{Start: req.StartTime, End: req.EndTime})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) handleAdminNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	appt, err := h.svc.AddAdminNotes(r.Context(), id, req.Notes)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListByScope(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := pathUUID(w, r, "scopeID")
	if !ok {
		return
	}
	var status *domain.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseStatus(raw)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		status = &parsed
	}
	appts, err := h.svc.ListByScope(r.Context(), scopeID, status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
}

func (h *Handler) handleListBySubject(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathUUID(w, r, "subjectID")
	if !ok {
		return
	}
	var (
		appts []domain.Appointment
		err   error
	)
	if r.URL.Query().Get("active") == "true" {
		appts, err = h.svc.ActiveBySubject(r.Context(), subjectID)
	} else {
		appts, err = h.svc.ListBySubject(r.Context(), subjectID)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponses(appts))
}

func (h *Handler) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := pathUUID(w, r, "scopeID")
	if !ok {
		return
	}
	date, ok := queryDate(w, r)
	if !ok {
		return
	}
	var assigneeID *uuid.UUID
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assignee_id")
			return
		}
		assigneeID = &parsed
	}

	slots, err := h.svc.AvailableSlots(r.Context(), scopeID, assigneeID, date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, slotResponse{StartTime: slot.Start, EndTime: slot.End})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleWorkingHours(w http.ResponseWriter, r *http.Request) {
	scopeID, ok := pathUUID(w, r, "scopeID")
	if !ok {
		return
	}
	date, ok := queryDate(w, r)
	if !ok {
		return
	}
	hours, err := h.svc.WorkingHours(r.Context(), scopeID, date)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workingHoursResponse{
		Opens:  hours.Opens,
		Closes: hours.Closes,
		IsOpen: hours.IsOpen,
		Closed: hours.Closed,
	})
}

func pathUUID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+key)
		return uuid.Nil, false
	}
	return id, true
}

// queryDate reads the ?date=YYYY-MM-DD parameter, defaulting to today.
func queryDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return time.Now(), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
