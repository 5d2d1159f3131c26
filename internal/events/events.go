package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetlines/backend/internal/domain"
)

type Type string

const (
	TypeAppointmentBooked    Type = "appointment.booked"
	TypeAppointmentCancelled Type = "appointment.cancelled"
)

// Event is the outbound envelope emitted after a successful state change.
// Delivery is fire-and-forget; the booking path never blocks on it.
type Event struct {
	Type          Type       `json:"type"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	ScopeID       uuid.UUID  `json:"resource_scope_id"`
	SubjectID     uuid.UUID  `json:"subject_id"`
	AssigneeID    *uuid.UUID `json:"assignee_id,omitempty"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Reason        string     `json:"reason,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Booked builds the event for a persisted appointment.
func Booked(appt domain.Appointment, now time.Time) Event {
	return Event{
		Type:          TypeAppointmentBooked,
		AppointmentID: appt.ID,
		ScopeID:       appt.ScopeID,
		SubjectID:     appt.SubjectID,
		AssigneeID:    appt.AssigneeID,
		StartTime:     appt.StartTime,
		EndTime:       appt.EndTime,
		OccurredAt:    now.UTC(),
	}
}

func Cancelled(appt domain.Appointment, reason string, now time.Time) Event {
	ev := Booked(appt, now)
	ev.Type = TypeAppointmentCancelled
	ev.Reason = reason
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
