package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusInProgress:
		return StatusInProgress, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", validationError("invalid status: valid values are pending, in_progress, completed, cancelled")
}

// IsActive reports whether the status counts toward conflict detection.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusInProgress
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// StatusForTime derives the status an appointment over interval would have at
// now, from time alone: pending before the start, in_progress within the
// interval, completed after the end. It is a decision aid for the lifecycle
// sweeper, never a replacement for the stored status; a cancelled
// appointment must not be resurrected by it.
func StatusForTime(now time.Time, interval Interval) (Status, error) {
	if !interval.IsValid() {
		return "", validationError("start_time must be before end_time")
	}
	if now.Before(interval.Start) {
		return StatusPending, nil
	}
	if now.Before(interval.End) {
		return StatusInProgress, nil
	}
	return StatusCompleted, nil
}

// Appointment is the aggregate root for a booking. It is created through
// NewAppointment (or loaded from storage) and mutated only through its
// transition methods; nothing else may change its status.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID               uuid.UUID       `bun:"id,pk,type:uuid"`
	ScopeID          uuid.UUID       `bun:"resource_scope_id,notnull,type:uuid"`
	SubjectID        uuid.UUID       `bun:"subject_id,notnull,type:uuid"`
	ServiceID        int64           `bun:"service_id,notnull"`
	AssigneeID       *uuid.UUID      `bun:"assignee_id,type:uuid"`
	StartTime        time.Time       `bun:"start_time,notnull"`
	EndTime          time.Time       `bun:"end_time,notnull"`
	Status           Status          `bun:"status,notnull"`
	PriceSnapshot    decimal.Decimal `bun:"price_snapshot,notnull,type:numeric"`
	CurrencySnapshot string          `bun:"currency_snapshot,notnull"`
	MeetingLink      string          `bun:"meeting_link"`
	UserNotes        string          `bun:"user_notes"`
	AdminNotes       string          `bun:"admin_notes"`
	CreatedAt        time.Time       `bun:"created_at,notnull"`
	UpdatedAt        time.Time       `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

type NewAppointmentInput struct {
	ScopeID    uuid.UUID
	SubjectID  uuid.UUID
	ServiceID  int64
	AssigneeID *uuid.UUID
	Interval   Interval
	Price      decimal.Decimal
	Currency   string
	UserNotes  string
}

// NewAppointment is the only way to materialize a new appointment. It always
// yields pending status; the ID and timestamps are assigned on insert.
func NewAppointment(now time.Time, in NewAppointmentInput) (Appointment, error) {
	if in.ScopeID == uuid.Nil {
		return Appointment{}, validationError("resource_scope_id is required")
	}
	if in.SubjectID == uuid.Nil {
		return Appointment{}, validationError("subject_id is required")
	}
	if in.ServiceID <= 0 {
		return Appointment{}, validationError("service_id is required")
	}
	if err := validateInterval(now, in.Interval); err != nil {
		return Appointment{}, err
	}
	if in.Price.IsNegative() {
		return Appointment{}, validationError("price must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if len(currency) != 3 {
		return Appointment{}, validationError("currency must be a 3-letter code")
	}

	return Appointment{
		ScopeID:          in.ScopeID,
		SubjectID:        in.SubjectID,
		ServiceID:        in.ServiceID,
		AssigneeID:       in.AssigneeID,
		StartTime:        in.Interval.Start.UTC(),
		EndTime:          in.Interval.End.UTC(),
		Status:           StatusPending,
		PriceSnapshot:    in.Price,
		CurrencySnapshot: currency,
		UserNotes:        strings.TrimSpace(in.UserNotes),
	}, nil
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

func (a Appointment) IsActive() bool {
	return a.Status.IsActive()
}

// Start moves a pending appointment to in_progress, optionally attaching a
// meeting link. The sweeper calls this without a link.
func (a *Appointment) Start(now time.Time, meetingLink string) error {
	if a.Status != StatusPending {
		return transitionError("start", a.Status)
	}
	a.Status = StatusInProgress
	a.MeetingLink = meetingLink
	a.UpdatedAt = now.UTC()
	return nil
}

// Complete moves an in_progress appointment to completed.
func (a *Appointment) Complete(now time.Time) error {
	if a.Status != StatusInProgress {
		return transitionError("complete", a.Status)
	}
	a.Status = StatusCompleted
	a.UpdatedAt = now.UTC()
	return nil
}

// Cancel terminates a pending or in_progress appointment, recording the
// reason in the admin notes.
func (a *Appointment) Cancel(now time.Time, reason string) error {
	if a.Status.IsTerminal() {
		return transitionError("cancel", a.Status)
	}
	a.Status = StatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		a.AdminNotes = reason
	}
	a.UpdatedAt = now.UTC()
	return nil
}

// Reschedule replaces the interval of an active appointment after
// re-validating it.
func (a *Appointment) Reschedule(now time.Time, interval Interval) error {
	if a.Status.IsTerminal() {
		return transitionError("reschedule", a.Status)
	}
	if err := validateInterval(now, interval); err != nil {
		return err
	}
	a.StartTime = interval.Start.UTC()
	a.EndTime = interval.End.UTC()
	a.UpdatedAt = now.UTC()
	return nil
}

// AddAdminNotes is the only mutation permitted on a terminal appointment.
func (a *Appointment) AddAdminNotes(now time.Time, notes string) {
	a.AdminNotes = strings.TrimSpace(notes)
	a.UpdatedAt = now.UTC()
}

func validateInterval(now time.Time, interval Interval) error {
	if interval.Start.IsZero() || interval.End.IsZero() {
		return validationError("start_time and end_time are required")
	}
	if !interval.IsValid() {
		return validationError("start_time must be before end_time")
	}
	if !interval.Start.After(now) {
		return validationError("start_time must be in the future")
	}
	return nil
}
