package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"meetlines/backend/internal/domain"
)

type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// UpdateIfStatus persists appt only while the stored row's status is
	// still prev. A row another writer transitioned in the meantime is left
	// untouched and reported as ErrStale, so a stale read can never
	// overwrite a cancellation or completion that landed in between.
	UpdateIfStatus(ctx context.Context, appt domain.Appointment, prev domain.Status) (domain.Appointment, error)

	Delete(ctx context.Context, id uuid.UUID) error

	ListByScope(ctx context.Context, scopeID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error)

	// ListActiveInWindow returns active (pending or in_progress) appointments
	// whose interval overlaps the window, optionally narrowed to one assignee.
	ListActiveInWindow(ctx context.Context, scopeID uuid.UUID, assigneeID *uuid.UUID, window domain.Interval) ([]domain.Appointment, error)

	// ListDueToStart and ListDueToComplete feed the lifecycle sweeper, ordered
	// ascending by the crossed boundary.
	ListDueToStart(ctx context.Context, now time.Time) ([]domain.Appointment, error)
	ListDueToComplete(ctx context.Context, now time.Time) ([]domain.Appointment, error)

	// InScopeTransaction runs fn serialized against all other booking writes
	// for the same resource scope, so a conflict check and the write it guards
	// commit atomically.
	InScopeTransaction(ctx context.Context, scopeID uuid.UUID, fn func(ctx context.Context, tx BookingTx) error) error
}
