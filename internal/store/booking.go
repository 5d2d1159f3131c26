package store

import (
	"context"

	"github.com/google/uuid"

	"meetlines/backend/internal/domain"
)

// BookingTx is the transactional surface for mutations that depend on a
// conflict check.
type BookingTx interface {
	// IsSlotAvailable reports whether no active appointment in the scope
	// overlaps the interval. excludeID skips one appointment, used when
	// rescheduling.
	IsSlotAvailable(ctx context.Context, scopeID uuid.UUID, interval domain.Interval, excludeID uuid.UUID) (bool, error)

	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	// UpdateAppointment writes appt only while the stored status is still
	// prev, returning ErrStale otherwise. The scope lock does not cover
	// writers outside InScopeTransaction, so the guard holds here too.
	UpdateAppointment(ctx context.Context, appt domain.Appointment, prev domain.Status) (domain.Appointment, error)
}
