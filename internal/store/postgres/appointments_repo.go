package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var a domain.Appointment
	err := r.db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

// UpdateIfStatus is a compare-and-swap on status. The WHERE clause matches
// only while the row still holds prev; zero affected rows means another
// writer transitioned it first and the write is reported as store.ErrStale
// (or store.ErrNotFound when the row is gone entirely).
func (r *AppointmentRepo) UpdateIfStatus(ctx context.Context, appt domain.Appointment, prev domain.Status) (domain.Appointment, error) {
	res, err := r.db.NewUpdate().
		Model(&appt).
		WherePK().
		Where("status = ?", prev).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapConstraintError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		if _, getErr := r.Get(ctx, appt.ID); getErr != nil {
			if errors.Is(getErr, store.ErrNotFound) {
				return domain.Appointment{}, store.ErrNotFound
			}
			return domain.Appointment{}, getErr
		}
		return domain.Appointment{}, store.ErrStale
	}
	return appt, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*domain.Appointment)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *AppointmentRepo) ListByScope(ctx context.Context, scopeID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("resource_scope_id = ?", scopeID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if err := q.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListBySubject(ctx context.Context, subjectID uuid.UUID, statuses ...domain.Status) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("subject_id = ?", subjectID)
	if len(statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(statuses))
	}
	if err := q.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListActiveInWindow(ctx context.Context, scopeID uuid.UUID, assigneeID *uuid.UUID, window domain.Interval) ([]domain.Appointment, error) {
	window = window.UTC()
	var rows []domain.Appointment
	q := r.db.NewSelect().
		Model(&rows).
		Where("resource_scope_id = ?", scopeID).
		Where("status IN (?)", bun.In(activeStatuses())).
		Where("start_time < ?", window.End).
		Where("end_time > ?", window.Start)
	if assigneeID != nil {
		q = q.Where("assignee_id = ?", *assigneeID)
	}
	if err := q.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListDueToStart(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.StatusPending).
		Where("start_time <= ?", now.UTC()).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListDueToComplete(ctx context.Context, now time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", domain.StatusInProgress).
		Where("end_time <= ?", now.UTC()).
		OrderExpr("end_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// InScopeTransaction serializes booking writes per resource scope with a
// transaction-scoped advisory lock, making the availability check and the
// write it guards atomic for that scope.
func (r *AppointmentRepo) InScopeTransaction(ctx context.Context, scopeID uuid.UUID, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockScope(ctx, tx, scopeID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockScope(ctx context.Context, tx bun.Tx, scopeID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", scopeID.String()).Exec(ctx)
	return err
}

func (r bookingTx) IsSlotAvailable(ctx context.Context, scopeID uuid.UUID, interval domain.Interval, excludeID uuid.UUID) (bool, error) {
	interval = interval.UTC()
	q := r.tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("resource_scope_id = ?", scopeID).
		Where("status IN (?)", bun.In(activeStatuses())).
		Where("start_time < ?", interval.End).
		Where("end_time > ?", interval.Start)
	if excludeID != uuid.Nil {
		q = q.Where("id != ?", excludeID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (r bookingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	_, err := r.tx.NewInsert().Model(&appt).Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapConstraintError(err)
	}
	return appt, nil
}

func (r bookingTx) UpdateAppointment(ctx context.Context, appt domain.Appointment, prev domain.Status) (domain.Appointment, error) {
	res, err := r.tx.NewUpdate().
		Model(&appt).
		WherePK().
		Where("status = ?", prev).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapConstraintError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		exists, err := r.tx.NewSelect().
			Model((*domain.Appointment)(nil)).
			Where("id = ?", appt.ID).
			Exists(ctx)
		if err != nil {
			return domain.Appointment{}, err
		}
		if !exists {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, store.ErrStale
	}
	return appt, nil
}

func activeStatuses() []domain.Status {
	return []domain.Status{domain.StatusPending, domain.StatusInProgress}
}

// mapConstraintError translates the appointments_no_overlap exclusion
// constraint into the conflict sentinel. The constraint backstops the
// advisory-lock serialization; nothing can commit a double booking even if a
// writer bypasses InScopeTransaction.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return store.ErrConflict
		}
	}
	return err
}
