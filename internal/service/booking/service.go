package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/events"
	"meetlines/backend/internal/store"
)

// ConfigurationError marks a missing or malformed schedule configuration.
// Not retryable without operator intervention.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

func configurationError(msg string) error {
	return &ConfigurationError{msg: msg}
}

type Service struct {
	repo      store.AppointmentRepository
	schedules store.ScheduleConfigRepository
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time
}

func NewService(repo store.AppointmentRepository, schedules store.ScheduleConfigRepository, publisher events.Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if publisher == nil {
		publisher = events.NewLogPublisher(log)
	}
	return &Service{
		repo:      repo,
		schedules: schedules,
		publisher: publisher,
		log:       log.With(slog.String("component", "service.booking")),
		now:       time.Now,
	}
}

type BookInput struct {
	ScopeID    uuid.UUID
	SubjectID  uuid.UUID
	ServiceID  int64
	AssigneeID *uuid.UUID
	Interval   domain.Interval
	Price      decimal.Decimal
	Currency   string
	UserNotes  string
}

// Book is the only path that creates an appointment. The availability check
// and the insert run in one scope-serialized transaction, so two concurrent
// bookings for overlapping intervals in the same scope cannot both commit.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.ScopeID == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("resource_scope_id is required")
	}
	now := s.now()

	var saved domain.Appointment
	err := s.repo.InScopeTransaction(ctx, in.ScopeID, func(ctx context.Context, tx store.BookingTx) error {
		available, err := tx.IsSlotAvailable(ctx, in.ScopeID, in.Interval, uuid.Nil)
		if err != nil {
			return err
		}
		if !available {
			return store.ErrConflict
		}

		appt, err := domain.NewAppointment(now, domain.NewAppointmentInput{
			ScopeID:    in.ScopeID,
			SubjectID:  in.SubjectID,
			ServiceID:  in.ServiceID,
			AssigneeID: in.AssigneeID,
			Interval:   in.Interval,
			Price:      in.Price,
			Currency:   in.Currency,
			UserNotes:  in.UserNotes,
		})
		if err != nil {
			return err
		}

		saved, err = tx.InsertAppointment(ctx, appt)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	s.emit(events.Booked(saved, s.now()))
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment_id is required")
	}
	return s.repo.Get(ctx, id)
}

// staleRetries bounds the re-read loop on guarded updates. Status only moves
// forward, so two retries cover the worst case of pending to in_progress to
// terminal happening underneath a writer.
const staleRetries = 2

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment_id is required")
	}

	// The write is guarded on the status the appointment was read at. When
	// the sweeper transitions it in between, re-read and let the state
	// machine re-decide; cancelling an appointment that meanwhile started is
	// still legal, one that meanwhile completed is not.
	var saved domain.Appointment
	for attempt := 0; ; attempt++ {
		appt, err := s.repo.Get(ctx, id)
		if err != nil {
			return domain.Appointment{}, err
		}
		prev := appt.Status
		if err := appt.Cancel(s.now(), reason); err != nil {
			return domain.Appointment{}, err
		}
		saved, err = s.repo.UpdateIfStatus(ctx, appt, prev)
		if errors.Is(err, store.ErrStale) && attempt < staleRetries {
			continue
		}
		if err != nil {
			return domain.Appointment{}, err
		}
		break
	}

	s.emit(events.Cancelled(saved, reason, s.now()))
	return saved, nil
}

// Reschedule replaces the interval of an active appointment, re-checking
// availability with the appointment's own booking excluded.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, interval domain.Interval) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment_id is required")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	now := s.now()

	var saved domain.Appointment
	err = s.repo.InScopeTransaction(ctx, appt.ScopeID, func(ctx context.Context, tx store.BookingTx) error {
		prev := appt.Status
		if err := appt.Reschedule(now, interval); err != nil {
			return err
		}
		available, err := tx.IsSlotAvailable(ctx, appt.ScopeID, appt.Interval(), appt.ID)
		if err != nil {
			return err
		}
		if !available {
			return store.ErrConflict
		}
		saved, err = tx.UpdateAppointment(ctx, appt, prev)
		return err
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return saved, nil
}

func (s *Service) AddAdminNotes(ctx context.Context, id uuid.UUID, notes string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, domain.NewValidationError("appointment_id is required")
	}
	for attempt := 0; ; attempt++ {
		appt, err := s.repo.Get(ctx, id)
		if err != nil {
			return domain.Appointment{}, err
		}
		prev := appt.Status
		appt.AddAdminNotes(s.now(), notes)
		saved, err := s.repo.UpdateIfStatus(ctx, appt, prev)
		if errors.Is(err, store.ErrStale) && attempt < staleRetries {
			continue
		}
		return saved, err
	}
}

// Delete removes an appointment outright. Administrative path only; normal
// closure is a status transition.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return domain.NewValidationError("appointment_id is required")
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByScope(ctx context.Context, scopeID uuid.UUID, status *domain.Status) ([]domain.Appointment, error) {
	if scopeID == uuid.Nil {
		return nil, domain.NewValidationError("resource_scope_id is required")
	}
	if status != nil {
		return s.repo.ListByScope(ctx, scopeID, *status)
	}
	return s.repo.ListByScope(ctx, scopeID)
}

func (s *Service) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Appointment, error) {
	if subjectID == uuid.Nil {
		return nil, domain.NewValidationError("subject_id is required")
	}
	return s.repo.ListBySubject(ctx, subjectID)
}

// ActiveBySubject returns the subject's appointments that still count toward
// conflict detection.
func (s *Service) ActiveBySubject(ctx context.Context, subjectID uuid.UUID) ([]domain.Appointment, error) {
	if subjectID == uuid.Nil {
		return nil, domain.NewValidationError("subject_id is required")
	}
	return s.repo.ListBySubject(ctx, subjectID, domain.StatusPending, domain.StatusInProgress)
}

// AvailableSlots produces the bookable intervals for one calendar day:
// candidates from the scope's schedule configuration, minus any that overlap
// an active booking. A closed day yields an empty result; a scope with
// appointments disabled cannot serve bookings at all and surfaces as a
// configuration error rather than a merely empty day.
func (s *Service) AvailableSlots(ctx context.Context, scopeID uuid.UUID, assigneeID *uuid.UUID, date time.Time) ([]domain.Interval, error) {
	if scopeID == uuid.Nil {
		return nil, domain.NewValidationError("resource_scope_id is required")
	}
	cfg, err := s.scheduleFor(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	if !cfg.AppointmentsEnabled {
		return nil, configurationError("appointments are disabled for this scope")
	}

	candidates, err := cfg.CandidateSlots(date)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	year, month, day := date.Date()
	dayStart := time.Date(year, month, day, 0, 0, 0, 0, loc)
	window := domain.Interval{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}

	booked, err := s.repo.ListActiveInWindow(ctx, scopeID, assigneeID, window)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Interval, 0, len(candidates))
	for _, candidate := range candidates {
		if !overlapsAny(candidate, booked) {
			out = append(out, candidate)
		}
	}
	return out, nil
}

type WorkingHours struct {
	Opens  string
	Closes string
	IsOpen bool
	Closed bool
}

// WorkingHours reports the scope's business hours for one calendar day.
// IsOpen is true only when the date is today in the scope's timezone and the
// current local time falls within hours.
func (s *Service) WorkingHours(ctx context.Context, scopeID uuid.UUID, date time.Time) (WorkingHours, error) {
	if scopeID == uuid.Nil {
		return WorkingHours{}, domain.NewValidationError("resource_scope_id is required")
	}
	cfg, err := s.schedules.GetByScope(ctx, scopeID)
	if err != nil {
		// An unconfigured scope reads as closed; a corrupt configuration is
		// an operator problem and surfaces.
		if errors.Is(err, store.ErrNoSchedule) {
			return WorkingHours{Closed: true}, nil
		}
		if errors.Is(err, store.ErrBadSchedule) {
			return WorkingHours{}, configurationError(err.Error())
		}
		return WorkingHours{}, err
	}
	if !cfg.AppointmentsEnabled {
		return WorkingHours{Closed: true}, nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return WorkingHours{}, err
	}
	year, month, day := date.Date()
	weekday := time.Date(year, month, day, 0, 0, 0, 0, loc).Weekday()
	sched, ok := cfg.DayFor(weekday)
	if !ok || sched.IsClosed() {
		return WorkingHours{Closed: true}, nil
	}

	window, err := sched.Window(date, loc)
	if err != nil {
		return WorkingHours{}, err
	}

	now := s.now().In(loc)
	sameDay := now.Year() == year && now.Month() == month && now.Day() == day
	isOpen := sameDay && now.After(window.Start) && now.Before(window.End)

	return WorkingHours{
		Opens:  sched.Start,
		Closes: sched.End,
		IsOpen: isOpen,
	}, nil
}

func (s *Service) scheduleFor(ctx context.Context, scopeID uuid.UUID) (domain.ScheduleConfig, error) {
	cfg, err := s.schedules.GetByScope(ctx, scopeID)
	if err != nil {
		if errors.Is(err, store.ErrNoSchedule) {
			return domain.ScheduleConfig{}, configurationError("no schedule configuration for this scope")
		}
		if errors.Is(err, store.ErrBadSchedule) {
			return domain.ScheduleConfig{}, configurationError(err.Error())
		}
		return domain.ScheduleConfig{}, err
	}
	return cfg, nil
}

func overlapsAny(candidate domain.Interval, booked []domain.Appointment) bool {
	for _, appt := range booked {
		if candidate.Overlaps(appt.Interval()) {
			return true
		}
	}
	return false
}

// emit publishes fire-and-forget: a delivery failure is logged and never
// rolls back the state change that produced the event.
func (s *Service) emit(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		defer cancel()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.log.Warn(
				"event publish failed",
				slog.String("type", string(ev.Type)),
				slog.String("appointment_id", ev.AppointmentID.String()),
				slog.Any("err", err),
			)
		}
	}()
}
