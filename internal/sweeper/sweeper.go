package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"meetlines/backend/internal/domain"
	"meetlines/backend/internal/store"
)

// Sweeper advances appointments through their time-driven transitions:
// pending ones whose start has arrived are started, in_progress ones whose
// end has passed are completed. Each aggregate is processed in isolation so
// one failure never aborts the batch; anything skipped is picked up again on
// the next tick.
type Sweeper struct {
	repo     store.AppointmentRepository
	log      *slog.Logger
	interval time.Duration
	now      func() time.Time

	running sync.Mutex
}

func New(repo store.AppointmentRepository, log *slog.Logger, interval time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		repo:     repo,
		log:      log.With(slog.String("component", "sweeper")),
		interval: interval,
		now:      time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep executes one pass. Ticks that arrive while a previous pass is still
// running are skipped; the queries are idempotent so nothing is lost.
func (s *Sweeper) Sweep(ctx context.Context) {
	if !s.running.TryLock() {
		s.log.Debug("sweep still running; skipping tick")
		return
	}
	defer s.running.Unlock()

	now := s.now()
	s.startDue(ctx, now)
	s.completeDue(ctx, now)
}

func (s *Sweeper) startDue(ctx context.Context, now time.Time) {
	due, err := s.repo.ListDueToStart(ctx, now)
	if err != nil {
		s.log.Error("due-to-start query failed", slog.Any("err", err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("starting due appointments", slog.Int("count", len(due)))

	for _, appt := range due {
		// Time-derived status is the decision aid; the stored status stays
		// authoritative (the query never returns cancelled rows).
		want, err := domain.StatusForTime(now, appt.Interval())
		if err != nil || want == domain.StatusPending {
			continue
		}
		if err := appt.Start(now, ""); err != nil {
			s.log.Warn("auto-start skipped", slog.String("appointment_id", appt.ID.String()), slog.Any("err", err))
			continue
		}
		// Guarded on pending: a cancellation that landed after the list
		// query leaves the row alone instead of being overwritten.
		if _, err := s.repo.UpdateIfStatus(ctx, appt, domain.StatusPending); err != nil {
			if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrNotFound) {
				s.log.Info("auto-start skipped; appointment changed concurrently", slog.String("appointment_id", appt.ID.String()))
				continue
			}
			s.log.Error("auto-start save failed", slog.String("appointment_id", appt.ID.String()), slog.Any("err", err))
			continue
		}
		s.log.Info("appointment started", slog.String("appointment_id", appt.ID.String()), slog.Time("start_time", appt.StartTime))
	}
}

func (s *Sweeper) completeDue(ctx context.Context, now time.Time) {
	due, err := s.repo.ListDueToComplete(ctx, now)
	if err != nil {
		s.log.Error("due-to-complete query failed", slog.Any("err", err))
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Info("completing due appointments", slog.Int("count", len(due)))

	for _, appt := range due {
		want, err := domain.StatusForTime(now, appt.Interval())
		if err != nil || want != domain.StatusCompleted {
			continue
		}
		if err := appt.Complete(now); err != nil {
			s.log.Warn("auto-complete skipped", slog.String("appointment_id", appt.ID.String()), slog.Any("err", err))
			continue
		}
		if _, err := s.repo.UpdateIfStatus(ctx, appt, domain.StatusInProgress); err != nil {
			if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrNotFound) {
				s.log.Info("auto-complete skipped; appointment changed concurrently", slog.String("appointment_id", appt.ID.String()))
				continue
			}
			s.log.Error("auto-complete save failed", slog.String("appointment_id", appt.ID.String()), slog.Any("err", err))
			continue
		}
		s.log.Info("appointment completed", slog.String("appointment_id", appt.ID.String()), slog.Time("end_time", appt.EndTime))
	}
}
