package events

import (
	"context"
	"log/slog"
)

// LogPublisher is the fallback when no broker is configured: events are
// logged and dropped.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &LogPublisher{log: log.With(slog.String("component", "events.log"))}
}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	p.log.Info(
		"domain event",
		slog.String("type", string(ev.Type)),
		slog.String("appointment_id", ev.AppointmentID.String()),
		slog.String("resource_scope_id", ev.ScopeID.String()),
		slog.Time("start_time", ev.StartTime),
		slog.Time("end_time", ev.EndTime),
	)
	return nil
}
