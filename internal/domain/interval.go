package domain

import "time"

// Interval is a half-open time range [Start, End). Candidate slots and booked
// appointments use the same representation.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) IsValid() bool {
	return i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

func (i Interval) Minutes() int {
	return int(i.Duration() / time.Minute)
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints do not overlap, so back-to-back bookings are allowed.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// UTC returns the interval with both bounds normalized to UTC.
func (i Interval) UTC() Interval {
	return Interval{Start: i.Start.UTC(), End: i.End.UTC()}
}
