package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DaySchedule is one weekday's business hours. Times are local "HH:MM:SS"
// strings in the scope's configured timezone; a closed day, or a day with a
// missing bound, yields no candidate slots.
type DaySchedule struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Closed bool   `json:"closed"`
}

func (d DaySchedule) IsClosed() bool {
	return d.Closed || strings.TrimSpace(d.Start) == "" || strings.TrimSpace(d.End) == ""
}

// Window resolves the day's opening hours to an absolute interval on the
// given calendar date in loc.
func (d DaySchedule) Window(date time.Time, loc *time.Location) (Interval, error) {
	opens, err := parseLocalTime(d.Start)
	if err != nil {
		return Interval{}, err
	}
	closes, err := parseLocalTime(d.End)
	if err != nil {
		return Interval{}, err
	}
	year, month, day := date.Date()
	return Interval{
		Start: time.Date(year, month, day, opens.hour, opens.minute, opens.second, 0, loc),
		End:   time.Date(year, month, day, closes.hour, closes.minute, closes.second, 0, loc),
	}, nil
}

// ScheduleConfig is the per-scope slot policy, decoded from the stored JSON
// configuration blob.
type ScheduleConfig struct {
	SlotDurationMinutes int                    `json:"slotDuration"`
	BufferMinutes       int                    `json:"bufferBetweenAppointments"`
	AppointmentsEnabled bool                   `json:"appointmentEnabled"`
	Timezone            string                 `json:"timezone"`
	BusinessHours       map[string]DaySchedule `json:"businessHours"`
}

func ParseScheduleConfig(raw []byte) (ScheduleConfig, error) {
	if len(raw) == 0 {
		return ScheduleConfig{}, errors.New("schedule configuration is empty")
	}
	var cfg ScheduleConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ScheduleConfig{}, fmt.Errorf("decode schedule configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ScheduleConfig{}, err
	}
	return cfg, nil
}

func (c ScheduleConfig) Validate() error {
	if c.SlotDurationMinutes <= 0 {
		return errors.New("slotDuration must be positive")
	}
	if c.BufferMinutes < 0 {
		return errors.New("bufferBetweenAppointments must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	for key, day := range c.BusinessHours {
		if day.IsClosed() {
			continue
		}
		opens, err := parseLocalTime(day.Start)
		if err != nil {
			return fmt.Errorf("invalid start time for %s: %w", key, err)
		}
		closes, err := parseLocalTime(day.End)
		if err != nil {
			return fmt.Errorf("invalid end time for %s: %w", key, err)
		}
		if !opens.before(closes) {
			return fmt.Errorf("start must be before end for %s", key)
		}
	}
	return nil
}

// Location resolves the configured IANA zone, defaulting to UTC when unset.
func (c ScheduleConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

// DayFor returns the business hours for a weekday. Absent entries count as
// closed.
func (c ScheduleConfig) DayFor(weekday time.Weekday) (DaySchedule, bool) {
	day, ok := c.BusinessHours[strings.ToLower(weekday.String())]
	return day, ok
}

// CandidateSlots expands one calendar day's business hours into the candidate
// intervals a booking could occupy. Only the year, month and day of date are
// used; instants are constructed in the configured timezone and returned in
// UTC. A closed or unconfigured day yields an empty sequence, not an error.
//
// Cursor arithmetic stays in wall-clock seconds and each bound is rebuilt
// with time.Date, so slots keep their local boundaries on DST transition
// days instead of drifting by the offset change. A candidate collapsed by a
// skipped hour is dropped.
func (c ScheduleConfig) CandidateSlots(date time.Time) ([]Interval, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	year, month, day := date.Date()
	weekday := time.Date(year, month, day, 0, 0, 0, 0, loc).Weekday()

	sched, ok := c.DayFor(weekday)
	if !ok || sched.IsClosed() {
		return nil, nil
	}

	opens, err := parseLocalTime(sched.Start)
	if err != nil {
		return nil, err
	}
	closes, err := parseLocalTime(sched.End)
	if err != nil {
		return nil, err
	}

	slot := c.SlotDurationMinutes * 60
	step := slot + c.BufferMinutes*60

	var out []Interval
	for cur := opens.seconds(); cur+slot <= closes.seconds(); cur += step {
		iv := Interval{
			Start: time.Date(year, month, day, 0, 0, cur, 0, loc).UTC(),
			End:   time.Date(year, month, day, 0, 0, cur+slot, 0, loc).UTC(),
		}
		if !iv.IsValid() {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

type localTime struct {
	hour, minute, second int
}

func (t localTime) seconds() int {
	return t.hour*3600 + t.minute*60 + t.second
}

func (t localTime) before(other localTime) bool {
	if t.hour != other.hour {
		return t.hour < other.hour
	}
	if t.minute != other.minute {
		return t.minute < other.minute
	}
	return t.second < other.second
}

func parseLocalTime(s string) (localTime, error) {
	s = strings.TrimSpace(s)
	layouts := []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return localTime{hour: parsed.Hour(), minute: parsed.Minute(), second: parsed.Second()}, nil
		}
	}
	return localTime{}, fmt.Errorf("invalid local time %q", s)
}
