package domain

import (
	"testing"
	"time"
)

func baseConfig() ScheduleConfig {
	return ScheduleConfig{
		SlotDurationMinutes: 30,
		BufferMinutes:       0,
		AppointmentsEnabled: true,
		Timezone:            "UTC",
		BusinessHours: map[string]DaySchedule{
			"tuesday": {Start: "09:00:00", End: "10:00:00"},
		},
	}
}

// 2026-03-03 is a Tuesday.
var tuesday = time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

func TestCandidateSlots_Deterministic(t *testing.T) {
	cfg := baseConfig()

	slots, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	want := []Interval{
		{Start: time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC)},
		{Start: time.Date(2026, 3, 3, 9, 30, 0, 0, time.UTC), End: time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)},
	}
	for i := range want {
		if !slots[i].Start.Equal(want[i].Start) || !slots[i].End.Equal(want[i].End) {
			t.Fatalf("slot[%d] = %v-%v, want %v-%v", i, slots[i].Start, slots[i].End, want[i].Start, want[i].End)
		}
	}

	again, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(again) != len(slots) {
		t.Fatalf("second run len = %d, want %d", len(again), len(slots))
	}
}

func TestCandidateSlots_BufferAdvancesCursor(t *testing.T) {
	cfg := baseConfig()
	cfg.BufferMinutes = 15

	slots, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	// 09:00-09:30 fits; next candidate starts 09:45 and ends 10:15, past close.
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
}

func TestCandidateSlots_FinalSlotMayEndAtClose(t *testing.T) {
	cfg := baseConfig()
	cfg.SlotDurationMinutes = 60

	slots, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("len(slots) = %d, want 1", len(slots))
	}
	if !slots[0].End.Equal(time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("slot end = %v, want closing time", slots[0].End)
	}
}

func TestCandidateSlots_SlotLongerThanWindow(t *testing.T) {
	cfg := baseConfig()
	cfg.SlotDurationMinutes = 90

	slots, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0", len(slots))
	}
}

func TestCandidateSlots_ClosedAndAbsentDays(t *testing.T) {
	cfg := baseConfig()
	cfg.BusinessHours["wednesday"] = DaySchedule{Start: "09:00:00", End: "17:00:00", Closed: true}

	wednesday := tuesday.AddDate(0, 0, 1)
	slots, err := cfg.CandidateSlots(wednesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day len(slots) = %d, want 0", len(slots))
	}

	thursday := tuesday.AddDate(0, 0, 2)
	slots, err = cfg.CandidateSlots(thursday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("absent day len(slots) = %d, want 0", len(slots))
	}
}

func TestCandidateSlots_TimezoneResolution(t *testing.T) {
	cfg := baseConfig()
	cfg.Timezone = "America/New_York"

	slots, err := cfg.CandidateSlots(tuesday)
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	// 09:00 Eastern is 14:00 UTC on that date.
	want := time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC)
	if !slots[0].Start.Equal(want) {
		t.Fatalf("slot start = %v, want %v", slots[0].Start, want)
	}
	if slots[0].Start.Location() != time.UTC {
		t.Fatalf("slot bounds must be normalized to UTC")
	}
}

func TestCandidateSlots_SpringForwardKeepsWallClockBoundaries(t *testing.T) {
	// 2026-03-08 is the US spring-forward Sunday; 02:00-03:00 local does not
	// exist. Slots must keep their wall-clock boundaries, and the candidate
	// swallowed by the skipped hour is dropped rather than emitted empty.
	cfg := baseConfig()
	cfg.Timezone = "America/New_York"
	cfg.SlotDurationMinutes = 60
	cfg.BusinessHours = map[string]DaySchedule{
		"sunday": {Start: "01:00:00", End: "05:00:00"},
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	slots, err := cfg.CandidateSlots(time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("len(slots) = %d, want 3", len(slots))
	}
	wantLocalHours := []int{1, 3, 4}
	for i, slot := range slots {
		if got := slot.Start.In(loc).Hour(); got != wantLocalHours[i] {
			t.Fatalf("slot[%d] local start hour = %d, want %d", i, got, wantLocalHours[i])
		}
	}
	// 01:00 EST is 06:00 UTC; its end, wall-clock 02:00, folds forward to
	// 03:00 EDT which is 07:00 UTC.
	if !slots[0].Start.Equal(time.Date(2026, 3, 8, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("slot[0] start = %v, want 06:00Z", slots[0].Start)
	}
	if !slots[0].End.Equal(time.Date(2026, 3, 8, 7, 0, 0, 0, time.UTC)) {
		t.Fatalf("slot[0] end = %v, want 07:00Z", slots[0].End)
	}
}

func TestCandidateSlots_FallBackDayHasNoDuplicateSlots(t *testing.T) {
	// 2026-11-01 is the US fall-back Sunday; 01:00-02:00 local occurs twice.
	// Stepping in wall-clock time yields exactly one slot per local hour
	// instead of repeating the doubled hour.
	cfg := baseConfig()
	cfg.Timezone = "America/New_York"
	cfg.SlotDurationMinutes = 60
	cfg.BusinessHours = map[string]DaySchedule{
		"sunday": {Start: "01:00:00", End: "03:00:00"},
	}
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}

	slots, err := cfg.CandidateSlots(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("CandidateSlots error: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(slots) = %d, want 2", len(slots))
	}
	if got := slots[0].Start.In(loc).Hour(); got != 1 {
		t.Fatalf("slot[0] local start hour = %d, want 1", got)
	}
	if got := slots[1].Start.In(loc).Hour(); got != 2 {
		t.Fatalf("slot[1] local start hour = %d, want 2", got)
	}
	if got := slots[1].End.In(loc).Hour(); got != 3 {
		t.Fatalf("slot[1] local end hour = %d, want 3", got)
	}
}

func TestParseScheduleConfig(t *testing.T) {
	raw := []byte(`{
		"slotDuration": 30,
		"bufferBetweenAppointments": 10,
		"appointmentEnabled": true,
		"timezone": "Europe/Berlin",
		"businessHours": {
			"monday": {"start": "09:00:00", "end": "17:00:00"},
			"sunday": {"closed": true}
		}
	}`)

	cfg, err := ParseScheduleConfig(raw)
	if err != nil {
		t.Fatalf("ParseScheduleConfig error: %v", err)
	}
	if cfg.SlotDurationMinutes != 30 || cfg.BufferMinutes != 10 {
		t.Fatalf("durations = %d/%d, want 30/10", cfg.SlotDurationMinutes, cfg.BufferMinutes)
	}
	if !cfg.AppointmentsEnabled {
		t.Fatalf("expected appointments enabled")
	}
	day, ok := cfg.DayFor(time.Monday)
	if !ok || day.Start != "09:00:00" {
		t.Fatalf("monday = %+v ok=%v, want configured day", day, ok)
	}
	if sunday, _ := cfg.DayFor(time.Sunday); !sunday.IsClosed() {
		t.Fatalf("sunday must read as closed")
	}
}

func TestParseScheduleConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "not json", raw: "{"},
		{name: "zero slot duration", raw: `{"slotDuration": 0, "timezone": "UTC"}`},
		{name: "negative buffer", raw: `{"slotDuration": 30, "bufferBetweenAppointments": -1}`},
		{name: "bad timezone", raw: `{"slotDuration": 30, "timezone": "Not/AZone"}`},
		{name: "inverted hours", raw: `{"slotDuration": 30, "businessHours": {"monday": {"start": "17:00:00", "end": "09:00:00"}}}`},
		{name: "bad time format", raw: `{"slotDuration": 30, "businessHours": {"monday": {"start": "9am", "end": "17:00:00"}}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseScheduleConfig([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDayScheduleWindow(t *testing.T) {
	day := DaySchedule{Start: "09:00:00", End: "17:30:00"}
	window, err := day.Window(tuesday, time.UTC)
	if err != nil {
		t.Fatalf("Window error: %v", err)
	}
	if !window.Start.Equal(time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("window start = %v", window.Start)
	}
	if !window.End.Equal(time.Date(2026, 3, 3, 17, 30, 0, 0, time.UTC)) {
		t.Fatalf("window end = %v", window.End)
	}

	if _, err := (DaySchedule{Start: "bogus", End: "17:00:00"}).Window(tuesday, time.UTC); err == nil {
		t.Fatalf("expected error for malformed start")
	}
}

func TestScheduleConfigLocation_DefaultsToUTC(t *testing.T) {
	cfg := ScheduleConfig{}
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location error: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
}

func TestParseLocalTime_ShortForm(t *testing.T) {
	got, err := parseLocalTime("09:30")
	if err != nil {
		t.Fatalf("parseLocalTime error: %v", err)
	}
	if got.hour != 9 || got.minute != 30 || got.second != 0 {
		t.Fatalf("parsed = %+v, want 09:30:00", got)
	}
	if _, err := parseLocalTime("25:00"); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}
