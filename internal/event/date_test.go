package event

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	tests := []struct {
		when  string
		year  int
		month time.Month
		day   int
	}{
		{"2026-09-12", 2026, time.September, 12},
		{"2026-09-12T10:00:00.000Z", 2026, time.September, 12},
		{"September 12, 2026", 2026, time.September, 12},
		{"Sep 12, 2026", 2026, time.September, 12},
		{"09/12/2026", 2026, time.September, 12},
		{"Sat, Sep 12 at 7:00 PM", time.Now().UTC().Year(), time.September, 12},
	}

	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			got := ParseWhen(tt.when)
			if got.IsZero() {
				t.Fatalf("ParseWhen(%q) returned zero time", tt.when)
			}
			if got.Year() != tt.year || got.Month() != tt.month || got.Day() != tt.day {
				t.Errorf("ParseWhen(%q) = %v, want %d-%d-%d", tt.when, got, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestParseWhenUnparseable(t *testing.T) {
	for _, when := range []string{"", "N/A", "next weekend", "soon"} {
		if got := ParseWhen(when); !got.IsZero() {
			t.Errorf("ParseWhen(%q) = %v, want zero time", when, got)
		}
	}
}

func TestDateToken(t *testing.T) {
	tests := []struct {
		when, want string
	}{
		{"2026-09-12", "2026-09-12"},
		{"September 12, 2026", "2026-09-12"},
		{"Next  Weekend", "next weekend"},
		{"N/A", "n/a"},
	}

	for _, tt := range tests {
		if got := DateToken(tt.when); got != tt.want {
			t.Errorf("DateToken(%q) = %q, want %q", tt.when, got, tt.want)
		}
	}
}

func TestDateRangeContains(t *testing.T) {
	r := DateRange{
		Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 14, 23, 59, 59, 0, time.UTC),
	}

	if !r.Contains(r.Start) {
		t.Error("range should include its start")
	}
	if !r.Contains(r.End) {
		t.Error("range should include its end")
	}
	if r.Contains(r.Start.Add(-time.Second)) {
		t.Error("range should exclude instants before start")
	}
	if r.Contains(r.End.Add(time.Second)) {
		t.Error("range should exclude instants after end")
	}

	var open DateRange
	if !open.Contains(time.Now()) {
		t.Error("zero range should admit everything")
	}
}

func TestDefaultRange(t *testing.T) {
	now := time.Date(2026, 9, 12, 15, 30, 0, 0, time.UTC)
	r := DefaultRange(now, 14)

	if got := r.Start; got != time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC) {
		t.Errorf("expected start of today, got %v", got)
	}
	if !r.Contains(time.Date(2026, 9, 26, 23, 0, 0, 0, time.UTC)) {
		t.Error("day 14 should be inside the window")
	}
	if r.Contains(time.Date(2026, 9, 27, 1, 0, 0, 0, time.UTC)) {
		t.Error("day 15 should be outside the window")
	}
}

func TestFilterRange(t *testing.T) {
	r := DateRange{
		Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 14, 23, 59, 59, 0, time.UTC),
	}

	events := []*Event{
		New(SourceSchoolCalendar, "Inside", "2026-09-10"),
		New(SourceSchoolCalendar, "Outside", "2026-10-10"),
		New(SourceSocialFeed, "Vague", "next weekend"),
	}

	got := FilterRange(events, r)
	if len(got) != 2 {
		t.Fatalf("expected 2 events after filtering, got %d", len(got))
	}
	for _, evt := range got {
		if evt.Title == "Outside" {
			t.Error("event outside window should have been dropped")
		}
	}
}
