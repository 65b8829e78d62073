package filter

import (
	"testing"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

func TestParseDateRange(t *testing.T) {
	base := time.Date(2024, 6, 5, 15, 0, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "Jun 1-15",
			input:    "Jun 1-15",
			wantFrom: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 6, 15, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "June 28 - July 4",
			input:    "June 28 - July 4",
			wantFrom: time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 7, 4, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "Dec 28 - Jan 3 crosses the year",
			input:    "Dec 28 - Jan 3",
			wantFrom: time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 1, 3, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "past month rolls to next year",
			input:    "March",
			wantFrom: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "Sept abbreviation",
			input:    "sept",
			wantFrom: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 9, 30, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "today",
			input:    "Today",
			wantFrom: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 6, 5, 23, 59, 59, 999999999, time.UTC),
		},
		{
			name:     "weekend",
			input:    "weekend",
			wantFrom: time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 6, 9, 23, 59, 59, 999999999, time.UTC),
		},
		{name: "empty string", input: "", wantErr: true},
		{name: "invalid format", input: "not a date", wantErr: true},
		{name: "invalid day", input: "Jun 50-60", wantErr: true},
		{name: "reversed", input: "Jun 15-1", wantErr: true},
		{name: "invalid month", input: "Xxx 1-15", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateRange(tt.input, base, time.UTC)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDateRange() expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange() unexpected error: %v", err)
			}
			if !got.From.Equal(tt.wantFrom) || !got.To.Equal(tt.wantTo) {
				t.Errorf("ParseDateRange() = %v..%v, want %v..%v", got.From, got.To, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestParseDateRange_WeekendFromSaturday(t *testing.T) {
	saturday := time.Date(2024, 6, 8, 9, 0, 0, 0, time.UTC)
	got, err := ParseDateRange("weekend", saturday, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.From.Day() != 7 || got.To.Day() != 9 {
		t.Errorf("expected the current weekend, got %v..%v", got.From, got.To)
	}
}

func TestDateRange_Select(t *testing.T) {
	rng := DateRange{
		From: time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 6, 9, 23, 59, 59, 0, time.UTC),
	}
	events := []*event.Event{
		{ID: "in", StartDatetime: timePtr(time.Date(2024, 6, 8, 20, 0, 0, 0, time.UTC))},
		{ID: "before", StartDatetime: timePtr(time.Date(2024, 6, 6, 20, 0, 0, 0, time.UTC))},
		{ID: "undated"},
		{ID: "edge", StartDatetime: timePtr(rng.From)},
	}

	got := rng.Select(events)
	if len(got) != 2 || got[0].ID != "in" || got[1].ID != "edge" {
		t.Errorf("unexpected selection %v", got)
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input string
		want  time.Month
	}{
		{"jan", time.January},
		{"January", time.January},
		{"JUNE", time.June},
		{"sep", time.September},
		{"sept", time.September},
		{"dec", time.December},
		{"invalid", time.Month(0)},
		{"", time.Month(0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseMonth(tt.input); got != tt.want {
				t.Errorf("parseMonth(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
