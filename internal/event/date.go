package event

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// layouts tried in order before falling back to dateparse.
// Layouts without a zone are interpreted in the caller's location.
var layouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 02 2006",
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006 3:04 PM",
	"1.2.06",
	"01.02.06",
	"01/02/06",
	"01/02/2006",
}

// yearless layouts assume the current year
var yearless = []string{
	"Jan 02",
	"Jan 2",
	"January 2",
}

// ParseDate parses free-form date text in UTC.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDate(dateText string) time.Time {
	return ParseDateIn(dateText, time.UTC)
}

// ParseDateIn parses free-form date text, interpreting zone-less values in loc.
// Returns time.Time{} (zero value) if parsing fails.
func ParseDateIn(dateText string, loc *time.Location) time.Time {
	dateText = strings.TrimSpace(dateText)
	if dateText == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, dateText, loc); err == nil {
			return t
		}
	}

	for _, layout := range yearless {
		if t, err := time.ParseInLocation(layout, dateText, loc); err == nil {
			now := time.Now().In(loc)
			return time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		}
	}

	t, err := dateparse.ParseIn(dateText, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsPast reports whether the event started before now.
// Returns false if the start is unknown.
func (e *Event) IsPast(now time.Time) bool {
	if e.StartDatetime == nil {
		return false
	}
	return e.StartDatetime.Before(now)
}

// IsWithinDays reports whether the event starts no later than days from now.
// Returns true if days <= 0 (window disabled) or the start is unknown.
func (e *Event) IsWithinDays(now time.Time, days int) bool {
	if days <= 0 || e.StartDatetime == nil {
		return true
	}
	return !e.StartDatetime.After(now.AddDate(0, 0, days))
}
