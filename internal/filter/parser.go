package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// DateRange is an inclusive span of calendar days in one timezone
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether evt starts inside the range. Undated events never match.
func (d DateRange) Contains(evt *event.Event) bool {
	if evt.StartDatetime == nil {
		return false
	}
	return !evt.StartDatetime.Before(d.From) && !evt.StartDatetime.After(d.To)
}

// Select returns the events that start inside the range, in input order
func (d DateRange) Select(events []*event.Event) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if d.Contains(evt) {
			out = append(out, evt)
		}
	}
	return out
}

// ParseDateRange parses a day range relative to now, in loc.
//
// Supported formats:
//   - "Jun 1-15" or "June 1-15"
//   - "June 28 - July 4" (a month before now's month rolls to next year)
//   - "June" for the whole month
//   - "today", "weekend" (the coming Friday through Sunday)
func ParseDateRange(input string, now time.Time, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	input = strings.TrimSpace(input)
	if input == "" {
		return DateRange{}, fmt.Errorf("date range cannot be empty")
	}

	switch strings.ToLower(input) {
	case "today":
		return dayRange(now, now, loc), nil
	case "weekend":
		offset := (int(time.Friday) - int(now.Weekday()) + 7) % 7
		if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
			offset = -((int(now.Weekday()) - int(time.Friday) + 7) % 7)
		}
		friday := now.AddDate(0, 0, offset)
		return dayRange(friday, friday.AddDate(0, 0, 2), loc), nil
	}

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		day1, day2, err := parseDays(m[2], m[3])
		if err != nil {
			return DateRange{}, err
		}
		year := yearForMonth(month, now)
		return ordered(
			time.Date(year, month, day1, 0, 0, 0, 0, loc),
			time.Date(year, month, day2, 0, 0, 0, 0, loc),
			loc,
		)
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		month1, month2 := parseMonth(m[1]), parseMonth(m[3])
		day1, day2, err := parseDays(m[2], m[4])
		if err != nil {
			return DateRange{}, err
		}
		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}
		return ordered(
			time.Date(year1, month1, day1, 0, 0, 0, 0, loc),
			time.Date(year2, month2, day2, 0, 0, 0, 0, loc),
			loc,
		)
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)
		first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return dayRange(first, first.AddDate(0, 1, -1), loc), nil
	}

	return DateRange{}, fmt.Errorf("invalid date range %q: use 'Jun 1-15', 'June 28 - July 4', 'June', 'today' or 'weekend'", input)
}

func parseDays(a, b string) (int, int, error) {
	day1, err := strconv.Atoi(a)
	if err != nil || day1 < 1 || day1 > 31 {
		return 0, 0, fmt.Errorf("invalid day: %s", a)
	}
	day2, err := strconv.Atoi(b)
	if err != nil || day2 < 1 || day2 > 31 {
		return 0, 0, fmt.Errorf("invalid day: %s", b)
	}
	return day1, day2, nil
}

func ordered(from, to time.Time, loc *time.Location) (DateRange, error) {
	if from.After(to) {
		return DateRange{}, fmt.Errorf("start date must be before end date")
	}
	return dayRange(from, to, loc), nil
}

// dayRange spans from the start of from's day to the last instant of to's day
func dayRange(from, to time.Time, loc *time.Location) DateRange {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
	return DateRange{From: start, To: end}
}

// parseMonth converts a month name to time.Month, or 0 when unknown
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "sept" {
		return time.September
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if name == full || name == full[:3] {
			return m
		}
	}
	return 0
}

// yearForMonth returns now's year, or the next one when month has already passed
func yearForMonth(month time.Month, now time.Time) int {
	if month < now.Month() {
		return now.Year() + 1
	}
	return now.Year()
}
