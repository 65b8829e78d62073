// Package calendar renders ranked events as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// DefaultDuration is used when an event has no end time
const DefaultDuration = 2 * time.Hour

// DefaultName is the calendar name shown by clients
const DefaultName = "Charlotte Events"

// maxLineOctets is the RFC 5545 content line limit, excluding CRLF
const maxLineOctets = 75

// GenerateICS renders dated events as one VCALENDAR. Undated events are skipped.
func GenerateICS(events []*event.Event, name string, now time.Time) string {
	var ics strings.Builder

	writeLine(&ics, "BEGIN:VCALENDAR")
	writeLine(&ics, "VERSION:2.0")
	writeLine(&ics, "PRODID:-//clt-events//clt-events//EN")
	writeLine(&ics, "CALSCALE:GREGORIAN")
	writeLine(&ics, "METHOD:PUBLISH")
	if name != "" {
		writeLine(&ics, "X-WR-CALNAME:"+escapeICS(name))
	}

	for _, evt := range events {
		if evt.StartDatetime == nil {
			continue
		}
		writeEvent(&ics, evt, now)
	}

	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

// WriteICS writes the feed produced by GenerateICS to w
func WriteICS(w io.Writer, events []*event.Event, name string, now time.Time) error {
	if _, err := io.WriteString(w, GenerateICS(events, name, now)); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	return nil
}

func writeEvent(ics *strings.Builder, evt *event.Event, now time.Time) {
	start := *evt.StartDatetime
	end := start.Add(DefaultDuration)
	if evt.EndDatetime != nil && evt.EndDatetime.After(start) {
		end = *evt.EndDatetime
	}

	writeLine(ics, "BEGIN:VEVENT")
	writeLine(ics, fmt.Sprintf("UID:%s@clt-events", evt.ID))
	writeLine(ics, "DTSTAMP:"+formatICSTime(now))
	writeLine(ics, "DTSTART:"+formatICSTime(start))
	writeLine(ics, "DTEND:"+formatICSTime(end))
	writeLine(ics, "SUMMARY:"+escapeICS(evt.Title))

	if desc := description(evt); desc != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(desc))
	}
	if loc := location(evt.Venue); loc != "" {
		writeLine(ics, "LOCATION:"+escapeICS(loc))
	}
	if evt.Venue.Lat != nil && evt.Venue.Lng != nil {
		writeLine(ics, fmt.Sprintf("GEO:%.6f;%.6f", *evt.Venue.Lat, *evt.Venue.Lng))
	}
	if evt.URL != nil && *evt.URL != "" {
		writeLine(ics, "URL:"+*evt.URL)
	}
	if len(evt.Category) > 0 {
		cats := make([]string, 0, len(evt.Category))
		for _, c := range evt.Category {
			cats = append(cats, escapeICS(strings.ToUpper(c)))
		}
		writeLine(ics, "CATEGORIES:"+strings.Join(cats, ","))
	}

	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "SEQUENCE:0")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

func description(evt *event.Event) string {
	var parts []string
	if evt.Description != "" {
		parts = append(parts, evt.Description)
	}
	if evt.Price.Notes != "" {
		parts = append(parts, "Price: "+evt.Price.Notes)
	}
	if evt.Source.Name != "" {
		parts = append(parts, "Source: "+evt.Source.Name)
	}
	return strings.Join(parts, "\n\n")
}

func location(v event.Venue) string {
	var parts []string
	for _, p := range []string{v.Name, v.Address, v.Neighborhood} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// writeLine folds content lines longer than 75 octets without splitting a UTF-8 sequence
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// continuation lines spend one octet on the leading space
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// formatICSTime formats a time.Time as an iCalendar datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
