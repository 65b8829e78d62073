// Package normalize converts raw adapter candidates into canonical events.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/event"
)

// Normalizer builds canonical events in a fixed timezone
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClock sets the time source for scraped_at
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer that reads zone-less dates in loc
func New(loc *time.Location, opts ...Option) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize sanitizes text, parses dates, stamps provenance and computes id and confidence
func (n *Normalizer) Normalize(raw adapter.RawCandidate, src adapter.Source) *event.Event {
	e := &event.Event{
		Title:         Sanitize(raw.Title),
		Description:   Sanitize(raw.Description),
		StartDatetime: n.Date(raw.StartText),
		EndDatetime:   n.Date(raw.EndText),
		Venue: event.Venue{
			Name:         Sanitize(raw.Venue.Name),
			Address:      Sanitize(raw.Venue.Address),
			Neighborhood: Sanitize(raw.Venue.Neighborhood),
			Lat:          raw.Venue.Lat,
			Lng:          raw.Venue.Lng,
		},
		Category: event.UniqueLabels(raw.Category),
		Price: event.Price{
			Min:      raw.Price.Min,
			Max:      raw.Price.Max,
			Currency: raw.Price.Currency,
			Notes:    Sanitize(raw.Price.Notes),
		},
		Image: event.StringPtr(Sanitize(raw.Image)),
		URL:   event.StringPtr(Sanitize(raw.URL)),
		Tags:  append([]string{}, raw.Tags...),
		Source: event.Source{
			Name:      src.Name,
			URL:       raw.SourceURL,
			ScrapedAt: n.now().UTC(),
		},
	}

	if e.Price.Currency == "" {
		e.Price.Currency = event.DefaultCurrency
	}
	if e.Source.URL == "" {
		e.Source.URL = src.URL
	}

	e.ID = event.GenerateID(e.Title, e.Venue.Name, e.StartDatetime)
	e.Confidence = event.Confidence(e)
	return e
}

// NormalizeAll normalizes every candidate of one source
func (n *Normalizer) NormalizeAll(raws []adapter.RawCandidate, src adapter.Source) []*event.Event {
	out := make([]*event.Event, 0, len(raws))
	for _, r := range raws {
		out = append(out, n.Normalize(r, src))
	}
	return out
}

// Date parses date text into a UTC instant, or nil when empty or unparseable
func (n *Normalizer) Date(text string) *time.Time {
	t := event.ParseDateIn(text, n.loc)
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

// Sanitize applies NFKC, drops control characters and collapses whitespace runs
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
