// Package dedupe collapses near-duplicate events reported by different sources.
package dedupe

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// MergeWindow is the largest start-time gap two events may have and still be merged
const MergeWindow = 6 * time.Hour

// NormalizeForMatching lowercases s, strips diacritics and punctuation, and collapses whitespace
func NormalizeForMatching(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Key returns the coarse identity used to group events: title|venue|date
func Key(e *event.Event) string {
	day := ""
	if e.StartDatetime != nil {
		day = e.StartDatetime.UTC().Format("2006-01-02")
	}
	return NormalizeForMatching(e.Title) + "|" + NormalizeForMatching(e.Venue.Name) + "|" + day
}

// Merge reconciles two events sharing a key. On equal confidence a wins.
// The result is a new event; neither input is modified.
func Merge(a, b *event.Event) *event.Event {
	primary, secondary := a, b
	if b.Confidence > a.Confidence {
		primary, secondary = b, a
	}

	if a.StartDatetime != nil && b.StartDatetime != nil {
		gap := a.StartDatetime.Sub(*b.StartDatetime)
		if gap < 0 {
			gap = -gap
		}
		if gap > MergeWindow {
			return primary.Clone()
		}
	}

	m := primary.Clone()
	s := secondary.Clone()

	if m.Description == "" {
		m.Description = s.Description
	}
	if m.EndDatetime == nil {
		m.EndDatetime = s.EndDatetime
	}
	if m.Venue.Address == "" {
		m.Venue.Address = s.Venue.Address
	}
	if m.Venue.Neighborhood == "" {
		m.Venue.Neighborhood = s.Venue.Neighborhood
	}
	if m.Venue.Lat == nil {
		m.Venue.Lat = s.Venue.Lat
	}
	if m.Venue.Lng == nil {
		m.Venue.Lng = s.Venue.Lng
	}
	if m.Image == nil || *m.Image == "" {
		m.Image = s.Image
	}
	if m.Price.Min == nil {
		m.Price.Min = s.Price.Min
	}
	if m.Price.Max == nil {
		m.Price.Max = s.Price.Max
	}
	if m.Price.Notes == "" {
		m.Price.Notes = s.Price.Notes
	}

	m.Tags = event.UniqueLabels(append(m.Tags, s.Tags...))
	m.Source.MergedFrom = s.Source.Name
	m.Confidence = event.Confidence(m)
	return m
}

// Dedupe keeps one representative per key, in order of first appearance
func Dedupe(events []*event.Event) []*event.Event {
	index := make(map[string]int, len(events))
	out := make([]*event.Event, 0, len(events))

	for _, e := range events {
		k := Key(e)
		if i, ok := index[k]; ok {
			out[i] = Merge(out[i], e)
			continue
		}
		index[k] = len(out)
		out = append(out, e)
	}
	return out
}
