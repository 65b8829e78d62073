// Package filter selects and orders the deduplicated event set.
//
// Filtering drops events that fall outside the publishing window or that
// match the family/children exclusion policy:
//   - Past: the event started before now
//   - Beyond window: the event starts more than WindowDays after now
//   - Excluded keyword: title or description matches the exclusion pattern
//
// Undated events are never removed by the window rules.
//
// Ranking scores each surviving event from its confidence, categories and
// start time, then sorts descending with ties kept in input order.
//
// Example usage:
//
//	f := filter.NewFilter(now, 14)
//	r := filter.NewRanker(now, loc)
//	ranked, stats := filter.Apply(f, r, events)
package filter

import (
	"fmt"
	"regexp"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// DefaultWindowDays is how far ahead events are published
const DefaultWindowDays = 14

// DefaultExclude matches listings aimed at families and young children
var DefaultExclude = regexp.MustCompile(`(?i)kids|children|family|toddler|baby`)

// Reason explains why an event was filtered out
type Reason string

// Exclusion reasons
const (
	ReasonPast            Reason = "past"
	ReasonBeyondWindow    Reason = "beyond_window"
	ReasonExcludedKeyword Reason = "excluded_keyword"
)

// Reasons lists every exclusion reason in reporting order
var Reasons = []Reason{ReasonPast, ReasonBeyondWindow, ReasonExcludedKeyword}

// Stats counts what a filter pass did
type Stats struct {
	Input    int
	Kept     int
	Undated  int
	Excluded map[Reason]int
}

// Filter represents event exclusion criteria
type Filter struct {
	Now        time.Time
	WindowDays int            // Zero or negative disables the upper bound
	Exclude    *regexp.Regexp // Matched against title + description
}

// NewFilter creates a filter with the default exclusion pattern
func NewFilter(now time.Time, windowDays int) *Filter {
	return &Filter{
		Now:        now,
		WindowDays: windowDays,
		Exclude:    DefaultExclude,
	}
}

// Reason returns why evt is excluded, or "" when it is kept.
// Date rules are checked before the keyword rule.
func (f *Filter) Reason(evt *event.Event) Reason {
	if evt.IsPast(f.Now) {
		return ReasonPast
	}
	if !evt.IsWithinDays(f.Now, f.WindowDays) {
		return ReasonBeyondWindow
	}
	if f.Exclude != nil && f.Exclude.MatchString(evt.Title+" "+evt.Description) {
		return ReasonExcludedKeyword
	}
	return ""
}

// Matches reports whether evt survives the filter
func (f *Filter) Matches(evt *event.Event) bool {
	return f.Reason(evt) == ""
}

// Apply returns the events that survive the filter, in input order
func (f *Filter) Apply(events []*event.Event) ([]*event.Event, Stats) {
	stats := Stats{
		Input:    len(events),
		Excluded: make(map[Reason]int, len(Reasons)),
	}

	kept := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if reason := f.Reason(evt); reason != "" {
			stats.Excluded[reason]++
			continue
		}
		if evt.StartDatetime == nil {
			stats.Undated++
		}
		kept = append(kept, evt)
	}

	stats.Kept = len(kept)
	return kept, stats
}

// String returns a human-readable description of the filter
func (f *Filter) String() string {
	window := "no window"
	if f.WindowDays > 0 {
		window = fmt.Sprintf("next %d days", f.WindowDays)
	}
	exclude := "none"
	if f.Exclude != nil {
		exclude = f.Exclude.String()
	}
	return fmt.Sprintf("From: %s | Window: %s | Exclude: %s", f.Now.UTC().Format("Jan 2, 2006"), window, exclude)
}

// Apply filters events then ranks the survivors
func Apply(f *Filter, r *Ranker, events []*event.Event) ([]*event.Event, Stats) {
	kept, stats := f.Apply(events)
	return r.Rank(kept), stats
}
