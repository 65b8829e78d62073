package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByScore SortOrder = "score"
	SortByDate  SortOrder = "date"
	SortByTitle SortOrder = "title"
)

// sortEvents sorts a slice of events based on the specified sort order
func sortEvents(events []*event.Event, sortOrder SortOrder) {
	switch sortOrder {
	case SortByScore:
		sort.SliceStable(events, func(i, j int) bool {
			return score(events[i]) > score(events[j])
		})
	case SortByDate:
		sort.SliceStable(events, func(i, j int) bool {
			return compareByDate(events[i], events[j])
		})
	case SortByTitle:
		sort.SliceStable(events, func(i, j int) bool {
			ti, tj := strings.ToLower(events[i].Title), strings.ToLower(events[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by date
			return compareByDate(events[i], events[j])
		})
	}
}

func score(e *event.Event) float64 {
	if e.RankScore == nil {
		return 0
	}
	return *e.RankScore
}

// compareByDate compares two events by their start time
// Returns true if event i should come before event j
func compareByDate(i, j *event.Event) bool {
	si, sj := i.StartDatetime, j.StartDatetime

	if si != nil && sj != nil {
		if !si.Equal(*sj) {
			return si.Before(*sj)
		}
		return strings.ToLower(i.Title) < strings.ToLower(j.Title)
	}

	// Undated events go last
	if si != nil {
		return true
	}
	if sj != nil {
		return false
	}
	return strings.ToLower(i.Title) < strings.ToLower(j.Title)
}
