package event

import "sort"

// DiffResult contains the results of comparing a run against the previous one
type DiffResult struct {
	NewEvents []*Event
	Sources   map[string][]*Event // new events grouped by source name
}

// Diff returns the events in current whose ID did not appear in previous
func Diff(previous, current []*Event) *DiffResult {
	result := &DiffResult{
		NewEvents: make([]*Event, 0),
		Sources:   make(map[string][]*Event),
	}

	seen := make(map[string]bool, len(previous))
	for _, evt := range previous {
		seen[evt.ID] = true
	}

	for _, evt := range current {
		if seen[evt.ID] {
			continue
		}
		result.NewEvents = append(result.NewEvents, evt)
		result.Sources[evt.Source.Name] = append(result.Sources[evt.Source.Name], evt)
	}

	for name := range result.Sources {
		group := result.Sources[name]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Title < group[j].Title
		})
	}

	return result
}
