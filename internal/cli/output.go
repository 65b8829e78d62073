package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/pipeline"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// OutputResult contains data to be output
type OutputResult struct {
	UpdatedAt string         `json:"updated_at"`
	Count     int            `json:"count"`
	Events    []*event.Event `json:"events"`
	// Location is used to render start times in text output
	Location *time.Location `json:"-"`
}

// WriteOutput writes the result in the specified format
func WriteOutput(w io.Writer, result *OutputResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, result *OutputResult) error {
	if result.Events == nil {
		result.Events = []*event.Event{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// writeText outputs results as human-readable text
func writeText(w io.Writer, result *OutputResult, verbose bool) error {
	if result.Count == 0 {
		fmt.Fprintln(w, "No events found.")
		return nil
	}

	loc := result.Location
	if loc == nil {
		loc = time.UTC
	}

	for i, evt := range result.Events {
		fmt.Fprintf(w, "%2d. %s", i+1, evt.Title)
		if len(evt.Category) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(evt.Category, ", "))
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    %s\n", describe(evt, loc))
		if verbose {
			fmt.Fprintf(w, "    ID: %s\n", evt.ID)
			if evt.URL != nil {
				fmt.Fprintf(w, "    URL: %s\n", *evt.URL)
			}
			fmt.Fprintf(w, "    Source: %s", evt.Source.Name)
			if evt.Source.MergedFrom != "" {
				fmt.Fprintf(w, " (merged with %s)", evt.Source.MergedFrom)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "    Score: %.1f  Confidence: %.2f\n", score(evt), evt.Confidence)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d events", result.Count)
	if result.UpdatedAt != "" {
		fmt.Fprintf(w, " (updated %s)", result.UpdatedAt)
	}
	fmt.Fprintln(w)
	return nil
}

// describe renders when, where and how much as one line
func describe(evt *event.Event, loc *time.Location) string {
	parts := make([]string, 0, 3)

	if evt.StartDatetime != nil {
		parts = append(parts, evt.StartDatetime.In(loc).Format("Mon Jan 2, 3:04 PM"))
	} else {
		parts = append(parts, "Date TBA")
	}

	where := evt.Venue.Name
	if evt.Venue.Neighborhood != "" {
		if where != "" {
			where += ", "
		}
		where += evt.Venue.Neighborhood
	}
	if where != "" {
		parts = append(parts, where)
	}

	if p := formatPrice(evt.Price); p != "" {
		parts = append(parts, p)
	}
	return strings.Join(parts, " · ")
}

// formatPrice renders a price range. Zero is shown as Free.
func formatPrice(p event.Price) string {
	switch {
	case p.Min == nil && p.Max == nil:
		return ""
	case p.Min != nil && *p.Min == 0 && (p.Max == nil || *p.Max == 0):
		return "Free"
	case p.Min != nil && p.Max != nil && *p.Max != *p.Min:
		return fmt.Sprintf("$%.2f-$%.2f", *p.Min, *p.Max)
	case p.Min != nil:
		return fmt.Sprintf("$%.2f", *p.Min)
	default:
		return fmt.Sprintf("up to $%.2f", *p.Max)
	}
}

// WriteCrawlSummary prints per-source counts and the run totals
func WriteCrawlSummary(w io.Writer, out *pipeline.Output, summary *logger.Summary) error {
	for _, r := range out.Results {
		status := logger.StatusSuccess
		if r.Err != nil {
			status = logger.StatusFailed
		}
		if _, err := fmt.Fprintf(w, "%-28s %-8s %4d candidates  %s\n",
			r.Source.Name, status, len(r.Candidates), r.Duration.Round(time.Millisecond)); err != nil {
			return err
		}
	}

	newCount := 0
	if out.Diff != nil {
		newCount = len(out.Diff.NewEvents)
	}
	fmt.Fprintf(w, "\nFound %d events (%d new since last run)\n", len(out.Events), newCount)

	if len(out.Stats.Excluded) > 0 {
		reasons := make([]string, 0, len(out.Stats.Excluded))
		for reason, n := range out.Stats.Excluded {
			reasons = append(reasons, fmt.Sprintf("%s=%d", reason, n))
		}
		sort.Strings(reasons)
		fmt.Fprintf(w, "Filtered: %s\n", strings.Join(reasons, " "))
	}
	if summary != nil && (summary.Errors > 0 || summary.Warnings > 0) {
		fmt.Fprintf(w, "Errors: %d  Warnings: %d\n", summary.Errors, summary.Warnings)
	}
	if out.ArchivePath != "" {
		fmt.Fprintf(w, "Saved %s\n", out.ArchivePath)
	}
	return nil
}

// WriteSources lists sources in crawl order
func WriteSources(w io.Writer, sources []adapter.Source, reg *adapter.Registry) error {
	if len(sources) == 0 {
		fmt.Fprintln(w, "No sources configured.")
		return nil
	}
	for _, src := range sources {
		state := "enabled"
		if !src.Enabled {
			state = "disabled"
		}
		kind := src.Adapter
		if !reg.Has(src.Adapter) {
			kind += " (unknown adapter)"
		}
		if _, err := fmt.Fprintf(w, "%d  %-28s %-8s %-30s %s\n", src.Priority, src.Name, state, kind, src.URL); err != nil {
			return err
		}
	}
	return nil
}
