package logger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source statuses reported in the summary
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusUnknown = "unknown"
)

// SourceSummary aggregates the entries of one source
type SourceSummary struct {
	Events int    `json:"events"`
	Errors int    `json:"errors"`
	Status string `json:"status"`
}

// Summary aggregates the whole run
type Summary struct {
	TotalEvents int                       `json:"total_events"`
	Sources     map[string]*SourceSummary `json:"sources"`
	Errors      int                       `json:"errors"`
	Warnings    int                       `json:"warnings"`
}

// Report is the persisted form of a run's log
type Report struct {
	RunID       string     `json:"run_id"`
	ScrapeStart string     `json:"scrape_start"`
	ScrapeEnd   string     `json:"scrape_end"`
	DurationMS  int64      `json:"duration_ms"`
	TotalLogs   int        `json:"total_logs"`
	Logs        []LogEntry `json:"logs"`
	Summary     *Summary   `json:"summary"`
}

// Summary folds the recorded entries into per-source and run totals.
// A success entry carrying items_found adds to the source's events and marks it successful.
// An error entry adds to the source's errors and marks it failed.
func (l *Logger) Summary() *Summary {
	s := &Summary{Sources: make(map[string]*SourceSummary)}

	for _, e := range l.Entries() {
		src, ok := s.Sources[e.Source]
		if !ok {
			src = &SourceSummary{Status: StatusUnknown}
			s.Sources[e.Source] = src
		}

		switch Level(e.Level) {
		case LevelSuccess:
			if n, ok := intField(e.Fields, "items_found"); ok {
				src.Events += n
				s.TotalEvents += n
				src.Status = StatusSuccess
			}
		case LevelError:
			src.Errors++
			src.Status = StatusFailed
			s.Errors++
		case LevelWarn:
			s.Warnings++
		}
	}

	return s
}

// intField reads a numeric field regardless of how it was stored
func intField(fields Fields, key string) (int, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// Report builds the persisted form of the run so far
func (l *Logger) Report() *Report {
	end := l.now()
	logs := l.Entries()
	return &Report{
		RunID:       l.runID,
		ScrapeStart: l.start.UTC().Format(time.RFC3339Nano),
		ScrapeEnd:   end.UTC().Format(time.RFC3339Nano),
		DurationMS:  end.Sub(l.start).Milliseconds(),
		TotalLogs:   len(logs),
		Logs:        logs,
		Summary:     l.Summary(),
	}
}

// Save writes the run report to dir/scrape-log-YYYY-MM-DD.json and returns the path
func (l *Logger) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	report := l.Report()
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling log report: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("scrape-log-%s.json", l.start.Format("2006-01-02")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing log report: %w", err)
	}
	return path, nil
}
