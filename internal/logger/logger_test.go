package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf)

	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should reach console
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "test message",
			fields:  Fields{"key": "value"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "debug message",
			want:    false, // won't log (below INFO)
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "error occurred",
			err:     errors.New("test error"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := buf.Len()

			logger.log(tt.level, "Crawler", tt.message, tt.fields, tt.err)

			logged := buf.Len() > before
			if logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}

	if got := len(logger.Entries()); got != 2 {
		t.Errorf("expected 2 recorded entries (debug excluded), got %d", got)
	}
}

func TestLogger_ConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf, WithRunID("run-1"))

	logger.Warn("Eventbrite", "Failed to parse event", Fields{"index": 3})

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("console output is not JSON: %v (%s)", err, buf.String())
	}
	if line["source"] != "Eventbrite" {
		t.Errorf("source = %v, want Eventbrite", line["source"])
	}
	if line["run_id"] != "run-1" {
		t.Errorf("run_id = %v, want run-1", line["run_id"])
	}
	if line["level"] != "warn" {
		t.Errorf("level = %v, want warn", line["level"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	logger := New(LevelError, nil)

	logger.Success("Eventbrite", "Fetched 12 events", Fields{"items_found": 12, "status": "success"})
	logger.Success("CLT Today", "Fetched 3 events", Fields{"items_found": 3, "status": "success"})
	logger.Warn("CLT Today", "Failed to parse event", nil)
	logger.Error("Axios Charlotte", "Adapter failed", Fields{"status": "failed"}, errors.New("HTTP 503"))
	logger.Info("Crawler", "Starting crawl", nil)

	s := logger.Summary()

	if s.TotalEvents != 15 {
		t.Errorf("TotalEvents = %d, want 15", s.TotalEvents)
	}
	if s.Errors != 1 {
		t.Errorf("Errors = %d, want 1", s.Errors)
	}
	if s.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", s.Warnings)
	}

	if got := s.Sources["Eventbrite"]; got == nil || got.Events != 12 || got.Status != StatusSuccess {
		t.Errorf("unexpected Eventbrite summary: %+v", got)
	}
	if got := s.Sources["Axios Charlotte"]; got == nil || got.Errors != 1 || got.Status != StatusFailed {
		t.Errorf("unexpected Axios summary: %+v", got)
	}
	if got := s.Sources["Crawler"]; got == nil || got.Status != StatusUnknown {
		t.Errorf("unexpected Crawler summary: %+v", got)
	}
}

func TestSave(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}

	logger := New(LevelError, nil, WithClock(clock), WithRunID("run-42"))
	logger.Success("Eventbrite", "Fetched 2 events", Fields{"items_found": 2})

	dir := t.TempDir()
	path, err := logger.Save(dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Base(path) != "scrape-log-2024-06-01.json" {
		t.Errorf("unexpected log file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid report JSON: %v", err)
	}

	if report.RunID != "run-42" {
		t.Errorf("RunID = %q, want run-42", report.RunID)
	}
	if report.TotalLogs != 1 {
		t.Errorf("TotalLogs = %d, want 1", report.TotalLogs)
	}
	if report.DurationMS <= 0 {
		t.Errorf("expected positive duration, got %d", report.DurationMS)
	}
	if report.Summary.TotalEvents != 2 {
		t.Errorf("Summary.TotalEvents = %d, want 2", report.Summary.TotalEvents)
	}
	if !strings.HasPrefix(report.ScrapeStart, "2024-06-01T12:00") {
		t.Errorf("unexpected ScrapeStart %s", report.ScrapeStart)
	}
}
