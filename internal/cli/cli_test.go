package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/clt-events/internal/config"
	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/storage"
)

// execute runs the root command with args and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.ConfigEnv, "")

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedLatest(t *testing.T, events []*event.Event) string {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.New(dir)
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	if _, err := store.SaveEvents(events, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("SaveEvents() error = %v", err)
	}
	return dir
}

func writeSources(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing sources: %v", err)
	}
	return path
}

func sampleEvents() []*event.Event {
	ny, _ := time.LoadLocation("America/New_York")
	today := time.Now().In(ny)
	noon := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, ny).UTC()
	later := noon.AddDate(0, 1, 0)

	return []*event.Event{
		{
			ID:            "jazz",
			Title:         "Jazz Night",
			StartDatetime: &later,
			Venue:         event.Venue{Name: "The Evening Muse", Neighborhood: "NoDa"},
			Category:      []string{event.CategoryConcert},
			Price:         event.Price{Min: event.Float(0), Currency: "USD"},
			Source:        event.Source{Name: "CLT Today"},
			RankScore:     event.Float(40),
		},
		{
			ID:            "brew",
			Title:         "Brewery Crawl",
			StartDatetime: &noon,
			Venue:         event.Venue{Name: "Sycamore Brewing"},
			Category:      []string{event.CategoryBar},
			Price:         event.Price{Min: event.Float(25), Max: event.Float(40), Currency: "USD"},
			Source:        event.Source{Name: "Visit Charlotte", MergedFrom: "CLT Today"},
			RankScore:     event.Float(70),
		},
		{
			ID:        "art",
			Title:     "Art Walk",
			Source:    event.Source{Name: "Axios Charlotte"},
			RankScore: event.Float(10),
		},
	}
}

func TestShow(t *testing.T) {
	dir := seedLatest(t, sampleEvents())

	out, err := execute(t, "show", "--data-dir", dir)
	if err != nil {
		t.Fatalf("show error = %v", err)
	}

	brew := strings.Index(out, "Brewery Crawl")
	jazz := strings.Index(out, "Jazz Night")
	art := strings.Index(out, "Art Walk")
	if brew < 0 || jazz < 0 || art < 0 {
		t.Fatalf("show output missing events:\n%s", out)
	}
	if !(brew < jazz && jazz < art) {
		t.Errorf("show did not sort by score:\n%s", out)
	}
	if !strings.Contains(out, "Total: 3 events") {
		t.Errorf("show output missing total:\n%s", out)
	}
	if !strings.Contains(out, "Date TBA") {
		t.Errorf("undated event should show Date TBA:\n%s", out)
	}
}

func TestShow_Options(t *testing.T) {
	dir := seedLatest(t, sampleEvents())

	tests := []struct {
		name     string
		args     []string
		want     []string
		dontWant []string
	}{
		{
			name:     "limit",
			args:     []string{"--limit", "1"},
			want:     []string{"Brewery Crawl", "Total: 1 events"},
			dontWant: []string{"Jazz Night"},
		},
		{
			name:     "category",
			args:     []string{"--category", "Concert"},
			want:     []string{"Jazz Night", "Free"},
			dontWant: []string{"Brewery Crawl"},
		},
		{
			name:     "today",
			args:     []string{"--dates", "today", "--timezone", "America/New_York"},
			want:     []string{"Brewery Crawl"},
			dontWant: []string{"Jazz Night", "Art Walk"},
		},
		{
			name: "verbose",
			args: []string{"--verbose", "--sort", "title"},
			want: []string{"ID: brew", "merged with CLT Today", "Score: 70.0"},
		},
		{
			name: "by id",
			args: []string{"--id", "jazz"},
			want: []string{"Jazz Night", "ID: jazz", "Source: CLT Today"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"show", "--data-dir", dir}, tt.args...)
			out, err := execute(t, args...)
			if err != nil {
				t.Fatalf("show error = %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.dontWant {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestShow_JSON(t *testing.T) {
	dir := seedLatest(t, sampleEvents())

	out, err := execute(t, "show", "--data-dir", dir, "--format", "json", "--sort", "date")
	if err != nil {
		t.Fatalf("show error = %v", err)
	}

	var got OutputResult
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.Count != 3 || len(got.Events) != 3 {
		t.Fatalf("Count = %d, len(Events) = %d, want 3", got.Count, len(got.Events))
	}
	if got.Events[0].ID != "brew" || got.Events[2].ID != "art" {
		t.Errorf("date order = %s, %s, %s", got.Events[0].ID, got.Events[1].ID, got.Events[2].ID)
	}
	if got.UpdatedAt != "2024-06-01T12:00:00Z" {
		t.Errorf("UpdatedAt = %q", got.UpdatedAt)
	}
}

func TestShow_Errors(t *testing.T) {
	dir := seedLatest(t, sampleEvents())

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"--format", "xml"}},
		{"bad sort", []string{"--sort", "state"}},
		{"bad dates", []string{"--dates", "someday"}},
		{"unknown id", []string{"--id", "missing"}},
		{"bad timezone", []string{"--timezone", "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"show", "--data-dir", dir}, tt.args...)
			if _, err := execute(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestShow_Empty(t *testing.T) {
	out, err := execute(t, "show", "--data-dir", t.TempDir())
	if err != nil {
		t.Fatalf("show error = %v", err)
	}
	if !strings.Contains(out, "No events found.") {
		t.Errorf("output = %q", out)
	}
}

func TestSources(t *testing.T) {
	path := writeSources(t, `{"sources": [
		{"name": "Feed", "url": "https://example.com/rss", "adapter": "feed", "priority": 5},
		{"name": "Visit Charlotte", "url": "https://example.com/events", "adapter": "visitCharlotte", "priority": 1, "enabled": false},
		{"name": "Mystery", "url": "https://example.com/x", "adapter": "mystery", "priority": 3}
	]}`)

	out, err := execute(t, "sources", "--sources", path)
	if err != nil {
		t.Fatalf("sources error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "Visit Charlotte") || !strings.Contains(lines[0], "disabled") {
		t.Errorf("first line = %q, want disabled Visit Charlotte", lines[0])
	}
	if !strings.Contains(lines[1], "mystery (unknown adapter)") {
		t.Errorf("second line = %q, want unknown adapter marker", lines[1])
	}
	if !strings.Contains(lines[2], "Feed") || !strings.Contains(lines[2], "enabled") {
		t.Errorf("third line = %q", lines[2])
	}
}

func TestSources_Invalid(t *testing.T) {
	path := writeSources(t, `{"sources": [{"name": "No URL", "adapter": "feed"}]}`)
	if _, err := execute(t, "sources", "--sources", path); err == nil {
		t.Error("expected validation error")
	}
}

func TestCrawl_NoEnabledSources(t *testing.T) {
	path := writeSources(t, `{"sources": [
		{"name": "Feed", "url": "https://example.com/rss", "adapter": "feed", "enabled": false}
	]}`)
	dataDir := t.TempDir()

	out, err := execute(t, "--sources", path, "--data-dir", dataDir, "--cache-dir", t.TempDir())
	if err != nil {
		t.Fatalf("crawl error = %v", err)
	}
	if !strings.Contains(out, "Found 0 events (0 new since last run)") {
		t.Errorf("output = %q", out)
	}

	if _, err := os.Stat(filepath.Join(dataDir, storage.LatestFile)); err != nil {
		t.Errorf("latest.json not written: %v", err)
	}
}

func TestCrawl_MissingSourcesIsFatal(t *testing.T) {
	_, err := execute(t, "crawl", "--sources", filepath.Join(t.TempDir(), "nope.json"), "--data-dir", t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing sources file")
	}
	if !strings.Contains(err.Error(), "loading sources") {
		t.Errorf("error = %v", err)
	}
}

func TestCachePrune(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "cache", "prune", "--cache-dir", dir)
	if err != nil {
		t.Fatalf("cache prune error = %v", err)
	}
	if !strings.Contains(out, "Removed 0 expired cache entries") {
		t.Errorf("output = %q", out)
	}
}

func TestLoadSettings_FlagsOverride(t *testing.T) {
	t.Setenv(config.ConfigEnv, "")
	t.Setenv("CLT_EVENTS_WINDOW_DAYS", "30")

	cmd := NewRootCmd()
	if err := cmd.ParseFlags([]string{"--window-days", "7", "--env", "local"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	settings, err := loadSettings(cmd)
	if err != nil {
		t.Fatalf("loadSettings() error = %v", err)
	}
	if settings.WindowDays != 7 {
		t.Errorf("WindowDays = %d, want 7", settings.WindowDays)
	}
	if settings.Environment != config.EnvLocal {
		t.Errorf("Environment = %q, want local", settings.Environment)
	}
	if settings.DataDir != config.Defaults().DataDir {
		t.Errorf("unchanged flag overrode DataDir: %q", settings.DataDir)
	}
}
