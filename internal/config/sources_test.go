package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pfrederiksen/clt-events/internal/adapter"
)

func TestParseSources(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		input     string
		wantNames []string
		wantErr   bool
	}{
		{
			name:   "json sorted by priority, stable for ties",
			format: "json",
			input: `{"sources": [
				{"name": "C", "url": "https://c.example.com", "adapter": "cltToday", "priority": 3, "enabled": true},
				{"name": "A", "url": "https://a.example.com", "adapter": "ticketmasterAPI", "priority": 1, "enabled": true},
				{"name": "B1", "url": "https://b.example.com", "adapter": "visitCharlotte", "priority": 2, "enabled": false},
				{"name": "B2", "url": "https://b2.example.com", "adapter": "eventbrite", "priority": 2, "enabled": true}
			]}`,
			wantNames: []string{"A", "B1", "B2", "C"},
		},
		{
			name:   "yaml",
			format: "yaml",
			input: `
sources:
  - name: Feed
    url: https://feed.example.com/rss
    adapter: feed
    priority: 2
  - name: Uptown
    url: https://www.uptowncharlotte.com/events
    adapter: uptownCharlotte
    priority: 1
    enabled: false
`,
			wantNames: []string{"Uptown", "Feed"},
		},
		{
			name:      "empty list",
			format:    "json",
			input:     `{"sources": []}`,
			wantNames: []string{},
		},
		{name: "missing sources key", format: "json", input: `{}`, wantErr: true},
		{name: "missing url", format: "json", input: `{"sources": [{"name": "A", "adapter": "feed"}]}`, wantErr: true},
		{name: "non http url", format: "json", input: `{"sources": [{"name": "A", "url": "ftp://x", "adapter": "feed"}]}`, wantErr: true},
		{name: "negative priority", format: "json", input: `{"sources": [{"name": "A", "url": "https://a.example.com", "adapter": "feed", "priority": -1}]}`, wantErr: true},
		{name: "fractional priority", format: "json", input: `{"sources": [{"name": "A", "url": "https://a.example.com", "adapter": "feed", "priority": 1.5}]}`, wantErr: true},
		{name: "unknown field", format: "json", input: `{"sources": [{"name": "A", "url": "https://a.example.com", "adapter": "feed", "weight": 2}]}`, wantErr: true},
		{name: "malformed json", format: "json", input: `{"sources": [`, wantErr: true},
		{name: "unsupported format", format: "toml", input: `sources = []`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSources([]byte(tt.input), tt.format)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(got) != len(tt.wantNames) {
				t.Fatalf("got %d sources, want %d", len(got), len(tt.wantNames))
			}
			for i, name := range tt.wantNames {
				if got[i].Name != name {
					t.Errorf("position %d = %s, want %s", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestParseSources_EnabledDefault(t *testing.T) {
	got, err := ParseSources([]byte(`{"sources": [
		{"name": "A", "url": "https://a.example.com", "adapter": "feed"},
		{"name": "B", "url": "https://b.example.com", "adapter": "feed", "enabled": false}
	]}`), "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got[0].Enabled {
		t.Error("expected missing enabled flag to mean enabled")
	}
	if got[1].Enabled {
		t.Error("expected explicit false kept")
	}
}

func TestLoadSources(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yml")
	content := "sources:\n  - name: Feed\n    url: https://feed.example.com/rss\n    adapter: feed\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources() error = %v", err)
	}
	if len(got) != 1 || got[0].Adapter != adapter.KeyFeed || got[0].Priority != 0 {
		t.Errorf("unexpected sources %+v", got)
	}

	if _, err := LoadSources(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadSources_Shipped(t *testing.T) {
	sources, err := LoadSources("../../config/sources.json")
	if err != nil {
		t.Fatalf("shipped sources.json is invalid: %v", err)
	}

	registry := adapter.NewRegistry()
	for i, src := range sources {
		if !registry.Has(src.Adapter) {
			t.Errorf("source %q uses unregistered adapter %q", src.Name, src.Adapter)
		}
		if i > 0 && sources[i-1].Priority > src.Priority {
			t.Errorf("sources not sorted at %d", i)
		}
	}
}
