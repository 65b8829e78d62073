package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// LatestFile is the name of the most recent output snapshot
const LatestFile = "latest.json"

// Latest is the document written to latest.json
type Latest struct {
	UpdatedAt string         `json:"updated_at"`
	Count     int            `json:"count"`
	Events    []*event.Event `json:"events"`
}

// Storage handles persistence of ranked event lists
type Storage struct {
	dataDir string
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the resolved data directory
func (s *Storage) Dir() string {
	return s.dataDir
}

// ArchivePath returns the dated archive path for the day of now
func (s *Storage) ArchivePath(now time.Time) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("events-%s.json", now.UTC().Format("2006-01-02")))
}

// LatestPath returns the path of latest.json
func (s *Storage) LatestPath() string {
	return filepath.Join(s.dataDir, LatestFile)
}

// SaveEvents writes the dated archive and latest.json.
// Returns the archive path.
func (s *Storage) SaveEvents(events []*event.Event, now time.Time) (string, error) {
	if events == nil {
		events = []*event.Event{}
	}

	archive := s.ArchivePath(now)
	if err := writeJSON(archive, events); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}

	latest := &Latest{
		UpdatedAt: now.UTC().Format(time.RFC3339),
		Count:     len(events),
		Events:    events,
	}
	if err := writeJSON(s.LatestPath(), latest); err != nil {
		return "", fmt.Errorf("writing latest: %w", err)
	}

	return archive, nil
}

// LoadLatest reads latest.json. A missing file yields an empty document.
func (s *Storage) LoadLatest() (*Latest, error) {
	data, err := os.ReadFile(s.LatestPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Latest{Events: []*event.Event{}}, nil
		}
		return nil, fmt.Errorf("reading latest: %w", err)
	}

	var latest Latest
	if err := json.Unmarshal(data, &latest); err != nil {
		return nil, fmt.Errorf("parsing latest: %w", err)
	}
	if latest.Events == nil {
		latest.Events = []*event.Event{}
	}

	return &latest, nil
}

// GetEventByID finds an event in latest.json
func (s *Storage) GetEventByID(eventID string) (*event.Event, error) {
	latest, err := s.LoadLatest()
	if err != nil {
		return nil, fmt.Errorf("loading latest: %w", err)
	}

	for _, evt := range latest.Events {
		if evt.ID == eventID {
			return evt, nil
		}
	}

	return nil, fmt.Errorf("event not found: %s", eventID)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0644)
}
