package event

import (
	"crypto/sha1"
	"fmt"
	"math"
	"strings"
	"time"
)

// Category labels assigned by source adapters
const (
	CategoryRestaurant    = "restaurant"
	CategoryBar           = "bar"
	CategoryConcert       = "concert"
	CategoryNightlife     = "nightlife"
	CategorySports        = "sports"
	CategoryActive        = "active"
	CategoryOpening       = "opening"
	CategorySpecial       = "special"
	CategoryEntertainment = "entertainment"
)

// DefaultCurrency is assumed when a source does not state one
const DefaultCurrency = "USD"

// Venue describes where an event takes place
type Venue struct {
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	Neighborhood string   `json:"neighborhood"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// Price is the ticket price range. A nil bound means unknown; zero means free.
type Price struct {
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Currency string   `json:"currency"`
	Notes    string   `json:"notes"`
}

// Source records where an event was scraped from
type Source struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	ScrapedAt  time.Time `json:"scraped_at"`
	MergedFrom string    `json:"merged_from,omitempty"` // Set when a duplicate from another source was folded in
}

// Event is the canonical record produced by the normalizer
type Event struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	StartDatetime *time.Time `json:"start_datetime"`
	EndDatetime   *time.Time `json:"end_datetime"`
	Venue         Venue      `json:"venue"`
	Category      []string   `json:"category"`
	Price         Price      `json:"price"`
	Image         *string    `json:"image"`
	URL           *string    `json:"url"`
	Source        Source     `json:"source"`
	Confidence    float64    `json:"confidence"`
	Tags          []string   `json:"tags"`
	RankScore     *float64   `json:"_rank_score,omitempty"`
}

// FormatTimestamp renders t as ISO-8601 UTC, or "" when t is nil
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// GenerateID creates a deterministic ID from the sanitized title, venue name and start time
func GenerateID(title, venueName string, start *time.Time) string {
	h := sha1.New()
	h.Write([]byte(strings.ToLower(title + venueName + FormatTimestamp(start))))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Confidence weights per populated field. They sum to 1.0.
const (
	weightTitle       = 0.20
	weightDescription = 0.15
	weightStart       = 0.20
	weightVenueName   = 0.15
	weightAddress     = 0.10
	weightURL         = 0.10
	weightImage       = 0.10
)

// Confidence scores how complete an event is, in [0,1]
func Confidence(e *Event) float64 {
	score := 0.0
	if e.Title != "" {
		score += weightTitle
	}
	if e.Description != "" {
		score += weightDescription
	}
	if e.StartDatetime != nil {
		score += weightStart
	}
	if e.Venue.Name != "" {
		score += weightVenueName
	}
	if e.Venue.Address != "" {
		score += weightAddress
	}
	if present(e.URL) {
		score += weightURL
	}
	if present(e.Image) {
		score += weightImage
	}
	return math.Min(1, math.Round(score*1000)/1000)
}

func present(s *string) bool {
	return s != nil && *s != ""
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Float returns a pointer to f
func Float(f float64) *float64 {
	return &f
}

// UniqueLabels returns labels with duplicates removed, keeping first-occurrence order
func UniqueLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// HasCategory reports whether the event carries the given category label
func (e *Event) HasCategory(label string) bool {
	for _, c := range e.Category {
		if c == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the event
func (e *Event) Clone() *Event {
	c := *e
	c.StartDatetime = cloneTime(e.StartDatetime)
	c.EndDatetime = cloneTime(e.EndDatetime)
	c.Venue.Lat = cloneFloat(e.Venue.Lat)
	c.Venue.Lng = cloneFloat(e.Venue.Lng)
	c.Price.Min = cloneFloat(e.Price.Min)
	c.Price.Max = cloneFloat(e.Price.Max)
	c.Image = cloneString(e.Image)
	c.URL = cloneString(e.URL)
	c.RankScore = cloneFloat(e.RankScore)
	c.Category = append([]string{}, e.Category...)
	c.Tags = append([]string{}, e.Tags...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
