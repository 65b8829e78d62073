package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/logger"
)

// Source is one configured site or API to crawl
type Source struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Adapter  string `yaml:"adapter" json:"adapter"`
	Priority int    `yaml:"priority" json:"priority"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
}

// RawCandidate is an event as an adapter found it, before normalization.
// StartText and EndText hold date text exactly as scraped.
type RawCandidate struct {
	Title       string
	Description string
	StartText   string
	EndText     string
	Venue       event.Venue
	Category    []string
	Price       event.Price
	Image       string
	URL         string
	Tags        []string
	SourceURL   string
}

// Kind is implemented by each adapter family
type Kind interface {
	// FetchRaw retrieves the raw payload for the source
	FetchRaw(ctx context.Context) (string, error)
	// Parse turns the payload into candidates, skipping records it cannot read
	Parse(raw string) ([]RawCandidate, error)
}

// Result is the outcome of one adapter run. Err has already been logged.
type Result struct {
	Source     Source
	Candidates []RawCandidate
	Err        error
	Duration   time.Duration
}

// Adapter runs a Kind for one source and reports the outcome
type Adapter struct {
	source Source
	kind   Kind
	log    *logger.Logger
}

// Name returns the source name
func (a *Adapter) Name() string {
	return a.source.Name
}

// Source returns the source this adapter crawls
func (a *Adapter) Source() Source {
	return a.source
}

// Fetch retrieves and parses the source. It never fails outward: every run emits
// exactly one summary entry, success with items_found or error with status failed,
// and a failed run yields no candidates.
func (a *Adapter) Fetch(ctx context.Context) Result {
	start := time.Now()
	candidates, err := a.run(ctx)
	res := Result{Source: a.source, Duration: time.Since(start)}

	if err != nil {
		a.log.Error(a.source.Name, fmt.Sprintf("Adapter failed: %v", err), logger.Fields{
			"status": logger.StatusFailed,
			"error":  err.Error(),
		}, err)
		res.Err = err
		return res
	}

	for i := range candidates {
		if candidates[i].SourceURL == "" {
			candidates[i].SourceURL = a.source.URL
		}
	}

	a.log.Success(a.source.Name, fmt.Sprintf("Fetched %d events", len(candidates)), logger.Fields{
		"items_found": len(candidates),
		"status":      logger.StatusSuccess,
	})
	res.Candidates = candidates
	return res
}

func (a *Adapter) run(ctx context.Context) (candidates []RawCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			candidates = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	raw, err := a.kind.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}
	return a.kind.Parse(raw)
}
