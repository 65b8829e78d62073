package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// HTMLAdapter scrapes a listing page according to a Profile
type HTMLAdapter struct {
	source  Source
	profile *Profile
	fetcher *scraper.Fetcher
	log     *logger.Logger
}

// NewHTML returns a factory for listing pages described by p
func NewHTML(p *Profile) Factory {
	return func(src Source, rt Runtime) (Kind, error) {
		if src.URL == "" {
			return nil, fmt.Errorf("source %q has no url", src.Name)
		}
		return &HTMLAdapter{
			source:  src,
			profile: p,
			fetcher: rt.Fetcher,
			log:     rt.Logger,
		}, nil
	}
}

// FetchRaw returns the listing page, from cache when fresh
func (a *HTMLAdapter) FetchRaw(ctx context.Context) (string, error) {
	return a.fetcher.Fetch(ctx, a.source.URL)
}

// Parse extracts one candidate per matching listing element
func (a *HTMLAdapter) Parse(raw string) ([]RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	candidates := make([]RawCandidate, 0)
	doc.Find(a.profile.Items).Each(func(i int, sel *goquery.Selection) {
		if c, ok := a.parseItem(i, sel); ok {
			candidates = append(candidates, c)
		}
	})

	return candidates, nil
}

// parseItem isolates failures to the element that caused them
func (a *HTMLAdapter) parseItem(i int, sel *goquery.Selection) (c RawCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn(a.source.Name, fmt.Sprintf("Failed to parse event: %v", r), logger.Fields{"index": i})
			c, ok = RawCandidate{}, false
		}
	}()
	return a.profile.Extract(sel, a.source.URL)
}
