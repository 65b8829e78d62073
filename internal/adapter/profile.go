package adapter

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// Scope names which text a rule is applied to
type Scope int

const (
	ScopeText         Scope = iota // title and description
	ScopeDescription               // description only
	ScopeTitle                     // title only
	ScopeVenue                     // extracted venue only
	ScopeVenueOrTitle              // venue, or title when the venue is empty
	ScopeSelector                  // the profile's own selector
)

// Profile declares how to read one listing site
type Profile struct {
	Origin string // base for relative links and images
	Items  string // selector matching one element per listing

	Title       scraper.Extractor
	Description scraper.Extractor
	Date        scraper.Extractor
	Venue       scraper.Extractor
	Price       scraper.Extractor
	Link        scraper.Extractor
	Image       scraper.Extractor

	// Topical drops items whose title and description do not match
	Topical *regexp.Regexp
	// Locality drops items with no venue whose title does not match
	Locality *regexp.Regexp

	KnownVenues   []string
	VenuePatterns []*regexp.Regexp
	VenueScope    Scope
	DefaultVenue  string
	// DescribeAt synthesizes "Event at <venue>" when set, using its value when the venue is empty
	DescribeAt string

	Categories Rules
	Prices     PriceRules
	PriceScope Scope

	Neighborhoods     Gazetteer
	NeighborhoodScope Scope
	Neighborhood      string // fixed neighborhood for single-district sources

	Tags []string
}

var (
	defaultLink  = scraper.Attr{Selector: "a", Name: "href"}
	defaultImage = scraper.Attr{Selector: "img", Name: "src"}
)

// Extract reads one listing element. It reports false when the element has no
// title or is filtered out by the profile's topical or locality checks.
func (p *Profile) Extract(sel *goquery.Selection, sourceURL string) (RawCandidate, bool) {
	title := scraper.Value(p.Title, sel)
	if title == "" {
		return RawCandidate{}, false
	}
	description := scraper.Value(p.Description, sel)
	text := title + " " + description

	if p.Topical != nil && !p.Topical.MatchString(text) {
		return RawCandidate{}, false
	}

	scrapedVenue := scraper.Value(p.Venue, sel)
	venue := scrapedVenue
	if venue == "" {
		venue = knownVenue(title, p.KnownVenues)
	}
	if venue == "" && len(p.VenuePatterns) > 0 {
		venue = venueFromText(p.scoped(p.VenueScope, title, description, "", ""), p.VenuePatterns)
	}

	if p.Locality != nil && scrapedVenue == "" && !p.Locality.MatchString(title) {
		return RawCandidate{}, false
	}

	if p.DescribeAt != "" && description == "" {
		at := scrapedVenue
		if at == "" {
			at = p.DescribeAt
		}
		description = "Event at " + at
	}

	neighborhood := p.Neighborhood
	if neighborhood == "" {
		neighborhood = p.Neighborhoods.Lookup(p.scoped(p.NeighborhoodScope, title, description, scrapedVenue, ""))
	}

	if venue == "" {
		venue = p.DefaultVenue
	}

	c := RawCandidate{
		Title:       title,
		Description: description,
		StartText:   scraper.Value(p.Date, sel),
		Category:    p.Categories.Classify(title + " " + description),
		Price:       p.Prices.Extract(p.scoped(p.PriceScope, title, description, scrapedVenue, scraper.Value(p.Price, sel))),
		Image:       scraper.Absolute(p.Origin, scraper.Value(p.imageExtractor(), sel)),
		URL:         scraper.Absolute(p.Origin, scraper.Value(p.linkExtractor(), sel)),
		Tags:        append([]string{}, p.Tags...),
		SourceURL:   sourceURL,
	}
	c.Venue.Name = venue
	c.Venue.Neighborhood = neighborhood
	if c.URL == "" {
		c.URL = sourceURL
	}
	return c, true
}

func (p *Profile) scoped(s Scope, title, description, venue, selected string) string {
	switch s {
	case ScopeDescription:
		return description
	case ScopeTitle:
		return title
	case ScopeVenue:
		return venue
	case ScopeVenueOrTitle:
		if venue != "" {
			return venue
		}
		return title
	case ScopeSelector:
		return selected
	default:
		return strings.TrimSpace(title + " " + description)
	}
}

func (p *Profile) linkExtractor() scraper.Extractor {
	if p.Link != nil {
		return p.Link
	}
	return defaultLink
}

func (p *Profile) imageExtractor() scraper.Extractor {
	if p.Image != nil {
		return p.Image
	}
	return defaultImage
}
