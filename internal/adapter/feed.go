package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// FeedAdapter reads RSS, Atom or JSON Feed calendars. Items may carry the
// RSS event module (ev:startdate, ev:enddate, ev:location); otherwise the
// publication date stands in for the start.
type FeedAdapter struct {
	source  Source
	fetcher *scraper.Fetcher
	log     *logger.Logger
	parser  *gofeed.Parser
}

// NewFeed is the Factory for calendar feeds
func NewFeed(src Source, rt Runtime) (Kind, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("source %q has no url", src.Name)
	}
	return &FeedAdapter{
		source:  src,
		fetcher: rt.Fetcher,
		log:     rt.Logger,
		parser:  gofeed.NewParser(),
	}, nil
}

// FetchRaw returns the feed document, from cache when fresh
func (a *FeedAdapter) FetchRaw(ctx context.Context) (string, error) {
	return a.fetcher.Fetch(ctx, a.source.URL)
}

// Parse converts feed items into candidates
func (a *FeedAdapter) Parse(raw string) ([]RawCandidate, error) {
	feed, err := a.parser.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	candidates := make([]RawCandidate, 0, len(feed.Items))
	for i, item := range feed.Items {
		if c, ok := a.parseItem(i, item); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (a *FeedAdapter) parseItem(i int, item *gofeed.Item) (c RawCandidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Warn(a.source.Name, fmt.Sprintf("Failed to parse item: %v", r), logger.Fields{"index": i})
			c, ok = RawCandidate{}, false
		}
	}()

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return RawCandidate{}, false
	}

	description := plainText(item.Description)
	if description == "" {
		description = plainText(item.Content)
	}
	text := title + " " + description

	start := eventField(item, "startdate")
	if start == "" {
		start = item.Published
	}

	venue := eventField(item, "location")
	if venue == "" {
		venue = venueFromText(text, []*regexp.Regexp{atVenue})
	}

	c = RawCandidate{
		Title:       title,
		Description: description,
		StartText:   start,
		EndText:     eventField(item, "enddate"),
		Category:    genericRules.Classify(text + " " + strings.Join(item.Categories, " ")),
		Price:       genericPrices.Extract(description),
		Image:       feedImage(item),
		URL:         scraper.Absolute(a.source.URL, item.Link),
		Tags:        []string{"feed"},
	}
	c.Venue.Name = venue
	c.Venue.Neighborhood = allNeighborhoods.Lookup(venue + " " + text)
	return c, true
}

// eventField reads an RSS event module element such as ev:startdate
func eventField(item *gofeed.Item, name string) string {
	values := item.Extensions["ev"][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func feedImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

// plainText strips markup from feed descriptions
func plainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return strings.TrimSpace(html)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
