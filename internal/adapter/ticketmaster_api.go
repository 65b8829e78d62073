package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

const (
	TicketmasterEndpoint = "https://app.ticketmaster.com/discovery/v2/events.json"
	TicketmasterKeyEnv   = "TICKETMASTER_API_KEY"
)

type tmEnvelope struct {
	Embedded *struct {
		Events []json.RawMessage `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	Info       string `json:"info"`
	PleaseNote string `json:"pleaseNote"`
	Dates      struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	Embedded struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
	PriceRanges []struct {
		Min      *float64 `json:"min"`
		Max      *float64 `json:"max"`
		Currency string   `json:"currency"`
	} `json:"priceRanges"`
	Images []struct {
		URL   string `json:"url"`
		Width int    `json:"width"`
	} `json:"images"`
	Classifications []struct {
		Segment tmName `json:"segment"`
		Genre   tmName `json:"genre"`
		Type    tmName `json:"type"`
	} `json:"classifications"`
}

type tmName struct {
	Name string `json:"name"`
}

type tmVenue struct {
	Name    string `json:"name"`
	Address struct {
		Line1 string `json:"line1"`
	} `json:"address"`
	Location struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

// team tags added to sports events by name
var teamTags = []struct {
	pattern *regexp.Regexp
	tag     string
}{
	{regexp.MustCompile(`(?i)panthers|nfl|football`), "panthers"},
	{regexp.MustCompile(`(?i)hornets|nba|basketball`), "hornets"},
	{regexp.MustCompile(`(?i)charlotte fc|soccer`), "soccer"},
}

// TicketmasterAPI reads the Discovery API for the metro area
type TicketmasterAPI struct {
	source   Source
	fetcher  *scraper.Fetcher
	log      *logger.Logger
	metro    Metro
	getenv   func(string) string
	endpoint string
}

// NewTicketmasterAPI is the Factory for the Discovery API adapter
func NewTicketmasterAPI(src Source, rt Runtime) (Kind, error) {
	return &TicketmasterAPI{
		source:   src,
		fetcher:  rt.Fetcher,
		log:      rt.Logger,
		metro:    rt.Metro,
		getenv:   rt.Getenv,
		endpoint: TicketmasterEndpoint,
	}, nil
}

// FetchRaw queries the API. A missing key is a warning and yields no payload.
// Responses are never cached because the key travels in the query string.
func (a *TicketmasterAPI) FetchRaw(ctx context.Context) (string, error) {
	key := a.getenv(TicketmasterKeyEnv)
	if key == "" {
		a.log.Warn(a.source.Name, "No API key found - skipping", logger.Fields{"env": TicketmasterKeyEnv})
		return "", nil
	}

	params := url.Values{}
	params.Set("apikey", key)
	params.Set("city", a.metro.City)
	params.Set("stateCode", a.metro.StateCode)
	params.Set("size", "100")
	params.Set("sort", "date,asc")

	header := http.Header{}
	header.Set("Accept", "application/json")

	body, err := a.fetcher.FetchUncached(ctx, a.endpoint+"?"+params.Encode(), header)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	return body, nil
}

// Parse decodes the event list, skipping records that do not decode
func (a *TicketmasterAPI) Parse(raw string) ([]RawCandidate, error) {
	candidates := make([]RawCandidate, 0)
	if strings.TrimSpace(raw) == "" {
		return candidates, nil
	}

	var env tmEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}
	if env.Embedded == nil || len(env.Embedded.Events) == 0 {
		a.log.Info(a.source.Name, "No events found in API response", nil)
		return candidates, nil
	}

	for i, msg := range env.Embedded.Events {
		var ev tmEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			a.log.Warn(a.source.Name, fmt.Sprintf("Failed to parse event: %v", err), logger.Fields{"index": i})
			continue
		}
		candidates = append(candidates, a.candidate(&ev))
	}
	return candidates, nil
}

func (a *TicketmasterAPI) candidate(ev *tmEvent) RawCandidate {
	var venue tmVenue
	if len(ev.Embedded.Venues) > 0 {
		venue = ev.Embedded.Venues[0]
	}

	description := ev.Info
	if description == "" {
		description = ev.PleaseNote
	}
	if description == "" {
		where := venue.Name
		if where == "" {
			where = a.metro.City
		}
		description = fmt.Sprintf("%s at %s", ev.Name, where)
	}

	start := ev.Dates.Start.DateTime
	if start == "" {
		start = ev.Dates.Start.LocalDate
	}

	price := event.Price{Currency: event.DefaultCurrency, Notes: "See website"}
	if len(ev.PriceRanges) > 0 {
		pr := ev.PriceRanges[0]
		price.Min, price.Max, price.Notes = pr.Min, pr.Max, NoteTicketed
		if pr.Currency != "" {
			price.Currency = pr.Currency
		}
	}

	c := RawCandidate{
		Title:       ev.Name,
		Description: description,
		StartText:   start,
		Venue: event.Venue{
			Name:         venue.Name,
			Address:      venue.Address.Line1,
			Neighborhood: allNeighborhoods.Lookup(venue.Name),
			Lat:          parseCoordinate(venue.Location.Latitude),
			Lng:          parseCoordinate(venue.Location.Longitude),
		},
		Category: a.classify(ev),
		Price:    price,
		Image:    pickImage(ev),
		URL:      ev.URL,
		Tags:     []string{"ticketmaster-api"},
	}

	if len(ev.Classifications) > 0 {
		segment := strings.ToLower(ev.Classifications[0].Segment.Name)
		if segment != "" {
			c.Tags = append(c.Tags, segment)
		}
		if segment == "sports" {
			for _, t := range teamTags {
				if t.pattern.MatchString(ev.Name) {
					c.Tags = append(c.Tags, t.tag)
				}
			}
		}
	}
	return c
}

// classify maps the first classification onto category labels
func (a *TicketmasterAPI) classify(ev *tmEvent) []string {
	if len(ev.Classifications) == 0 {
		return []string{event.CategorySpecial}
	}
	cl := ev.Classifications[0]
	segment := strings.ToLower(cl.Segment.Name)
	genre := strings.ToLower(cl.Genre.Name)
	kind := strings.ToLower(cl.Type.Name)

	var labels []string
	if segment == "sports" {
		labels = append(labels, event.CategorySports)
	}
	if segment == "music" || strings.Contains(genre, "music") {
		labels = append(labels, event.CategoryConcert, event.CategoryNightlife)
	}
	if segment == "arts & theatre" || strings.Contains(kind, "theatre") {
		labels = append(labels, event.CategoryEntertainment)
	}
	if len(labels) == 0 {
		return []string{event.CategorySpecial}
	}
	return event.UniqueLabels(labels)
}

// pickImage prefers the first image wider than 500px
func pickImage(ev *tmEvent) string {
	for _, img := range ev.Images {
		if img.Width > 500 {
			return img.URL
		}
	}
	if len(ev.Images) > 0 {
		return ev.Images[0].URL
	}
	return ""
}

// parseCoordinate converts the API's string coordinates, returning nil when absent
func parseCoordinate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
