package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

const (
	EventbriteEndpoint = "https://www.eventbriteapi.com/v3/events/search/"
	EventbriteKeyEnv   = "EVENTBRITE_API_KEY"
)

// ErrInvalidAPIKey is returned when the API rejects the configured key
var ErrInvalidAPIKey = errors.New("invalid API key")

type ebEnvelope struct {
	Events []json.RawMessage `json:"events"`
}

type ebText struct {
	Text string `json:"text"`
}

type ebTime struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

func (t ebTime) value() string {
	if t.UTC != "" {
		return t.UTC
	}
	return t.Local
}

type ebEvent struct {
	Name        ebText `json:"name"`
	Description ebText `json:"description"`
	Summary     string `json:"summary"`
	URL         string `json:"url"`
	Start       ebTime `json:"start"`
	End         ebTime `json:"end"`
	IsFree      bool   `json:"is_free"`
	Venue       *struct {
		Name      string `json:"name"`
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
		Address   struct {
			LocalizedAddressDisplay string `json:"localized_address_display"`
			Address1                string `json:"address_1"`
			City                    string `json:"city"`
		} `json:"address"`
	} `json:"venue"`
	Category *struct {
		Name string `json:"name"`
	} `json:"category"`
	TicketAvailability *struct {
		IsSoldOut bool `json:"is_sold_out"`
	} `json:"ticket_availability"`
	Logo *struct {
		URL string `json:"url"`
	} `json:"logo"`
}

// EventbriteAPI searches the Eventbrite API around the metro area
type EventbriteAPI struct {
	source   Source
	fetcher  *scraper.Fetcher
	log      *logger.Logger
	metro    Metro
	getenv   func(string) string
	endpoint string
}

// NewEventbriteAPI is the Factory for the Eventbrite search API adapter
func NewEventbriteAPI(src Source, rt Runtime) (Kind, error) {
	return &EventbriteAPI{
		source:   src,
		fetcher:  rt.Fetcher,
		log:      rt.Logger,
		metro:    rt.Metro,
		getenv:   rt.Getenv,
		endpoint: EventbriteEndpoint,
	}, nil
}

// FetchRaw queries the API with bearer authentication.
// A missing key is a warning and yields no payload.
func (a *EventbriteAPI) FetchRaw(ctx context.Context) (string, error) {
	key := a.getenv(EventbriteKeyEnv)
	if key == "" {
		a.log.Warn(a.source.Name, "No API key found - skipping", logger.Fields{"env": EventbriteKeyEnv})
		return "", nil
	}

	params := url.Values{}
	params.Set("location.address", a.metro.Address())
	params.Set("location.within", a.metro.Radius)
	params.Set("expand", "venue,category")
	params.Set("page_size", "100")
	params.Set("sort_by", "date")

	header := http.Header{}
	header.Set("Authorization", "Bearer "+key)
	header.Set("Accept", "application/json")

	body, err := a.fetcher.FetchUncached(ctx, a.endpoint+"?"+params.Encode(), header)
	if err != nil {
		var statusErr *scraper.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized {
			return "", fmt.Errorf("%w - check %s", ErrInvalidAPIKey, EventbriteKeyEnv)
		}
		return "", fmt.Errorf("API request failed: %w", err)
	}
	return body, nil
}

// Parse decodes the event list, skipping records that do not decode
func (a *EventbriteAPI) Parse(raw string) ([]RawCandidate, error) {
	candidates := make([]RawCandidate, 0)
	if strings.TrimSpace(raw) == "" {
		return candidates, nil
	}

	var env ebEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("parsing API response: %w", err)
	}
	if len(env.Events) == 0 {
		a.log.Info(a.source.Name, "No events found in API response", nil)
		return candidates, nil
	}

	for i, msg := range env.Events {
		var ev ebEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			a.log.Warn(a.source.Name, fmt.Sprintf("Failed to parse event: %v", err), logger.Fields{"index": i})
			continue
		}
		candidates = append(candidates, a.candidate(&ev))
	}
	return candidates, nil
}

func (a *EventbriteAPI) candidate(ev *ebEvent) RawCandidate {
	title := ev.Name.Text
	if title == "" {
		title = "Untitled Event"
	}
	description := ev.Description.Text
	if description == "" {
		description = ev.Summary
	}

	categoryName := ""
	if ev.Category != nil {
		categoryName = ev.Category.Name
	}

	c := RawCandidate{
		Title:       title,
		Description: description,
		StartText:   ev.Start.value(),
		EndText:     ev.End.value(),
		Category:    genericRules.Classify(strings.Join([]string{title, description, categoryName}, " ")),
		URL:         ev.URL,
		Tags:        []string{"eventbrite-api"},
	}

	if v := ev.Venue; v != nil {
		c.Venue.Name = v.Name
		c.Venue.Address = v.Address.LocalizedAddressDisplay
		if c.Venue.Address == "" {
			c.Venue.Address = v.Address.Address1
		}
		where := v.Address.City
		if where == "" {
			where = v.Name
		}
		c.Venue.Neighborhood = allNeighborhoods.Lookup(where)
		c.Venue.Lat = parseCoordinate(v.Latitude)
		c.Venue.Lng = parseCoordinate(v.Longitude)
	}

	switch {
	case ev.IsFree:
		c.Price = event.Price{Min: event.Float(0), Currency: event.DefaultCurrency, Notes: NoteFree}
	case ev.TicketAvailability != nil && ev.TicketAvailability.IsSoldOut:
		c.Price = event.Price{Currency: event.DefaultCurrency, Notes: "Sold Out"}
	default:
		c.Price = event.Price{Currency: event.DefaultCurrency, Notes: NoteTicketed}
	}

	if ev.Logo != nil {
		c.Image = ev.Logo.URL
	}
	if categoryName != "" {
		c.Tags = append(c.Tags, strings.ToLower(categoryName))
	}
	return c
}
