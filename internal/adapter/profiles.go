package adapter

import (
	"regexp"

	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// Adapter keys accepted in the sources file
const (
	KeyVisitCharlotte      = "visitCharlotte"
	KeyEventbrite          = "eventbrite"
	KeyCharlotteOnTheCheap = "charlotteOnTheCheap"
	KeyCLTToday            = "cltToday"
	KeyAxiosCharlotte      = "axiosCharlotte"
	KeyUptownCharlotte     = "uptownCharlotte"
	KeyTicketmaster        = "ticketmaster"
	KeyTicketmasterAPI     = "ticketmasterAPI"
	KeyEventbriteAPI       = "eventbriteAPI"
	KeyFeed                = "feed"
)

const (
	restaurant    = event.CategoryRestaurant
	bar           = event.CategoryBar
	concert       = event.CategoryConcert
	nightlife     = event.CategoryNightlife
	sports        = event.CategorySports
	active        = event.CategoryActive
	opening       = event.CategoryOpening
	special       = event.CategorySpecial
	entertainment = event.CategoryEntertainment
)

// charlotte is the base neighborhood list every source recognizes
var charlotte = Neighborhoods(
	"Uptown", "South End", "NoDa", "Plaza Midwood", "Dilworth",
	"Myers Park", "Ballantyne", "University", "Montford", "Elizabeth",
)

// landmarks maps large venues to the district they sit in
var landmarks = Gazetteer{
	{Match: "uptown", Name: "Uptown"},
	{Match: "bank of america stadium", Name: "Uptown"},
	{Match: "spectrum center", Name: "Uptown"},
	{Match: "truist field", Name: "Uptown"},
	{Match: "pnc music pavilion", Name: "University"},
	{Match: "bojangles coliseum", Name: "East Charlotte"},
}

var (
	freeWords   = `free|no cost|complimentary|no cover`
	freeDefault = regexp.MustCompile(`(?i)\b(?:` + freeWords + `)`)
	freeStrict  = regexp.MustCompile(`(?i)\b(?:` + freeWords + `|no charge|no admission)`)
)

// Profiles returns the built-in listing site profiles keyed by adapter key
func Profiles() map[string]*Profile {
	return map[string]*Profile{
		KeyVisitCharlotte: {
			Origin:      "https://www.charlottesgotalot.com",
			Items:       `.event-card, .eventCard, [class*="event"]`,
			Title:       scraper.Text(`h2, h3, .event-title, [class*="title"]`),
			Description: scraper.Text(`p, .event-description, [class*="description"]`),
			Venue:       scraper.Text(`.venue, .location, [class*="venue"]`),
			Date:        scraper.Text(`.date, .event-date, [class*="date"]`),
			Categories: Rules{
				rule(`restaurant|dining|food|brunch|dinner`, restaurant),
				rule(`bar|cocktail|brewery|wine|beer`, bar, nightlife),
				rule(`concert|music|band|dj`, concert, nightlife),
				rule(`sport|game|match|panthers|hornets`, sports),
				rule(`club|dance|party`, nightlife),
				rule(`opening|grand opening|new`, opening),
				rule(`festival|fair|market`, special),
			},
			Prices:            PriceRules{Free: freeDefault},
			PriceScope:        ScopeDescription,
			Neighborhoods:     charlotte,
			NeighborhoodScope: ScopeVenue,
		},

		KeyEventbrite: {
			Origin:       "https://www.eventbrite.com",
			Items:        `[class*="event-card"], [data-testid*="event"], .discover-search-desktop-card`,
			Title:        scraper.Text(`h3, h2, [class*="title"], [class*="event-name"]`),
			Description:  scraper.Text(`p, [class*="description"]`),
			Date:         scraper.Chain{scraper.Text(`[class*="date"], time`), scraper.Attr{Selector: `[class*="date"]`, Name: "datetime"}},
			Venue:        scraper.Text(`[class*="location"], [class*="venue"]`),
			Price:        scraper.Text(`[class*="price"]`),
			DefaultVenue: "Charlotte, NC",
			Categories: Rules{
				rule(`bar|cocktail|brewery|wine|beer|pub|tavern`, bar, nightlife),
				rule(`concert|music|live music|band|dj|performer`, concert, nightlife),
				rule(`club|dance|party|nightclub`, nightlife),
				rule(`restaurant|dining|food|brunch|dinner|lunch|cuisine`, restaurant),
				rule(`sport|game|match|panthers|hornets|basketball|football`, sports),
				rule(`run|yoga|fitness|workout|cycling|active`, active),
				rule(`festival|fair|market|expo`, special),
				rule(`opening|grand opening|launch|debut`, opening),
				rule(`comedy|stand-up|theater|show|performance`, entertainment),
			},
			Prices: PriceRules{
				Free:        freeDefault,
				Range:       regexp.MustCompile(`\$(\d+(?:\.\d{2})?)\s*-\s*\$(\d+(?:\.\d{2})?)`),
				RawFallback: true,
			},
			PriceScope:        ScopeSelector,
			Neighborhoods:     charlotte.Extend(Neighborhoods("Cotswold", "SouthPark", "Park Road")...),
			NeighborhoodScope: ScopeVenue,
		},

		KeyCharlotteOnTheCheap: {
			Origin:        "https://www.charlotteonthecheap.com",
			Items:         `article, .event, .post, [class*="event"]`,
			Title:         scraper.Text(`h2, h3, h4, .entry-title, .post-title`),
			Description:   scraper.Text(`.entry-content, .post-content, p`),
			Date:          scraper.Chain{scraper.Text(`time, .date, .published`), scraper.Attr{Selector: "time", Name: "datetime"}},
			VenuePatterns: []*regexp.Regexp{atVenue},
			Categories: Rules{
				rule(`concert|music|live music|band|dj`, concert, nightlife),
				rule(`bar|brewery|wine|beer|cocktail`, bar, nightlife),
				rule(`restaurant|dining|food|brunch|dinner`, restaurant),
				rule(`sport|game|panthers|hornets`, sports),
				rule(`festival|fair|market`, special),
				rule(`opening|new|debut|launch`, opening),
				rule(`party|dance|club|nightclub`, nightlife),
				rule(`comedy|theater|show`, entertainment),
			},
			Prices: PriceRules{
				Free:          freeStrict,
				BudgetCeiling: 10,
				BudgetNote:    "Budget-friendly",
				FallbackNote:  "Check for low-cost options",
			},
			Neighborhoods: charlotte.Extend(Neighborhoods("SouthPark", "Cotswold")...),
			Tags:          []string{"cheap", "budget-friendly"},
		},

		KeyCLTToday: {
			Origin:        "https://clttoday.6amcity.com",
			Items:         `article, .card, .post, [class*="article"], [class*="story"]`,
			Title:         scraper.Text(`h1, h2, h3, h4, .title, .headline`),
			Description:   scraper.Text(`p, .description, .excerpt, .summary`),
			Date:          scraper.Chain{scraper.Text(`time, .date, .published-date`), scraper.Attr{Selector: "time", Name: "datetime"}},
			Topical:       regexp.MustCompile(`(?i)event|happening|things to do|weekend|concert|festival|opening|show|market|fair`),
			VenuePatterns: []*regexp.Regexp{atVenue, inVenue},
			Categories: Rules{
				rule(`concert|music|live music|band|performer|dj`, concert, nightlife),
				rule(`bar|brewery|wine|beer|cocktail|pub`, bar, nightlife),
				rule(`restaurant|dining|food|brunch|dinner|chef`, restaurant),
				rule(`sport|game|panthers|hornets|charlotte fc|football|basketball|soccer`, sports),
				rule(`festival|fair|market|expo`, special),
				rule(`opening|grand opening|new|debut|launch`, opening),
				rule(`party|dance|club|nightclub|night out`, nightlife),
				rule(`comedy|theater|show|performance|art`, entertainment),
			},
			Prices: PriceRules{
				Free:  freeStrict,
				Range: regexp.MustCompile(`\$(\d+)-\$(\d+)`),
			},
			PriceScope:    ScopeDescription,
			Neighborhoods: charlotte.Extend(Neighborhoods("SouthPark", "Cotswold", "Wesley Heights", "Cherry")...),
			Tags:          []string{"local-news"},
		},

		KeyAxiosCharlotte: {
			Origin:        "https://www.axios.com",
			Items:         `article, .article, [class*="event"], [class*="story"]`,
			Title:         scraper.Text(`h2, h3, h4, .title, [class*="headline"]`),
			Description:   scraper.Text(`p, .description, .excerpt`),
			Date:          scraper.Chain{scraper.Text(`time, .date, [class*="date"]`), scraper.Attr{Selector: "time", Name: "datetime"}},
			Topical:       regexp.MustCompile(`(?i)event|concert|festival|opening|show|party|market|fair|game|match`),
			VenuePatterns: []*regexp.Regexp{atVenue},
			Categories: Rules{
				rule(`concert|music|band|dj|live music`, concert, nightlife),
				rule(`bar|brewery|wine|beer|cocktail`, bar, nightlife),
				rule(`restaurant|dining|food|brunch`, restaurant),
				rule(`sport|game|panthers|hornets|football|basketball`, sports),
				rule(`festival|fair|market`, special),
				rule(`opening|debut|launch|new`, opening),
				rule(`party|dance|club`, nightlife),
			},
			Prices:        PriceRules{Free: freeDefault},
			PriceScope:    ScopeDescription,
			Neighborhoods: charlotte,
			Tags:          []string{"axios"},
		},

		KeyUptownCharlotte: {
			Origin:        "https://www.uptowncharlotte.com",
			Items:         `.event, .event-card, .event-item, article, [class*="event"]`,
			Title:         scraper.Text(`h1, h2, h3, h4, .event-title, .title`),
			Description:   scraper.Text(`p, .description, .event-description, .excerpt`),
			Date:          scraper.Chain{scraper.Text(`time, .date, .event-date, .start-date`), scraper.Attr{Selector: "time", Name: "datetime"}},
			Venue:         scraper.Text(`.venue, .location, .event-venue`),
			VenuePatterns: []*regexp.Regexp{atVenue},
			Categories: Rules{
				rule(`concert|music|live music|band|dj|performance`, concert, nightlife),
				rule(`bar|brewery|wine|beer|cocktail|rooftop`, bar, nightlife),
				rule(`restaurant|dining|food|brunch|dinner`, restaurant),
				rule(`sport|game|panthers|hornets|charlotte fc`, sports),
				rule(`festival|fair|market|street fair`, special),
				rule(`opening|grand opening|ribbon cutting|new`, opening),
				rule(`party|dance|club|nightlife`, nightlife),
				rule(`comedy|theater|art|show|gallery`, entertainment),
				rule(`run|walk|5k|marathon|fitness`, active),
			},
			Prices: PriceRules{
				Free:  regexp.MustCompile(`(?i)\b(?:` + freeWords + `|no charge|no admission fee)`),
				Range: regexp.MustCompile(`\$(\d+)-\$?(\d+)`),
			},
			PriceScope:   ScopeDescription,
			Neighborhood: "Uptown",
			Tags:         []string{"uptown"},
		},

		KeyTicketmaster: {
			Origin: "https://www.ticketmaster.com",
			Items:  `[class*="event"], [data-testid*="event"], .sc-event, article`,
			Title: scraper.Chain{
				scraper.Text(`h3, h2, [class*="title"], [class*="name"], .event-name`),
				scraper.Text("a"),
			},
			Date: scraper.Chain{
				scraper.Attr{Selector: `time, [datetime], [class*="date"]`, Name: "datetime"},
				scraper.Text(`time, [class*="date"]`),
			},
			Venue:         scraper.Text(`[class*="venue"], [class*="location"]`),
			Price:         scraper.Text(`[class*="price"]`),
			Locality:      regexp.MustCompile(`(?i)charlotte|panthers|hornets`),
			KnownVenues:   []string{"Bank of America Stadium", "Spectrum Center", "Truist Field", "PNC Music Pavilion"},
			VenuePatterns: []*regexp.Regexp{atVenue},
			VenueScope:    ScopeTitle,
			DescribeAt:    "Charlotte",
			Categories:    ticketmasterRules,
			Prices: PriceRules{
				Range:        regexp.MustCompile(`\$(\d+(?:\.\d{2})?)\s*-\s*\$?(\d+(?:\.\d{2})?)`),
				SingleNote:   "Starting at",
				FallbackNote: "Check Ticketmaster",
			},
			PriceScope:        ScopeSelector,
			Neighborhoods:     landmarks,
			NeighborhoodScope: ScopeVenueOrTitle,
			Tags:              []string{"ticketmaster"},
		},
	}
}

// ticketmasterRules classify by title and venue
var ticketmasterRules = Rules{
	rule(`panthers|football|nfl`, sports),
	rule(`hornets|basketball|nba`, sports),
	rule(`charlotte fc|soccer|mls`, sports),
	rule(`knights|baseball`, sports),
	rule(`concert|tour|music|live|performance`, concert, nightlife),
	rule(`theater|theatre|show|comedy|broadway`, entertainment),
	rule(`festival|fair`, special),
}

// genericRules classify feeds and API records that carry no site-specific table
var genericRules = Rules{
	rule(`restaurant|dining|food|brunch|dinner|lunch|cuisine|chef`, restaurant),
	rule(`bar|cocktail|brewery|wine|beer|pub|tavern|rooftop`, bar, nightlife),
	rule(`concert|music|live music|band|dj|performer`, concert, nightlife),
	rule(`sport|game|match|panthers|hornets|charlotte fc|basketball|football|soccer`, sports),
	rule(`club|dance|party|nightclub|night out`, nightlife),
	rule(`run|walk|5k|marathon|yoga|fitness|workout|cycling`, active),
	rule(`opening|grand opening|launch|debut`, opening),
	rule(`festival|fair|market|expo`, special),
	rule(`comedy|stand-up|theater|theatre|show|performance|performing|gallery`, entertainment),
}

// genericPrices read prices from feed and API descriptions
var genericPrices = PriceRules{
	Free:  freeStrict,
	Range: regexp.MustCompile(`\$(\d+(?:\.\d{2})?)\s*-\s*\$?(\d+(?:\.\d{2})?)`),
}

// allNeighborhoods is the union gazetteer used by feeds and APIs
var allNeighborhoods = charlotte.
	Extend(Neighborhoods("SouthPark", "Cotswold", "Park Road", "Wesley Heights", "Cherry")...).
	Extend(landmarks...).
	Extend(
		Place{Match: "ovens auditorium", Name: "East Charlotte"},
		Place{Match: "blumenthal", Name: "Uptown"},
		Place{Match: "knight theater", Name: "Uptown"},
		Place{Match: "belk theater", Name: "Uptown"},
	)
