package adapter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// Rule assigns labels when its pattern matches the event text
type Rule struct {
	Pattern *regexp.Regexp
	Labels  []string
}

// rule compiles a case-insensitive alternation anchored at a word start
func rule(alternation string, labels ...string) Rule {
	return Rule{
		Pattern: regexp.MustCompile(`(?i)\b(?:` + alternation + `)`),
		Labels:  labels,
	}
}

// Rules is an ordered category table
type Rules []Rule

// Classify returns the labels of every matching rule in table order, without
// duplicates. Text matching no rule is classified as special.
func (rs Rules) Classify(text string) []string {
	var labels []string
	for _, r := range rs {
		if r.Pattern.MatchString(text) {
			labels = append(labels, r.Labels...)
		}
	}
	if len(labels) == 0 {
		return []string{event.CategorySpecial}
	}
	return event.UniqueLabels(labels)
}

// Price notes shared by the adapters
const (
	NoteFree     = "Free"
	NoteTicketed = "Ticketed"
)

var singlePrice = regexp.MustCompile(`\$(\d+(?:\.\d{2})?)`)

// PriceRules turns free-form price text into a Price
type PriceRules struct {
	Free          *regexp.Regexp // nil disables the free check
	Range         *regexp.Regexp // two capture groups: min and max
	SingleNote    string         // note for a lone price, default Ticketed
	BudgetCeiling float64        // lone prices at or under this get BudgetNote
	BudgetNote    string
	FallbackNote  string // note when nothing matches
	RawFallback   bool   // use the text itself as the note when nothing matches
}

// Extract applies the free, range then single-price patterns in order
func (p PriceRules) Extract(text string) event.Price {
	if strings.TrimSpace(text) == "" {
		return event.Price{Notes: p.FallbackNote}
	}

	if p.Free != nil && p.Free.MatchString(text) {
		return event.Price{Min: event.Float(0), Max: event.Float(0), Notes: NoteFree}
	}

	if p.Range != nil {
		if m := p.Range.FindStringSubmatch(text); m != nil {
			lo, err1 := strconv.ParseFloat(m[1], 64)
			hi, err2 := strconv.ParseFloat(m[2], 64)
			if err1 == nil && err2 == nil {
				return event.Price{Min: &lo, Max: &hi, Notes: NoteTicketed}
			}
		}
	}

	if m := singlePrice.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			note := p.SingleNote
			if note == "" {
				note = NoteTicketed
			}
			if p.BudgetNote != "" && v <= p.BudgetCeiling {
				note = p.BudgetNote
			}
			return event.Price{Min: &v, Notes: note}
		}
	}

	if p.RawFallback {
		return event.Price{Notes: strings.TrimSpace(text)}
	}
	return event.Price{Notes: p.FallbackNote}
}

// Place maps a case-insensitive substring to a neighborhood name
type Place struct {
	Match string
	Name  string
}

// Gazetteer is an ordered list of places; the first match wins
type Gazetteer []Place

// Neighborhoods builds a gazetteer whose entries match their own names
func Neighborhoods(names ...string) Gazetteer {
	g := make(Gazetteer, 0, len(names))
	for _, n := range names {
		g = append(g, Place{Match: strings.ToLower(n), Name: n})
	}
	return g
}

// Extend returns a new gazetteer with extra places appended
func (g Gazetteer) Extend(places ...Place) Gazetteer {
	out := make(Gazetteer, 0, len(g)+len(places))
	out = append(out, g...)
	return append(out, places...)
}

// Lookup returns the first place found in text, or ""
func (g Gazetteer) Lookup(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	for _, p := range g {
		if strings.Contains(lower, p.Match) {
			return p.Name
		}
	}
	return ""
}

// Venue phrases such as "at The Evening Muse" or "in South End"
var (
	atVenue = regexp.MustCompile(`\bat\s+([A-Z][^,.]+)`)
	inVenue = regexp.MustCompile(`\bin\s+([A-Z][^,.]+)`)
)

// venueFromText returns the first capture of the first matching pattern
func venueFromText(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// knownVenue returns the first name contained in text
func knownVenue(text string, names []string) string {
	for _, n := range names {
		if strings.Contains(text, n) {
			return n
		}
	}
	return ""
}
