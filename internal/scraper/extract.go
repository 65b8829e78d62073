package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls one field out of a listing element
type Extractor interface {
	Extract(sel *goquery.Selection) (string, bool)
}

// Text extracts the trimmed text of the first descendant matching the selector
type Text string

func (t Text) Extract(sel *goquery.Selection) (string, bool) {
	s := collapse(sel.Find(string(t)).First().Text())
	return s, s != ""
}

// Attr extracts an attribute of the first descendant matching Selector.
// An empty Selector reads the attribute from the element itself.
type Attr struct {
	Selector string
	Name     string
}

func (a Attr) Extract(sel *goquery.Selection) (string, bool) {
	target := sel
	if a.Selector != "" {
		target = sel.Find(a.Selector).First()
	}
	v, ok := target.Attr(a.Name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Chain tries each extractor in order and returns the first non-empty value
type Chain []Extractor

func (c Chain) Extract(sel *goquery.Selection) (string, bool) {
	for _, e := range c {
		if v, ok := e.Extract(sel); ok {
			return v, true
		}
	}
	return "", false
}

// Value runs e against sel, returning "" when e is nil or finds nothing
func Value(e Extractor, sel *goquery.Selection) string {
	if e == nil {
		return ""
	}
	v, _ := e.Extract(sel)
	return v
}

// collapse trims and squeezes runs of whitespace to single spaces
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Absolute resolves ref against base. Protocol-relative refs get https.
// Returns "" for an empty ref and ref unchanged when either value does not parse.
func Absolute(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if r.IsAbs() {
		return ref
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ref
	}
	return b.ResolveReference(r).String()
}
