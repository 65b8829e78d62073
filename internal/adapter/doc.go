// Package adapter turns configured sources into raw event candidates.
//
// Listing sites are described declaratively by a Profile (item selector, field
// extractors, category rules, price rules and a neighborhood gazetteer) and run
// by one shared goquery engine. The Ticketmaster Discovery and Eventbrite search
// APIs and generic RSS/Atom calendars have their own Kind implementations.
//
// An Adapter never fails outward. Each run logs exactly one summary entry and a
// failed run contributes no candidates, so one broken source cannot stop a crawl.
package adapter
