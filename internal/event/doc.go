// Package event provides the canonical event record shared by every pipeline stage.
//
// Each event is assigned a deterministic SHA1-based ID generated from its title,
// venue name and start time, and a confidence score reflecting how many of its
// descriptive fields are populated. Date text scraped from listing pages is
// parsed by ParseDateIn, which tries a fixed list of layouts before falling
// back to dateparse.
package event
