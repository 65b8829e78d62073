// Package scraper provides polite HTTP fetching and selector-based field extraction
// for event listing pages.
//
// A Fetcher serves pages from the on-disk cache when possible, otherwise waits out
// the per-adapter rate limit, issues a GET with the crawler's User-Agent and retries
// transient failures with exponential backoff. Extractors describe where a field
// lives inside a listing element so adapters can be declared as data.
package scraper
