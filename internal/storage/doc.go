// Package storage provides JSON-based persistence for pipeline output.
//
// Each run writes a dated archive (events-YYYY-MM-DD.json) holding the
// ranked event array, and overwrites latest.json, which wraps the same
// events with an update timestamp and count. latest.json is what the web
// page reads and what the next run diffs against.
package storage
