// Package cli implements the command-line interface for clt-events.
//
// The root command crawls every configured source and writes the ranked
// event feed. Subcommands print the last feed (show), list the configured
// sources (sources) and prune the page cache (cache prune). Settings come
// from the config package and may be overridden by flags.
package cli
