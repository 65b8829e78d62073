// Package config loads run settings and the source list.
//
// Settings are layered, lowest precedence first:
//  1. defaults (Defaults())
//  2. YAML file, when a path is given (--config or CLT_EVENTS_CONFIG)
//  3. environment (prefix CLT_EVENTS_)
//  4. explicit command-line overrides
//
// API credentials are read from the process environment at fetch time;
// LoadDotEnv fills it from a .env file without overriding variables that
// are already set.
//
// The source list is a JSON or YAML document validated against an embedded
// JSON schema before use.
package config
