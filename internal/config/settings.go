package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// EnvPrefix prefixes every settings environment variable
const EnvPrefix = "CLT_EVENTS_"

// ConfigEnv names the variable holding the settings file path
const ConfigEnv = EnvPrefix + "CONFIG"

// Environments
const (
	EnvLocal      = "local"
	EnvProduction = "production"
)

// Settings controls one crawl run
type Settings struct {
	// DataDir receives events-*.json, latest.json and scrape logs.
	DataDir string `koanf:"data_dir"`

	// CacheDir holds one file per fetched URL.
	CacheDir string `koanf:"cache_dir"`

	// SourcesFile is the JSON or YAML source list.
	SourcesFile string `koanf:"sources_file"`

	// Timezone interprets zone-less dates and weekday bonuses.
	Timezone string `koanf:"timezone"`

	// City, StateCode and Radius describe the metro API adapters search.
	City      string `koanf:"city"`
	StateCode string `koanf:"state_code"`
	Radius    string `koanf:"radius"`

	RateLimitMS    int    `koanf:"rate_limit_ms"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	Retries        int    `koanf:"retries"`
	UserAgent      string `koanf:"user_agent"`

	// WindowDays is how far ahead events are kept. Zero disables the limit.
	WindowDays int `koanf:"window_days"`

	LogLevel    string `koanf:"log_level"`
	Environment string `koanf:"environment"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`

	// ICSFile, when set, receives the ranked events as an iCalendar feed.
	ICSFile string `koanf:"ics_file"`
}

// Defaults returns the settings used when nothing overrides them
func Defaults() *Settings {
	return &Settings{
		DataDir:        "data",
		CacheDir:       "cache",
		SourcesFile:    "config/sources.json",
		Timezone:       "America/New_York",
		City:           adapter.DefaultMetro.City,
		StateCode:      adapter.DefaultMetro.StateCode,
		Radius:         adapter.DefaultMetro.Radius,
		RateLimitMS:    int(scraper.DefaultInterval / time.Millisecond),
		TimeoutSeconds: int(scraper.Timeout / time.Second),
		Retries:        scraper.DefaultRetries,
		UserAgent:      scraper.UserAgent,
		WindowDays:     14,
		LogLevel:       "info",
		Environment:    EnvProduction,
	}
}

// Load builds Settings by layering defaults, the optional YAML file at path,
// CLT_EVENTS_* environment variables, then overrides keyed by setting name.
func Load(path string, overrides map[string]interface{}) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading settings file %s: %w", path, err)
		}
	}

	// CLT_EVENTS_WINDOW_DAYS -> window_days
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("applying %s: %w", key, err)
		}
	}

	cfg := *Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that settings are usable
func (s *Settings) Validate() error {
	var errs []error

	if s.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if s.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir must not be empty"))
	}
	if s.SourcesFile == "" {
		errs = append(errs, errors.New("sources_file must not be empty"))
	}
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", s.Timezone, err))
	}
	if s.City == "" {
		errs = append(errs, errors.New("city must not be empty"))
	}
	if s.RateLimitMS < 0 {
		errs = append(errs, errors.New("rate_limit_ms must not be negative"))
	}
	if s.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("timeout_seconds must be positive"))
	}
	if s.Retries < 0 {
		errs = append(errs, errors.New("retries must not be negative"))
	}
	if s.WindowDays < 0 {
		errs = append(errs, errors.New("window_days must not be negative"))
	}
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if s.Environment != EnvLocal && s.Environment != EnvProduction {
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", EnvLocal, EnvProduction, s.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the configured timezone
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Level returns the parsed log level, falling back to info
func (s *Settings) Level() logger.Level {
	level, err := logger.ParseLevel(s.LogLevel)
	if err != nil {
		return logger.LevelInfo
	}
	return level
}

// Metro returns the area searched by API adapters
func (s *Settings) Metro() adapter.Metro {
	return adapter.Metro{City: s.City, StateCode: s.StateCode, Radius: s.Radius}
}

// FetchOptions returns the fetcher options every adapter shares
func (s *Settings) FetchOptions() []scraper.Option {
	return []scraper.Option{
		scraper.WithInterval(time.Duration(s.RateLimitMS) * time.Millisecond),
		scraper.WithTimeout(time.Duration(s.TimeoutSeconds) * time.Second),
		scraper.WithRetries(s.Retries),
		scraper.WithUserAgent(s.UserAgent),
	}
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
