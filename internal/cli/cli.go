package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/cache"
	"github.com/pfrederiksen/clt-events/internal/config"
	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/filter"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/pipeline"
	"github.com/pfrederiksen/clt-events/internal/storage"
)

const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNewEvents = 2
)

// errNewEvents signals ExitNewEvents without printing an error
var errNewEvents = errors.New("new events found")

var (
	flagConfig    string
	flagVerbose   bool
	flagExitOnNew bool
	flagFormat    string
	flagSort      string
	flagLimit     int
	flagDates     string
	flagCategory  string
	flagID        string
)

// settingFlags maps flag names to the setting keys they override
var settingFlags = map[string]string{
	"data-dir":     "data_dir",
	"cache-dir":    "cache_dir",
	"sources":      "sources_file",
	"timezone":     "timezone",
	"window-days":  "window_days",
	"log-level":    "log_level",
	"env":          "environment",
	"metrics-file": "metrics_file",
	"ics-file":     "ics_file",
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	defaults := config.Defaults()

	cmd := &cobra.Command{
		Use:   "clt-events",
		Short: "Aggregate Charlotte event listings into one ranked feed",
		Long: `Crawls local event sites and APIs for the Charlotte metro, merges
duplicate listings, drops past and family-oriented events, and writes a
ranked feed to latest.json.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCrawl,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Settings YAML file (default $"+config.ConfigEnv+")")
	pf.String("data-dir", defaults.DataDir, "Directory for events, latest.json and run logs")
	pf.String("cache-dir", defaults.CacheDir, "Directory for cached pages")
	pf.String("sources", defaults.SourcesFile, "Source list (JSON or YAML)")
	pf.String("timezone", defaults.Timezone, "Timezone for dates without an offset")
	pf.Int("window-days", defaults.WindowDays, "Keep events starting within this many days (0 = no limit)")
	pf.String("log-level", defaults.LogLevel, "Console log level: debug, info, warn, error")
	pf.String("env", defaults.Environment, "Environment: local (readable logs) or production (JSON logs)")
	pf.String("metrics-file", "", "Write Prometheus metrics to this textfile")
	pf.String("ics-file", "", "Write ranked events to this iCalendar file")
	pf.BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")

	cmd.Flags().BoolVar(&flagExitOnNew, "exit-on-new", false, "Exit with status 2 when events not in the previous run were found")

	cmd.AddCommand(newCrawlCmd(), newShowCmd(), newSourcesCmd(), newCacheCmd())
	return cmd
}

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch every enabled source and write the ranked feed",
		Args:  cobra.NoArgs,
		RunE:  runCrawl,
	}
	cmd.Flags().BoolVar(&flagExitOnNew, "exit-on-new", false, "Exit with status 2 when events not in the previous run were found")
	return cmd
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the events from the last crawl",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "score", "Sort order: score, date or title")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Show at most this many events (0 = all)")
	cmd.Flags().StringVar(&flagDates, "dates", "", "Only events in a range: 'Jun 1-15', 'June 28 - July 4', 'June', 'today', 'weekend'")
	cmd.Flags().StringVar(&flagCategory, "category", "", "Only events with this category")
	cmd.Flags().StringVar(&flagID, "id", "", "Show the single event with this ID")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources in crawl order",
		Args:  cobra.NoArgs,
		RunE:  runSources,
	}
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete expired cache entries",
		Args:  cobra.NoArgs,
		RunE:  runCachePrune,
	})
	return cmd
}

// loadSettings layers the settings file, environment and explicitly set flags
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path := flagConfig
	if path == "" {
		path = os.Getenv(config.ConfigEnv)
	}

	overrides := make(map[string]interface{})
	for name, key := range settingFlags {
		f := cmd.Flags().Lookup(name)
		if f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}

	settings, err := config.Load(path, overrides)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return settings, nil
}

func newLogger(settings *config.Settings, w io.Writer) *logger.Logger {
	var opts []logger.Option
	if settings.Environment == config.EnvLocal {
		opts = append(opts, logger.WithConsole())
	}
	return logger.New(settings.Level(), w, opts...)
}

// runCrawl is the main command logic
func runCrawl(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}

	sources, err := config.LoadSources(settings.SourcesFile)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}

	c, err := cache.New(settings.CacheDir)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	store, err := storage.New(settings.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	log := newLogger(settings, cmd.ErrOrStderr())
	if flagVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run %s: %d sources from %s, data in %s\n", log.RunID(), len(sources), settings.SourcesFile, store.Dir())
	}

	crawler := pipeline.New(pipeline.Options{
		Cache:        c,
		Storage:      store,
		Location:     loc,
		Metro:        settings.Metro(),
		FetchOptions: settings.FetchOptions(),
		WindowDays:   settings.WindowDays,
		ICSFile:      settings.ICSFile,
		MetricsFile:  settings.MetricsFile,
	})

	out, err := crawler.Crawl(cmd.Context(), pipeline.NewRun(log), sources)
	if out != nil {
		if werr := WriteCrawlSummary(cmd.OutOrStdout(), out, log.Summary()); werr != nil && err == nil {
			err = fmt.Errorf("writing output: %w", werr)
		}
	}
	if err != nil {
		return err
	}

	if flagExitOnNew && out.Diff != nil && len(out.Diff.NewEvents) > 0 {
		return errNewEvents
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}
	order := SortOrder(strings.ToLower(flagSort))
	if order != SortByScore && order != SortByDate && order != SortByTitle {
		return fmt.Errorf("invalid sort: %s (must be 'score', 'date' or 'title')", flagSort)
	}

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	loc, err := settings.Location()
	if err != nil {
		return err
	}

	store, err := storage.New(settings.DataDir)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	if flagID != "" {
		evt, err := store.GetEventByID(flagID)
		if err != nil {
			return err
		}
		result := &OutputResult{Count: 1, Events: []*event.Event{evt}, Location: loc}
		return WriteOutput(cmd.OutOrStdout(), result, format, true)
	}

	latest, err := store.LoadLatest()
	if err != nil {
		return fmt.Errorf("loading events: %w", err)
	}

	events := latest.Events
	if flagDates != "" {
		rng, err := filter.ParseDateRange(flagDates, time.Now(), loc)
		if err != nil {
			return err
		}
		events = rng.Select(events)
	}
	if flagCategory != "" {
		events = byCategory(events, strings.ToLower(flagCategory))
	}

	sortEvents(events, order)
	if flagLimit > 0 && len(events) > flagLimit {
		events = events[:flagLimit]
	}

	result := &OutputResult{
		UpdatedAt: latest.UpdatedAt,
		Count:     len(events),
		Events:    events,
		Location:  loc,
	}
	if err := WriteOutput(cmd.OutOrStdout(), result, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func byCategory(events []*event.Event, category string) []*event.Event {
	out := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if evt.HasCategory(category) {
			out = append(out, evt)
		}
	}
	return out
}

func runSources(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	sources, err := config.LoadSources(settings.SourcesFile)
	if err != nil {
		return fmt.Errorf("loading sources: %w", err)
	}
	return WriteSources(cmd.OutOrStdout(), sources, adapter.NewRegistry())
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	c, err := cache.New(settings.CacheDir)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	removed, err := c.ClearExpired()
	if err != nil {
		return fmt.Errorf("pruning cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries from %s\n", removed, c.Dir())
	return nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
		os.Exit(ExitSuccess)
	case errors.Is(err, errNewEvents):
		os.Exit(ExitNewEvents)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
