// Package pipeline runs one crawl: every enabled source is fetched in
// priority order, then candidates are normalized, deduplicated, filtered,
// ranked and written out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/cache"
	"github.com/pfrederiksen/clt-events/internal/calendar"
	"github.com/pfrederiksen/clt-events/internal/dedupe"
	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/filter"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/metrics"
	"github.com/pfrederiksen/clt-events/internal/normalize"
	"github.com/pfrederiksen/clt-events/internal/scraper"
	"github.com/pfrederiksen/clt-events/internal/storage"
)

const component = "Crawler"

// Run carries the collaborators scoped to a single crawl
type Run struct {
	Logger  *logger.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// NewRun creates a Run with fresh metrics and the wall clock
func NewRun(log *logger.Logger) *Run {
	return &Run{Logger: log, Metrics: metrics.New(), Now: time.Now}
}

// Options configures a Crawler
type Options struct {
	Registry     *adapter.Registry
	Cache        *cache.Cache
	Storage      *storage.Storage
	Location     *time.Location
	Metro        adapter.Metro
	FetchOptions []scraper.Option
	Getenv       func(string) string
	WindowDays   int
	LogDir       string // Defaults to the storage directory
	ICSFile      string // Empty disables the calendar feed
	MetricsFile  string // Empty disables the metrics textfile
}

// Crawler executes crawl runs
type Crawler struct {
	opts Options
}

// Output describes what a crawl produced
type Output struct {
	Events      []*event.Event
	Diff        *event.DiffResult
	Stats       filter.Stats
	Results     []adapter.Result
	ArchivePath string
	LogPath     string
}

// New creates a Crawler
func New(opts Options) *Crawler {
	if opts.Registry == nil {
		opts.Registry = adapter.NewRegistry()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.LogDir == "" && opts.Storage != nil {
		opts.LogDir = opts.Storage.Dir()
	}
	return &Crawler{opts: opts}
}

// Crawl runs the whole pipeline over sources. Per-source failures are logged
// and skipped. The returned error reports output that could not be written;
// the run log is saved even then.
func (c *Crawler) Crawl(ctx context.Context, run *Run, sources []adapter.Source) (*Output, error) {
	if run.Now == nil {
		run.Now = time.Now
	}
	if run.Metrics == nil {
		run.Metrics = metrics.New()
	}
	log := run.Logger
	started := run.Now()

	log.Info(component, "Starting Charlotte event crawler", logger.Fields{"sources": len(sources)})

	if c.opts.Cache != nil {
		removed, err := c.opts.Cache.ClearExpired()
		if err != nil {
			log.Warn(component, fmt.Sprintf("Clearing expired cache failed: %v", err), nil)
		} else if removed > 0 {
			log.Info(component, fmt.Sprintf("Cleared %d expired cache entries", removed), nil)
		}
	}

	out := &Output{}
	raw := 0
	var normalized []*event.Event
	norm := normalize.New(c.opts.Location, normalize.WithClock(run.Now))

	for _, src := range byPriority(sources) {
		if ctx.Err() != nil {
			log.Warn(component, "Crawl cancelled, skipping remaining sources", logger.Fields{"next": src.Name})
			break
		}

		res, ok := c.fetchSource(ctx, run, src)
		if !ok {
			continue
		}
		out.Results = append(out.Results, res)
		raw += len(res.Candidates)
		normalized = append(normalized, norm.NormalizeAll(res.Candidates, src)...)
	}

	run.Metrics.SetStage(metrics.StageRaw, raw)
	log.Info(component, fmt.Sprintf("Normalized %d raw events", len(normalized)), nil)
	run.Metrics.SetStage(metrics.StageNormalized, len(normalized))

	deduped := dedupe.Dedupe(normalized)
	log.Info(component, fmt.Sprintf("Deduplicated to %d events", len(deduped)), logger.Fields{
		"merged": len(normalized) - len(deduped),
	})
	run.Metrics.SetStage(metrics.StageDeduplicated, len(deduped))

	now := run.Now()
	f := filter.NewFilter(now, c.opts.WindowDays)
	ranked, stats := filter.Apply(f, filter.NewRanker(now, c.opts.Location), deduped)
	if stats.Undated > 0 {
		log.Warn(component, fmt.Sprintf("%d events have no start_datetime", stats.Undated), nil)
	}
	for _, reason := range filter.Reasons {
		run.Metrics.AddFiltered(string(reason), stats.Excluded[reason])
	}
	log.Info(component, fmt.Sprintf("Ranked %d of %d events", len(ranked), len(deduped)), logger.Fields{
		"past":             stats.Excluded[filter.ReasonPast],
		"beyond_window":    stats.Excluded[filter.ReasonBeyondWindow],
		"excluded_keyword": stats.Excluded[filter.ReasonExcludedKeyword],
	})
	run.Metrics.SetStage(metrics.StageRanked, len(ranked))

	out.Events = ranked
	out.Stats = stats

	var errs []error
	if err := c.persist(run, out, now); err != nil {
		log.Error(component, fmt.Sprintf("Saving results failed: %v", err), nil, err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		newCount := 0
		if out.Diff != nil {
			newCount = len(out.Diff.NewEvents)
		}
		log.Success(component, fmt.Sprintf("Crawl complete! Found %d events", len(ranked)), logger.Fields{
			"events": len(ranked),
			"new":    newCount,
		})
	}

	run.Metrics.Finish(run.Now().Sub(started), run.Now())
	if c.opts.MetricsFile != "" {
		if err := run.Metrics.WriteTextfile(c.opts.MetricsFile); err != nil {
			log.Error(component, fmt.Sprintf("Writing metrics failed: %v", err), nil, err)
			errs = append(errs, err)
		}
	}

	if c.opts.LogDir != "" {
		path, err := log.Save(c.opts.LogDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("saving logs: %w", err))
		}
		out.LogPath = path
	}

	return out, errors.Join(errs...)
}

// fetchSource runs one source. ok is false when the source was skipped.
func (c *Crawler) fetchSource(ctx context.Context, run *Run, src adapter.Source) (adapter.Result, bool) {
	log := run.Logger

	if !src.Enabled {
		log.Info(component, fmt.Sprintf("Skipping disabled source: %s", src.Name), nil)
		return adapter.Result{}, false
	}

	log.Info(component, fmt.Sprintf("Fetching from: %s", src.Name), logger.Fields{"adapter": src.Adapter, "url": src.URL})

	a, err := c.opts.Registry.New(src, adapter.Deps{
		Logger:       log,
		Cache:        c.cacheOrNil(),
		Metro:        c.opts.Metro,
		FetchOptions: c.opts.FetchOptions,
		Getenv:       c.opts.Getenv,
	})
	if err != nil {
		if errors.Is(err, adapter.ErrUnknownAdapter) {
			log.Warn(component, fmt.Sprintf("No adapter found for: %s", src.Adapter), logger.Fields{"source": src.Name})
		} else {
			log.Error(component, fmt.Sprintf("Failed to create adapter for %s: %v", src.Name, err), nil, err)
		}
		run.Metrics.ObserveSource(src.Name, 0, 0, err)
		return adapter.Result{}, false
	}

	res := a.Fetch(ctx)
	run.Metrics.ObserveSource(src.Name, len(res.Candidates), res.Duration, res.Err)
	return res, true
}

// cacheOrNil avoids handing adapters a typed nil inside the interface
func (c *Crawler) cacheOrNil() scraper.Cache {
	if c.opts.Cache == nil {
		return nil
	}
	return c.opts.Cache
}

// persist diffs against the previous output, then writes events and the calendar feed
func (c *Crawler) persist(run *Run, out *Output, now time.Time) error {
	if c.opts.Storage == nil {
		return nil
	}
	log := run.Logger

	previous, err := c.opts.Storage.LoadLatest()
	if err != nil {
		log.Warn(component, fmt.Sprintf("Could not read previous output: %v", err), nil)
		previous = &storage.Latest{}
	}
	out.Diff = event.Diff(previous.Events, out.Events)
	run.Metrics.SetStage(metrics.StageNew, len(out.Diff.NewEvents))
	if n := len(out.Diff.NewEvents); n > 0 {
		log.Info(component, fmt.Sprintf("%d new since last run", n), logger.Fields{"new": n})
	}

	archive, err := c.opts.Storage.SaveEvents(out.Events, now)
	if err != nil {
		return fmt.Errorf("saving events: %w", err)
	}
	out.ArchivePath = archive
	log.Info(component, fmt.Sprintf("Saved %d events", len(out.Events)), logger.Fields{"path": archive})

	if c.opts.ICSFile != "" {
		if err := writeCalendar(c.opts.ICSFile, out.Events, now); err != nil {
			return err
		}
	}
	return nil
}

func writeCalendar(path string, events []*event.Event, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating calendar directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating calendar: %w", err)
	}
	if err := calendar.WriteICS(f, events, calendar.DefaultName, now); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing calendar: %w", err)
	}
	return nil
}

// byPriority returns a copy of sources in ascending priority, stable for ties
func byPriority(sources []adapter.Source) []adapter.Source {
	sorted := append([]adapter.Source(nil), sources...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return sorted
}
