package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pfrederiksen/clt-events/internal/adapter"
	"github.com/pfrederiksen/clt-events/internal/cache"
	"github.com/pfrederiksen/clt-events/internal/event"
	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
	"github.com/pfrederiksen/clt-events/internal/storage"
)

var crawlNow = time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("../../testdata/fixtures", name))
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}
	return data
}

type harness struct {
	crawler *Crawler
	store   *storage.Storage
	run     *Run
	dir     string
	server  *httptest.Server
	hits    map[string]int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	h := &harness{dir: t.TempDir(), hits: make(map[string]int)}

	html := fixture(t, "visit_charlotte.html")
	feed := fixture(t, "events_feed.xml")
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		h.hits["/events"]++
		w.Write(html)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		h.hits["/feed"]++
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write(feed)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		h.hits["/broken"]++
		w.WriteHeader(http.StatusNotFound)
	})
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)

	clock := func() time.Time { return crawlNow }

	c, err := cache.New(filepath.Join(h.dir, "cache"), cache.WithClock(clock))
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	h.store, err = storage.New(filepath.Join(h.dir, "data"))
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}

	h.crawler = New(Options{
		Cache:        c,
		Storage:      h.store,
		Location:     loc,
		FetchOptions: []scraper.Option{scraper.WithInterval(0), scraper.WithRetries(0)},
		Getenv:       func(string) string { return "" },
		WindowDays:   14,
		ICSFile:      filepath.Join(h.dir, "data", "events.ics"),
		MetricsFile:  filepath.Join(h.dir, "metrics", "clt_events.prom"),
	})

	run := NewRun(logger.New(logger.LevelError, nil, logger.WithClock(clock)))
	run.Now = clock
	h.run = run
	return h
}

func (h *harness) sources() []adapter.Source {
	return []adapter.Source{
		{Name: "Arts Feed", URL: h.server.URL + "/feed", Adapter: adapter.KeyFeed, Priority: 3, Enabled: true},
		{Name: "Visit Charlotte", URL: h.server.URL + "/events", Adapter: adapter.KeyVisitCharlotte, Priority: 2, Enabled: true},
		{Name: "Ticketmaster API", URL: "https://app.ticketmaster.com/discovery/v2/events.json", Adapter: adapter.KeyTicketmasterAPI, Priority: 1, Enabled: true},
		{Name: "Uptown Charlotte", URL: h.server.URL + "/broken", Adapter: adapter.KeyUptownCharlotte, Priority: 2, Enabled: false},
		{Name: "Mystery", URL: h.server.URL + "/events", Adapter: "mystery", Priority: 4, Enabled: true},
	}
}

func TestCrawl(t *testing.T) {
	h := newHarness(t)

	out, err := h.crawler.Crawl(context.Background(), h.run, h.sources())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if len(out.Events) != 4 {
		t.Fatalf("expected 4 ranked events, got %d", len(out.Events))
	}
	for i := 1; i < len(out.Events); i++ {
		if *out.Events[i-1].RankScore < *out.Events[i].RankScore {
			t.Errorf("events not sorted by score at %d", i)
		}
	}

	if len(out.Results) != 3 {
		t.Errorf("expected 3 sources fetched (disabled and unknown skipped), got %d", len(out.Results))
	}
	if out.Results[0].Source.Name != "Ticketmaster API" || out.Results[1].Source.Name != "Visit Charlotte" {
		t.Errorf("expected priority order, got %s then %s", out.Results[0].Source.Name, out.Results[1].Source.Name)
	}
	if h.hits["/broken"] != 0 {
		t.Error("disabled source should not be fetched")
	}

	if len(out.Diff.NewEvents) != 4 {
		t.Errorf("expected every event new on first run, got %d", len(out.Diff.NewEvents))
	}

	latest, err := h.store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if latest.Count != 4 || latest.UpdatedAt != "2024-05-30T12:00:00Z" {
		t.Errorf("unexpected latest header %d %s", latest.Count, latest.UpdatedAt)
	}
	if filepath.Base(out.ArchivePath) != "events-2024-05-30.json" {
		t.Errorf("unexpected archive %s", out.ArchivePath)
	}

	ics, err := os.ReadFile(filepath.Join(h.dir, "data", "events.ics"))
	if err != nil {
		t.Fatalf("reading calendar: %v", err)
	}
	if strings.Count(string(ics), "BEGIN:VEVENT") != 4 {
		t.Errorf("expected 4 calendar events")
	}

	prom, err := os.ReadFile(filepath.Join(h.dir, "metrics", "clt_events.prom"))
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if !strings.Contains(string(prom), `clt_events_source_candidates{source="Visit Charlotte"} 2`) {
		t.Errorf("expected per-source candidates in metrics:\n%s", prom)
	}
	if !strings.Contains(string(prom), `clt_events_pipeline_events{stage="ranked"} 4`) {
		t.Errorf("expected ranked stage in metrics:\n%s", prom)
	}
}

func TestCrawl_RunLog(t *testing.T) {
	h := newHarness(t)

	out, err := h.crawler.Crawl(context.Background(), h.run, h.sources())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if filepath.Base(out.LogPath) != "scrape-log-2024-05-30.json" {
		t.Fatalf("unexpected log path %q", out.LogPath)
	}
	data, err := os.ReadFile(out.LogPath)
	if err != nil {
		t.Fatalf("reading run log: %v", err)
	}
	var report logger.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("run log is not valid JSON: %v", err)
	}

	sum := report.Summary
	if sum.Sources["Visit Charlotte"].Events != 2 || sum.Sources["Arts Feed"].Events != 2 {
		t.Errorf("unexpected per-source events %+v %+v", sum.Sources["Visit Charlotte"], sum.Sources["Arts Feed"])
	}
	if sum.Sources["Ticketmaster API"].Status != logger.StatusSuccess || sum.Sources["Ticketmaster API"].Events != 0 {
		t.Errorf("expected missing key to be a soft skip, got %+v", sum.Sources["Ticketmaster API"])
	}
	if sum.TotalEvents != 4 {
		t.Errorf("expected 4 total events, got %d", sum.TotalEvents)
	}
	if sum.Errors != 0 {
		t.Errorf("expected no errors, got %d", sum.Errors)
	}
	// missing API key + unknown adapter
	if sum.Warnings != 2 {
		t.Errorf("expected 2 warnings, got %d", sum.Warnings)
	}
	if report.RunID != h.run.Logger.RunID() {
		t.Error("expected the run id in the report")
	}
}

func TestCrawl_DiffAgainstPrevious(t *testing.T) {
	h := newHarness(t)

	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	prior := &event.Event{
		ID:     event.GenerateID("Free Jazz Night", "The Evening Muse, NoDa", &start),
		Title:  "Free Jazz Night",
		Source: event.Source{Name: "Visit Charlotte"},
	}
	if _, err := h.store.SaveEvents([]*event.Event{prior}, crawlNow.Add(-24*time.Hour)); err != nil {
		t.Fatalf("seeding previous output: %v", err)
	}

	out, err := h.crawler.Crawl(context.Background(), h.run, h.sources())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if len(out.Diff.NewEvents) != 3 {
		t.Errorf("expected 3 new events, got %d", len(out.Diff.NewEvents))
	}
	for _, e := range out.Diff.NewEvents {
		if e.Title == "Free Jazz Night" {
			t.Error("previously published event reported as new")
		}
	}
}

func TestCrawl_UsesCache(t *testing.T) {
	h := newHarness(t)

	if _, err := h.crawler.Crawl(context.Background(), h.run, h.sources()); err != nil {
		t.Fatalf("first Crawl() error = %v", err)
	}
	second := NewRun(logger.New(logger.LevelError, nil))
	second.Now = h.run.Now
	if _, err := h.crawler.Crawl(context.Background(), second, h.sources()); err != nil {
		t.Fatalf("second Crawl() error = %v", err)
	}

	if h.hits["/events"] != 1 || h.hits["/feed"] != 1 {
		t.Errorf("expected cached pages on the second run, hits = %v", h.hits)
	}
}

func TestCrawl_SourceFailureIsContained(t *testing.T) {
	h := newHarness(t)
	sources := []adapter.Source{
		{Name: "Broken", URL: h.server.URL + "/broken", Adapter: adapter.KeyAxiosCharlotte, Priority: 1, Enabled: true},
		{Name: "Visit Charlotte", URL: h.server.URL + "/events", Adapter: adapter.KeyVisitCharlotte, Priority: 2, Enabled: true},
	}

	out, err := h.crawler.Crawl(context.Background(), h.run, sources)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(out.Events) != 2 {
		t.Errorf("expected the healthy source's events, got %d", len(out.Events))
	}
	if out.Results[0].Err == nil {
		t.Error("expected the broken source to report its error")
	}
	if h.run.Logger.Summary().Sources["Broken"].Status != logger.StatusFailed {
		t.Error("expected the broken source marked failed")
	}
}

func TestCrawl_Cancelled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.crawler.Crawl(ctx, h.run, h.sources())
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(out.Results) != 0 || len(out.Events) != 0 {
		t.Errorf("expected nothing fetched after cancellation, got %d results", len(out.Results))
	}
	if out.LogPath == "" {
		t.Error("expected the run log to be saved")
	}
}

func TestCrawl_SaveFailureStillWritesLog(t *testing.T) {
	h := newHarness(t)
	logDir := filepath.Join(h.dir, "logs")

	blocker := filepath.Join(h.dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	h.crawler.opts.ICSFile = filepath.Join(blocker, "events.ics")
	h.crawler.opts.LogDir = logDir

	out, err := h.crawler.Crawl(context.Background(), h.run, h.sources())
	if err == nil {
		t.Fatal("expected an error writing the calendar")
	}
	if out.LogPath == "" {
		t.Fatal("expected the run log to be saved")
	}
	if _, statErr := os.Stat(out.LogPath); statErr != nil {
		t.Errorf("run log missing: %v", statErr)
	}
	if h.run.Logger.Summary().Errors == 0 {
		t.Error("expected the failure logged")
	}
}

func TestByPriority(t *testing.T) {
	in := []adapter.Source{
		{Name: "c", Priority: 3},
		{Name: "a1", Priority: 1},
		{Name: "b", Priority: 2},
		{Name: "a2", Priority: 1},
	}
	got := byPriority(in)

	want := []string{"a1", "a2", "b", "c"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d = %s, want %s", i, got[i].Name, name)
		}
	}
	if in[0].Name != "c" {
		t.Error("input should not be reordered")
	}
}
