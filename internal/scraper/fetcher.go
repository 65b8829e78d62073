package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pfrederiksen/clt-events/internal/logger"
)

const (
	UserAgent       = "clt-events/1.0 (github.com/pfrederiksen/clt-events)"
	Timeout         = 30 * time.Second
	DefaultInterval = time.Second
	DefaultRetries  = 2

	maxBodyBytes = 10 << 20
)

// Cache is the page cache consulted before any network request
type Cache interface {
	Get(url string) (string, bool)
	Set(url, body string) error
}

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
}

// Fetcher retrieves pages for one adapter, honoring its rate limit
type Fetcher struct {
	client      *http.Client
	cache       Cache
	log         *logger.Logger
	source      string
	userAgent   string
	interval    time.Duration
	retries     uint64
	backoff     func() backoff.BackOff
	lastRequest time.Time
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithClient sets the HTTP client
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client = &http.Client{Timeout: d}
		}
	}
}

// WithInterval sets the minimum gap between consecutive requests
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.interval = d
	}
}

// WithRetries sets how many times a transient failure is retried
func WithRetries(n int) Option {
	return func(f *Fetcher) {
		if n < 0 {
			n = 0
		}
		f.retries = uint64(n)
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithLogger reports cache hits and requests under the given source name
func WithLogger(l *logger.Logger, source string) Option {
	return func(f *Fetcher) {
		f.log = l
		f.source = source
	}
}

// WithBackOff sets the retry delay policy
func WithBackOff(b func() backoff.BackOff) Option {
	return func(f *Fetcher) {
		f.backoff = b
	}
}

// New creates a Fetcher. cache may be nil to disable caching.
func New(cache Cache, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: Timeout,
		},
		cache:     cache,
		userAgent: UserAgent,
		interval:  DefaultInterval,
		retries:   DefaultRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return b
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the body at url, from the cache when a fresh copy exists.
// Successful network responses are written back to the cache.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			f.debug("Cache hit", logger.Fields{"url": url})
			return body, nil
		}
	}

	body, err := f.FetchUncached(ctx, url, nil)
	if err != nil {
		return "", err
	}

	if f.cache != nil {
		if err := f.cache.Set(url, body); err != nil && f.log != nil {
			f.log.Warn(f.source, "Failed to write cache", logger.Fields{"url": url, "error": err.Error()})
		}
	}
	return body, nil
}

// FetchUncached performs the request without consulting or filling the cache.
// API adapters use it so that credentials in the URL never reach the disk.
func (f *Fetcher) FetchUncached(ctx context.Context, url string, header http.Header) (string, error) {
	var body string
	op := func() error {
		var err error
		body, err = f.get(ctx, url, header)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(f.backoff(), f.retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return body, nil
}

// get performs one rate-limited GET
func (f *Fetcher) get(ctx context.Context, url string, header http.Header) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", backoff.Permanent(err)
	}
	defer func() { f.lastRequest = time.Now() }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	f.debug("Fetching", logger.Fields{"host": req.URL.Host, "path": req.URL.Path})

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode, URL: req.URL.Host + req.URL.Path}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(data), nil
}

// wait blocks until the rate-limit interval since the previous request has elapsed
func (f *Fetcher) wait(ctx context.Context) error {
	if f.lastRequest.IsZero() || f.interval <= 0 {
		return nil
	}
	d := f.interval - time.Since(f.lastRequest)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) debug(msg string, fields logger.Fields) {
	if f.log != nil {
		f.log.Debug(f.source, msg, fields)
	}
}
