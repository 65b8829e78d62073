package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTTL is how long a fetched page stays valid
const DefaultTTL = 7 * 24 * time.Hour

// entry is the on-disk form of one cached response
type entry struct {
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Data      string    `json:"data"`
}

// Cache stores fetched page bodies as JSON files keyed by the MD5 of their URL
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithTTL overrides the default 7-day TTL
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithClock sets the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache rooted at dir, creating the directory if needed
func New(dir string, opts ...Option) (*Cache, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	c := &Cache{
		dir: dir,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the cache file name stem for a URL
func Key(url string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(url)))
}

func (c *Cache) path(url string) string {
	return filepath.Join(c.dir, Key(url)+".json")
}

// Get returns the cached body for url.
// Missing, unreadable or expired entries are reported as absent; expired files are removed.
func (c *Cache) Get(url string) (string, bool) {
	path := c.path(url)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}

	if c.now().Sub(e.Timestamp) > c.ttl {
		os.Remove(path)
		return "", false
	}

	return e.Data, true
}

// Set stores body for url with the current timestamp
func (c *Cache) Set(url, body string) error {
	data, err := json.Marshal(entry{
		URL:       url,
		Timestamp: c.now().UTC(),
		Data:      body,
	})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	if err := os.WriteFile(c.path(url), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// ClearExpired removes cache files whose modification time is older than the TTL.
// Returns the number of files removed.
func (c *Cache) ClearExpired() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}

	removed := 0
	now := c.now()
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > c.ttl {
			if err := os.Remove(filepath.Join(c.dir, de.Name())); err != nil {
				return removed, fmt.Errorf("removing %s: %w", de.Name(), err)
			}
			removed++
		}
	}

	return removed, nil
}
