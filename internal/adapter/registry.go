package adapter

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pfrederiksen/clt-events/internal/logger"
	"github.com/pfrederiksen/clt-events/internal/scraper"
)

// ErrUnknownAdapter is returned for a source whose adapter key is not registered
var ErrUnknownAdapter = errors.New("unknown adapter")

// Metro is the area API adapters search
type Metro struct {
	City      string
	StateCode string
	Radius    string
}

// Address renders the metro as "City, ST"
func (m Metro) Address() string {
	if m.StateCode == "" {
		return m.City
	}
	return m.City + ", " + m.StateCode
}

// DefaultMetro is Charlotte, NC with a 25 mile radius
var DefaultMetro = Metro{City: "Charlotte", StateCode: "NC", Radius: "25mi"}

// Deps are the run-scoped collaborators shared by every adapter
type Deps struct {
	Logger       *logger.Logger
	Cache        scraper.Cache
	Metro        Metro
	FetchOptions []scraper.Option
	Getenv       func(string) string
}

// Runtime is what a factory receives to build one adapter
type Runtime struct {
	Fetcher *scraper.Fetcher
	Logger  *logger.Logger
	Metro   Metro
	Getenv  func(string) string
}

// Factory builds the Kind for a source
type Factory func(src Source, rt Runtime) (Kind, error)

// Registry maps adapter keys to factories
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with every built-in adapter registered
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for key, p := range Profiles() {
		r.Register(key, NewHTML(p))
	}
	r.Register(KeyTicketmasterAPI, NewTicketmasterAPI)
	r.Register(KeyEventbriteAPI, NewEventbriteAPI)
	r.Register(KeyFeed, NewFeed)
	return r
}

// Register adds or replaces the factory for key
func (r *Registry) Register(key string, f Factory) {
	r.factories[key] = f
}

// Keys returns the registered adapter keys in sorted order
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is registered
func (r *Registry) Has(key string) bool {
	_, ok := r.factories[key]
	return ok
}

// New builds the adapter for src. Each adapter gets its own fetcher so rate
// limits are tracked per adapter instance.
func (r *Registry) New(src Source, deps Deps) (*Adapter, error) {
	f, ok := r.factories[src.Adapter]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownAdapter, src.Adapter, strings.Join(r.Keys(), ", "))
	}

	log := deps.Logger
	if log == nil {
		log = logger.New(logger.LevelError, nil)
	}
	getenv := deps.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	metro := deps.Metro
	if metro.City == "" {
		metro = DefaultMetro
	}

	opts := append([]scraper.Option{scraper.WithLogger(log, src.Name)}, deps.FetchOptions...)
	kind, err := f(src, Runtime{
		Fetcher: scraper.New(deps.Cache, opts...),
		Logger:  log,
		Metro:   metro,
		Getenv:  getenv,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s adapter: %w", src.Adapter, err)
	}

	return &Adapter{source: src, kind: kind, log: log}, nil
}
