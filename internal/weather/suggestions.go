package weather

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/i474232898/weather-lookup/internal/debounce"
	"github.com/i474232898/weather-lookup/internal/fetch"
)

const (
	DefaultSuggestionLimit = 5
	// DefaultAutoMinLength is the shortest debounced query that is sent to the geocoder.
	DefaultAutoMinLength = 2
)

// Observer receives lookup outcomes. The metrics collector implements it.
type Observer interface {
	ObserveSuggestions(outcome string)
	ObserveCycle(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveSuggestions(string) {}
func (nopObserver) ObserveCycle(string)       {}

// SuggesterConfig configures a Suggester. Zero values use defaults.
type SuggesterConfig struct {
	Limit     int
	MinLength int
	Logger    *slog.Logger
	Observer  Observer
}

// Suggester keeps the current list of city suggestions for a query.
// A new Fetch cancels the previous one; a superseded or cancelled fetch never
// touches the list.
type Suggester struct {
	geocoder Geocoder
	limit    int
	minLen   int
	logger   *slog.Logger
	observer Observer

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	items  []Location
}

// NewSuggester creates a Suggester for manual use: every non-blank query is looked up.
func NewSuggester(g Geocoder, cfg SuggesterConfig) *Suggester {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultSuggestionLimit
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Suggester{
		geocoder: g,
		limit:    cfg.Limit,
		minLen:   cfg.MinLength,
		logger:   cfg.Logger.With("component", "suggestions"),
		observer: cfg.Observer,
	}
}

// Fetch looks up query and replaces the suggestion list. It reports false when
// the lookup was superseded or cancelled and the list was left untouched.
// Lookup failures are logged and clear the list.
func (s *Suggester) Fetch(ctx context.Context, query string) ([]Location, bool) {
	q := strings.TrimSpace(query)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.cancelLocked()

	if q == "" || utf8.RuneCountInString(q) < s.minLen {
		s.items = nil
		s.mu.Unlock()
		s.observer.ObserveSuggestions("skipped")
		return nil, true
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	locs, err := s.geocoder.Geocode(ctx, q, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		s.observer.ObserveSuggestions("superseded")
		return nil, false
	}
	s.cancel = nil

	if err != nil {
		if fetch.IsCancelled(err) {
			s.observer.ObserveSuggestions("cancelled")
			return nil, false
		}
		s.logger.Error("suggestion fetch failed", "query", q, "error", err)
		s.observer.ObserveSuggestions("error")
		s.items = nil
		return nil, true
	}

	if len(locs) > s.limit {
		locs = locs[:s.limit]
	}
	s.items = append([]Location(nil), locs...)
	s.observer.ObserveSuggestions("ok")
	return append([]Location(nil), s.items...), true
}

// Suggestions returns a copy of the current list.
func (s *Suggester) Suggestions() []Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Location(nil), s.items...)
}

// Clear cancels any pending lookup and empties the list.
func (s *Suggester) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cancelLocked()
	s.items = nil
}

func (s *Suggester) cancelLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// AutoSuggester feeds a debounced query into a Suggester. Queries shorter than
// the minimum length reset the list without a lookup.
type AutoSuggester struct {
	suggester *Suggester
	debouncer *debounce.Debouncer[string]

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAutoSuggester creates an AutoSuggester. MinLength defaults to 2.
func NewAutoSuggester(g Geocoder, delay time.Duration, cfg SuggesterConfig) *AutoSuggester {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultAutoMinLength
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &AutoSuggester{
		suggester: NewSuggester(g, cfg),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.debouncer = debounce.New(delay, a.settled)
	return a
}

// Input records a raw keystroke-level query.
func (a *AutoSuggester) Input(query string) {
	a.debouncer.Set(query)
}

// Suggestions returns a copy of the current list.
func (a *AutoSuggester) Suggestions() []Location {
	return a.suggester.Suggestions()
}

// Clear drops any pending query, cancels an in-flight lookup and empties the list.
func (a *AutoSuggester) Clear() {
	a.debouncer.Cancel()
	a.suggester.Clear()
}

// Wait blocks until in-flight lookups have finished.
func (a *AutoSuggester) Wait() {
	a.wg.Wait()
}

// Close tears the AutoSuggester down, cancelling pending and in-flight work.
func (a *AutoSuggester) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	a.debouncer.Stop()
	a.cancel()
	a.suggester.Clear()
	a.wg.Wait()
}

func (a *AutoSuggester) settled(query string) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	a.suggester.Fetch(a.ctx, query)
}
