package weather

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/i474232898/weather-lookup/internal/fetch"
)

// State is the visible result of the fetch cycles so far.
// Weather and Forecast are retained across a failed cycle.
type State struct {
	Weather  *CurrentWeather `json:"weather"`
	Forecast *ForecastList   `json:"forecast"`
	Loading  bool            `json:"loading"`
	Error    string          `json:"error,omitempty"`
}

// Fetcher runs fetch cycles (current weather, then forecast) for the latest
// coordinates. Starting a cycle cancels the previous one, and only the most
// recent cycle may commit to State.
type Fetcher struct {
	provider Provider
	logger   *slog.Logger
	observer Observer

	mu       sync.Mutex
	coords   Coordinates
	gen      uint64
	cancel   context.CancelFunc
	state    State
	closed   bool
	onChange []func(State)
	wg       sync.WaitGroup
}

// FetcherConfig configures a Fetcher. Zero values use defaults.
type FetcherConfig struct {
	Logger   *slog.Logger
	Observer Observer
}

// NewFetcher creates an idle Fetcher.
func NewFetcher(p Provider, cfg FetcherConfig) *Fetcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Fetcher{
		provider: p,
		logger:   cfg.Logger.With("component", "weather-fetcher"),
		observer: cfg.Observer,
	}
}

// OnChange registers fn to be called with every committed state.
func (f *Fetcher) OnChange(fn func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = append(f.onChange, fn)
}

// SetCoordinates records c and, when both coordinates are set, starts a new
// cycle. Unset coordinates cancel the outstanding cycle and leave data untouched.
func (f *Fetcher) SetCoordinates(c Coordinates) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.coords = c
	if !c.Valid() {
		changed := f.cancelLocked()
		st, subs := f.state, f.subscribersLocked()
		f.mu.Unlock()
		if changed {
			notify(subs, st)
		}
		return
	}
	f.startLocked()
}

// Refresh re-runs the cycle for the current coordinates. It is a no-op while
// coordinates are unset.
func (f *Fetcher) Refresh() {
	f.mu.Lock()
	if f.closed || !f.coords.Valid() {
		f.mu.Unlock()
		return
	}
	f.startLocked()
}

// Coordinates returns the coordinates of the latest trigger.
func (f *Fetcher) Coordinates() Coordinates {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.coords
}

// State returns a snapshot of the visible state.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Wait blocks until all started cycles have returned.
func (f *Fetcher) Wait() {
	f.wg.Wait()
}

// Close cancels the outstanding cycle and waits for it to unwind.
func (f *Fetcher) Close() {
	f.mu.Lock()
	f.closed = true
	f.cancelLocked()
	f.mu.Unlock()
	f.wg.Wait()
}

// startLocked must be called with mu held; it releases mu.
func (f *Fetcher) startLocked() {
	f.cancelLocked()

	f.gen++
	gen := f.gen
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel

	f.state.Loading = true
	f.state.Error = ""
	lat, lon := *f.coords.Lat, *f.coords.Lon
	st, subs := f.state, f.subscribersLocked()
	f.wg.Add(1)
	f.mu.Unlock()

	notify(subs, st)

	go func() {
		defer f.wg.Done()
		defer cancel()
		f.run(ctx, gen, lat, lon)
	}()
}

// cancelLocked aborts the outstanding cycle and reports whether state changed.
func (f *Fetcher) cancelLocked() bool {
	if f.cancel == nil {
		return false
	}
	f.cancel()
	f.cancel = nil
	f.gen++
	if f.state.Loading {
		f.state.Loading = false
		return true
	}
	return false
}

func (f *Fetcher) run(ctx context.Context, gen uint64, lat, lon float64) {
	logger := f.logger.With("cycle_id", uuid.NewString(), "lat", lat, "lon", lon)
	logger.Debug("fetch cycle started")

	outcome := "ok"
	defer func() {
		// Guaranteed final step: the owning cycle always clears loading.
		f.commit(gen, func(s *State) {
			s.Loading = false
		})
		f.observer.ObserveCycle(outcome)
	}()

	current, err := f.provider.CurrentWeather(ctx, lat, lon)
	if err != nil {
		outcome = f.fail(logger, gen, "current weather", err)
		return
	}
	if !f.commit(gen, func(s *State) { s.Weather = &current }) {
		outcome = "superseded"
		return
	}

	forecast, err := f.provider.Forecast(ctx, lat, lon)
	if err != nil {
		outcome = f.fail(logger, gen, "forecast", err)
		return
	}
	if !f.commit(gen, func(s *State) { s.Forecast = &forecast }) {
		outcome = "superseded"
		return
	}
	logger.Debug("fetch cycle completed", "entries", len(forecast.List))
}

func (f *Fetcher) fail(logger *slog.Logger, gen uint64, step string, err error) string {
	if fetch.IsCancelled(err) {
		logger.Debug("fetch cycle cancelled", "step", step)
		return "cancelled"
	}
	msg := fetch.Message(err)
	if msg == "" {
		msg = "Unknown error"
	}
	logger.Warn("fetch cycle failed", "step", step, "error", err)
	if !f.commit(gen, func(s *State) { s.Error = msg }) {
		return "superseded"
	}
	return "error"
}

// commit applies mutate when gen is still the active cycle.
func (f *Fetcher) commit(gen uint64, mutate func(*State)) bool {
	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		return false
	}
	mutate(&f.state)
	st, subs := f.state, f.subscribersLocked()
	f.mu.Unlock()

	notify(subs, st)
	return true
}

func (f *Fetcher) subscribersLocked() []func(State) {
	return append([]func(State){}, f.onChange...)
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}
