// Package screen implements the city lookup screen: the search input, the
// geocoding step, suggestions and the weather/forecast shown for the chosen city.
package screen

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/weather-lookup/internal/fetch"
	"github.com/i474232898/weather-lookup/internal/preferences"
	"github.com/i474232898/weather-lookup/internal/render"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	MsgEmptyQuery     = "Please enter a city name."
	MsgNotFound       = "Location not found."
	MsgGeocodeFailed  = "Failed to fetch location."
	searchResultLimit = 1
)

var ErrSuggestionIndex = errors.New("suggestion index out of range")

// Deps are the collaborators a Controller drives.
type Deps struct {
	Geocoder    weather.Geocoder
	Fetcher     *weather.Fetcher
	Suggestions *weather.AutoSuggester
	Units       *preferences.UnitStore
	Themes      *preferences.ThemeStore
}

// Config configures a Controller. Zero values use defaults.
type Config struct {
	DefaultCity string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Controller owns the screen state: the input text (which doubles as the
// display name of the selected city), the coordinates and the screen error.
// Coordinates are written only by a successful search or a selection.
type Controller struct {
	deps        Deps
	defaultCity string
	logger      *slog.Logger
	now         func() time.Time

	mu           sync.Mutex
	city         string
	coords       weather.Coordinates
	err          string
	searchGen    uint64
	searchCancel context.CancelFunc
	started      bool
	closed       bool
}

func New(deps Deps, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	c := &Controller{
		deps:        deps,
		defaultCity: strings.TrimSpace(cfg.DefaultCity),
		logger:      cfg.Logger.With("component", "screen"),
		now:         cfg.Now,
	}
	// Runs synchronously inside fetcher commits, possibly while mu is held.
	deps.Fetcher.OnChange(func(st weather.State) {
		c.logger.Debug("weather state changed",
			"loading", st.Loading,
			"error", st.Error,
			"has_weather", st.Weather != nil,
			"has_forecast", st.Forecast != nil,
		)
	})
	return c
}

// HandleChange records an edit of the input. The previous selection is
// discarded: coordinates reset, the error clears, an in-flight search and
// fetch cycle are cancelled and the text feeds the debounced suggestions.
func (c *Controller) HandleChange(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.city = text
	c.err = ""
	c.cancelSearchLocked()
	c.coords = weather.Coordinates{}
	c.deps.Fetcher.SetCoordinates(c.coords)
	c.deps.Suggestions.Input(text)
}

// HandleSearch geocodes the current input and selects the best match.
// A newer search or an input edit supersedes this one.
func (c *Controller) HandleSearch(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	query := strings.TrimSpace(c.city)
	if query == "" {
		c.cancelSearchLocked()
		c.err = MsgEmptyQuery
		c.mu.Unlock()
		return
	}
	c.cancelSearchLocked()
	c.searchGen++
	gen := c.searchGen
	ctx, cancel := context.WithCancel(ctx)
	c.searchCancel = cancel
	c.mu.Unlock()
	defer cancel()

	locs, err := c.deps.Geocoder.Geocode(ctx, query, searchResultLimit)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.searchGen || c.closed {
		return
	}
	c.searchCancel = nil

	switch {
	case err != nil:
		if fetch.IsCancelled(err) {
			return
		}
		msg := fetch.Message(err)
		if msg == "" {
			msg = MsgGeocodeFailed
		}
		c.logger.Warn("location search failed", "query", query, "error", err)
		c.err = msg
	case len(locs) == 0:
		c.err = MsgNotFound
		c.coords = weather.Coordinates{}
		c.deps.Fetcher.SetCoordinates(c.coords)
	default:
		c.selectLocked(locs[0])
	}
}

// HandleSelect makes loc the current city.
func (c *Controller) HandleSelect(loc weather.Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cancelSearchLocked()
	c.selectLocked(loc)
}

// SelectSuggestion selects the i-th entry of the current suggestion list.
func (c *Controller) SelectSuggestion(i int) (weather.Location, error) {
	items := c.deps.Suggestions.Suggestions()
	if i < 0 || i >= len(items) {
		return weather.Location{}, ErrSuggestionIndex
	}
	c.HandleSelect(items[i])
	return items[i], nil
}

// Start runs the startup search for the default city. Only the first call has
// any effect.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed || c.defaultCity == "" {
		c.started = true
		c.mu.Unlock()
		return
	}
	c.started = true
	c.city = c.defaultCity
	c.mu.Unlock()

	c.logger.Info("startup search", "city", c.defaultCity)
	c.HandleSearch(ctx)
}

// Refresh re-runs the fetch cycle for the current coordinates. It does
// nothing while no city is selected.
func (c *Controller) Refresh() {
	coords := c.deps.Fetcher.Coordinates()
	if !coords.Valid() {
		c.logger.Debug("refresh skipped, no city selected")
		return
	}
	c.logger.Debug("refreshing weather", "coords", coords.Key())
	c.deps.Fetcher.Refresh()
}

// Wait blocks until outstanding fetch cycles and suggestion lookups return.
func (c *Controller) Wait() {
	c.deps.Fetcher.Wait()
	c.deps.Suggestions.Wait()
}

// Close cancels everything in flight and stops accepting input.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.cancelSearchLocked()
	c.mu.Unlock()

	c.deps.Suggestions.Close()
	c.deps.Fetcher.Close()
}

// View is the rendered screen.
type View struct {
	City         string                `json:"city"`
	Coordinates  weather.Coordinates   `json:"coordinates"`
	Loading      bool                  `json:"loading"`
	Error        string                `json:"error,omitempty"`
	Suggestions  []weather.Location    `json:"suggestions"`
	Unit         weather.Unit          `json:"unit"`
	UnitLoading  bool                  `json:"unitLoading"`
	ThemeMode    preferences.ThemeMode `json:"themeMode"`
	ThemeLoading bool                  `json:"themeLoading"`
	Scheme       preferences.Scheme    `json:"scheme"`
	Palette      render.Palette        `json:"palette"`
	Current      *render.CurrentCard   `json:"current,omitempty"`
	Forecast     []render.ForecastCard `json:"forecast,omitempty"`
	LaterToday   []render.ForecastCard `json:"laterToday,omitempty"`
	Days         []render.DayCard      `json:"days,omitempty"`
}

// View renders the screen for the given device colour scheme.
func (c *Controller) View(system preferences.Scheme) View {
	c.mu.Lock()
	city, coords, screenErr := c.city, c.coords, c.err
	c.mu.Unlock()

	st := c.deps.Fetcher.State()
	unit := c.deps.Units.Unit()
	scheme := c.deps.Themes.Effective(system)

	v := View{
		City:         city,
		Coordinates:  coords,
		Loading:      st.Loading,
		Error:        screenErr,
		Suggestions:  c.deps.Suggestions.Suggestions(),
		Unit:         unit,
		UnitLoading:  c.deps.Units.Loading(),
		ThemeMode:    c.deps.Themes.Mode(),
		ThemeLoading: c.deps.Themes.Loading(),
		Scheme:       scheme,
		Palette:      render.PaletteFor(scheme),
	}
	// A fetch error belongs to the selected city; once the input is edited it is stale.
	if v.Error == "" && coords.Valid() {
		v.Error = st.Error
	}
	if v.Suggestions == nil {
		v.Suggestions = []weather.Location{}
	}
	if st.Weather != nil {
		card := render.NewCurrentCard(*st.Weather, unit)
		v.Current = &card
	}
	if st.Forecast != nil {
		v.Forecast = render.ForecastCards(*st.Forecast, unit)
		v.LaterToday = render.LaterToday(*st.Forecast, c.now(), unit)
		v.Days = render.DayCards(*st.Forecast, unit)
	}
	return v
}

func (c *Controller) selectLocked(loc weather.Location) {
	c.city = loc.DisplayName()
	c.coords = weather.NewCoordinates(loc.Lat, loc.Lon)
	c.err = ""
	c.deps.Suggestions.Clear()
	c.deps.Fetcher.SetCoordinates(c.coords)
	c.logger.Debug("location selected", "city", c.city, "coords", c.coords.Key())
}

func (c *Controller) cancelSearchLocked() {
	c.searchGen++
	if c.searchCancel != nil {
		c.searchCancel()
		c.searchCancel = nil
	}
}
