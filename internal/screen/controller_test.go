package screen

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-lookup/internal/fetch"
	"github.com/i474232898/weather-lookup/internal/preferences"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

type call struct {
	kind     string
	query    string
	lat, lon float64
}

type fakeProvider struct {
	mu    sync.Mutex
	calls []call

	geocode func(ctx context.Context, query string, limit int) ([]weather.Location, error)
	current func(ctx context.Context, lat, lon float64) (weather.CurrentWeather, error)
}

func (f *fakeProvider) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeProvider) callsOf(kind string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProvider) Geocode(ctx context.Context, query string, limit int) ([]weather.Location, error) {
	f.record(call{kind: "geocode", query: query})
	if f.geocode == nil {
		return nil, nil
	}
	return f.geocode(ctx, query, limit)
}

func (f *fakeProvider) CurrentWeather(ctx context.Context, lat, lon float64) (weather.CurrentWeather, error) {
	f.record(call{kind: "current", lat: lat, lon: lon})
	if f.current == nil {
		return weather.CurrentWeather{Name: "Paris", Sys: &weather.Sys{Country: "FR"}}, nil
	}
	return f.current(ctx, lat, lon)
}

func (f *fakeProvider) Forecast(ctx context.Context, lat, lon float64) (weather.ForecastList, error) {
	f.record(call{kind: "forecast", lat: lat, lon: lon})
	e := weather.ForecastEntry{DtTxt: "2026-10-19 15:00:00"}
	e.Main.Temp = 15
	return weather.ForecastList{List: []weather.ForecastEntry{e}}, nil
}

func paris(_ context.Context, query string, _ int) ([]weather.Location, error) {
	if query != "Paris" {
		return nil, nil
	}
	return []weather.Location{{Name: "Paris", Country: "FR", Lat: 48.85, Lon: 2.35}}, nil
}

func newController(t *testing.T, p *fakeProvider, cfg Config) *Controller {
	t.Helper()
	kv := store.NewMemoryStore()
	c := New(Deps{
		Geocoder:    p,
		Fetcher:     weather.NewFetcher(p, weather.FetcherConfig{}),
		Suggestions: weather.NewAutoSuggester(p, 10*time.Millisecond, weather.SuggesterConfig{}),
		Units:       preferences.NewUnitStore(kv, nil),
		Themes:      preferences.NewThemeStore(kv, nil),
	}, cfg)
	t.Cleanup(c.Close)
	return c
}

func TestSearchParisEndToEnd(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{})

	c.HandleChange("Paris")
	c.HandleSearch(context.Background())
	c.Wait()

	v := c.View(preferences.SchemeLight)
	if v.City != "Paris, FR" {
		t.Fatalf("expected display name %q, got %q", "Paris, FR", v.City)
	}
	if !v.Coordinates.Valid() || *v.Coordinates.Lat != 48.85 || *v.Coordinates.Lon != 2.35 {
		t.Fatalf("unexpected coordinates %s", v.Coordinates.Key())
	}
	for _, kind := range []string{"current", "forecast"} {
		calls := p.callsOf(kind)
		if len(calls) != 1 || calls[0].lat != 48.85 || calls[0].lon != 2.35 {
			t.Fatalf("expected one %s call at (48.85, 2.35), got %+v", kind, calls)
		}
	}
	if v.Error != "" || v.Loading {
		t.Fatalf("unexpected view state error=%q loading=%v", v.Error, v.Loading)
	}
	if v.Current == nil || v.Current.City != "Paris, FR" || len(v.Forecast) != 1 {
		t.Fatalf("expected rendered weather, got %+v", v)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{})

	c.HandleChange("   ")
	c.HandleSearch(context.Background())

	if v := c.View(preferences.SchemeLight); v.Error != MsgEmptyQuery {
		t.Fatalf("expected %q, got %q", MsgEmptyQuery, v.Error)
	}
	if n := len(p.callsOf("geocode")); n != 0 {
		t.Fatalf("expected no geocode call, got %d", n)
	}
}

func TestSearchNotFound(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{})

	c.HandleChange("Atlantis")
	c.HandleSearch(context.Background())
	c.Wait()

	v := c.View(preferences.SchemeLight)
	if v.Error != MsgNotFound {
		t.Fatalf("expected %q, got %q", MsgNotFound, v.Error)
	}
	if v.Coordinates.Valid() {
		t.Fatal("expected coordinates to stay unset")
	}
	if n := len(p.callsOf("current")); n != 0 {
		t.Fatalf("expected no weather fetch, got %d", n)
	}
}

func TestSearchFailureMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"api message", &fetch.APIError{StatusCode: 401, Message: "Invalid API key"}, "Invalid API key"},
		{"empty message", &fetch.APIError{StatusCode: 500}, MsgGeocodeFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &fakeProvider{geocode: func(context.Context, string, int) ([]weather.Location, error) {
				return nil, tc.err
			}}
			c := newController(t, p, Config{})
			c.HandleChange("Paris")
			c.HandleSearch(context.Background())

			if v := c.View(preferences.SchemeLight); v.Error != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, v.Error)
			}
		})
	}
}

func TestSearchCancelledIsNotAnError(t *testing.T) {
	p := &fakeProvider{geocode: func(ctx context.Context, _ string, _ int) ([]weather.Location, error) {
		<-ctx.Done()
		return nil, fetch.ErrCancelled
	}}
	c := newController(t, p, Config{})
	c.HandleChange("Paris")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.HandleSearch(ctx)

	if v := c.View(preferences.SchemeLight); v.Error != "" {
		t.Fatalf("expected no error after cancellation, got %q", v.Error)
	}
}

func TestEditSupersedesInFlightSearch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := &fakeProvider{geocode: func(ctx context.Context, query string, limit int) ([]weather.Location, error) {
		if limit != searchResultLimit {
			// debounced suggestion lookup
			return nil, nil
		}
		close(started)
		<-release
		return paris(ctx, query, limit)
	}}
	c := newController(t, p, Config{})
	c.HandleChange("Paris")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.HandleSearch(context.Background())
	}()
	<-started
	c.HandleChange("Pari")
	close(release)
	<-done
	c.Wait()

	v := c.View(preferences.SchemeLight)
	if v.City != "Pari" || v.Coordinates.Valid() {
		t.Fatalf("stale search result was applied: city=%q coords=%s", v.City, v.Coordinates.Key())
	}
	if n := len(p.callsOf("current")); n != 0 {
		t.Fatalf("expected no weather fetch, got %d", n)
	}
}

func TestChangeResetsSelection(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{})

	c.HandleSelect(weather.Location{Name: "Springfield", State: "Illinois", Country: "US", Lat: 39.8, Lon: -89.6})
	c.Wait()
	if v := c.View(preferences.SchemeLight); v.City != "Springfield, Illinois, US" || !v.Coordinates.Valid() {
		t.Fatalf("unexpected selection %+v", v)
	}

	c.HandleChange("Spr")
	v := c.View(preferences.SchemeLight)
	if v.City != "Spr" || v.Coordinates.Valid() || v.Error != "" {
		t.Fatalf("expected reset selection, got city=%q coords=%s err=%q", v.City, v.Coordinates.Key(), v.Error)
	}
}

func TestSelectSuggestion(t *testing.T) {
	p := &fakeProvider{geocode: func(context.Context, string, int) ([]weather.Location, error) {
		return []weather.Location{
			{Name: "Paris", Country: "FR", Lat: 48.85, Lon: 2.35},
			{Name: "Paris", State: "Texas", Country: "US", Lat: 33.66, Lon: -95.55},
		}, nil
	}}
	c := newController(t, p, Config{})

	c.HandleChange("Paris")
	deadline := time.Now().Add(2 * time.Second)
	for len(c.View(preferences.SchemeLight).Suggestions) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("suggestions never arrived")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.SelectSuggestion(5); err != ErrSuggestionIndex {
		t.Fatalf("expected ErrSuggestionIndex, got %v", err)
	}
	loc, err := c.SelectSuggestion(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Wait()

	v := c.View(preferences.SchemeLight)
	if v.City != loc.DisplayName() || *v.Coordinates.Lat != 33.66 {
		t.Fatalf("unexpected selection %+v", v)
	}
	if len(v.Suggestions) != 0 {
		t.Fatalf("expected suggestions cleared, got %d", len(v.Suggestions))
	}
}

func TestStartSearchesDefaultCityOnce(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{DefaultCity: "Paris"})

	c.Start(context.Background())
	c.Start(context.Background())
	c.Wait()

	if n := len(p.callsOf("geocode")); n != 1 {
		t.Fatalf("expected one startup geocode, got %d", n)
	}
	if v := c.View(preferences.SchemeLight); v.City != "Paris, FR" {
		t.Fatalf("unexpected city %q", v.City)
	}
}

func TestViewUsesUnitAndTheme(t *testing.T) {
	p := &fakeProvider{geocode: paris, current: func(context.Context, float64, float64) (weather.CurrentWeather, error) {
		return weather.CurrentWeather{Name: "Paris", Main: weather.MainReadings{Temp: 20}}, nil
	}}
	c := newController(t, p, Config{
		Now: func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) },
	})
	c.HandleChange("Paris")
	c.HandleSearch(context.Background())
	c.Wait()

	ctx := context.Background()
	if err := c.deps.Units.Set(ctx, weather.UnitImperial); err != nil {
		t.Fatal(err)
	}

	v := c.View(preferences.SchemeDark)
	if v.Current == nil || v.Current.Temperature != 68 || v.Current.Symbol != "°F" {
		t.Fatalf("expected imperial rendering, got %+v", v.Current)
	}
	if v.ThemeMode != preferences.ThemeSystem || v.Scheme != preferences.SchemeDark || v.Palette.Background != "#121212" {
		t.Fatalf("expected system theme to follow the device, got %s/%s", v.ThemeMode, v.Scheme)
	}
	if len(v.LaterToday) != 1 || v.LaterToday[0].Temperature != 59 {
		t.Fatalf("unexpected later-today cards %+v", v.LaterToday)
	}
}

func TestRefreshRefetchesCurrentCity(t *testing.T) {
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{})
	c.HandleChange("Paris")
	c.HandleSearch(context.Background())
	c.Wait()

	c.Refresh()
	c.Wait()

	if n := len(p.callsOf("current")); n != 2 {
		t.Fatalf("expected two weather fetches, got %d", n)
	}
}

// syncBuffer is a log sink safe for use from fetcher goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRefreshWithoutCityIsSkipped(t *testing.T) {
	logs := &syncBuffer{}
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{
		Logger: slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	c.Refresh()
	c.Wait()

	if n := len(p.callsOf("current")); n != 0 {
		t.Fatalf("expected no weather fetch, got %d", n)
	}
	if !strings.Contains(logs.String(), "refresh skipped") {
		t.Fatalf("expected skipped refresh to be logged, got:\n%s", logs)
	}
}

func TestWeatherStateChangesAreLogged(t *testing.T) {
	logs := &syncBuffer{}
	p := &fakeProvider{geocode: paris}
	c := newController(t, p, Config{
		Logger: slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})

	c.HandleChange("Paris")
	c.HandleSearch(context.Background())
	c.Wait()

	out := logs.String()
	if !strings.Contains(out, "weather state changed") || !strings.Contains(out, "has_forecast=true") {
		t.Fatalf("expected committed states to be logged, got:\n%s", out)
	}
}
