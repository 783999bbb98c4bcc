package weather

import (
	"context"
	"sync"
)

type providerCall struct {
	kind  string
	query string
	lat   float64
	lon   float64
}

type fakeProvider struct {
	mu    sync.Mutex
	calls []providerCall

	geocode  func(ctx context.Context, query string, limit int) ([]Location, error)
	current  func(ctx context.Context, lat, lon float64) (CurrentWeather, error)
	forecast func(ctx context.Context, lat, lon float64) (ForecastList, error)
}

func (f *fakeProvider) record(c providerCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeProvider) callsOf(kind string) []providerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []providerCall
	for _, c := range f.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeProvider) Geocode(ctx context.Context, query string, limit int) ([]Location, error) {
	f.record(providerCall{kind: "geocode", query: query})
	if f.geocode == nil {
		return nil, nil
	}
	return f.geocode(ctx, query, limit)
}

func (f *fakeProvider) CurrentWeather(ctx context.Context, lat, lon float64) (CurrentWeather, error) {
	f.record(providerCall{kind: "current", lat: lat, lon: lon})
	if f.current == nil {
		return CurrentWeather{Name: "Somewhere"}, nil
	}
	return f.current(ctx, lat, lon)
}

func (f *fakeProvider) Forecast(ctx context.Context, lat, lon float64) (ForecastList, error) {
	f.record(providerCall{kind: "forecast", lat: lat, lon: lon})
	if f.forecast == nil {
		return ForecastList{}, nil
	}
	return f.forecast(ctx, lat, lon)
}

type countingObserver struct {
	mu          sync.Mutex
	suggestions map[string]int
	cycles      map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{suggestions: map[string]int{}, cycles: map[string]int{}}
}

func (o *countingObserver) ObserveSuggestions(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suggestions[outcome]++
}

func (o *countingObserver) ObserveCycle(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cycles[outcome]++
}

func (o *countingObserver) cycle(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cycles[outcome]
}
