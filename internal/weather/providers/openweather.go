package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-lookup/internal/fetch"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"

	geocodePath  = "/geo/1.0/direct"
	currentPath  = "/data/2.5/weather"
	forecastPath = "/data/2.5/forecast"

	// All requests use metric units; conversion happens at render time.
	canonicalUnits = "metric"
)

// OpenWeatherProvider implements weather.Provider for OpenWeatherMap.
type OpenWeatherProvider struct {
	client  *fetch.Client
	apiKey  string
	baseURL string
}

// NewOpenWeatherProvider creates a provider. An empty apiKey is sent as-is and
// surfaces as the API's 401 error.
func NewOpenWeatherProvider(client *fetch.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		client:  client,
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the provider at another host, e.g. a test server.
func (p *OpenWeatherProvider) WithBaseURL(baseURL string) *OpenWeatherProvider {
	p.baseURL = strings.TrimRight(baseURL, "/")
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return "openweathermap"
}

// Geocode calls the direct geocoding endpoint. A non-array body is treated
// as "no matches".
func (p *OpenWeatherProvider) Geocode(ctx context.Context, query string, limit int) ([]weather.Location, error) {
	if limit <= 0 {
		limit = weather.DefaultSuggestionLimit
	}
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", p.apiKey)

	raw, err := fetch.FetchJSON[json.RawMessage](ctx, p.client, p.endpoint(geocodePath, values))
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}

	var locs []weather.Location
	if err := json.Unmarshal(trimmed, &locs); err != nil {
		return nil, fmt.Errorf("%w: %v", fetch.ErrDecode, err)
	}
	return locs, nil
}

// CurrentWeather fetches current conditions for the coordinates.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, lat, lon float64) (weather.CurrentWeather, error) {
	return fetch.FetchJSON[weather.CurrentWeather](ctx, p.client, p.endpoint(currentPath, p.coordValues(lat, lon)))
}

// Forecast fetches the 5-day / 3-hour forecast for the coordinates.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, lat, lon float64) (weather.ForecastList, error) {
	return fetch.FetchJSON[weather.ForecastList](ctx, p.client, p.endpoint(forecastPath, p.coordValues(lat, lon)))
}

func (p *OpenWeatherProvider) coordValues(lat, lon float64) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("units", canonicalUnits)
	values.Set("appid", p.apiKey)
	return values
}

func (p *OpenWeatherProvider) endpoint(path string, values url.Values) string {
	return fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
}
