package weather

import (
	"context"
)

// Geocoder resolves free text to candidate locations, best match first.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]Location, error)
}

// Provider abstracts the weather data source (OpenWeatherMap).
// Implementations always return metric values.
type Provider interface {
	Geocoder
	CurrentWeather(ctx context.Context, lat, lon float64) (CurrentWeather, error)
	Forecast(ctx context.Context, lat, lon float64) (ForecastList, error)
}
