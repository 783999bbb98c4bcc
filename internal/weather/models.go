package weather

import (
	"fmt"
	"strings"
	"time"
)

// Unit selects the measurement system used for display.
type Unit string

const (
	UnitMetric   Unit = "metric"
	UnitImperial Unit = "imperial"
)

// Valid reports whether u is a known unit.
func (u Unit) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown      Condition = "unknown"
	ConditionClear        Condition = "clear"
	ConditionCloudy       Condition = "cloudy"
	ConditionRain         Condition = "rain"
	ConditionSnow         Condition = "snow"
	ConditionThunderstorm Condition = "thunderstorm"
	ConditionMist         Condition = "mist"
)

// Location is a geocoding match. It is immutable once returned.
type Location struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// DisplayName renders "name, state, country", omitting an empty state.
func (l Location) DisplayName() string {
	parts := []string{l.Name}
	if l.State != "" {
		parts = append(parts, l.State)
	}
	parts = append(parts, l.Country)
	return strings.Join(parts, ", ")
}

// Coordinates drive fetch triggering. A nil field means "unset".
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// NewCoordinates returns coordinates with both fields set.
func NewCoordinates(lat, lon float64) Coordinates {
	return Coordinates{Lat: &lat, Lon: &lon}
}

// Valid reports whether both coordinates are set.
func (c Coordinates) Valid() bool {
	return c.Lat != nil && c.Lon != nil
}

// Key returns a canonical string for logging.
func (c Coordinates) Key() string {
	if !c.Valid() {
		return "unset"
	}
	return fmt.Sprintf("%.4f,%.4f", *c.Lat, *c.Lon)
}

// Sky is one entry of the "weather" array in OpenWeatherMap responses.
type Sky struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// MainReadings holds the "main" block of a current weather response.
type MainReadings struct {
	Temp      float64  `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   *float64 `json:"temp_min,omitempty"`
	TempMax   *float64 `json:"temp_max,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
	Pressure  *float64 `json:"pressure,omitempty"`
}

type Wind struct {
	Speed float64 `json:"speed"`
}

type Clouds struct {
	All float64 `json:"all"`
}

type Sys struct {
	Country string `json:"country"`
}

// CurrentWeather is a read-only snapshot, replaced wholesale on every fetch.
// Temperatures are always metric.
type CurrentWeather struct {
	Name       string       `json:"name"`
	Main       MainReadings `json:"main"`
	Weather    []Sky        `json:"weather"`
	Wind       *Wind        `json:"wind,omitempty"`
	Clouds     *Clouds      `json:"clouds,omitempty"`
	Visibility *float64     `json:"visibility,omitempty"`
	Sys        *Sys         `json:"sys,omitempty"`
}

// Sky returns the primary sky condition, or a zero value when absent.
func (w CurrentWeather) Sky() Sky {
	if len(w.Weather) == 0 {
		return Sky{}
	}
	return w.Weather[0]
}

// ForecastEntry is one 3-hour step of the forecast.
type ForecastEntry struct {
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []Sky `json:"weather"`
}

const forecastTimeLayout = "2006-01-02 15:04:05"

// Time parses dt_txt, which OpenWeatherMap reports in UTC.
func (e ForecastEntry) Time() (time.Time, error) {
	return time.ParseInLocation(forecastTimeLayout, e.DtTxt, time.UTC)
}

// Sky returns the primary sky condition, or a zero value when absent.
func (e ForecastEntry) Sky() Sky {
	if len(e.Weather) == 0 {
		return Sky{}
	}
	return e.Weather[0]
}

// ForecastList is ordered chronologically ascending by the API and consumed as-is.
type ForecastList struct {
	List []ForecastEntry `json:"list"`
}

// ConditionOf maps an OpenWeatherMap "main" group to a Condition.
func ConditionOf(main string) Condition {
	switch strings.ToLower(main) {
	case "clear":
		return ConditionClear
	case "clouds":
		return ConditionCloudy
	case "rain", "drizzle":
		return ConditionRain
	case "snow":
		return ConditionSnow
	case "thunderstorm":
		return ConditionThunderstorm
	case "mist", "fog", "haze", "smoke", "dust":
		return ConditionMist
	default:
		return ConditionUnknown
	}
}
