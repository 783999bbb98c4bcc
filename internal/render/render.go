// Package render turns canonical (metric) weather data into display-ready
// cards for the selected unit and theme.
package render

import (
	"fmt"
	"math"
	"time"

	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	iconURLFormat = "https://openweathermap.org/img/wn/%s@2x.png"

	laterTodaySteps  = 3
	forecastLabelFmt = "Mon 3 PM"

	mpsToMph  = 2.2369362921
	kmToMiles = 0.6213711922
)

// ConvertTemp converts a Celsius value into u.
func ConvertTemp(celsius float64, u weather.Unit) float64 {
	if u == weather.UnitImperial {
		return celsius*9/5 + 32
	}
	return celsius
}

// TempSymbol returns "°C" or "°F".
func TempSymbol(u weather.Unit) string {
	if u == weather.UnitImperial {
		return "°F"
	}
	return "°C"
}

// Detail is a labelled extra reading shown in the expanded card.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// CurrentCard is the current-conditions card.
type CurrentCard struct {
	City        string   `json:"city"`
	IconURL     string   `json:"iconUrl,omitempty"`
	Temperature float64  `json:"temperature"`
	FeelsLike   float64  `json:"feelsLike"`
	Symbol      string   `json:"symbol"`
	High        *int     `json:"high,omitempty"`
	Low         *int     `json:"low,omitempty"`
	Description string   `json:"description"`
	Condition   string   `json:"condition"`
	BannerColor string   `json:"bannerColor"`
	Details     []Detail `json:"details,omitempty"`
}

// NewCurrentCard builds the card for w in unit u.
func NewCurrentCard(w weather.CurrentWeather, u weather.Unit) CurrentCard {
	sky := w.Sky()
	card := CurrentCard{
		City:        w.Name,
		Temperature: round1(ConvertTemp(w.Main.Temp, u)),
		FeelsLike:   round1(ConvertTemp(w.Main.FeelsLike, u)),
		Symbol:      TempSymbol(u),
		Description: sky.Description,
		Condition:   string(weather.ConditionOf(sky.Main)),
		BannerColor: BannerColor(sky.Main),
	}
	if w.Sys != nil && w.Sys.Country != "" {
		card.City = fmt.Sprintf("%s, %s", w.Name, w.Sys.Country)
	}
	if sky.Icon != "" {
		card.IconURL = fmt.Sprintf(iconURLFormat, sky.Icon)
	}
	if w.Main.TempMax != nil && w.Main.TempMin != nil {
		hi := int(math.Round(ConvertTemp(*w.Main.TempMax, u)))
		lo := int(math.Round(ConvertTemp(*w.Main.TempMin, u)))
		card.High, card.Low = &hi, &lo
	}

	if w.Main.Humidity != nil {
		card.Details = append(card.Details, Detail{Label: "Humidity", Value: fmt.Sprintf("%g%%", *w.Main.Humidity)})
	}
	if w.Main.Pressure != nil {
		card.Details = append(card.Details, Detail{Label: "Pressure", Value: fmt.Sprintf("%g hPa", *w.Main.Pressure)})
	}
	if w.Wind != nil && w.Wind.Speed != 0 {
		card.Details = append(card.Details, Detail{Label: "Wind Speed", Value: windSpeed(w.Wind.Speed, u)})
	}
	if w.Visibility != nil && *w.Visibility > 0 {
		card.Details = append(card.Details, Detail{Label: "Visibility", Value: visibility(*w.Visibility, u)})
	}
	if w.Clouds != nil {
		card.Details = append(card.Details, Detail{Label: "Cloudiness", Value: fmt.Sprintf("%g%%", w.Clouds.All)})
	}
	return card
}

// BannerColor picks the card accent for an OpenWeatherMap "main" group.
func BannerColor(main string) string {
	switch weather.ConditionOf(main) {
	case weather.ConditionClear:
		return "#FFE082"
	case weather.ConditionCloudy:
		return "#CFD8DC"
	case weather.ConditionRain:
		return "#81D4FA"
	case weather.ConditionThunderstorm:
		return "#B39DDB"
	case weather.ConditionSnow:
		return "#E1F5FE"
	default:
		return "#E0E0E0"
	}
}

// ForecastCard is one forecast step.
type ForecastCard struct {
	Time        time.Time `json:"time"`
	Label       string    `json:"label"`
	Temperature float64   `json:"temperature"`
	Symbol      string    `json:"symbol"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl,omitempty"`
}

// ForecastCards renders every step in list order. Steps with an unparsable
// timestamp keep the raw dt_txt as their label.
func ForecastCards(list weather.ForecastList, u weather.Unit) []ForecastCard {
	cards := make([]ForecastCard, 0, len(list.List))
	for _, e := range list.List {
		cards = append(cards, forecastCard(e, u))
	}
	return cards
}

// LaterToday returns the next three steps strictly after now.
func LaterToday(list weather.ForecastList, now time.Time, u weather.Unit) []ForecastCard {
	var cards []ForecastCard
	for _, e := range list.List {
		ts, err := e.Time()
		if err != nil || !ts.After(now) {
			continue
		}
		cards = append(cards, forecastCard(e, u))
		if len(cards) == laterTodaySteps {
			break
		}
	}
	return cards
}

// DayCard is one day of the multi-day outlook.
type DayCard struct {
	Label     string  `json:"label"`
	High      int     `json:"high"`
	Low       int     `json:"low"`
	Symbol    string  `json:"symbol"`
	Condition string  `json:"condition"`
	IconURL   string  `json:"iconUrl,omitempty"`
	Average   float64 `json:"average"`
}

// DayCards renders per-day summaries of list.
func DayCards(list weather.ForecastList, u weather.Unit) []DayCard {
	days := weather.DailySummaries(list)
	cards := make([]DayCard, 0, len(days))
	for _, d := range days {
		card := DayCard{
			Label:     d.Date.Format("Mon Jan 2"),
			High:      int(math.Round(ConvertTemp(d.MaxTemp, u))),
			Low:       int(math.Round(ConvertTemp(d.MinTemp, u))),
			Symbol:    TempSymbol(u),
			Condition: string(d.Condition),
			Average:   round1(ConvertTemp(d.AvgTemp, u)),
		}
		if d.Icon != "" {
			card.IconURL = fmt.Sprintf(iconURLFormat, d.Icon)
		}
		cards = append(cards, card)
	}
	return cards
}

func forecastCard(e weather.ForecastEntry, u weather.Unit) ForecastCard {
	sky := e.Sky()
	card := ForecastCard{
		Label:       e.DtTxt,
		Temperature: round1(ConvertTemp(e.Main.Temp, u)),
		Symbol:      TempSymbol(u),
		Description: sky.Description,
	}
	if ts, err := e.Time(); err == nil {
		card.Time = ts
		card.Label = ts.Format(forecastLabelFmt)
	}
	if sky.Icon != "" {
		card.IconURL = fmt.Sprintf(iconURLFormat, sky.Icon)
	}
	return card
}

func windSpeed(mps float64, u weather.Unit) string {
	if u == weather.UnitImperial {
		return fmt.Sprintf("%d mph", int(math.Round(mps*mpsToMph)))
	}
	return fmt.Sprintf("%d m/s", int(math.Round(mps)))
}

func visibility(meters float64, u weather.Unit) string {
	km := meters / 1000
	if u == weather.UnitImperial {
		return fmt.Sprintf("%.1f mi", km*kmToMiles)
	}
	return fmt.Sprintf("%.1f km", km)
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
