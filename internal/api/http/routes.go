package httpapi

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-lookup/internal/common"
	"github.com/i474232898/weather-lookup/internal/preferences"
	"github.com/i474232898/weather-lookup/internal/screen"
	"github.com/i474232898/weather-lookup/internal/weather"
)

var validate = validator.New()

// colorSchemeHeader is the client hint carrying the device colour scheme.
const colorSchemeHeader = "Sec-CH-Prefers-Color-Scheme"

// Deps are the components exposed over HTTP.
type Deps struct {
	Screen   *screen.Controller
	Geocoder weather.Geocoder
	Units    *preferences.UnitStore
	Themes   *preferences.ThemeStore

	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Observer weather.Observer
	Logger   *slog.Logger

	SystemScheme    preferences.Scheme
	SuggestionLimit int
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.SuggestionLimit <= 0 {
		d.SuggestionLimit = weather.DefaultSuggestionLimit
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-lookup",
		})
	})
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := app.Group("/api/v1")

	v1.Get("/screen", func(c *fiber.Ctx) error {
		return c.JSON(d.Screen.View(d.scheme(c)))
	})

	v1.Put("/screen/query", func(c *fiber.Ctx) error {
		var req queryRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		d.Screen.HandleChange(*req.Text)
		return c.JSON(d.Screen.View(d.scheme(c)))
	})

	v1.Post("/screen/search", func(c *fiber.Ctx) error {
		d.Screen.HandleSearch(c.UserContext())
		return c.JSON(d.Screen.View(d.scheme(c)))
	})

	v1.Post("/screen/select", func(c *fiber.Ctx) error {
		var req selectRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if _, err := d.Screen.SelectSuggestion(*req.Index); err != nil {
			if errors.Is(err, screen.ErrSuggestionIndex) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return err
		}
		return c.JSON(d.Screen.View(d.scheme(c)))
	})

	v1.Post("/screen/refresh", func(c *fiber.Ctx) error {
		d.Screen.Refresh()
		return c.Status(fiber.StatusAccepted).JSON(d.Screen.View(d.scheme(c)))
	})

	v1.Get("/suggestions", func(c *fiber.Ctx) error {
		req := suggestionsQuery{
			Query: c.Query("q"),
			Limit: c.QueryInt("limit", d.SuggestionLimit),
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s := weather.NewSuggester(d.Geocoder, weather.SuggesterConfig{
			Limit:    req.Limit,
			Logger:   d.Logger,
			Observer: d.Observer,
		})
		locs, _ := s.Fetch(c.UserContext(), req.Query)
		if locs == nil {
			locs = []weather.Location{}
		}
		return c.JSON(fiber.Map{
			"query":       req.Query,
			"suggestions": locs,
		})
	})

	prefs := v1.Group("/preferences")

	prefs.Get("/unit", func(c *fiber.Ctx) error {
		return c.JSON(unitResponse(d.Units, nil))
	})

	prefs.Put("/unit", func(c *fiber.Ctx) error {
		var req unitRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		err := d.Units.Set(c.UserContext(), weather.Unit(req.Unit))
		return c.JSON(unitResponse(d.Units, err))
	})

	prefs.Post("/unit/toggle", func(c *fiber.Ctx) error {
		_, err := d.Units.Toggle(c.UserContext())
		return c.JSON(unitResponse(d.Units, err))
	})

	prefs.Get("/theme", func(c *fiber.Ctx) error {
		return c.JSON(themeResponse(d.Themes, d.scheme(c), nil))
	})

	prefs.Put("/theme", func(c *fiber.Ctx) error {
		var req themeRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		err := d.Themes.Set(c.UserContext(), preferences.ThemeMode(req.Mode))
		return c.JSON(themeResponse(d.Themes, d.scheme(c), err))
	})

	prefs.Post("/theme/toggle", func(c *fiber.Ctx) error {
		_, err := d.Themes.Toggle(c.UserContext())
		return c.JSON(themeResponse(d.Themes, d.scheme(c), err))
	})
}

// scheme resolves the device colour scheme from the client hint header, then
// the "system" query parameter, then the configured default.
func (d Deps) scheme(c *fiber.Ctx) preferences.Scheme {
	for _, v := range []string{c.Get(colorSchemeHeader), c.Query("system")} {
		switch {
		case common.HasAny(v, "dark"):
			return preferences.SchemeDark
		case common.HasAny(v, "light"):
			return preferences.SchemeLight
		}
	}
	if d.SystemScheme == "" {
		return preferences.SchemeLight
	}
	return d.SystemScheme
}

// queryRequest carries the raw input text; an empty string clears the input.
type queryRequest struct {
	Text *string `json:"text" validate:"required"`
}

type selectRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type suggestionsQuery struct {
	Query string
	Limit int `validate:"min=1,max=20"`
}

type unitRequest struct {
	Unit string `json:"unit" validate:"required,oneof=metric imperial"`
}

type themeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=light dark system"`
}

func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// unitResponse reports the in-memory value; persisted is false when saving failed.
func unitResponse(s *preferences.UnitStore, persistErr error) fiber.Map {
	return fiber.Map{
		"unit":      s.Unit(),
		"loading":   s.Loading(),
		"persisted": persistErr == nil,
	}
}

func themeResponse(s *preferences.ThemeStore, system preferences.Scheme, persistErr error) fiber.Map {
	return fiber.Map{
		"mode":      s.Mode(),
		"scheme":    s.Effective(system),
		"loading":   s.Loading(),
		"persisted": persistErr == nil,
	}
}
