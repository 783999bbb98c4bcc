package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/weather-lookup/internal/api/http"
	"github.com/i474232898/weather-lookup/internal/config"
	"github.com/i474232898/weather-lookup/internal/fetch"
	"github.com/i474232898/weather-lookup/internal/metrics"
	"github.com/i474232898/weather-lookup/internal/preferences"
	"github.com/i474232898/weather-lookup/internal/scheduler"
	"github.com/i474232898/weather-lookup/internal/screen"
	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
	"github.com/i474232898/weather-lookup/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if cfg.OpenWeatherAPIKey == "" {
		log.Warn("OPENWEATHER_API_KEY is not set; weather requests will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("weather_lookup", reg)

	// Shared HTTP client for outbound provider calls.
	client := fetch.NewClient(
		&http.Client{Timeout: cfg.HTTPTimeout},
		fetch.WithBreaker(fetch.BreakerConfig{Enabled: cfg.BreakerEnabled}),
		fetch.WithRecorder(collector),
	)
	provider := providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey)
	if cfg.OpenWeatherURL != "" {
		provider.WithBaseURL(cfg.OpenWeatherURL)
	}
	log.Info("weather provider configured", "provider", provider.Name(), "breaker", cfg.BreakerEnabled)

	kv, err := openPreferences(ctx, cfg)
	if err != nil {
		log.Error("failed to open preference store", "backend", cfg.PrefsBackend, "error", err)
		os.Exit(1)
	}
	defer kv.Close()

	units := preferences.NewUnitStore(kv, log)
	themes := preferences.NewThemeStore(kv, log)
	go loadPreferences(ctx, log, units, themes)

	ctrl := screen.New(screen.Deps{
		Geocoder: provider,
		Fetcher:  weather.NewFetcher(provider, weather.FetcherConfig{Logger: log, Observer: collector}),
		Suggestions: weather.NewAutoSuggester(provider, cfg.DebounceDelay, weather.SuggesterConfig{
			Limit:     cfg.SuggestionLimit,
			MinLength: cfg.SuggestionMinLength,
			Logger:    log,
			Observer:  collector,
		}),
		Units:  units,
		Themes: themes,
	}, screen.Config{DefaultCity: cfg.DefaultCity, Logger: log})
	defer ctrl.Close()

	go ctrl.Start(ctx)

	// Scheduler that periodically refreshes the selected city.
	sched := scheduler.New(ctrl, cfg.RefreshInterval, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-lookup",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Screen:          ctrl,
		Geocoder:        provider,
		Units:           units,
		Themes:          themes,
		Gatherer:        reg,
		Observer:        collector,
		Logger:          log,
		SystemScheme:    cfg.SystemColorScheme,
		SuggestionLimit: cfg.SuggestionLimit,
	})

	go func() {
		log.Info("listening", "port", cfg.Port, "prefs_backend", cfg.PrefsBackend)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
	log.Info("shutdown complete")
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openPreferences(ctx context.Context, cfg *config.AppConfig) (store.KV, error) {
	switch cfg.PrefsBackend {
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	case config.BackendRedis:
		return store.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case config.BackendSQLite:
		return store.OpenSQLite(ctx, cfg.PrefsSQLitePath)
	default:
		return nil, fmt.Errorf("unknown preference backend %q", cfg.PrefsBackend)
	}
}

// loadPreferences reads persisted preferences; until it finishes the holders
// report their defaults with loading set.
func loadPreferences(ctx context.Context, log *slog.Logger, units *preferences.UnitStore, themes *preferences.ThemeStore) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := units.Load(ctx); err != nil {
		log.Error("failed to load unit preference", "error", err)
	}
	if err := themes.Load(ctx); err != nil {
		log.Error("failed to load theme preference", "error", err)
	}
}
