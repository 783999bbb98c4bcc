package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-lookup/internal/preferences"
)

// Preference storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type AppConfig struct {
	// OpenWeatherAPIKey may be empty; requests then fail with 401 through the
	// normal error path.
	OpenWeatherAPIKey string
	OpenWeatherURL    string

	Port        string
	HTTPTimeout time.Duration

	DebounceDelay       time.Duration
	SuggestionLimit     int
	SuggestionMinLength int

	// DefaultCity is searched once at startup. Empty disables the startup search.
	DefaultCity string

	// RefreshInterval re-runs the fetch cycle periodically (0 = disabled).
	RefreshInterval time.Duration

	PrefsBackend    string
	PrefsSQLitePath string
	RedisAddr       string
	RedisPassword   string

	BreakerEnabled bool

	// SystemColorScheme is used when a request does not report the device scheme.
	SystemColorScheme preferences.Scheme

	LogLevel slog.Level
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		cfg.OpenWeatherAPIKey = os.Getenv("EXPO_WEATHER_API_KEY")
	}
	cfg.OpenWeatherURL = os.Getenv("OPENWEATHER_BASE_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.DebounceDelay, err = getenvDuration("DEBOUNCE_DELAY", "300ms"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "0s"); err != nil {
		return nil, err
	}

	if cfg.SuggestionLimit, err = getenvInt("SUGGESTION_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.SuggestionLimit <= 0 {
		return nil, fmt.Errorf("invalid SUGGESTION_LIMIT: must be positive")
	}
	if cfg.SuggestionMinLength, err = getenvInt("SUGGESTION_MIN_LENGTH", 2); err != nil {
		return nil, err
	}

	cfg.DefaultCity = getenvDefault("DEFAULT_CITY", "Montreal, CA")

	cfg.PrefsBackend = strings.ToLower(getenvDefault("PREFS_BACKEND", BackendSQLite))
	switch cfg.PrefsBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid PREFS_BACKEND %q: must be sqlite, redis or memory", cfg.PrefsBackend)
	}
	cfg.PrefsSQLitePath = getenvDefault("PREFS_SQLITE_PATH", "weather-lookup.db")
	cfg.RedisAddr = getenvDefault("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if cfg.BreakerEnabled, err = getenvBool("BREAKER_ENABLED", true); err != nil {
		return nil, err
	}
	cfg.SystemColorScheme = preferences.ParseScheme(strings.ToLower(getenvDefault("SYSTEM_COLOR_SCHEME", "light")))

	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}
