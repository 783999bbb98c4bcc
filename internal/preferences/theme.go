package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i474232898/weather-lookup/internal/store"
)

const ThemeKey = "theme-mode"

var ErrInvalidThemeMode = errors.New("theme mode must be light, dark or system")

// ThemeMode is the user's theme preference.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

func (m ThemeMode) Valid() bool {
	return m == ThemeLight || m == ThemeDark || m == ThemeSystem
}

// Scheme is a resolved colour scheme.
type Scheme string

const (
	SchemeLight Scheme = "light"
	SchemeDark  Scheme = "dark"
)

// ParseScheme maps a device setting to a Scheme; anything but "dark" is light.
func ParseScheme(s string) Scheme {
	if s == string(SchemeDark) {
		return SchemeDark
	}
	return SchemeLight
}

// ThemeStore holds the theme preference. "system" is stored as-is and resolved
// on every read.
type ThemeStore struct {
	kv     store.KV
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.RWMutex
	mode    ThemeMode
	loading bool
	touched bool
}

func NewThemeStore(kv store.KV, logger *slog.Logger) *ThemeStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThemeStore{
		kv:      kv,
		logger:  logger.With("component", "theme-preference"),
		mode:    ThemeSystem,
		loading: true,
	}
}

// Load reads the persisted mode. Missing or unrecognized values keep "system".
func (s *ThemeStore) Load(ctx context.Context) error {
	saved, err := s.kv.Get(ctx, ThemeKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load theme mode: %w", err)
	}
	if s.touched {
		s.logger.Debug("keeping theme mode changed during load", "mode", s.mode, "stored", saved)
		return nil
	}
	if m := ThemeMode(saved); m.Valid() {
		s.mode = m
	} else {
		s.logger.Warn("ignoring unrecognized stored theme mode", "value", saved)
	}
	return nil
}

func (s *ThemeStore) Mode() ThemeMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *ThemeStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Effective resolves the mode against the live device scheme.
func (s *ThemeStore) Effective(system Scheme) Scheme {
	switch s.Mode() {
	case ThemeDark:
		return SchemeDark
	case ThemeLight:
		return SchemeLight
	default:
		if system == SchemeDark {
			return SchemeDark
		}
		return SchemeLight
	}
}

func (s *ThemeStore) Set(ctx context.Context, m ThemeMode) error {
	if !m.Valid() {
		return ErrInvalidThemeMode
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.mode = m
	s.touched = true
	s.mu.Unlock()

	return s.persist(ctx, m)
}

// Toggle switches dark to light and anything else to dark.
func (s *ThemeStore) Toggle(ctx context.Context) (ThemeMode, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := ThemeDark
	if s.mode == ThemeDark {
		next = ThemeLight
	}
	s.mode = next
	s.touched = true
	s.mu.Unlock()

	return next, s.persist(ctx, next)
}

func (s *ThemeStore) persist(ctx context.Context, m ThemeMode) error {
	if err := s.kv.Set(ctx, ThemeKey, string(m)); err != nil {
		s.logger.Error("persist theme mode failed", "mode", m, "error", err)
		return fmt.Errorf("persist theme mode: %w", err)
	}
	return nil
}
