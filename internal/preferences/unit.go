// Package preferences holds the persisted user preferences (unit system and
// theme mode). Holders are constructed explicitly and passed to their consumers.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/i474232898/weather-lookup/internal/store"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const UnitKey = "weather-unit"

var ErrInvalidUnit = errors.New("unit must be metric or imperial")

// UnitStore holds the unit preference. It reads as metric until Load completes.
// A Set or Toggle that lands before Load finishes wins over the stored value.
type UnitStore struct {
	kv     store.KV
	logger *slog.Logger

	// writeMu orders updates and their persistence.
	writeMu sync.Mutex

	mu      sync.RWMutex
	unit    weather.Unit
	loading bool
	touched bool
}

func NewUnitStore(kv store.KV, logger *slog.Logger) *UnitStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnitStore{
		kv:      kv,
		logger:  logger.With("component", "unit-preference"),
		unit:    weather.UnitMetric,
		loading: true,
	}
}

// Load reads the persisted unit. Missing or unrecognized values keep the default.
func (s *UnitStore) Load(ctx context.Context) error {
	saved, err := s.kv.Get(ctx, UnitKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load unit: %w", err)
	}
	if s.touched {
		s.logger.Debug("keeping unit changed during load", "unit", s.unit, "stored", saved)
		return nil
	}
	if u := weather.Unit(saved); u.Valid() {
		s.unit = u
	} else {
		s.logger.Warn("ignoring unrecognized stored unit", "value", saved)
	}
	return nil
}

func (s *UnitStore) Unit() weather.Unit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unit
}

// Loading reports whether the persisted value has not been read yet.
func (s *UnitStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Set updates the in-memory value and persists it. A persistence failure is
// logged and returned; the in-memory value still changes.
func (s *UnitStore) Set(ctx context.Context, u weather.Unit) error {
	if !u.Valid() {
		return ErrInvalidUnit
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.unit = u
	s.touched = true
	s.mu.Unlock()

	return s.persist(ctx, u)
}

// Toggle flips between metric and imperial and returns the new unit.
func (s *UnitStore) Toggle(ctx context.Context) (weather.Unit, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := weather.UnitImperial
	if s.unit == weather.UnitImperial {
		next = weather.UnitMetric
	}
	s.unit = next
	s.touched = true
	s.mu.Unlock()

	return next, s.persist(ctx, next)
}

func (s *UnitStore) persist(ctx context.Context, u weather.Unit) error {
	if err := s.kv.Set(ctx, UnitKey, string(u)); err != nil {
		s.logger.Error("persist unit failed", "unit", u, "error", err)
		return fmt.Errorf("persist unit: %w", err)
	}
	return nil
}
