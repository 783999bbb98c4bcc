package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher re-runs the weather fetch for the currently selected city.
type Refresher interface {
	Refresh()
}

// Scheduler periodically refreshes the weather for the selected city.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(target Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the refresh job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("auto-refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		s.logger.Debug("running auto-refresh")
		s.target.Refresh()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("auto-refresh scheduled", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
