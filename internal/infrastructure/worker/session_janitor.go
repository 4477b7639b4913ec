package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper discards sessions idle longer than ttl and returns how many went
type Sweeper interface {
	Sweep(ttl time.Duration) int
}

// SessionJanitorConfig holds configuration for the session janitor
type SessionJanitorConfig struct {
	Schedule    string // standard 5-field cron expression
	IdleTimeout time.Duration
	TimeZone    string
}

// DefaultSessionJanitorConfig returns default configuration
func DefaultSessionJanitorConfig() SessionJanitorConfig {
	return SessionJanitorConfig{
		Schedule:    "*/5 * * * *",
		IdleTimeout: 2 * time.Hour,
		TimeZone:    "UTC",
	}
}

// SessionJanitor periodically drops abandoned editing sessions. Their
// unsaved edits are lost, which is the documented behavior of the ledger.
type SessionJanitor struct {
	config  SessionJanitorConfig
	store   Sweeper
	onSwept func(n int)
	logger  *zap.Logger

	mu        sync.Mutex
	cron      *cron.Cron
	lastRun   time.Time
	lastSwept int
}

// NewSessionJanitor creates a new janitor. onSwept may be nil.
func NewSessionJanitor(config SessionJanitorConfig, store Sweeper, onSwept func(int), logger *zap.Logger) *SessionJanitor {
	return &SessionJanitor{
		config:  config,
		store:   store,
		onSwept: onSwept,
		logger:  logger,
	}
}

// Name returns the worker name
func (j *SessionJanitor) Name() string {
	return "session-janitor"
}

// Start schedules the sweep
func (j *SessionJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cron != nil {
		return fmt.Errorf("session janitor already running")
	}
	if j.config.IdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive, got %s", j.config.IdleTimeout)
	}

	loc, err := time.LoadLocation(j.config.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(j.config.Schedule, j.RunOnce); err != nil {
		return fmt.Errorf("unable to schedule session janitor: %w", err)
	}
	c.Start()
	j.cron = c

	j.logger.Info("Session janitor scheduled",
		zap.String("schedule", j.config.Schedule),
		zap.Duration("idle_timeout", j.config.IdleTimeout))
	return nil
}

// Stop waits for a running sweep to finish
func (j *SessionJanitor) Stop() error {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c == nil {
		return nil
	}
	<-c.Stop().Done()
	return nil
}

// RunOnce sweeps idle sessions immediately
func (j *SessionJanitor) RunOnce() {
	n := j.store.Sweep(j.config.IdleTimeout)

	j.mu.Lock()
	j.lastRun = time.Now()
	j.lastSwept = n
	j.mu.Unlock()

	if n > 0 {
		j.logger.Info("Idle sessions discarded", zap.Int("count", n))
	}
	if j.onSwept != nil {
		j.onSwept(n)
	}
}

// Healthy reports whether the janitor is scheduled
func (j *SessionJanitor) Healthy() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cron != nil
}

// LastRun returns when the last sweep ran and how many sessions it dropped
func (j *SessionJanitor) LastRun() (time.Time, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.lastSwept
}
