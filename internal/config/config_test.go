package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/procurement.db", cfg.Database.Path)
	assert.Equal(t, "CP_SAT", cfg.Optimizer.SolverType)
	assert.Equal(t, 12, cfg.Optimizer.MaxTimeSlots)
	assert.Equal(t, 5*time.Minute, cfg.Optimizer.Timeout)
	assert.Equal(t, "Bulk revert operation", cfg.Lifecycle.BulkRevertNotes)
	assert.True(t, cfg.Lifecycle.Threshold().Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := writeFile(t, dir, "config.yaml", `
server:
  port: 9090
optimizer:
  base_url: http://solver:8000
  time_limit_seconds: 120
lifecycle:
  variance_threshold: "50.5"
session:
  idle_timeout: 30m
`)
	t.Setenv("PROCUREMENT_LOGGER_LEVEL", "debug")
	t.Setenv("OPTIMIZER_URL", "https://solver.prod")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Optimizer.TimeLimitSeconds)
	assert.Equal(t, "https://solver.prod", cfg.Optimizer.BaseURL)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Lifecycle.Threshold().Equal(decimal.RequireFromString("50.5")))
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	writeFile(t, dir, ".env", "PROCUREMENT_DATABASE_PATH=/tmp/from-dotenv.db\n")
	t.Cleanup(func() { os.Unsetenv("PROCUREMENT_DATABASE_PATH") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Database:  DatabaseConfig{Path: "db"},
			Logger:    LoggerConfig{Format: "json"},
			Optimizer: OptimizerConfig{BaseURL: "http://localhost:8000", MaxTimeSlots: 12, TimeLimitSeconds: 60},
			Lifecycle: LifecycleConfig{VarianceThreshold: "0"},
			Session:   SessionConfig{IdleTimeout: time.Hour, SweepSchedule: "*/5 * * * *", TimeZone: "UTC"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"optimizer url", func(c *Config) { c.Optimizer.BaseURL = "solver" }, "optimizer.base_url"},
		{"time slots", func(c *Config) { c.Optimizer.MaxTimeSlots = 0 }, "optimizer.max_time_slots"},
		{"threshold text", func(c *Config) { c.Lifecycle.VarianceThreshold = "lots" }, "lifecycle.variance_threshold"},
		{"threshold negative", func(c *Config) { c.Lifecycle.VarianceThreshold = "-1" }, "lifecycle.variance_threshold"},
		{"idle timeout", func(c *Config) { c.Session.IdleTimeout = 0 }, "session.idle_timeout"},
		{"schedule", func(c *Config) { c.Session.SweepSchedule = "often" }, "session.sweep_schedule"},
		{"time zone", func(c *Config) { c.Session.TimeZone = "Mars/Olympus" }, "session.time_zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
