package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/procurement-decisions/pkg/utils"
)

// EnvPrefix prefixes every environment override, e.g. PROCUREMENT_SERVER_PORT
const EnvPrefix = "PROCUREMENT"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Session   SessionConfig   `mapstructure:"session"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// OptimizerConfig points at the external optimizer and the run defaults
type OptimizerConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxTimeSlots     int           `mapstructure:"max_time_slots"`
	TimeLimitSeconds int           `mapstructure:"time_limit_seconds"`
	SolverType       string        `mapstructure:"solver_type"`
}

// LifecycleConfig tunes decision lifecycle operations
type LifecycleConfig struct {
	BulkRevertNotes   string `mapstructure:"bulk_revert_notes"`
	VarianceThreshold string `mapstructure:"variance_threshold"`
}

// Threshold returns the variance materiality threshold as a decimal
func (c LifecycleConfig) Threshold() decimal.Decimal {
	d, err := decimal.NewFromString(c.VarianceThreshold)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SessionConfig controls how long unsaved editing sessions survive
type SessionConfig struct {
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepSchedule string        `mapstructure:"sweep_schedule"`
	TimeZone      string        `mapstructure:"time_zone"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from an optional .env file, an optional YAML
// file and environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from path without overriding the real environment
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 6*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/procurement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Optimizer defaults
	v.SetDefault("optimizer.base_url", "http://localhost:8000")
	v.SetDefault("optimizer.timeout", 5*time.Minute)
	v.SetDefault("optimizer.max_time_slots", 12)
	v.SetDefault("optimizer.time_limit_seconds", 60)
	v.SetDefault("optimizer.solver_type", "CP_SAT")

	// Lifecycle defaults
	v.SetDefault("lifecycle.bulk_revert_notes", "Bulk revert operation")
	v.SetDefault("lifecycle.variance_threshold", "100")

	// Session defaults
	v.SetDefault("session.idle_timeout", 2*time.Hour)
	v.SetDefault("session.sweep_schedule", "*/5 * * * *")
	v.SetDefault("session.time_zone", "UTC")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
}

// bindEnvVars binds the short environment names deployments already use
func bindEnvVars(v *viper.Viper) error {
	return errors.Join(
		v.BindEnv("optimizer.base_url", EnvPrefix+"_OPTIMIZER_BASE_URL", "OPTIMIZER_URL"),
		v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH", "DATABASE_PATH"),
		v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT"),
	)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if err := utils.ValidateBaseURL(c.Optimizer.BaseURL); err != nil {
		return fmt.Errorf("optimizer.base_url: %w", err)
	}
	if c.Optimizer.MaxTimeSlots <= 0 {
		return fmt.Errorf("optimizer.max_time_slots must be positive")
	}
	if c.Optimizer.TimeLimitSeconds <= 0 {
		return fmt.Errorf("optimizer.time_limit_seconds must be positive")
	}

	threshold, err := decimal.NewFromString(c.Lifecycle.VarianceThreshold)
	if err != nil {
		return fmt.Errorf("lifecycle.variance_threshold must be a number: %w", err)
	}
	if err := utils.ValidateNonNegative(threshold); err != nil {
		return fmt.Errorf("lifecycle.variance_threshold: %w", err)
	}

	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("session.idle_timeout must be positive")
	}
	if _, err := cron.ParseStandard(c.Session.SweepSchedule); err != nil {
		return fmt.Errorf("session.sweep_schedule: %w", err)
	}
	if _, err := time.LoadLocation(c.Session.TimeZone); err != nil {
		return fmt.Errorf("session.time_zone: %w", err)
	}

	return nil
}

// Address returns the HTTP listen address
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
