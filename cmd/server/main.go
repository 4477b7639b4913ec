// Package main provides the procurement-decisions binary entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/config"
	"github.com/garyjia/procurement-decisions/internal/container"
	httpapi "github.com/garyjia/procurement-decisions/internal/interfaces/http"
	"github.com/garyjia/procurement-decisions/pkg/database"
	"github.com/garyjia/procurement-decisions/pkg/utils"
)

// Set with -ldflags at build time
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "procurement-decisions"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Procurement decision lifecycle service",
		Long: `Procurement decisions turns optimizer proposals into reviewed,
finalized procurement decisions with forecast cash flows.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")

	cmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup loads configuration and builds the logger
func setup(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    appName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting procurement decision service",
		zap.String("version", Version),
		zap.String("address", cfg.Server.Address()))

	ctr, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := ctr.Start(ctx); err != nil {
		_ = ctr.Close()
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := ctr.Close(); err != nil {
			logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	svc := ctr.Services()
	opts := []httpapi.ServerOption{
		httpapi.WithVersion(Version),
		httpapi.WithHealth(ctr.HealthSummary),
	}
	if m := ctr.Metrics(); m != nil {
		opts = append(opts, httpapi.WithMetrics(m, m.Handler()))
	}

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpapi.Services{
		Optimization: svc.Optimization,
		Proposals:    svc.Proposals,
		Decisions:    svc.Decisions,
		CashFlows:    svc.CashFlows,
		Policy:       svc.Policy,
	}, ctr.KVLogger(), opts...)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("Server exited successfully")
	return nil
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.Path == database.MemoryPath {
				return errors.New("refusing to migrate an in-memory database")
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
				return fmt.Errorf("create database directory: %w", err)
			}
			db, err := database.New(database.Config{
				Path:            cfg.Database.Path,
				MaxOpenConns:    1,
				MaxIdleConns:    1,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := database.NewMigrator(db, logger).RunMigrations()
			if err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}
