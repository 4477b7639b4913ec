// Package container provides dependency injection and lifecycle management
// for the procurement decision service.
package container

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/application/service"
	"github.com/garyjia/procurement-decisions/internal/application/session"
	"github.com/garyjia/procurement-decisions/internal/application/workflow"
	"github.com/garyjia/procurement-decisions/internal/config"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/external/optimizer"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/metrics"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/repository"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/worker"
	"github.com/garyjia/procurement-decisions/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw            *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	if cfg.Path != database.MemoryPath {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db, logger).RunMigrations()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("Database migrations checked", zap.Int("applied", applied))

	return &DatabaseBundle{
		Raw:            db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories over the transaction-aware DB.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Decision: repository.NewDecisionRepository(db, logger),
		History:  repository.NewHistoryRepository(db, logger),
		CashFlow: repository.NewCashFlowRepository(db, logger),
		Run:      repository.NewRunRepository(db, logger),
	}
}

// ProvideOptimizer creates the external optimizer client.
func ProvideOptimizer(cfg *config.OptimizerConfig, logger *zap.Logger) port.Optimizer {
	return optimizer.NewClient(optimizer.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}, logger)
}

// ProvideDispatcher creates the in-process event dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}))
}

// ServiceDeps holds the dependencies for the application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Optimizer  port.Optimizer
	Dispatcher dispatcher.Dispatcher
	Sessions   *session.Store
	Config     *config.Config
	Logger     *zap.Logger
}

// ProvideServices wires the lifecycle engine and every application service,
// and subscribes the cash-flow service to lifecycle events.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	log := &zapLoggerAdapter{logger: deps.Logger}
	policy := authz.DefaultPolicy()
	cfg := deps.Config

	engine := workflow.NewEngine(
		deps.Repos.Decision,
		deps.Repos.History,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(log),
	)

	bundle := &ServiceBundle{
		Policy: policy,
		Optimization: service.NewOptimizationService(
			deps.Optimizer,
			deps.Repos.Decision,
			deps.Repos.Run,
			service.OptimizationDefaults{
				MaxTimeSlots:     cfg.Optimizer.MaxTimeSlots,
				TimeLimitSeconds: cfg.Optimizer.TimeLimitSeconds,
				SolverType:       cfg.Optimizer.SolverType,
			},
			log,
		),
		Proposals: service.NewProposalService(
			deps.Repos.Run,
			deps.Repos.Decision,
			deps.Repos.History,
			deps.TxManager,
			deps.Sessions,
			policy,
			deps.Dispatcher,
			log,
		),
		Decisions: service.NewDecisionService(
			deps.Repos.Decision,
			deps.Repos.History,
			deps.TxManager,
			engine,
			policy,
			deps.Dispatcher,
			service.DecisionServiceConfig{
				BulkRevertNotes:   cfg.Lifecycle.BulkRevertNotes,
				VarianceThreshold: cfg.Lifecycle.Threshold(),
			},
			log,
		),
		CashFlows: service.NewCashFlowService(
			deps.Repos.Decision,
			deps.Repos.CashFlow,
			deps.TxManager,
			log,
		),
	}
	bundle.CashFlows.Register(deps.Dispatcher)

	return bundle
}

// ProvideWorkers creates the worker manager with the session janitor registered.
func ProvideWorkers(cfg *config.SessionConfig, sessions *session.Store, m *metrics.Metrics, logger *zap.Logger) *worker.WorkerManager {
	var onSwept func(int)
	if m != nil {
		onSwept = m.SessionsSwept
	}

	manager := worker.NewWorkerManager(logger)
	manager.Register(worker.NewSessionJanitor(worker.SessionJanitorConfig{
		Schedule:    cfg.SweepSchedule,
		IdleTimeout: cfg.IdleTimeout,
		TimeZone:    cfg.TimeZone,
	}, sessions, onSwept, logger))
	return manager
}
