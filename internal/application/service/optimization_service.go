package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// OptimizationDefaults fill unset fields of an optimization request
type OptimizationDefaults struct {
	MaxTimeSlots     int
	TimeLimitSeconds int
	SolverType       string
}

// OptimizationService runs the external optimizer and keeps its results
type OptimizationService interface {
	// Run excludes every LOCKED item, invokes the optimizer and stores the run
	Run(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error)
	GetRun(ctx context.Context, runID string) (*entity.OptimizationRun, error)
	ListRuns(ctx context.Context, limit int) ([]*entity.OptimizationRun, error)
	// ExcludedItems lists the (project, item) pairs held by LOCKED decisions
	ExcludedItems(ctx context.Context) ([]entity.LineKey, error)
}

type optimizationServiceImpl struct {
	optimizer    port.Optimizer
	decisionRepo port.DecisionRepository
	runRepo      port.RunRepository
	defaults     OptimizationDefaults
	logger       Logger
}

// NewOptimizationService creates a new OptimizationService
func NewOptimizationService(
	optimizer port.Optimizer,
	decisionRepo port.DecisionRepository,
	runRepo port.RunRepository,
	defaults OptimizationDefaults,
	logger Logger,
) OptimizationService {
	return &optimizationServiceImpl{
		optimizer:    optimizer,
		decisionRepo: decisionRepo,
		runRepo:      runRepo,
		defaults:     defaults,
		logger:       logger,
	}
}

func (s *optimizationServiceImpl) Run(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error) {
	if cfg.MaxTimeSlots == 0 {
		cfg.MaxTimeSlots = s.defaults.MaxTimeSlots
	}
	if cfg.TimeLimitSeconds == 0 {
		cfg.TimeLimitSeconds = s.defaults.TimeLimitSeconds
	}
	if cfg.SolverType == "" {
		cfg.SolverType = s.defaults.SolverType
	}
	if cfg.MaxTimeSlots < 0 {
		return nil, apperror.Validation("max_time_slots", "must be positive")
	}
	if cfg.TimeLimitSeconds < 0 {
		return nil, apperror.Validation("time_limit_seconds", "must be positive")
	}

	locked, err := s.ExcludedItems(ctx)
	if err != nil {
		return nil, err
	}
	cfg.ExcludedItems = mergeKeys(cfg.ExcludedItems, locked)

	run, err := s.optimizer.RunOptimization(ctx, cfg)
	if err != nil {
		s.logger.Error("Optimizer run failed", "error", err, "solver", cfg.SolverType)
		return nil, apperror.Persistence("run optimization", err)
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	s.dropExcluded(run, cfg.ExcludedItems)

	if err := s.runRepo.Save(ctx, run); err != nil {
		s.logger.Error("Failed to store optimization run", "error", err, "run_id", run.RunID)
		return nil, apperror.Persistence("store optimization run", err)
	}

	s.logger.Info("Optimization run stored",
		"run_id", run.RunID,
		"status", run.Status,
		"proposals", len(run.Proposals),
		"excluded_items", len(cfg.ExcludedItems),
	)
	return run, nil
}

func (s *optimizationServiceImpl) GetRun(ctx context.Context, runID string) (*entity.OptimizationRun, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, apperror.Persistence("load optimization run", err)
	}
	if run == nil {
		return nil, apperror.NotFound("optimization run", runID)
	}
	return run, nil
}

func (s *optimizationServiceImpl) ListRuns(ctx context.Context, limit int) ([]*entity.OptimizationRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := s.runRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperror.Persistence("list optimization runs", err)
	}
	return runs, nil
}

func (s *optimizationServiceImpl) ExcludedItems(ctx context.Context) ([]entity.LineKey, error) {
	locked, err := s.decisionRepo.List(ctx, entity.DecisionFilter{Status: entity.DecisionStatusLocked})
	if err != nil {
		return nil, apperror.Persistence("list locked decisions", err)
	}
	keys := make([]entity.LineKey, 0, len(locked))
	for _, d := range locked {
		keys = append(keys, d.Key())
	}
	return mergeKeys(nil, keys), nil
}

// dropExcluded removes lines the optimizer should never have proposed
func (s *optimizationServiceImpl) dropExcluded(run *entity.OptimizationRun, excluded []entity.LineKey) {
	if len(excluded) == 0 {
		return
	}
	skip := make(map[entity.LineKey]bool, len(excluded))
	for _, k := range excluded {
		skip[k] = true
	}
	for i := range run.Proposals {
		p := &run.Proposals[i]
		kept := p.Decisions[:0]
		for _, line := range p.Decisions {
			if skip[line.Key()] {
				s.logger.Error("Optimizer proposed an excluded item", "run_id", run.RunID, "item", line.Key().String())
				continue
			}
			kept = append(kept, line)
		}
		p.Decisions = kept
	}
}

// mergeKeys returns the sorted union of a and b
func mergeKeys(a, b []entity.LineKey) []entity.LineKey {
	set := make(map[entity.LineKey]struct{}, len(a)+len(b))
	for _, k := range a {
		set[k] = struct{}{}
	}
	for _, k := range b {
		set[k] = struct{}{}
	}
	out := make([]entity.LineKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
