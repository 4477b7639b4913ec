package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/sqlite"
)

// RunRepository implements port.RunRepository. Proposals are stored as one
// JSON document per run since they are never queried line by line.
type RunRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewRunRepository creates a new optimization run repository
func NewRunRepository(db *sqlite.DB, logger *zap.Logger) port.RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts or replaces a run
func (r *RunRepository) Save(ctx context.Context, run *entity.OptimizationRun) error {
	proposals, err := json.Marshal(run.Proposals)
	if err != nil {
		return fmt.Errorf("failed to encode proposals: %w", err)
	}

	query := `
		INSERT INTO optimization_runs (run_id, status, total_cost, proposals, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			total_cost = excluded.total_cost,
			proposals = excluded.proposals
	`

	_, err = r.db.Executor(ctx).ExecContext(ctx, query,
		run.RunID, run.Status, run.TotalCost, string(proposals), run.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to save optimization run", zap.String("run_id", run.RunID), zap.Error(err))
		return fmt.Errorf("failed to save optimization run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID
func (r *RunRepository) GetByID(ctx context.Context, runID string) (*entity.OptimizationRun, error) {
	query := `
		SELECT run_id, status, total_cost, proposals, created_at
		FROM optimization_runs
		WHERE run_id = ?
	`

	run, err := scanRun(r.db.Executor(ctx).QueryRowContext(ctx, query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get optimization run", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("failed to get optimization run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest runs first
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]*entity.OptimizationRun, error) {
	query := `
		SELECT run_id, status, total_cost, proposals, created_at
		FROM optimization_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to list optimization runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list optimization runs: %w", err)
	}
	defer rows.Close()

	runs := []*entity.OptimizationRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan optimization run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*entity.OptimizationRun, error) {
	var (
		run       entity.OptimizationRun
		proposals string
	)
	if err := row.Scan(&run.RunID, &run.Status, &run.TotalCost, &proposals, &run.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(proposals), &run.Proposals); err != nil {
		return nil, fmt.Errorf("failed to decode proposals of run %s: %w", run.RunID, err)
	}
	return &run, nil
}

// Verify interface compliance
var _ port.RunRepository = (*RunRepository)(nil)
