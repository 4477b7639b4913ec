package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.DecisionHistory) error {
	query := `
		INSERT INTO decision_history (
			decision_id, actor_id, actor_role, previous_status, new_status,
			action_type, notes, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		history.DecisionID,
		history.ActorID,
		history.ActorRole,
		history.PreviousStatus,
		history.NewStatus,
		history.ActionType,
		history.Notes,
		history.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Int64("decision_id", history.DecisionID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByDecisionID retrieves all history records for a decision, oldest first
func (r *HistoryRepository) GetByDecisionID(ctx context.Context, decisionID int64) ([]*entity.DecisionHistory, error) {
	query := `
		SELECT id, decision_id, actor_id, actor_role, previous_status, new_status,
			action_type, notes, timestamp
		FROM decision_history
		WHERE decision_id = ?
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, decisionID)
	if err != nil {
		r.logger.Error("Failed to get history by decision ID", zap.Int64("decision_id", decisionID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := []*entity.DecisionHistory{}
	for rows.Next() {
		var record entity.DecisionHistory
		err := rows.Scan(
			&record.ID,
			&record.DecisionID,
			&record.ActorID,
			&record.ActorRole,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.ActionType,
			&record.Notes,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
