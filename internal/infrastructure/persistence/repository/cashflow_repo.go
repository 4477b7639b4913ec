package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/sqlite"
)

// CashFlowRepository implements port.CashFlowRepository
type CashFlowRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCashFlowRepository creates a new cash flow repository
func NewCashFlowRepository(db *sqlite.DB, logger *zap.Logger) port.CashFlowRepository {
	return &CashFlowRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a cash flow event
func (r *CashFlowRepository) Create(ctx context.Context, evt *entity.CashFlowEvent) error {
	query := `
		INSERT INTO cash_flow_events (
			id, decision_id, flow_type, kind, event_date, amount,
			status, description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		evt.ID,
		evt.DecisionID,
		evt.FlowType,
		evt.Kind,
		evt.EventDate,
		evt.Amount,
		evt.Status,
		evt.Description,
		evt.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create cash flow event",
			zap.Int64("decision_id", evt.DecisionID),
			zap.String("flow_type", string(evt.FlowType)),
			zap.Error(err))
		return fmt.Errorf("failed to create cash flow event: %w", err)
	}
	return nil
}

// ListByDecision returns the decision's events ordered by date, inflows first on ties
func (r *CashFlowRepository) ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error) {
	query := `
		SELECT id, decision_id, flow_type, kind, event_date, amount,
			status, description, created_at, cancelled_at
		FROM cash_flow_events
		WHERE decision_id = ?`
	args := []interface{}{decisionID}
	if activeOnly {
		query += ` AND status = ?`
		args = append(args, entity.CashFlowStatusActive)
	}
	query += ` ORDER BY event_date ASC, flow_type ASC, id ASC`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list cash flow events", zap.Int64("decision_id", decisionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list cash flow events: %w", err)
	}
	defer rows.Close()

	events := []*entity.CashFlowEvent{}
	for rows.Next() {
		var (
			evt         entity.CashFlowEvent
			cancelledAt sql.NullTime
		)
		err := rows.Scan(
			&evt.ID,
			&evt.DecisionID,
			&evt.FlowType,
			&evt.Kind,
			&evt.EventDate,
			&evt.Amount,
			&evt.Status,
			&evt.Description,
			&evt.CreatedAt,
			&cancelledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cash flow event: %w", err)
		}
		if cancelledAt.Valid {
			t := cancelledAt.Time
			evt.CancelledAt = &t
		}
		events = append(events, &evt)
	}
	return events, rows.Err()
}

// CancelByDecision cancels the decision's active events
func (r *CashFlowRepository) CancelByDecision(ctx context.Context, decisionID int64, at time.Time) (int, error) {
	query := `
		UPDATE cash_flow_events
		SET status = ?, cancelled_at = ?
		WHERE decision_id = ? AND status = ?
	`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		entity.CashFlowStatusCancelled, at, decisionID, entity.CashFlowStatusActive)
	if err != nil {
		r.logger.Error("Failed to cancel cash flow events", zap.Int64("decision_id", decisionID), zap.Error(err))
		return 0, fmt.Errorf("failed to cancel cash flow events: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Verify interface compliance
var _ port.CashFlowRepository = (*CashFlowRepository)(nil)
