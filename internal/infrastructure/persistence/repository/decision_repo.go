package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/infrastructure/persistence/sqlite"
)

// DecisionRepository implements port.DecisionRepository
type DecisionRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sqlite.DB, logger *zap.Logger) port.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

const decisionColumns = `
	id, run_id, proposal_name, project_id, item_code, procurement_option_id,
	supplier_name, purchase_date, delivery_date, quantity, unit_cost, final_cost,
	payment_terms, status, is_manual_edit,
	forecast_timing_type, forecast_issue_date, forecast_days_after_delivery, forecast_invoice_amount,
	actual_issue_date, actual_amount, actual_received_date, actual_notes,
	finalized_at, finalized_by_id, notes, created_at, updated_at`

// SaveProposal writes each line in payload order, then drops the PROPOSED
// rows of the same run and proposal whose key is no longer in the payload.
// It must run inside the caller's transaction for the save to be all-or-nothing.
func (r *DecisionRepository) SaveProposal(ctx context.Context, payload entity.ProposalSavePayload) ([]*entity.Decision, error) {
	exec := r.db.Executor(ctx)
	now := time.Now()
	saved := make([]*entity.Decision, 0, len(payload.Decisions))

	for _, line := range payload.Decisions {
		terms, err := json.Marshal(line.PaymentTerms)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payment terms for %s: %w", line.Key(), err)
		}

		var id int64
		err = exec.QueryRowContext(ctx, `
			SELECT id FROM decisions
			WHERE run_id = ? AND proposal_name = ? AND project_id = ? AND item_code = ? AND status = ?
			ORDER BY id LIMIT 1
		`, payload.RunID, payload.ProposalName, line.ProjectID, line.ItemCode, entity.DecisionStatusProposed).Scan(&id)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			result, err := exec.ExecContext(ctx, `
				INSERT INTO decisions (
					run_id, proposal_name, project_id, item_code, procurement_option_id,
					supplier_name, purchase_date, delivery_date, quantity, unit_cost, final_cost,
					payment_terms, status, is_manual_edit, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				payload.RunID, payload.ProposalName, line.ProjectID, line.ItemCode, line.ProcurementOptionID,
				line.SupplierName, line.PurchaseDate, line.DeliveryDate, line.Quantity, line.UnitCost, line.FinalCost,
				string(terms), entity.DecisionStatusProposed, line.IsManualEdit, now, now,
			)
			if err != nil {
				r.logger.Error("Failed to insert decision", zap.String("key", line.Key().String()), zap.Error(err))
				return nil, fmt.Errorf("failed to insert decision: %w", err)
			}
			if id, err = result.LastInsertId(); err != nil {
				return nil, fmt.Errorf("failed to get last insert id: %w", err)
			}
		case err != nil:
			r.logger.Error("Failed to look up proposed decision", zap.String("key", line.Key().String()), zap.Error(err))
			return nil, fmt.Errorf("failed to look up decision: %w", err)
		default:
			_, err := exec.ExecContext(ctx, `
				UPDATE decisions SET
					procurement_option_id = ?, supplier_name = ?,
					purchase_date = ?, delivery_date = ?, quantity = ?, unit_cost = ?, final_cost = ?,
					payment_terms = ?, is_manual_edit = ?, updated_at = ?
				WHERE id = ?
			`,
				line.ProcurementOptionID, line.SupplierName,
				line.PurchaseDate, line.DeliveryDate, line.Quantity, line.UnitCost, line.FinalCost,
				string(terms), line.IsManualEdit, now, id,
			)
			if err != nil {
				r.logger.Error("Failed to update decision", zap.Int64("id", id), zap.Error(err))
				return nil, fmt.Errorf("failed to update decision: %w", err)
			}
		}

		d, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		saved = append(saved, d)
	}

	dropped, err := r.dropSupersededDrafts(ctx, payload, saved)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		r.logger.Info("Dropped superseded proposed decisions",
			zap.String("run_id", payload.RunID),
			zap.String("proposal", payload.ProposalName),
			zap.Int("count", dropped))
	}

	return saved, nil
}

// dropSupersededDrafts deletes the PROPOSED rows of the payload's run and
// proposal that this save did not write, together with their history.
// Drafts never carry cash flows, those only exist from finalize on.
func (r *DecisionRepository) dropSupersededDrafts(ctx context.Context, payload entity.ProposalSavePayload, kept []*entity.Decision) (int, error) {
	exec := r.db.Executor(ctx)

	where := `run_id = ? AND proposal_name = ? AND status = ?`
	args := []interface{}{payload.RunID, payload.ProposalName, entity.DecisionStatusProposed}
	if len(kept) > 0 {
		where += ` AND id NOT IN (` + strings.TrimSuffix(strings.Repeat("?,", len(kept)), ",") + `)`
		for _, d := range kept {
			args = append(args, d.ID)
		}
	}

	if _, err := exec.ExecContext(ctx,
		`DELETE FROM decision_history WHERE decision_id IN (SELECT id FROM decisions WHERE `+where+`)`, args...); err != nil {
		r.logger.Error("Failed to delete superseded history", zap.String("run_id", payload.RunID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete superseded history: %w", err)
	}
	result, err := exec.ExecContext(ctx, `DELETE FROM decisions WHERE `+where, args...)
	if err != nil {
		r.logger.Error("Failed to delete superseded decisions", zap.String("run_id", payload.RunID), zap.Error(err))
		return 0, fmt.Errorf("failed to delete superseded decisions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// GetByID retrieves a decision by ID
func (r *DecisionRepository) GetByID(ctx context.Context, id int64) (*entity.Decision, error) {
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE id = ?`

	d, err := scanDecision(r.db.Executor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get decision by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return d, nil
}

// List retrieves decisions matching filter, oldest first
func (r *DecisionRepository) List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.ProposalName != "" {
		where = append(where, "proposal_name = ?")
		args = append(args, filter.ProposalName)
	}
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + decisionColumns + ` FROM decisions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	decisions := []*entity.Decision{}
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// UpdateStatus moves a decision from one status to another and records notes.
// A row that is missing or no longer in from yields apperror.ErrConflict.
func (r *DecisionRepository) UpdateStatus(ctx context.Context, id int64, from, to entity.DecisionStatus, notes string) error {
	query := `UPDATE decisions SET status = ?, notes = ?, updated_at = ? WHERE id = ? AND status = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, to, notes, time.Now(), id, from)
	if err != nil {
		r.logger.Error("Failed to update status", zap.Int64("id", id), zap.String("status", string(to)), zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("decision %d is not %s", id, from)
	}
	return nil
}

// MarkFinalized locks the PROPOSED decisions among ids and returns how many changed.
// Rows already moved on by another session are not touched.
func (r *DecisionRepository) MarkFinalized(ctx context.Context, ids []int64, actorID string, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `
		UPDATE decisions
		SET status = ?, finalized_at = ?, finalized_by_id = ?, updated_at = ?
		WHERE status = ? AND id IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(ids)+5)
	args = append(args, entity.DecisionStatusLocked, at, actorID, at, entity.DecisionStatusProposed)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to finalize decisions", zap.Int("count", len(ids)), zap.Error(err))
		return 0, fmt.Errorf("failed to finalize decisions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// SetForecastInvoice stores the forecast invoice timing and amount
func (r *DecisionRepository) SetForecastInvoice(ctx context.Context, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) error {
	query := `
		UPDATE decisions SET
			forecast_timing_type = ?, forecast_issue_date = ?, forecast_days_after_delivery = ?,
			forecast_invoice_amount = ?, updated_at = ?
		WHERE id = ?
	`

	var issueDate sql.NullTime
	if timing.IssueDate != nil {
		issueDate = sql.NullTime{Time: *timing.IssueDate, Valid: true}
	}
	var days sql.NullInt64
	if timing.DaysAfterDelivery != nil {
		days = sql.NullInt64{Int64: int64(*timing.DaysAfterDelivery), Valid: true}
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		string(timing.TimingType), issueDate, days, amount, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to set forecast invoice", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to set forecast invoice: %w", err)
	}
	return expectRows(result, 1, "decision", id)
}

// EnterActualInvoice stores the actual invoice, replacing any earlier entry
func (r *DecisionRepository) EnterActualInvoice(ctx context.Context, id int64, actual entity.ActualInvoice) error {
	query := `
		UPDATE decisions SET
			actual_issue_date = ?, actual_amount = ?, actual_received_date = ?,
			actual_notes = ?, updated_at = ?
		WHERE id = ?
	`

	var received sql.NullTime
	if actual.ReceivedDate != nil {
		received = sql.NullTime{Time: *actual.ReceivedDate, Valid: true}
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		actual.IssueDate, actual.Amount, received, actual.Notes, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to enter actual invoice", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to enter actual invoice: %w", err)
	}
	return expectRows(result, 1, "decision", id)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (*entity.Decision, error) {
	var (
		d             entity.Decision
		terms         string
		timingType    sql.NullString
		issueDate     sql.NullTime
		days          sql.NullInt64
		actualDate    sql.NullTime
		actualAmount  decimal.NullDecimal
		actualRecv    sql.NullTime
		actualNotes   string
		finalizedAt   sql.NullTime
		forecastTotal decimal.NullDecimal
	)

	err := row.Scan(
		&d.ID, &d.RunID, &d.ProposalName, &d.ProjectID, &d.ItemCode, &d.ProcurementOptionID,
		&d.SupplierName, &d.PurchaseDate, &d.DeliveryDate, &d.Quantity, &d.UnitCost, &d.FinalCost,
		&terms, &d.Status, &d.IsManualEdit,
		&timingType, &issueDate, &days, &forecastTotal,
		&actualDate, &actualAmount, &actualRecv, &actualNotes,
		&finalizedAt, &d.FinalizedByID, &d.Notes, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if terms != "" {
		if err := json.Unmarshal([]byte(terms), &d.PaymentTerms); err != nil {
			return nil, fmt.Errorf("failed to decode payment terms of decision %d: %w", d.ID, err)
		}
	}

	if timingType.Valid && timingType.String != "" {
		timing := &entity.InvoiceTiming{TimingType: entity.TimingType(timingType.String)}
		if issueDate.Valid {
			t := issueDate.Time
			timing.IssueDate = &t
		}
		if days.Valid {
			n := int(days.Int64)
			timing.DaysAfterDelivery = &n
		}
		d.ForecastInvoice = timing
	}
	d.ForecastInvoiceAmount = forecastTotal

	if actualDate.Valid && actualAmount.Valid {
		actual := &entity.ActualInvoice{
			IssueDate: actualDate.Time,
			Amount:    actualAmount.Decimal,
			Notes:     actualNotes,
		}
		if actualRecv.Valid {
			t := actualRecv.Time
			actual.ReceivedDate = &t
		}
		d.ActualInvoice = actual
	}

	if finalizedAt.Valid {
		t := finalizedAt.Time
		d.FinalizedAt = &t
	}

	return &d, nil
}

// Verify interface compliance
var _ port.DecisionRepository = (*DecisionRepository)(nil)
