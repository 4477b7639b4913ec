package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/application/workflow"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
	"github.com/garyjia/procurement-decisions/internal/domain/invoice"
	"github.com/garyjia/procurement-decisions/internal/domain/variance"
	domainwf "github.com/garyjia/procurement-decisions/internal/domain/workflow"
)

// DefaultBulkRevertNotes is recorded when a bulk revert carries no notes
const DefaultBulkRevertNotes = "Bulk revert operation"

// DecisionView is a decision with the lifecycle triggers it currently accepts
type DecisionView struct {
	*entity.Decision
	PermittedTriggers []domainwf.Trigger `json:"permitted_triggers"`
}

// FinalizeResult reports a finalize call
type FinalizeResult struct {
	FinalizedCount int                `json:"finalized_count"`
	Decisions      []*entity.Decision `json:"decisions"`
}

// VarianceReport compares a decision's forecast invoice with its actual invoice
type VarianceReport struct {
	DecisionID   int64           `json:"decision_id"`
	ForecastDate time.Time       `json:"forecast_date"`
	ActualDate   time.Time       `json:"actual_date"`
	Amount       variance.Result `json:"amount"`
	Threshold    decimal.Decimal `json:"threshold"`
}

// DecisionServiceConfig holds tunables for DecisionService
type DecisionServiceConfig struct {
	BulkRevertNotes   string
	VarianceThreshold decimal.Decimal
}

// DecisionService manages persisted decisions and their lifecycle
type DecisionService interface {
	Get(ctx context.Context, id int64) (*DecisionView, error)
	List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error)
	History(ctx context.Context, id int64) ([]*entity.DecisionHistory, error)

	SetForecastInvoice(ctx context.Context, actor authz.Actor, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) (*entity.Decision, error)
	// PreviewInvoiceDate resolves timing, or the stored timing when nil, against the delivery date
	PreviewInvoiceDate(ctx context.Context, id int64, timing *entity.InvoiceTiming) (time.Time, error)

	Finalize(ctx context.Context, actor authz.Actor, ids []int64) (*FinalizeResult, error)
	FinalizeProposal(ctx context.Context, actor authz.Actor, runID, proposalName string) (*FinalizeResult, error)

	Revert(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error)
	// RevertSelection accepts a selection only when every decision in it is LOCKED
	RevertSelection(ctx context.Context, ids []int64) ([]int64, error)
	// BulkRevert reverts each id independently, in order, and reports the counts
	BulkRevert(ctx context.Context, actor authz.Actor, ids []int64, notes string) (*apperror.BatchResult, error)

	EnterActualInvoice(ctx context.Context, actor authz.Actor, id int64, actual entity.ActualInvoice) (*entity.Decision, error)
	Variance(ctx context.Context, id int64) (*VarianceReport, error)
}

type decisionServiceImpl struct {
	decisionRepo port.DecisionRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	engine       workflow.LifecycleEngine
	policy       authz.Policy
	dispatcher   dispatcher.Dispatcher
	calculator   *variance.Calculator
	revertNotes  string
	logger       Logger
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(
	decisionRepo port.DecisionRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	engine workflow.LifecycleEngine,
	policy authz.Policy,
	disp dispatcher.Dispatcher,
	cfg DecisionServiceConfig,
	logger Logger,
) DecisionService {
	notes := cfg.BulkRevertNotes
	if notes == "" {
		notes = DefaultBulkRevertNotes
	}
	return &decisionServiceImpl{
		decisionRepo: decisionRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		engine:       engine,
		policy:       policy,
		dispatcher:   disp,
		calculator:   variance.NewCalculator(cfg.VarianceThreshold),
		revertNotes:  notes,
		logger:       logger,
	}
}

func (s *decisionServiceImpl) Get(ctx context.Context, id int64) (*DecisionView, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DecisionView{Decision: d, PermittedTriggers: s.engine.PermittedTriggers(ctx, d)}, nil
}

func (s *decisionServiceImpl) List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperror.Validation("status", "unknown decision status %q", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	decisions, err := s.decisionRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list decisions", "error", err)
		return nil, apperror.Persistence("list decisions", err)
	}
	return decisions, nil
}

func (s *decisionServiceImpl) History(ctx context.Context, id int64) ([]*entity.DecisionHistory, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.historyRepo.GetByDecisionID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("load decision history", err)
	}
	return history, nil
}

func (s *decisionServiceImpl) SetForecastInvoice(ctx context.Context, actor authz.Actor, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) (*entity.Decision, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionSetForecastInvoice); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperror.Validation("forecast_invoice_amount", "invoice amount must be greater than zero")
	}
	timing = timing.Normalized()
	if err := invoice.ValidateTiming(timing); err != nil {
		return nil, err
	}

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entity.DecisionStatusProposed {
		return nil, apperror.Conflict("forecast invoice can only change while PROPOSED, decision %d is %s", id, d.Status)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.decisionRepo.SetForecastInvoice(txCtx, id, timing, amount); err != nil {
			return fmt.Errorf("set forecast invoice: %w", err)
		}
		return s.historyRepo.Create(txCtx, &entity.DecisionHistory{
			DecisionID:     id,
			ActorID:        actor.UserID,
			ActorRole:      actor.Role,
			PreviousStatus: string(d.Status),
			NewStatus:      string(d.Status),
			ActionType:     entity.ActionTypeSetForecast,
			Notes:          fmt.Sprintf("%s %s", timing.TimingType, amount.StringFixed(2)),
			Timestamp:      time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to set forecast invoice", "error", err, "decision_id", id)
		return nil, apperror.Persistence("set forecast invoice", err)
	}

	d.ForecastInvoice = &timing
	d.ForecastInvoiceAmount = decimal.NewNullDecimal(amount)
	return d, nil
}

func (s *decisionServiceImpl) PreviewInvoiceDate(ctx context.Context, id int64, timing *entity.InvoiceTiming) (time.Time, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if timing == nil {
		timing = d.ForecastInvoice
	}
	if timing == nil {
		return time.Time{}, apperror.Validation("forecast_invoice", "decision %d has no invoice timing", id)
	}
	return invoice.ResolveInvoiceDate(timing.Normalized(), d.DeliveryDate)
}

func (s *decisionServiceImpl) Finalize(ctx context.Context, actor authz.Actor, ids []int64) (*FinalizeResult, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionFinalize); err != nil {
		return nil, err
	}
	return s.finalize(ctx, actor, ids)
}

func (s *decisionServiceImpl) FinalizeProposal(ctx context.Context, actor authz.Actor, runID, proposalName string) (*FinalizeResult, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionFinalizeProposal); err != nil {
		return nil, err
	}
	pending, err := s.decisionRepo.List(ctx, entity.DecisionFilter{
		RunID:        runID,
		ProposalName: proposalName,
		Status:       entity.DecisionStatusProposed,
	})
	if err != nil {
		return nil, apperror.Persistence("list proposal decisions", err)
	}
	if len(pending) == 0 {
		return nil, apperror.Validation("proposal_name", "proposal %q of run %s has no PROPOSED decisions", proposalName, runID)
	}
	ids := make([]int64, len(pending))
	for i, d := range pending {
		ids[i] = d.ID
	}
	return s.finalize(ctx, actor, ids)
}

func (s *decisionServiceImpl) finalize(ctx context.Context, actor authz.Actor, ids []int64) (*FinalizeResult, error) {
	decisions, err := s.engine.Finalize(ctx, actor, ids)
	if err != nil {
		s.logger.Error("Finalize rejected", "error", err, "actor", actor.UserID, "count", len(ids))
		return nil, err
	}
	s.logger.Info("Decisions finalized", "actor", actor.UserID, "count", len(decisions))
	return &FinalizeResult{FinalizedCount: len(decisions), Decisions: decisions}, nil
}

func (s *decisionServiceImpl) Revert(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionRevert); err != nil {
		return nil, err
	}
	d, err := s.engine.Revert(ctx, actor, id, strings.TrimSpace(notes))
	if err != nil {
		s.logger.Error("Revert failed", "error", err, "decision_id", id)
		return nil, err
	}
	s.logger.Info("Decision reverted", "decision_id", id, "actor", actor.UserID)
	return d, nil
}

func (s *decisionServiceImpl) RevertSelection(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, apperror.Validation("decision_ids", "no decisions selected")
	}
	selected := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		d, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if d.Status != entity.DecisionStatusLocked {
			return nil, apperror.Validation("decision_ids", "decision %d is %s, only LOCKED decisions can be selected for revert", id, d.Status)
		}
		selected = append(selected, id)
	}
	return selected, nil
}

func (s *decisionServiceImpl) BulkRevert(ctx context.Context, actor authz.Actor, ids []int64, notes string) (*apperror.BatchResult, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionRevert); err != nil {
		return nil, err
	}
	selected, err := s.RevertSelection(ctx, ids)
	if err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		notes = s.revertNotes
	}

	result := &apperror.BatchResult{}
	for _, id := range selected {
		if _, err := s.engine.Revert(ctx, actor, id, notes); err != nil {
			s.logger.Error("Bulk revert item failed", "error", err, "decision_id", id)
			result.RecordFailure(id, err)
			continue
		}
		result.RecordSuccess(id)
	}

	s.logger.Info("Bulk revert completed",
		"actor", actor.UserID,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *decisionServiceImpl) EnterActualInvoice(ctx context.Context, actor authz.Actor, id int64, actual entity.ActualInvoice) (*entity.Decision, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionEnterActualInvoice); err != nil {
		return nil, err
	}
	if actual.IssueDate.IsZero() {
		return nil, apperror.Validation("issue_date", "actual invoice date is required")
	}
	if !actual.Amount.IsPositive() {
		return nil, apperror.Validation("amount", "invoice amount must be greater than zero")
	}
	actual.Notes = strings.TrimSpace(actual.Notes)

	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != entity.DecisionStatusLocked {
		return nil, apperror.Conflict("actual invoices can only be entered for LOCKED decisions, decision %d is %s", id, d.Status)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.decisionRepo.EnterActualInvoice(txCtx, id, actual); err != nil {
			return fmt.Errorf("enter actual invoice: %w", err)
		}
		return s.historyRepo.Create(txCtx, &entity.DecisionHistory{
			DecisionID:     id,
			ActorID:        actor.UserID,
			ActorRole:      actor.Role,
			PreviousStatus: string(d.Status),
			NewStatus:      string(d.Status),
			ActionType:     entity.ActionTypeEnterActualInvoice,
			Notes:          actual.Notes,
			Timestamp:      time.Now(),
		})
	})
	if err != nil {
		s.logger.Error("Failed to enter actual invoice", "error", err, "decision_id", id)
		return nil, apperror.Persistence("enter actual invoice", err)
	}
	d.ActualInvoice = &actual

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeActualInvoiceEntered, id, d.RunID, map[string]interface{}{
			"amount": actual.Amount.String(),
		}).WithActor(actor.UserID)
		if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
			s.logger.Error("Actual invoice handler failed", "error", err, "decision_id", id)
		}
	}
	return d, nil
}

func (s *decisionServiceImpl) Variance(ctx context.Context, id int64) (*VarianceReport, error) {
	d, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.ActualInvoice == nil {
		return nil, apperror.Conflict("decision %d has no actual invoice yet", id)
	}
	if d.ForecastInvoice == nil || !d.ForecastInvoiceAmount.Valid {
		return nil, apperror.Conflict("decision %d has no forecast invoice", id)
	}

	forecastDate, err := invoice.ResolveInvoiceDate(d.ForecastInvoice.Normalized(), d.DeliveryDate)
	if err != nil {
		return nil, err
	}

	result := s.calculator.Compute(d.ForecastInvoiceAmount.Decimal, d.ActualInvoice.Amount, entity.FlowInflow)
	slip := variance.DateSlipDays(forecastDate, d.ActualInvoice.IssueDate)
	result.DateSlipDays = &slip

	return &VarianceReport{
		DecisionID:   id,
		ForecastDate: forecastDate,
		ActualDate:   d.ActualInvoice.IssueDate,
		Amount:       result,
		Threshold:    s.calculator.Threshold(),
	}, nil
}

func (s *decisionServiceImpl) load(ctx context.Context, id int64) (*entity.Decision, error) {
	d, err := s.decisionRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get decision", "error", err, "id", id)
		return nil, apperror.Persistence("load decision", err)
	}
	if d == nil {
		return nil, apperror.NotFound("decision", id)
	}
	return d, nil
}
