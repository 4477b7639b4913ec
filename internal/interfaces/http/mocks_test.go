package http

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/service"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

type stubOptimization struct {
	runFunc      func(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error)
	getRunFunc   func(ctx context.Context, runID string) (*entity.OptimizationRun, error)
	excludedFunc func(ctx context.Context) ([]entity.LineKey, error)
}

func (s *stubOptimization) Run(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error) {
	return s.runFunc(ctx, cfg)
}

func (s *stubOptimization) GetRun(ctx context.Context, runID string) (*entity.OptimizationRun, error) {
	return s.getRunFunc(ctx, runID)
}

func (s *stubOptimization) ListRuns(ctx context.Context, limit int) ([]*entity.OptimizationRun, error) {
	return nil, nil
}

func (s *stubOptimization) ExcludedItems(ctx context.Context) ([]entity.LineKey, error) {
	return s.excludedFunc(ctx)
}

type stubProposals struct {
	openFunc func(ctx context.Context, actor authz.Actor, runID, name string) (*service.ProposalView, error)
	editFunc func(ctx context.Context, sessionID string, key entity.LineKey, line entity.DecisionLine) (*service.ProposalView, error)
	saveFunc func(ctx context.Context, actor authz.Actor, sessionID string) (*service.SaveResult, error)
	discards []string
}

func (s *stubProposals) Open(ctx context.Context, actor authz.Actor, runID, name string) (*service.ProposalView, error) {
	return s.openFunc(ctx, actor, runID, name)
}

func (s *stubProposals) View(ctx context.Context, sessionID string) (*service.ProposalView, error) {
	return nil, apperror.NotFound("session", sessionID)
}

func (s *stubProposals) Edit(ctx context.Context, sessionID string, key entity.LineKey, line entity.DecisionLine) (*service.ProposalView, error) {
	return s.editFunc(ctx, sessionID, key, line)
}

func (s *stubProposals) UndoEdit(ctx context.Context, sessionID string, key entity.LineKey) (*service.ProposalView, error) {
	return &service.ProposalView{SessionID: sessionID}, nil
}

func (s *stubProposals) Remove(ctx context.Context, sessionID string, key entity.LineKey) (*service.ProposalView, error) {
	return &service.ProposalView{SessionID: sessionID, Removed: []entity.LineKey{key}}, nil
}

func (s *stubProposals) Unremove(ctx context.Context, sessionID string, key entity.LineKey) (*service.ProposalView, error) {
	return &service.ProposalView{SessionID: sessionID}, nil
}

func (s *stubProposals) Add(ctx context.Context, sessionID string, line entity.DecisionLine) (*service.ProposalView, error) {
	return &service.ProposalView{SessionID: sessionID}, nil
}

func (s *stubProposals) UndoAdd(ctx context.Context, sessionID string, index int) (*service.ProposalView, error) {
	if index < 0 {
		return nil, apperror.Validation("index", "out of range")
	}
	return &service.ProposalView{SessionID: sessionID}, nil
}

func (s *stubProposals) Discard(ctx context.Context, sessionID string) {
	s.discards = append(s.discards, sessionID)
}

func (s *stubProposals) Save(ctx context.Context, actor authz.Actor, sessionID string) (*service.SaveResult, error) {
	return s.saveFunc(ctx, actor, sessionID)
}

type stubDecisions struct {
	getFunc        func(ctx context.Context, id int64) (*service.DecisionView, error)
	listFunc       func(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error)
	finalizeFunc   func(ctx context.Context, actor authz.Actor, ids []int64) (*service.FinalizeResult, error)
	revertFunc     func(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error)
	bulkRevertFunc func(ctx context.Context, actor authz.Actor, ids []int64, notes string) (*apperror.BatchResult, error)
	previewFunc    func(ctx context.Context, id int64, timing *entity.InvoiceTiming) (time.Time, error)
	actualFunc     func(ctx context.Context, actor authz.Actor, id int64, actual entity.ActualInvoice) (*entity.Decision, error)
}

func (s *stubDecisions) Get(ctx context.Context, id int64) (*service.DecisionView, error) {
	return s.getFunc(ctx, id)
}

func (s *stubDecisions) List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error) {
	return s.listFunc(ctx, filter)
}

func (s *stubDecisions) History(ctx context.Context, id int64) ([]*entity.DecisionHistory, error) {
	return nil, nil
}

func (s *stubDecisions) SetForecastInvoice(ctx context.Context, actor authz.Actor, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) (*entity.Decision, error) {
	return &entity.Decision{ID: id, ForecastInvoice: &timing, ForecastInvoiceAmount: decimal.NewNullDecimal(amount)}, nil
}

func (s *stubDecisions) PreviewInvoiceDate(ctx context.Context, id int64, timing *entity.InvoiceTiming) (time.Time, error) {
	return s.previewFunc(ctx, id, timing)
}

func (s *stubDecisions) Finalize(ctx context.Context, actor authz.Actor, ids []int64) (*service.FinalizeResult, error) {
	return s.finalizeFunc(ctx, actor, ids)
}

func (s *stubDecisions) FinalizeProposal(ctx context.Context, actor authz.Actor, runID, name string) (*service.FinalizeResult, error) {
	return &service.FinalizeResult{}, nil
}

func (s *stubDecisions) Revert(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error) {
	return s.revertFunc(ctx, actor, id, notes)
}

func (s *stubDecisions) RevertSelection(ctx context.Context, ids []int64) ([]int64, error) {
	return ids, nil
}

func (s *stubDecisions) BulkRevert(ctx context.Context, actor authz.Actor, ids []int64, notes string) (*apperror.BatchResult, error) {
	return s.bulkRevertFunc(ctx, actor, ids, notes)
}

func (s *stubDecisions) EnterActualInvoice(ctx context.Context, actor authz.Actor, id int64, actual entity.ActualInvoice) (*entity.Decision, error) {
	return s.actualFunc(ctx, actor, id, actual)
}

func (s *stubDecisions) Variance(ctx context.Context, id int64) (*service.VarianceReport, error) {
	return nil, apperror.Validation("actual_invoice", "decision %d has no actual invoice", id)
}

type stubCashFlows struct{}

func (s *stubCashFlows) Register(d dispatcher.Dispatcher) {}

func (s *stubCashFlows) ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error) {
	return nil, nil
}

func (s *stubCashFlows) CreateForecast(ctx context.Context, decisionID int64) (int, error) {
	return 0, nil
}

func (s *stubCashFlows) CancelForecast(ctx context.Context, decisionID int64) (int, error) {
	return 0, nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type recordingObserver struct {
	routes []string
}

func (o *recordingObserver) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	o.routes = append(o.routes, method+" "+route)
}
