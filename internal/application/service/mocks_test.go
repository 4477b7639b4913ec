package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// Mock repositories

type mockDecisionRepo struct {
	saveProposalFunc       func(ctx context.Context, payload entity.ProposalSavePayload) ([]*entity.Decision, error)
	getByIDFunc            func(ctx context.Context, id int64) (*entity.Decision, error)
	listFunc               func(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error)
	updateStatusFunc       func(ctx context.Context, id int64, from, to entity.DecisionStatus, notes string) error
	markFinalizedFunc      func(ctx context.Context, ids []int64, actorID string, at time.Time) (int, error)
	setForecastInvoiceFunc func(ctx context.Context, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) error
	enterActualInvoiceFunc func(ctx context.Context, id int64, actual entity.ActualInvoice) error
}

func (m *mockDecisionRepo) SaveProposal(ctx context.Context, payload entity.ProposalSavePayload) ([]*entity.Decision, error) {
	if m.saveProposalFunc != nil {
		return m.saveProposalFunc(ctx, payload)
	}
	out := make([]*entity.Decision, len(payload.Decisions))
	for i, l := range payload.Decisions {
		out[i] = &entity.Decision{
			ID:           int64(i + 1),
			RunID:        payload.RunID,
			ProposalName: payload.ProposalName,
			ProjectID:    l.ProjectID,
			ItemCode:     l.ItemCode,
			FinalCost:    l.FinalCost,
			Status:       entity.DecisionStatusProposed,
			IsManualEdit: l.IsManualEdit,
		}
	}
	return out, nil
}

func (m *mockDecisionRepo) GetByID(ctx context.Context, id int64) (*entity.Decision, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockDecisionRepo) List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Decision{}, nil
}

func (m *mockDecisionRepo) UpdateStatus(ctx context.Context, id int64, from, to entity.DecisionStatus, notes string) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to, notes)
	}
	return nil
}

func (m *mockDecisionRepo) MarkFinalized(ctx context.Context, ids []int64, actorID string, at time.Time) (int, error) {
	if m.markFinalizedFunc != nil {
		return m.markFinalizedFunc(ctx, ids, actorID, at)
	}
	return len(ids), nil
}

func (m *mockDecisionRepo) SetForecastInvoice(ctx context.Context, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) error {
	if m.setForecastInvoiceFunc != nil {
		return m.setForecastInvoiceFunc(ctx, id, timing, amount)
	}
	return nil
}

func (m *mockDecisionRepo) EnterActualInvoice(ctx context.Context, id int64, actual entity.ActualInvoice) error {
	if m.enterActualInvoiceFunc != nil {
		return m.enterActualInvoiceFunc(ctx, id, actual)
	}
	return nil
}

type mockHistoryRepo struct {
	createFunc func(ctx context.Context, history *entity.DecisionHistory) error
	created    []*entity.DecisionHistory
}

func (m *mockHistoryRepo) Create(ctx context.Context, history *entity.DecisionHistory) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, history); err != nil {
			return err
		}
	}
	m.created = append(m.created, history)
	return nil
}

func (m *mockHistoryRepo) GetByDecisionID(ctx context.Context, decisionID int64) ([]*entity.DecisionHistory, error) {
	var out []*entity.DecisionHistory
	for _, h := range m.created {
		if h.DecisionID == decisionID {
			out = append(out, h)
		}
	}
	return out, nil
}

type mockCashFlowRepo struct {
	events    []*entity.CashFlowEvent
	createErr error
}

func (m *mockCashFlowRepo) Create(ctx context.Context, evt *entity.CashFlowEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, evt)
	return nil
}

func (m *mockCashFlowRepo) ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error) {
	var out []*entity.CashFlowEvent
	for _, e := range m.events {
		if e.DecisionID == decisionID && (!activeOnly || e.IsActive()) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockCashFlowRepo) CancelByDecision(ctx context.Context, decisionID int64, at time.Time) (int, error) {
	n := 0
	for _, e := range m.events {
		if e.DecisionID == decisionID && e.IsActive() {
			e.Status = entity.CashFlowStatusCancelled
			e.CancelledAt = &at
			n++
		}
	}
	return n, nil
}

type mockRunRepo struct {
	runs map[string]*entity.OptimizationRun
}

func (m *mockRunRepo) Save(ctx context.Context, run *entity.OptimizationRun) error {
	if m.runs == nil {
		m.runs = make(map[string]*entity.OptimizationRun)
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, runID string) (*entity.OptimizationRun, error) {
	return m.runs[runID], nil
}

func (m *mockRunRepo) ListRecent(ctx context.Context, limit int) ([]*entity.OptimizationRun, error) {
	out := make([]*entity.OptimizationRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r)
	}
	return out, nil
}

type mockOptimizer struct {
	runFunc func(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error)
}

func (m *mockOptimizer) RunOptimization(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error) {
	if m.runFunc != nil {
		return m.runFunc(ctx, cfg)
	}
	return nil, errors.New("optimizer unavailable")
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct {
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errors = append(m.errors, msg)
}
