package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/session"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
)

func procLine(project, item string, cost int64) entity.DecisionLine {
	return entity.DecisionLine{
		ProjectID:    project,
		ItemCode:     item,
		SupplierName: "Acme",
		PurchaseDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		DeliveryDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Quantity:     1,
		UnitCost:     decimal.NewFromInt(cost),
		FinalCost:    decimal.NewFromInt(cost),
	}
}

func testRun() *entity.OptimizationRun {
	return &entity.OptimizationRun{
		RunID:  "run-1",
		Status: entity.RunStatusOptimal,
		Proposals: []entity.Proposal{{
			ProposalName: "Lowest Cost",
			StrategyType: "LOWEST_COST",
			Decisions: []entity.DecisionLine{
				procLine("P1", "A", 100),
				procLine("P1", "B", 200),
				procLine("P2", "C", 300),
			},
		}},
	}
}

type proposalFixture struct {
	decisions *mockDecisionRepo
	history   *mockHistoryRepo
	tx        *mockTxManager
	disp      dispatcher.Dispatcher
	logger    *mockLogger
	svc       ProposalService
}

func newProposalFixture() *proposalFixture {
	f := &proposalFixture{
		decisions: &mockDecisionRepo{},
		history:   &mockHistoryRepo{},
		tx:        &mockTxManager{},
		disp:      dispatcher.NewDispatcher(),
		logger:    &mockLogger{},
	}
	runs := &mockRunRepo{runs: map[string]*entity.OptimizationRun{"run-1": testRun()}}
	f.svc = NewProposalService(runs, f.decisions, f.history, f.tx, session.NewStore(), authz.DefaultPolicy(), f.disp, f.logger)
	return f
}

func lineKeys(view *ProposalView) []string {
	out := make([]string, len(view.Lines))
	for i, l := range view.Lines {
		out[i] = l.Key().String()
	}
	return out
}

func TestProposalService_OpenUnknown(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	_, err := f.svc.Open(ctx, financeActor, "missing", "Lowest Cost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Open(ctx, financeActor, "run-1", "Fastest")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.View(ctx, "no-such-session")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestProposalService_EditingFlow(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()

	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)
	id := view.SessionID
	assert.True(t, view.Total.Equal(decimal.NewFromInt(600)))

	view, err = f.svc.Remove(ctx, id, entity.LineKey{ProjectID: "P1", ItemCode: "B"})
	require.NoError(t, err)
	view, err = f.svc.Add(ctx, id, procLine("P3", "D", 50))
	require.NoError(t, err)
	assert.Equal(t, []string{"P1/A", "P2/C", "P3/D"}, lineKeys(view))
	assert.True(t, view.Total.Equal(decimal.NewFromInt(450)))
	assert.True(t, view.BaseTotal.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "added-1", view.Lines[2].DisplayKey)
	assert.True(t, view.Lines[2].Added)

	edited := procLine("P2", "C", 250)
	view, err = f.svc.Edit(ctx, id, edited.Key(), edited)
	require.NoError(t, err)
	assert.True(t, view.Lines[1].Edited)
	assert.True(t, view.Lines[1].FinalCost.Equal(decimal.NewFromInt(250)))

	view, err = f.svc.UndoEdit(ctx, id, edited.Key())
	require.NoError(t, err)
	assert.False(t, view.Lines[1].Edited)

	view, err = f.svc.Unremove(ctx, id, entity.LineKey{ProjectID: "P1", ItemCode: "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P1/A", "P1/B", "P2/C", "P3/D"}, lineKeys(view))

	view, err = f.svc.UndoAdd(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1/A", "P1/B", "P2/C"}, lineKeys(view))

	_, err = f.svc.UndoAdd(ctx, id, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestProposalService_EditRejectsUnknownOrRekeyedLines(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)

	ghost := procLine("P9", "Z", 1)
	_, err = f.svc.Edit(ctx, view.SessionID, ghost.Key(), ghost)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Remove(ctx, view.SessionID, ghost.Key())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.Edit(ctx, view.SessionID, entity.LineKey{ProjectID: "P1", ItemCode: "A"}, procLine("P1", "X", 1))
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Add(ctx, view.SessionID, entity.DecisionLine{ProjectID: "P1"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestProposalService_SaveClearsLedger(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)
	id := view.SessionID

	_, err = f.svc.Remove(ctx, id, entity.LineKey{ProjectID: "P1", ItemCode: "B"})
	require.NoError(t, err)
	_, err = f.svc.Add(ctx, id, procLine("P3", "D", 50))
	require.NoError(t, err)

	var payload entity.ProposalSavePayload
	base := f.decisions.SaveProposal
	f.decisions.saveProposalFunc = func(ctx context.Context, p entity.ProposalSavePayload) ([]*entity.Decision, error) {
		payload = p
		f.decisions.saveProposalFunc = nil
		return base(ctx, p)
	}
	saved := 0
	f.disp.Subscribe(event.TypeProposalSaved, func(ctx context.Context, evt *event.Event) error {
		saved++
		return nil
	})

	result, err := f.svc.Save(ctx, financeActor, id)
	require.NoError(t, err)

	assert.Len(t, result.Decisions, 3)
	assert.True(t, result.Total.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, "run-1", payload.RunID)
	assert.Equal(t, "Lowest Cost", payload.ProposalName)
	require.Len(t, payload.Decisions, 3)
	assert.False(t, payload.Decisions[0].IsManualEdit)
	assert.True(t, payload.Decisions[2].IsManualEdit)
	assert.Len(t, f.history.created, 3)
	assert.Equal(t, 1, saved)

	view, err = f.svc.View(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, view.Removed)
	assert.Empty(t, view.Added)
	assert.Equal(t, []string{"P1/A", "P1/B", "P2/C"}, lineKeys(view), "after a save the view shows the base proposal")
}

func TestProposalService_SaveFailureKeepsLedger(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)
	id := view.SessionID

	_, err = f.svc.Remove(ctx, id, entity.LineKey{ProjectID: "P2", ItemCode: "C"})
	require.NoError(t, err)

	f.decisions.saveProposalFunc = func(ctx context.Context, p entity.ProposalSavePayload) ([]*entity.Decision, error) {
		return nil, errors.New("database is locked")
	}

	_, err = f.svc.Save(ctx, financeActor, id)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrPersistence)
	assert.Equal(t, apperror.GenericPersistenceMessage, apperror.UserMessage(err))

	view, err = f.svc.View(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []entity.LineKey{{ProjectID: "P2", ItemCode: "C"}}, view.Removed)
	assert.Empty(t, f.history.created)
}

func TestProposalService_SaveKeepsEditsMadeDuringSave(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)
	id := view.SessionID

	_, err = f.svc.Remove(ctx, id, entity.LineKey{ProjectID: "P1", ItemCode: "A"})
	require.NoError(t, err)

	f.decisions.saveProposalFunc = func(ctx context.Context, p entity.ProposalSavePayload) ([]*entity.Decision, error) {
		_, err := f.svc.Remove(ctx, id, entity.LineKey{ProjectID: "P1", ItemCode: "B"})
		return nil, err
	}

	_, err = f.svc.Save(ctx, financeActor, id)
	require.NoError(t, err)

	view, err = f.svc.View(ctx, id)
	require.NoError(t, err)
	assert.Len(t, view.Removed, 2)
}

func TestProposalService_SaveRejections(t *testing.T) {
	f := newProposalFixture()
	ctx := context.Background()
	view, err := f.svc.Open(ctx, financeActor, "run-1", "Lowest Cost")
	require.NoError(t, err)
	id := view.SessionID

	_, err = f.svc.Save(ctx, viewerActor, id)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.svc.Save(ctx, pmActor, id)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	bad := procLine("P1", "A", 100)
	bad.Quantity = 0
	_, err = f.svc.Edit(ctx, id, bad.Key(), bad)
	require.NoError(t, err, "edits are validated at save time")
	_, err = f.svc.Save(ctx, financeActor, id)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.UndoEdit(ctx, id, bad.Key())
	require.NoError(t, err)
	for _, l := range testRun().Proposals[0].Decisions {
		_, err = f.svc.Remove(ctx, id, l.Key())
		require.NoError(t, err)
	}
	_, err = f.svc.Save(ctx, financeActor, id)
	assert.ErrorIs(t, err, apperror.ErrValidation, "an empty proposal is not saved")

	f.svc.Discard(ctx, id)
	_, err = f.svc.Save(ctx, financeActor, id)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
