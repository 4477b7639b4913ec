package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
	domainwf "github.com/garyjia/procurement-decisions/internal/domain/workflow"
)

// engineImpl is the concrete implementation of LifecycleEngine
type engineImpl struct {
	decisionRepo port.DecisionRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       dispatcher.Logger
	now          func() time.Time
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher that runs post-commit side effects
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the logger used for side-effect failures
func WithLogger(l dispatcher.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(
	decisionRepo port.DecisionRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) LifecycleEngine {
	e := &engineImpl{
		decisionRepo: decisionRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Check(ctx context.Context, d *entity.Decision, trigger domainwf.Trigger) (entity.DecisionStatus, error) {
	current := domainwf.State(d.Status)
	if !current.IsValid() {
		return "", fmt.Errorf("decision %d: %w: %s", d.ID, domainwf.ErrInvalidState, d.Status)
	}

	machine := BuildDecisionStateMachine(d)
	if err := machine.Fire(ctx, trigger); err != nil {
		if errors.Is(err, domainwf.ErrGuardFailed) {
			return "", FinalizeReadiness(d)
		}
		return "", fmt.Errorf("decision %d: %w", d.ID, err)
	}
	return entity.DecisionStatus(machine.State()), nil
}

func (e *engineImpl) PermittedTriggers(ctx context.Context, d *entity.Decision) []domainwf.Trigger {
	if !domainwf.State(d.Status).IsValid() {
		return nil
	}
	return BuildDecisionStateMachine(d).PermittedTriggers(ctx)
}

func (e *engineImpl) Finalize(ctx context.Context, actor authz.Actor, ids []int64) ([]*entity.Decision, error) {
	if len(ids) == 0 {
		return nil, apperror.Validation("decision_ids", "no decisions selected")
	}

	decisions := make([]*entity.Decision, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		d, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := e.Check(ctx, d, domainwf.TriggerFinalize); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	at := e.now()
	uniqueIDs := make([]int64, len(decisions))
	for i, d := range decisions {
		uniqueIDs[i] = d.ID
	}

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		n, err := e.decisionRepo.MarkFinalized(txCtx, uniqueIDs, actor.UserID, at)
		if err != nil {
			return apperror.Persistence("finalize decisions", err)
		}
		if n != len(uniqueIDs) {
			return apperror.Conflict("finalized %d of %d decisions, another session changed them", n, len(uniqueIDs))
		}
		for _, d := range decisions {
			if err := e.historyRepo.Create(txCtx, e.history(d.ID, actor, d.Status, entity.DecisionStatusLocked, entity.ActionTypeFinalize, "")); err != nil {
				return apperror.Persistence("record finalize history", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range decisions {
		d.Status = entity.DecisionStatusLocked
		d.FinalizedAt = &at
		d.FinalizedByID = actor.UserID
	}

	correlation := uuid.NewString()
	for _, d := range decisions {
		evt := event.NewEventWithCorrelation(event.TypeDecisionFinalized, d.ID, d.RunID, map[string]interface{}{
			"previous_status": string(entity.DecisionStatusProposed),
			"new_status":      string(entity.DecisionStatusLocked),
		}, correlation).WithActor(actor.UserID)
		e.emit(ctx, evt)
	}
	return decisions, nil
}

func (e *engineImpl) Revert(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error) {
	d, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := d.Status
	next, err := e.Check(ctx, d, domainwf.TriggerRevert)
	if err != nil {
		return nil, err
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.decisionRepo.UpdateStatus(txCtx, id, previous, next, notes); err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				return err
			}
			return apperror.Persistence("revert decision", err)
		}
		if err := e.historyRepo.Create(txCtx, e.history(id, actor, previous, next, entity.ActionTypeRevert, notes)); err != nil {
			return apperror.Persistence("record revert history", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	d.Status = next
	d.Notes = notes

	evt := event.NewEvent(event.TypeDecisionReverted, d.ID, d.RunID, map[string]interface{}{
		"previous_status": string(previous),
		"new_status":      string(next),
		"notes":           notes,
	}).WithActor(actor.UserID)
	e.emit(ctx, evt)
	return d, nil
}

func (e *engineImpl) load(ctx context.Context, id int64) (*entity.Decision, error) {
	d, err := e.decisionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Persistence("load decision", err)
	}
	if d == nil {
		return nil, apperror.NotFound("decision", id)
	}
	return d, nil
}

func (e *engineImpl) history(id int64, actor authz.Actor, from, to entity.DecisionStatus, action, notes string) *entity.DecisionHistory {
	return &entity.DecisionHistory{
		DecisionID:     id,
		ActorID:        actor.UserID,
		ActorRole:      actor.Role,
		PreviousStatus: string(from),
		NewStatus:      string(to),
		ActionType:     action,
		Notes:          notes,
		Timestamp:      e.now(),
	}
}

// emit runs post-commit side effects once. The status change is already
// durable, so a failing handler is logged and never undoes it.
func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	if err := e.dispatcher.Dispatch(ctx, evt); err != nil && e.logger != nil {
		e.logger.Error("Lifecycle side effect failed",
			"event_type", evt.Type,
			"decision_id", evt.DecisionID,
			"error", err,
		)
	}
}
