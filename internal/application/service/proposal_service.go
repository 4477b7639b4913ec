package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/application/session"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
	"github.com/garyjia/procurement-decisions/internal/domain/invoice"
	"github.com/garyjia/procurement-decisions/internal/domain/proposal"
)

// LineView is one reconciled line annotated for display
type LineView struct {
	entity.DecisionLine
	Edited     bool   `json:"edited"`
	Added      bool   `json:"added"`
	DisplayKey string `json:"display_key"`
}

// ProposalView is the reconciled state of an editing session
type ProposalView struct {
	SessionID    string               `json:"session_id"`
	RunID        string               `json:"run_id"`
	ProposalName string               `json:"proposal_name"`
	StrategyType string               `json:"strategy_type"`
	Lines        []LineView           `json:"lines"`
	Removed      []entity.LineKey     `json:"removed"`
	Added        []proposal.AddedLine `json:"added"`
	BaseTotal    decimal.Decimal      `json:"base_total"`
	Total        decimal.Decimal      `json:"total"`
	Version      uint64               `json:"version"`
}

// SaveResult is the outcome of persisting a session
type SaveResult struct {
	Decisions []*entity.Decision `json:"decisions"`
	Total     decimal.Decimal    `json:"total"`
}

// ProposalService manages editing sessions over optimizer proposals
type ProposalService interface {
	Open(ctx context.Context, actor authz.Actor, runID, proposalName string) (*ProposalView, error)
	View(ctx context.Context, sessionID string) (*ProposalView, error)
	Edit(ctx context.Context, sessionID string, key entity.LineKey, line entity.DecisionLine) (*ProposalView, error)
	UndoEdit(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error)
	Remove(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error)
	Unremove(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error)
	Add(ctx context.Context, sessionID string, line entity.DecisionLine) (*ProposalView, error)
	UndoAdd(ctx context.Context, sessionID string, index int) (*ProposalView, error)
	Discard(ctx context.Context, sessionID string)
	// Save persists the reconciled lines as PROPOSED decisions. The ledger
	// is cleared only when the save succeeds.
	Save(ctx context.Context, actor authz.Actor, sessionID string) (*SaveResult, error)
}

type proposalServiceImpl struct {
	runRepo      port.RunRepository
	decisionRepo port.DecisionRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	sessions     *session.Store
	policy       authz.Policy
	dispatcher   dispatcher.Dispatcher
	logger       Logger
}

// NewProposalService creates a new ProposalService
func NewProposalService(
	runRepo port.RunRepository,
	decisionRepo port.DecisionRepository,
	historyRepo port.HistoryRepository,
	txManager port.TransactionManager,
	sessions *session.Store,
	policy authz.Policy,
	disp dispatcher.Dispatcher,
	logger Logger,
) ProposalService {
	return &proposalServiceImpl{
		runRepo:      runRepo,
		decisionRepo: decisionRepo,
		historyRepo:  historyRepo,
		txManager:    txManager,
		sessions:     sessions,
		policy:       policy,
		dispatcher:   disp,
		logger:       logger,
	}
}

func (s *proposalServiceImpl) Open(ctx context.Context, actor authz.Actor, runID, proposalName string) (*ProposalView, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return nil, apperror.Persistence("load optimization run", err)
	}
	if run == nil {
		return nil, apperror.NotFound("optimization run", runID)
	}
	base, ok := run.Proposal(proposalName)
	if !ok {
		return nil, apperror.NotFound("proposal", proposalName)
	}

	sess := s.sessions.Open(actor.UserID, runID, base)
	s.logger.Info("Proposal session opened", "session_id", sess.ID, "run_id", runID, "proposal", proposalName)
	return s.View(ctx, sess.ID)
}

func (s *proposalServiceImpl) View(ctx context.Context, sessionID string) (*ProposalView, error) {
	var view *ProposalView
	err := s.sessions.With(sessionID, func(sess *session.Session) error {
		view = buildView(sess)
		return nil
	})
	return view, err
}

func (s *proposalServiceImpl) Edit(ctx context.Context, sessionID string, key entity.LineKey, line entity.DecisionLine) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		if !inBase(sess.Base, key) {
			return apperror.NotFound("proposal line", key.String())
		}
		if line.Key() != key {
			return apperror.Validation("item_code", "an edit cannot change the line identity %s", key)
		}
		sess.Ledger.Edit(key, line)
		return nil
	})
}

func (s *proposalServiceImpl) UndoEdit(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		sess.Ledger.UndoEdit(key)
		return nil
	})
}

func (s *proposalServiceImpl) Remove(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		if !inBase(sess.Base, key) {
			return apperror.NotFound("proposal line", key.String())
		}
		sess.Ledger.Remove(key)
		return nil
	})
}

func (s *proposalServiceImpl) Unremove(ctx context.Context, sessionID string, key entity.LineKey) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		sess.Ledger.Unremove(key)
		return nil
	})
}

func (s *proposalServiceImpl) Add(ctx context.Context, sessionID string, line entity.DecisionLine) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		if line.ProjectID == "" || line.ItemCode == "" {
			return apperror.Validation("item_code", "project and item are required")
		}
		sess.Ledger.Add(line)
		return nil
	})
}

func (s *proposalServiceImpl) UndoAdd(ctx context.Context, sessionID string, index int) (*ProposalView, error) {
	return s.mutate(sessionID, func(sess *session.Session) error {
		return sess.Ledger.UndoAdd(index)
	})
}

func (s *proposalServiceImpl) Discard(ctx context.Context, sessionID string) {
	s.sessions.Discard(sessionID)
	s.logger.Info("Proposal session discarded", "session_id", sessionID)
}

func (s *proposalServiceImpl) Save(ctx context.Context, actor authz.Actor, sessionID string) (*SaveResult, error) {
	if err := s.policy.Authorize(actor.Role, authz.ActionSaveProposal); err != nil {
		return nil, err
	}

	var (
		payload entity.ProposalSavePayload
		version uint64
		total   decimal.Decimal
	)
	err := s.sessions.With(sessionID, func(sess *session.Session) error {
		lines := proposal.Reconcile(sess.Base, sess.Ledger)
		if err := validateLines(lines); err != nil {
			return err
		}
		payload = proposal.ToSaveRequest(sess.RunID, sess.ProposalName, lines, sess.Ledger)
		version = sess.Ledger.Version()
		total = proposal.Total(lines)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var saved []*entity.Decision
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.decisionRepo.SaveProposal(txCtx, payload)
		if err != nil {
			return fmt.Errorf("save decisions: %w", err)
		}
		now := time.Now()
		for _, d := range saved {
			history := &entity.DecisionHistory{
				DecisionID: d.ID,
				ActorID:    actor.UserID,
				ActorRole:  actor.Role,
				NewStatus:  string(entity.DecisionStatusProposed),
				ActionType: entity.ActionTypeSaveProposal,
				Notes:      payload.ProposalName,
				Timestamp:  now,
			}
			if err := s.historyRepo.Create(txCtx, history); err != nil {
				return fmt.Errorf("create history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to save proposal, edits kept for retry",
			"error", err,
			"session_id", sessionID,
			"run_id", payload.RunID,
		)
		return nil, apperror.Persistence("save proposal", err)
	}

	// Edits made while the save was in flight survive.
	clearErr := s.sessions.With(sessionID, func(sess *session.Session) error {
		if sess.Ledger.Version() == version {
			sess.Ledger.Clear()
		}
		return nil
	})
	if clearErr != nil && !errors.Is(clearErr, apperror.ErrNotFound) {
		s.logger.Error("Failed to clear ledger after save", "error", clearErr, "session_id", sessionID)
	}

	s.logger.Info("Proposal saved",
		"run_id", payload.RunID,
		"proposal", payload.ProposalName,
		"decisions", len(saved),
		"total", total.StringFixed(2),
	)

	if s.dispatcher != nil {
		evt := event.NewEvent(event.TypeProposalSaved, 0, payload.RunID, map[string]interface{}{
			"proposal_name": payload.ProposalName,
			"count":         len(saved),
		}).WithActor(actor.UserID)
		if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
			s.logger.Error("Proposal saved handler failed", "error", err, "run_id", payload.RunID)
		}
	}

	return &SaveResult{Decisions: saved, Total: total}, nil
}

func (s *proposalServiceImpl) mutate(sessionID string, fn func(*session.Session) error) (*ProposalView, error) {
	var view *ProposalView
	err := s.sessions.With(sessionID, func(sess *session.Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		view = buildView(sess)
		return nil
	})
	return view, err
}

func inBase(base entity.Proposal, key entity.LineKey) bool {
	for _, l := range base.Decisions {
		if l.Key() == key {
			return true
		}
	}
	return false
}

// validateLines runs the checks deferred from editing time
func validateLines(lines []entity.DecisionLine) error {
	if len(lines) == 0 {
		return apperror.Validation("decisions", "nothing to save, every line was removed")
	}
	for _, l := range lines {
		if l.ProjectID == "" || l.ItemCode == "" {
			return apperror.Validation("item_code", "project and item are required")
		}
		if l.Quantity <= 0 {
			return apperror.Validation("quantity", "%s: quantity must be positive", l.Key())
		}
		if l.FinalCost.IsNegative() {
			return apperror.Validation("final_cost", "%s: cost cannot be negative", l.Key())
		}
		if err := invoice.ValidateInstallments(l.PaymentTerms); err != nil {
			return fmt.Errorf("%s: %w", l.Key(), err)
		}
	}
	return nil
}

func buildView(sess *session.Session) *ProposalView {
	lines := proposal.Reconcile(sess.Base, sess.Ledger)

	addedKeys := make(map[entity.LineKey]string)
	for _, a := range sess.Ledger.Added() {
		addedKeys[a.Line.Key()] = a.DisplayKey
	}

	views := make([]LineView, len(lines))
	for i, l := range lines {
		displayKey, added := addedKeys[l.Key()]
		if !added {
			displayKey = l.Key().String()
		}
		views[i] = LineView{
			DecisionLine: l,
			Edited:       sess.Ledger.IsEdited(l.Key()) && !added,
			Added:        added,
			DisplayKey:   displayKey,
		}
	}

	return &ProposalView{
		SessionID:    sess.ID,
		RunID:        sess.RunID,
		ProposalName: sess.ProposalName,
		StrategyType: sess.Base.StrategyType,
		Lines:        views,
		Removed:      sess.Ledger.Removed(),
		Added:        sess.Ledger.Added(),
		BaseTotal:    proposal.Total(sess.Base.Decisions),
		Total:        proposal.Total(lines),
		Version:      sess.Ledger.Version(),
	}
}
