package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// DecisionRepository defines persistence operations for Decision.
// Single-row getters return (nil, nil) when the row does not exist.
type DecisionRepository interface {
	// SaveProposal upserts PROPOSED rows by (run_id, proposal_name, project_id,
	// item_code) and inserts the rest. Rows already LOCKED or REVERTED are left
	// alone and a fresh PROPOSED row is inserted beside them. PROPOSED rows of
	// the same run and proposal missing from the payload are deleted.
	SaveProposal(ctx context.Context, payload entity.ProposalSavePayload) ([]*entity.Decision, error)
	GetByID(ctx context.Context, id int64) (*entity.Decision, error)
	List(ctx context.Context, filter entity.DecisionFilter) ([]*entity.Decision, error)
	// UpdateStatus changes status only while the row is still in from;
	// otherwise it returns apperror.ErrConflict.
	UpdateStatus(ctx context.Context, id int64, from, to entity.DecisionStatus, notes string) error
	MarkFinalized(ctx context.Context, ids []int64, actorID string, at time.Time) (int, error)
	SetForecastInvoice(ctx context.Context, id int64, timing entity.InvoiceTiming, amount decimal.Decimal) error
	EnterActualInvoice(ctx context.Context, id int64, actual entity.ActualInvoice) error
}

// CashFlowRepository defines persistence operations for CashFlowEvent
type CashFlowRepository interface {
	Create(ctx context.Context, evt *entity.CashFlowEvent) error
	ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error)
	// CancelByDecision marks every active event of the decision cancelled and returns how many changed
	CancelByDecision(ctx context.Context, decisionID int64, at time.Time) (int, error)
}

// HistoryRepository defines persistence operations for DecisionHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.DecisionHistory) error
	GetByDecisionID(ctx context.Context, decisionID int64) ([]*entity.DecisionHistory, error)
}

// RunRepository stores optimization runs so proposals can be reloaded by run_id
type RunRepository interface {
	Save(ctx context.Context, run *entity.OptimizationRun) error
	GetByID(ctx context.Context, runID string) (*entity.OptimizationRun, error)
	ListRecent(ctx context.Context, limit int) ([]*entity.OptimizationRun, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
