package workflow

import (
	"context"

	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	domainwf "github.com/garyjia/procurement-decisions/internal/domain/workflow"
)

// LifecycleEngine drives decisions through PROPOSED -> LOCKED -> REVERTED.
// It owns durable status changes, their history rows and the events raised
// after commit. It does not authorize callers.
type LifecycleEngine interface {
	// Check validates firing trigger on d without side effects and returns the target status
	Check(ctx context.Context, d *entity.Decision, trigger domainwf.Trigger) (entity.DecisionStatus, error)

	// PermittedTriggers lists the triggers d currently accepts
	PermittedTriggers(ctx context.Context, d *entity.Decision) []domainwf.Trigger

	// Finalize locks every decision in ids in one transaction. Either all
	// are locked or none are.
	Finalize(ctx context.Context, actor authz.Actor, ids []int64) ([]*entity.Decision, error)

	// Revert moves one LOCKED decision to REVERTED
	Revert(ctx context.Context, actor authz.Actor, id int64, notes string) (*entity.Decision, error)
}
