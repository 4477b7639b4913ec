package port

import (
	"context"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// Optimizer is the external solver. It is a black box that returns
// proposals for a configuration; callers must have filled ExcludedItems.
type Optimizer interface {
	RunOptimization(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error)
}
