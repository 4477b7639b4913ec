package http

import (
	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

// RunOptimization handles POST /api/optimizations
func (h *Handlers) RunOptimization(c *gin.Context) {
	var cfg entity.OptimizationConfig
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cfg); err != nil {
			badRequest(c, "invalid optimization config: "+err.Error())
			return
		}
	}

	run, err := h.optimization.Run(c.Request.Context(), cfg)
	if err != nil {
		h.fail(c, "Run optimization", err)
		return
	}
	ok200(c, run)
}

// ListRuns handles GET /api/optimizations
func (h *Handlers) ListRuns(c *gin.Context) {
	var req ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	runs, err := h.optimization.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		h.fail(c, "List optimization runs", err)
		return
	}
	if runs == nil {
		runs = []*entity.OptimizationRun{}
	}
	ok200(c, runs)
}

// GetRun handles GET /api/optimizations/:run_id
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.optimization.GetRun(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		h.fail(c, "Get optimization run", err)
		return
	}
	ok200(c, run)
}

// ExcludedItems handles GET /api/excluded-items
func (h *Handlers) ExcludedItems(c *gin.Context) {
	keys, err := h.optimization.ExcludedItems(c.Request.Context())
	if err != nil {
		h.fail(c, "List excluded items", err)
		return
	}
	ok200(c, keys)
}
