package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/pkg/utils"
)

// ListDecisions handles GET /api/decisions
func (h *Handlers) ListDecisions(c *gin.Context) {
	var filter entity.DecisionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	decisions, err := h.decisions.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "List decisions", err)
		return
	}
	if decisions == nil {
		decisions = []*entity.Decision{}
	}
	ok200(c, decisions)
}

// GetDecision handles GET /api/decisions/:id
func (h *Handlers) GetDecision(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := h.decisions.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Get decision", err)
		return
	}
	ok200(c, view)
}

// DecisionHistory handles GET /api/decisions/:id/history
func (h *Handlers) DecisionHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	history, err := h.decisions.History(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Get decision history", err)
		return
	}
	if history == nil {
		history = []*entity.DecisionHistory{}
	}
	ok200(c, history)
}

// DecisionCashFlows handles GET /api/decisions/:id/cashflows
func (h *Handlers) DecisionCashFlows(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	activeOnly := c.Query("active") == "true"
	events, err := h.cashFlows.ListByDecision(c.Request.Context(), id, activeOnly)
	if err != nil {
		h.fail(c, "List cash flows", err)
		return
	}
	if events == nil {
		events = []*entity.CashFlowEvent{}
	}
	ok200(c, events)
}

// SetForecastInvoice handles PUT /api/decisions/:id/forecast-invoice
func (h *Handlers) SetForecastInvoice(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ForecastInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	d, err := h.decisions.SetForecastInvoice(c.Request.Context(), actor, id, req.toTiming(), req.Amount)
	if err != nil {
		h.fail(c, "Set forecast invoice", err)
		return
	}
	ok200(c, d)
}

// PreviewInvoiceDate handles POST /api/decisions/:id/forecast-invoice/preview.
// An empty body previews the stored timing.
func (h *Handlers) PreviewInvoiceDate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var timing *entity.InvoiceTiming
	if c.Request.ContentLength != 0 {
		var req TimingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		t := req.toTiming()
		timing = &t
	}

	date, err := h.decisions.PreviewInvoiceDate(c.Request.Context(), id, timing)
	if err != nil {
		h.fail(c, "Preview invoice date", err)
		return
	}
	ok200(c, gin.H{"decision_id": id, "invoice_date": date.Format(DateLayout)})
}

// Finalize handles POST /api/decisions/finalize
func (h *Handlers) Finalize(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.decisions.Finalize(c.Request.Context(), actor, req.IDs)
	if err != nil {
		h.fail(c, "Finalize decisions", err)
		return
	}
	ok200(c, result)
}

// FinalizeProposal handles POST /api/runs/:run_id/proposals/:name/finalize
func (h *Handlers) FinalizeProposal(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	result, err := h.decisions.FinalizeProposal(c.Request.Context(), actor, c.Param("run_id"), c.Param("name"))
	if err != nil {
		h.fail(c, "Finalize proposal", err)
		return
	}
	ok200(c, result)
}

// Revert handles POST /api/decisions/:id/revert
func (h *Handlers) Revert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RevertRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	d, err := h.decisions.Revert(c.Request.Context(), actor, id, utils.SanitizeString(req.Notes))
	if err != nil {
		h.fail(c, "Revert decision", err)
		return
	}
	ok200(c, d)
}

// RevertSelection handles POST /api/decisions/revert-selection
func (h *Handlers) RevertSelection(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	ids, err := h.decisions.RevertSelection(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, "Validate revert selection", err)
		return
	}
	ok200(c, gin.H{"ids": ids})
}

// BulkRevert handles POST /api/decisions/bulk-revert. Each id commits on its
// own, so a partial failure still answers 200 with the per-id outcome.
func (h *Handlers) BulkRevert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req BulkRevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.decisions.BulkRevert(c.Request.Context(), actor, req.IDs, utils.SanitizeString(req.Notes))
	if err != nil {
		h.fail(c, "Bulk revert", err)
		return
	}

	resp := Response{Success: result.Failed == 0, Data: result}
	if result.Failed > 0 {
		resp.Error = "some decisions could not be reverted"
	}
	c.JSON(http.StatusOK, resp)
}

// EnterActualInvoice handles POST /api/decisions/:id/actual-invoice
func (h *Handlers) EnterActualInvoice(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ActualInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	d, err := h.decisions.EnterActualInvoice(c.Request.Context(), actor, id, req.toActual())
	if err != nil {
		h.fail(c, "Enter actual invoice", err)
		return
	}
	ok200(c, d)
}

// Variance handles GET /api/decisions/:id/variance
func (h *Handlers) Variance(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	report, err := h.decisions.Variance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Compute variance", err)
		return
	}
	ok200(c, report)
}
