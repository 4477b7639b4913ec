package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-decisions/internal/application/service"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

func lineKey(c *gin.Context) entity.LineKey {
	return entity.LineKey{ProjectID: c.Param("project_id"), ItemCode: c.Param("item_code")}
}

// OpenSession handles POST /api/sessions
func (h *Handlers) OpenSession(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	view, err := h.proposals.Open(c.Request.Context(), actor, req.RunID, req.ProposalName)
	if err != nil {
		h.fail(c, "Open session", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: view})
}

// GetSession handles GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	h.respondView(c, "View session")(h.proposals.View(c.Request.Context(), c.Param("id")))
}

// DiscardSession handles DELETE /api/sessions/:id
func (h *Handlers) DiscardSession(c *gin.Context) {
	h.proposals.Discard(c.Request.Context(), c.Param("id"))
	ok200(c, nil)
}

// EditLine handles PUT /api/sessions/:id/lines/:project_id/:item_code
func (h *Handlers) EditLine(c *gin.Context) {
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid line: "+err.Error())
		return
	}
	key := lineKey(c)
	line := req.toLine()
	if line.ProjectID == "" && line.ItemCode == "" {
		line.ProjectID, line.ItemCode = key.ProjectID, key.ItemCode
	}
	h.respondView(c, "Edit line")(h.proposals.Edit(c.Request.Context(), c.Param("id"), key, line))
}

// UndoEdit handles DELETE /api/sessions/:id/lines/:project_id/:item_code/edit
func (h *Handlers) UndoEdit(c *gin.Context) {
	h.respondView(c, "Undo edit")(h.proposals.UndoEdit(c.Request.Context(), c.Param("id"), lineKey(c)))
}

// RemoveLine handles DELETE /api/sessions/:id/lines/:project_id/:item_code
func (h *Handlers) RemoveLine(c *gin.Context) {
	h.respondView(c, "Remove line")(h.proposals.Remove(c.Request.Context(), c.Param("id"), lineKey(c)))
}

// RestoreLine handles POST /api/sessions/:id/lines/:project_id/:item_code/restore
func (h *Handlers) RestoreLine(c *gin.Context) {
	h.respondView(c, "Restore line")(h.proposals.Unremove(c.Request.Context(), c.Param("id"), lineKey(c)))
}

// AddLine handles POST /api/sessions/:id/added
func (h *Handlers) AddLine(c *gin.Context) {
	var req LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid line: "+err.Error())
		return
	}
	h.respondView(c, "Add line")(h.proposals.Add(c.Request.Context(), c.Param("id"), req.toLine()))
}

// UndoAdd handles DELETE /api/sessions/:id/added/:index
func (h *Handlers) UndoAdd(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid index: "+c.Param("index"))
		return
	}
	h.respondView(c, "Undo add")(h.proposals.UndoAdd(c.Request.Context(), c.Param("id"), index))
}

// SaveSession handles POST /api/sessions/:id/save
func (h *Handlers) SaveSession(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	result, err := h.proposals.Save(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.fail(c, "Save session", err)
		return
	}
	h.logger.Info("Proposal saved", "session_id", c.Param("id"), "decisions", len(result.Decisions), "user_id", actor.UserID)
	ok200(c, result)
}

// respondView writes the reconciled view returned by a session operation
func (h *Handlers) respondView(c *gin.Context, op string) func(*service.ProposalView, error) {
	return func(view *service.ProposalView, err error) {
		if err != nil {
			h.fail(c, op, err)
			return
		}
		ok200(c, view)
	}
}
