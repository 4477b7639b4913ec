package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-decisions/internal/application/service"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/workflow"
)

// Headers set by the upstream authentication layer
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	optimization service.OptimizationService
	proposals    service.ProposalService
	decisions    service.DecisionService
	cashFlows    service.CashFlowService
	policy       authz.Policy
	logger       Logger
	health       func() map[string]bool
	version      string
}

// NewHandlers creates a new Handlers instance. health may be nil.
func NewHandlers(services Services, logger Logger, health func() map[string]bool, version string) *Handlers {
	return &Handlers{
		optimization: services.Optimization,
		proposals:    services.Proposals,
		decisions:    services.Decisions,
		cashFlows:    services.CashFlows,
		policy:       services.Policy,
		logger:       logger,
		health:       health,
		version:      version,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string          `json:"status"`
	Timestamp  string          `json:"timestamp"`
	Version    string          `json:"version"`
	Components map[string]bool `json:"components,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	code := http.StatusOK
	if h.health != nil {
		response.Components = h.health()
		for _, ok := range response.Components {
			if !ok {
				response.Status = "degraded"
				code = http.StatusServiceUnavailable
				break
			}
		}
	}

	c.JSON(code, Response{
		Success: code == http.StatusOK,
		Data:    response,
	})
}

// ListActions handles GET /api/actions
func (h *Handlers) ListActions(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	actions := h.policy.ActionsFor(actor.Role)
	if actions == nil {
		actions = []authz.Action{}
	}
	ok200(c, gin.H{"role": actor.Role, "actions": actions})
}

// actor resolves the caller from the auth headers, answering 401 when they are unusable
func (h *Handlers) actor(c *gin.Context) (authz.Actor, bool) {
	actor := authz.Actor{
		UserID: c.GetHeader(HeaderUserID),
		Role:   entity.Role(c.GetHeader(HeaderUserRole)),
	}
	if actor.UserID == "" || !actor.Role.IsValid() {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   "missing or invalid caller identity",
		})
		return authz.Actor{}, false
	}
	return actor, true
}

// fail maps an application error onto a status code and writes it
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.Info(op+" rejected", "error", err, "status", code)
	}
	c.JSON(code, Response{Success: false, Error: msg})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, apperror.UserMessage(err)
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed),
		errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperror.ErrPersistence):
		return http.StatusBadGateway, apperror.UserMessage(err)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func ok200(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// pathID parses an int64 path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name+": "+raw)
		return 0, false
	}
	return id, true
}
