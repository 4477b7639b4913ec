// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/procurement-decisions/internal/application/service"
	"github.com/garyjia/procurement-decisions/internal/domain/authz"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Observer records request metrics
type Observer interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    6 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Services are the application services the API exposes
type Services struct {
	Optimization service.OptimizationService
	Proposals    service.ProposalService
	Decisions    service.DecisionService
	CashFlows    service.CashFlowService
	Policy       authz.Policy
}

// ServerOption configures optional server collaborators
type ServerOption func(*Server)

// WithMetrics records request metrics and serves /metrics
func WithMetrics(observer Observer, handler http.Handler) ServerOption {
	return func(s *Server) {
		s.observer = observer
		s.metricsHandler = handler
	}
}

// WithHealth sets the component health probe used by /health
func WithHealth(probe func() map[string]bool) ServerOption {
	return func(s *Server) {
		s.health = probe
	}
}

// WithVersion sets the version reported by /health
func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger

	observer       Observer
	metricsHandler http.Handler
	health         func() map[string]bool
	version        string
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
		version:  "dev",
	}
	for _, opt := range opts {
		opt(server)
	}
	if server.services.Policy == nil {
		server.services.Policy = authz.DefaultPolicy()
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware logs every request and feeds the metrics observer
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
			"user_id", c.GetHeader(HeaderUserID),
		)

		if s.observer != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			s.observer.ObserveHTTP(method, route, status, latency)
		}
	}
}

func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger, s.health, s.version)

	s.router.GET("/health", h.HealthCheck)
	if s.metricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	api := s.router.Group("/api")
	{
		api.GET("/actions", h.ListActions)
		api.GET("/excluded-items", h.ExcludedItems)

		// Optimization runs
		api.POST("/optimizations", h.RunOptimization)
		api.GET("/optimizations", h.ListRuns)
		api.GET("/optimizations/:run_id", h.GetRun)

		// Editing sessions
		api.POST("/sessions", h.OpenSession)
		api.GET("/sessions/:id", h.GetSession)
		api.DELETE("/sessions/:id", h.DiscardSession)
		api.PUT("/sessions/:id/lines/:project_id/:item_code", h.EditLine)
		api.DELETE("/sessions/:id/lines/:project_id/:item_code", h.RemoveLine)
		api.POST("/sessions/:id/lines/:project_id/:item_code/restore", h.RestoreLine)
		api.DELETE("/sessions/:id/lines/:project_id/:item_code/edit", h.UndoEdit)
		api.POST("/sessions/:id/added", h.AddLine)
		api.DELETE("/sessions/:id/added/:index", h.UndoAdd)
		api.POST("/sessions/:id/save", h.SaveSession)

		// Decisions
		api.GET("/decisions", h.ListDecisions)
		api.POST("/decisions/finalize", h.Finalize)
		api.POST("/decisions/revert-selection", h.RevertSelection)
		api.POST("/decisions/bulk-revert", h.BulkRevert)
		api.GET("/decisions/:id", h.GetDecision)
		api.GET("/decisions/:id/history", h.DecisionHistory)
		api.GET("/decisions/:id/cashflows", h.DecisionCashFlows)
		api.PUT("/decisions/:id/forecast-invoice", h.SetForecastInvoice)
		api.POST("/decisions/:id/forecast-invoice/preview", h.PreviewInvoiceDate)
		api.POST("/decisions/:id/revert", h.Revert)
		api.POST("/decisions/:id/actual-invoice", h.EnterActualInvoice)
		api.GET("/decisions/:id/variance", h.Variance)
		api.POST("/runs/:run_id/proposals/:name/finalize", h.FinalizeProposal)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
