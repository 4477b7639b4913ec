// Package optimizer calls the external procurement optimization service.
package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
)

const optimizePath = "/api/v1/optimize"

// Config holds optimizer client settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements port.Optimizer over HTTP/JSON
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new optimizer client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// errorBody is the optimizer's error envelope
type errorBody struct {
	Detail string `json:"detail"`
	Error  string `json:"error"`
}

// RunOptimization posts cfg and decodes the run. The solver's own time limit
// bounds the call; ctx cancellation aborts it early.
func (c *Client) RunOptimization(ctx context.Context, cfg entity.OptimizationConfig) (*entity.OptimizationRun, error) {
	if cfg.ExcludedItems == nil {
		cfg.ExcludedItems = []entity.LineKey{}
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode optimization config: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+optimizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build optimizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Optimizer request failed", zap.Error(err))
		return nil, fmt.Errorf("optimizer request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(payload))
		var eb errorBody
		if json.Unmarshal(payload, &eb) == nil {
			if eb.Detail != "" {
				msg = eb.Detail
			} else if eb.Error != "" {
				msg = eb.Error
			}
		}
		c.logger.Error("Optimizer returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("detail", msg))
		return nil, fmt.Errorf("optimizer returned %d: %s", resp.StatusCode, msg)
	}

	var run entity.OptimizationRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode optimizer response: %w", err)
	}

	c.logger.Info("Optimization completed",
		zap.String("run_id", run.RunID),
		zap.String("status", string(run.Status)),
		zap.Int("proposals", len(run.Proposals)),
		zap.Int("excluded_items", len(cfg.ExcludedItems)),
		zap.Duration("elapsed", time.Since(start)))
	return &run, nil
}

// Verify interface compliance
var _ port.Optimizer = (*Client)(nil)
