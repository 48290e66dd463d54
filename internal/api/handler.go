package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dthrottle/spy-leaps-monitor/internal/backtest"
	bterrors "github.com/dthrottle/spy-leaps-monitor/internal/errors"
	"github.com/dthrottle/spy-leaps-monitor/internal/logger"
	"github.com/dthrottle/spy-leaps-monitor/internal/safety"
	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
	"github.com/dthrottle/spy-leaps-monitor/pkg/orchestrator"
	"github.com/dthrottle/spy-leaps-monitor/pkg/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RunReader is the read side of the run store
type RunReader interface {
	LoadRun(ctx context.Context, runID string) (*storage.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]storage.RunRecord, error)
	LoadTrades(ctx context.Context, runID string) ([]backtest.Trade, error)
	LoadSignals(ctx context.Context, runID string) ([]backtest.Signal, error)
	LoadEquity(ctx context.Context, runID string) ([]backtest.EquityPoint, error)
}

// Options configure the handler
type Options struct {
	BaseConfig   config.StrategyConfig // defaults every request starts from
	DataRoot     string                // where {SYMBOL}.csv files are looked up
	MaxSweepSize int                   // upper bound on grid combinations; 0 means unlimited
	RunLimiter   *safety.RateLimiter   // throttles backtest and sweep requests when set
}

// Handler serves the backtest HTTP API
type Handler struct {
	orch orchestrator.Orchestrator
	runs RunReader
	opts Options
	log  *logger.Logger
}

// NewHandler creates a handler
func NewHandler(orch orchestrator.Orchestrator, runs RunReader, opts Options, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{orch: orch, runs: runs, opts: opts, log: log}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api/v1")
	{
		runs := []gin.HandlerFunc{}
		if h.opts.RunLimiter != nil {
			runs = append(runs, rateLimit(h.opts.RunLimiter))
		}
		api.POST("/backtests", append(runs, h.CreateBacktest)...)
		api.POST("/sweeps", append(runs, h.CreateSweep)...)
		api.GET("/runs", h.ListRuns)
		api.GET("/runs/:id", h.GetRun)
		api.GET("/runs/:id/trades", h.GetTrades)
		api.GET("/runs/:id/signals", h.GetSignals)
		api.GET("/runs/:id/equity", h.GetEquity)
	}
}

// BacktestBody is the request body of POST /api/v1/backtests
type BacktestBody struct {
	Params    map[string]float64 `json:"params"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	FromStore bool               `json:"from_store"`
}

// SweepBody is the request body of POST /api/v1/sweeps
type SweepBody struct {
	BacktestBody
	Ranges []config.ParameterRange `json:"ranges" binding:"required,min=1"`
}

// SweepEntry is one combination in a sweep response
type SweepEntry struct {
	Index      int                `json:"index"`
	ID         string             `json:"id"`
	Params     map[string]float64 `json:"params"`
	Metrics    *backtest.Metrics  `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
	DurationMS int64              `json:"duration_ms"`
}

func (h *Handler) buildRequest(body BacktestBody) (orchestrator.BacktestRequest, error) {
	cfg := h.opts.BaseConfig
	for name, value := range body.Params {
		var err error
		if cfg, err = config.ApplyParameter(cfg, name, value); err != nil {
			return orchestrator.BacktestRequest{}, bterrors.NewConfigValidationError("api", "params", err.Error())
		}
	}
	if body.StartDate != "" {
		cfg.StartDate = body.StartDate
	}
	if body.EndDate != "" {
		cfg.EndDate = body.EndDate
	}
	if err := cfg.Validate(); err != nil {
		return orchestrator.BacktestRequest{}, err
	}

	req := orchestrator.BacktestRequest{Config: cfg, FromStore: body.FromStore}
	if !body.FromStore {
		req.DataRoot = h.opts.DataRoot
	}
	return req, nil
}

// CreateBacktest runs a backtest synchronously and returns its summary
func (h *Handler) CreateBacktest(c *gin.Context) {
	var body BacktestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	req, err := h.buildRequest(body)
	if err != nil {
		h.fail(c, "build backtest request", err)
		return
	}

	outcome, err := h.orch.RunBacktest(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "run backtest", err)
		return
	}

	res := outcome.Result
	c.JSON(http.StatusCreated, gin.H{
		"run_id":           outcome.RunID,
		"start_date":       res.StartDate,
		"end_date":         res.EndDate,
		"final_state":      res.FinalState,
		"metrics":          outcome.Metrics,
		"trades":           len(res.Trades),
		"signals":          len(res.Signals),
		"open_positions":   res.OpenPositions,
		"skipped_buys":     len(res.SkippedBuys),
		"data_gaps":        res.DataGaps,
		"missing_vix_days": res.MissingVIXDays,
		"duration_ms":      outcome.Duration.Milliseconds(),
	})
}

// CreateSweep runs a parameter sweep synchronously
func (h *Handler) CreateSweep(c *gin.Context) {
	var body SweepBody
	if err := c.ShouldBindJSON(&body); err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}

	req, err := h.buildRequest(body.BacktestBody)
	if err != nil {
		h.fail(c, "build sweep request", err)
		return
	}

	grid, err := backtest.NewParameterGrid(body.Ranges...)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err)
		return
	}
	if h.opts.MaxSweepSize > 0 && grid.Size() > h.opts.MaxSweepSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sweep has " + strconv.Itoa(grid.Size()) + " combinations, limit is " + strconv.Itoa(h.opts.MaxSweepSize),
		})
		return
	}

	outcome, err := h.orch.RunSweep(c.Request.Context(), req, grid)
	if err != nil {
		h.fail(c, "run sweep", err)
		return
	}

	entries := make([]SweepEntry, len(outcome.Results))
	for i, res := range outcome.Results {
		entries[i] = SweepEntry{
			Index:      res.Index,
			ID:         res.ID,
			Params:     res.Params,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			entries[i].Error = res.Error.Error()
		} else {
			m := res.Metrics
			entries[i].Metrics = &m
		}
	}

	resp := gin.H{
		"sweep_id":    outcome.SweepID,
		"results":     entries,
		"failed":      outcome.Failed,
		"duration_ms": outcome.Duration.Milliseconds(),
	}
	if outcome.Best != nil {
		resp["best"] = entries[outcome.Best.Index]
		resp["best_run_id"] = outcome.BestRunID
	}
	c.JSON(http.StatusCreated, resp)
}

// ListRuns lists stored runs, most recent first
func (h *Handler) ListRuns(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun returns one stored run
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.runs.LoadRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "load run", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetTrades returns the trade log of a stored run
func (h *Handler) GetTrades(c *gin.Context) {
	runID := c.Param("id")
	if _, err := h.runs.LoadRun(c.Request.Context(), runID); err != nil {
		h.fail(c, "load run", err)
		return
	}
	trades, err := h.runs.LoadTrades(c.Request.Context(), runID)
	if err != nil {
		h.fail(c, "load trades", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "trades": trades})
}

// GetSignals returns the signal log of a stored run, optionally filtered by ?type=
func (h *Handler) GetSignals(c *gin.Context) {
	runID := c.Param("id")
	if _, err := h.runs.LoadRun(c.Request.Context(), runID); err != nil {
		h.fail(c, "load run", err)
		return
	}
	signals, err := h.runs.LoadSignals(c.Request.Context(), runID)
	if err != nil {
		h.fail(c, "load signals", err)
		return
	}

	if kind := c.Query("type"); kind != "" {
		filtered := signals[:0]
		for _, s := range signals {
			if string(s.Type) == kind {
				filtered = append(filtered, s)
			}
		}
		signals = filtered
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "signals": signals})
}

// GetEquity returns the daily equity curve of a stored run
func (h *Handler) GetEquity(c *gin.Context) {
	runID := c.Param("id")
	if _, err := h.runs.LoadRun(c.Request.Context(), runID); err != nil {
		h.fail(c, "load run", err)
		return
	}
	equity, err := h.runs.LoadEquity(c.Request.Context(), runID)
	if err != nil {
		h.fail(c, "load equity", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": runID, "equity": equity})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.LogError("❌ "+op, err)
	}
	errorResponse(c, status, err)
}

// statusFor maps error categories to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}

	category, _ := bterrors.CategoryOf(err)
	switch category {
	case bterrors.ErrorCategoryConfigValidation:
		return http.StatusBadRequest
	case bterrors.ErrorCategoryDataInsufficient:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, status int, err error) {
	body := gin.H{"error": err.Error()}
	if category, ok := bterrors.CategoryOf(err); ok {
		body["category"] = category
	}
	c.JSON(status, body)
}
