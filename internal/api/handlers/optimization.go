package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/dfs-lineup/internal/export"
	"github.com/stitts-dev/dfs-lineup/internal/history"
	"github.com/stitts-dev/dfs-lineup/internal/models"
	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
	"github.com/stitts-dev/dfs-lineup/internal/websocket"
	"github.com/stitts-dev/dfs-lineup/pkg/cache"
	"github.com/stitts-dev/dfs-lineup/pkg/config"
	"github.com/stitts-dev/dfs-lineup/pkg/metrics"
)

// OptimizationHandler handles optimization-related endpoints. The cache,
// history store, hub and metrics are optional.
type OptimizationHandler struct {
	engine  *optimizer.Engine
	cache   *cache.OptimizationCacheService
	history *history.Store
	wsHub   *websocket.Hub
	metrics *metrics.Manager
	config  *config.Config
	logger  *logrus.Logger
}

// NewOptimizationHandler creates a new optimization handler
func NewOptimizationHandler(
	engine *optimizer.Engine,
	cache *cache.OptimizationCacheService,
	store *history.Store,
	wsHub *websocket.Hub,
	metrics *metrics.Manager,
	config *config.Config,
	logger *logrus.Logger,
) *OptimizationHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OptimizationHandler{
		engine:  engine,
		cache:   cache,
		history: store,
		wsHub:   wsHub,
		metrics: metrics,
		config:  config,
		logger:  logger,
	}
}

// OptimizeLineup solves one request. With ?format=csv the lineup is returned
// as the platform upload template.
func (h *OptimizationHandler) OptimizeLineup(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	schema, pool, ok := h.prepare(c, &req)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cacheKey := h.cacheKey(schema, pool, &req)
	if cacheKey != "" {
		var cached OptimizeResponse
		err := h.cache.GetOptimizationResult(ctx, cacheKey, &cached)
		switch {
		case err == nil:
			h.metrics.RecordCacheLookup(true)
			h.logger.WithField("cache_key", cacheKey).Info("Returning cached optimization result")
			cached.Cached = true
			h.respond(c, schema, cached)
			return
		case errors.Is(err, cache.ErrCacheMiss):
			h.metrics.RecordCacheLookup(false)
		case errors.Is(err, cache.ErrCircuitOpen):
			h.logger.Debug("Optimization cache circuit open, solving without cache")
		default:
			h.logger.WithError(err).Warn("Failed to read optimization cache")
		}
	}

	optimizationID := uuid.New().String()
	engineReq := optimizer.Request{
		ID:            optimizationID,
		Schema:        schema,
		Pool:          pool,
		Locked:        req.Locked,
		Excluded:      req.Excluded,
		TimeLimit:     h.timeLimit(req.TimeLimitMs),
		NodeLimit:     h.nodeLimit(req.NodeLimit),
		AllowFallback: req.AllowFallback,
	}
	// Progress is only collected for clients already listening.
	if req.ClientID != "" && h.wsHub != nil && h.wsHub.HasClient(req.ClientID) {
		engineReq.Progress = h.progressReporter(req.ClientID, optimizationID)
	}

	start := time.Now()
	res, err := h.engine.Optimize(ctx, engineReq)
	elapsed := time.Since(start)
	if err != nil {
		h.metrics.RecordOptimization(h.engine.Backend(), outcomeOf(err), elapsed, failureNodes(err))
		h.recordFailure(c, engineReq, pool.Len(), err)
		h.notify(req.ClientID, websocket.ProgressUpdate{
			Type:           websocket.TypeFailed,
			OptimizationID: optimizationID,
			Message:        err.Error(),
			ElapsedMs:      elapsed.Milliseconds(),
		})
		h.writeError(c, err)
		return
	}

	outcome := metrics.OutcomeOptimal
	if res.Fallback {
		outcome = metrics.OutcomeFallback
	}
	h.metrics.RecordOptimization(h.engine.Backend(), outcome, elapsed, res.Solution.Nodes)
	h.recordResult(c, engineReq, pool.Len(), res)

	response := newOptimizeResponse(schema, res)
	// Fallback lineups are not proven optimal and are not cached.
	if cacheKey != "" && !res.Fallback {
		if err := h.cache.SetOptimizationResult(ctx, cacheKey, &response); err != nil {
			h.logger.WithError(err).Warn("Failed to cache optimization result")
		}
	}

	h.notify(req.ClientID, websocket.ProgressUpdate{
		Type:           websocket.TypeCompleted,
		OptimizationID: optimizationID,
		Nodes:          res.Solution.Nodes,
		Incumbent:      res.Solution.TotalPoints,
		HasIncumbent:   true,
		ElapsedMs:      elapsed.Milliseconds(),
		Message:        fmt.Sprintf("Lineup found with %.2f projected points", res.Solution.TotalPoints),
	})

	h.logger.WithFields(logrus.Fields{
		"optimization_id": optimizationID,
		"schema":          schema.ID,
		"total_points":    res.Solution.TotalPoints,
		"fallback":        res.Fallback,
		"execution_time":  elapsed,
		"client_id":       req.ClientID,
	}).Info("Optimization completed successfully")

	h.respond(c, schema, response)
}

// ValidateOptimizationRequest builds the model for a request without solving
// it.
func (h *OptimizationHandler) ValidateOptimizationRequest(c *gin.Context) {
	var req OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request format",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return
	}

	schema, pool, ok := h.prepare(c, &req)
	if !ok {
		return
	}

	model, err := optimizer.Build(schema, pool,
		optimizer.WithLocked(req.Locked...),
		optimizer.WithExcluded(req.Excluded...),
	)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Optimization request is valid",
		Data: ValidateResponse{
			Schema:      schema.ID,
			Players:     pool.Len(),
			RosterSize:  schema.RosterSize(),
			SalaryCap:   schema.SalaryCap,
			Variables:   model.NumVars(),
			Constraints: len(model.Constraints),
		},
	})
}

// GetCacheStatus returns cache statistics
func (h *OptimizationHandler) GetCacheStatus(c *gin.Context) {
	if h.cache == nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "configured": false})
		return
	}
	c.JSON(http.StatusOK, h.cache.GetStatus(c.Request.Context()))
}

// prepare resolves the schema and builds the pool, writing a 4xx response
// when either is unusable.
func (h *OptimizationHandler) prepare(c *gin.Context, req *OptimizeRequest) (optimizer.Schema, *optimizer.Pool, bool) {
	var schema optimizer.Schema
	switch {
	case req.Schema != nil:
		schema = *req.Schema
		if schema.ID == "" {
			schema.ID = "custom"
		}
	case req.SchemaID != "":
		var found bool
		schema, found = optimizer.LookupSchema(req.SchemaID)
		if !found {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "Unknown schema",
				Code:  "SCHEMA_NOT_FOUND",
				Details: map[string]string{
					"schema_id": req.SchemaID,
				},
			})
			return schema, nil, false
		}
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Either schema_id or schema is required",
			Code:  "INVALID_REQUEST",
		})
		return schema, nil, false
	}
	if req.SalaryCap > 0 {
		schema = schema.WithSalaryCap(req.SalaryCap)
	}

	if h.config != nil && h.config.MaxPoolSize > 0 && len(req.Players) > h.config.MaxPoolSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Player pool too large",
			Code:  "POOL_TOO_LARGE",
			Details: map[string]string{
				"players": fmt.Sprint(len(req.Players)),
				"max":     fmt.Sprint(h.config.MaxPoolSize),
			},
		})
		return schema, nil, false
	}

	pool, err := optimizer.NewPool(req.players(schema))
	if err != nil {
		h.writeError(c, err)
		return schema, nil, false
	}
	return schema, pool, true
}

func (h *OptimizationHandler) respond(c *gin.Context, schema optimizer.Schema, resp OptimizeResponse) {
	if c.Query("format") != "csv" {
		c.JSON(http.StatusOK, resp)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteTemplate(&buf, schema, resp.Lineup); err != nil {
		h.logger.WithError(err).Error("Failed to write upload template")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to export lineup",
			Code:  "EXPORT_ERROR",
		})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=lineup_%s.csv", schema.ID))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// cacheKey is empty when caching is off. Locked and excluded IDs are sorted
// so their order does not split the cache.
func (h *OptimizationHandler) cacheKey(schema optimizer.Schema, pool *optimizer.Pool, req *OptimizeRequest) string {
	if h.cache == nil {
		return ""
	}
	locked := append([]string(nil), req.Locked...)
	excluded := append([]string(nil), req.Excluded...)
	sort.Strings(locked)
	sort.Strings(excluded)

	key, err := cache.RequestKey(h.engine.Backend(), schema, pool.Players(), locked, excluded)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to compute cache key")
		return ""
	}
	return key
}

func (h *OptimizationHandler) timeLimit(requestedMs int64) time.Duration {
	var limit time.Duration
	if h.config != nil {
		limit = h.config.SolverTimeLimit
	}
	requested := time.Duration(requestedMs) * time.Millisecond
	if requested > 0 && (limit == 0 || requested < limit) {
		return requested
	}
	return limit
}

func (h *OptimizationHandler) nodeLimit(requested int) int {
	var limit int
	if h.config != nil {
		limit = h.config.SolverNodeLimit
	}
	if requested > 0 && (limit == 0 || requested < limit) {
		return requested
	}
	return limit
}

// progressReporter forwards solver progress to one client, at most one update
// per PROGRESS_INTERVAL. Completion and failure notices are not throttled.
func (h *OptimizationHandler) progressReporter(clientID, optimizationID string) func(optimizer.Progress) {
	var interval time.Duration
	if h.config != nil {
		interval = h.config.ProgressInterval
	}
	return throttle(interval, func(p optimizer.Progress) {
		h.wsHub.SendToClient(clientID, websocket.ProgressUpdate{
			Type:           websocket.TypeProgress,
			OptimizationID: optimizationID,
			Nodes:          p.Nodes,
			Incumbent:      p.Incumbent,
			HasIncumbent:   p.HasBest,
			ElapsedMs:      p.Elapsed.Milliseconds(),
			Timestamp:      time.Now(),
		})
	})
}

// throttle drops calls that arrive within interval of the last one passed
// through. A zero interval passes everything.
func throttle(interval time.Duration, fn func(optimizer.Progress)) func(optimizer.Progress) {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	return func(p optimizer.Progress) {
		if limiter.Allow() {
			fn(p)
		}
	}
}

func (h *OptimizationHandler) notify(clientID string, update websocket.ProgressUpdate) {
	if clientID == "" || h.wsHub == nil {
		return
	}
	update.Timestamp = time.Now()
	h.wsHub.SendToClient(clientID, update)
}

func (h *OptimizationHandler) recordResult(c *gin.Context, req optimizer.Request, poolSize int, res *optimizer.Result) {
	if h.history == nil {
		return
	}
	h.record(c, req, history.RunFromResult(req.Schema, poolSize, res))
}

// recordFailure keeps runs that reached the solver or the slot assigner.
// Requests rejected while building the model are not runs.
func (h *OptimizationHandler) recordFailure(c *gin.Context, req optimizer.Request, poolSize int, err error) {
	if h.history == nil {
		return
	}
	if !errors.Is(err, optimizer.ErrInfeasible) && !errors.Is(err, optimizer.ErrTimedOut) && !errors.Is(err, optimizer.ErrSlotMismatch) {
		return
	}
	run := history.RunFromError(req.Schema, poolSize, h.engine.Backend(), err)
	run.ID = req.ID
	h.record(c, req, run)
}

func (h *OptimizationHandler) record(c *gin.Context, req optimizer.Request, run *models.OptimizationRun) {
	if err := history.SetParams(run, history.ParamsFromRequest(req)); err != nil {
		h.logger.WithError(err).Warn("Failed to encode run params")
	}
	if err := h.history.Record(c.Request.Context(), run); err != nil {
		h.logger.WithError(err).Warn("Failed to record optimization run")
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, optimizer.ErrInfeasible):
		return metrics.OutcomeInfeasible
	case errors.Is(err, optimizer.ErrTimedOut):
		return metrics.OutcomeTimedOut
	}
	return metrics.OutcomeError
}

func failureNodes(err error) int {
	var failure *optimizer.SolveFailure
	if errors.As(err, &failure) {
		return failure.Nodes
	}
	return 0
}
