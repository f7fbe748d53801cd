package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-lineup/internal/history"
)

// HistoryHandler lists past optimization runs. It answers 503 when no
// database is configured.
type HistoryHandler struct {
	store  *history.Store
	logger *logrus.Logger
}

func NewHistoryHandler(store *history.Store, logger *logrus.Logger) *HistoryHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &HistoryHandler{store: store, logger: logger}
}

// ListRuns handles GET /history?schema=...&limit=...
func (h *HistoryHandler) ListRuns(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "limit must be a positive integer",
				Code:    "INVALID_REQUEST",
				Details: map[string]string{"limit": raw},
			})
			return
		}
		limit = n
	}

	runs, err := h.store.Recent(c.Request.Context(), c.Query("schema"), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list optimization runs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to list optimization runs",
			Code:  "DATABASE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun handles GET /history/:id
func (h *HistoryHandler) GetRun(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	run, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "Optimization run not found",
			Code:  "NOT_FOUND",
		})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load optimization run")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Failed to load optimization run",
			Code:  "DATABASE_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *HistoryHandler) enabled(c *gin.Context) bool {
	if h.store != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Error: "Optimization history requires a database",
		Code:  "HISTORY_DISABLED",
	})
	return false
}
