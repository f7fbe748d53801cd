package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

// writeError maps optimizer errors onto HTTP responses:
//
//	invalid pool, unknown or conflicting player ids -> 400
//	schema errors, infeasible                      -> 422
//	solver budget exhausted                        -> 503
//	slot mismatch and anything else                -> 500
func (h *OptimizationHandler) writeError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	entry := h.logger.WithError(err).WithFields(logrus.Fields{
		"status": status,
		"code":   body.Code,
	})
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		entry.Error("Optimization failed")
	} else {
		entry.Info("Optimization request rejected")
	}
	c.JSON(status, body)
}

func errorResponse(err error) (int, ErrorResponse) {
	var (
		failure   *optimizer.SolveFailure
		schemaErr *optimizer.SchemaError
		assignErr *optimizer.AssignmentError
	)

	switch {
	case errors.As(err, &failure):
		details := map[string]string{"reason": failure.Reason}
		if errors.As(failure.Cause, &schemaErr) {
			details["schema"] = schemaErr.Schema
		}
		if failure.Kind == optimizer.FailureTimedOut {
			return http.StatusServiceUnavailable, ErrorResponse{
				Error:   "Solver budget exhausted before a lineup was proven optimal",
				Code:    "TIMED_OUT",
				Details: details,
			}
		}
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "No lineup satisfies the roster rules and salary cap",
			Code:    "INFEASIBLE",
			Details: details,
		}

	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error: "Invalid roster schema",
			Code:  "SCHEMA_ERROR",
			Details: map[string]string{
				"schema": schemaErr.Schema,
				"reason": schemaErr.Reason,
			},
		}

	case errors.As(err, &assignErr):
		details := map[string]string{}
		if len(assignErr.UnfilledSlots) > 0 {
			details["unfilled_slots"] = strings.Join(assignErr.UnfilledSlots, ",")
		}
		if len(assignErr.UnassignedPlayers) > 0 {
			details["unassigned_players"] = strings.Join(assignErr.UnassignedPlayers, ",")
		}
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "Selected players could not be placed in roster slots",
			Code:    "SLOT_MISMATCH",
			Details: details,
		}

	case errors.Is(err, optimizer.ErrInvalidPool):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid player pool",
			Code:    "INVALID_POOL",
			Details: map[string]string{"validation_error": err.Error()},
		}

	case errors.Is(err, optimizer.ErrUnknownPlayer), errors.Is(err, optimizer.ErrLockConflict):
		return http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid locked or excluded players",
			Code:    "INVALID_LOCKS",
			Details: map[string]string{"validation_error": err.Error()},
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   "Optimization failed",
		Code:    "OPTIMIZATION_ERROR",
		Details: map[string]string{"error": err.Error()},
	}
}
