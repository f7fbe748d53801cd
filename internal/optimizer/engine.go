package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dfs-lineup/pkg/logger"
)

// Backend names accepted by NewSolver.
const (
	BackendBranchAndBound = "branch-and-bound"
	BackendEnumerate      = "enumerate"
)

// NewSolver returns the backend registered under name.
func NewSolver(name string, log *logrus.Entry) (Solver, error) {
	switch name {
	case "", BackendBranchAndBound:
		return NewBranchAndBound(log), nil
	case BackendEnumerate:
		return &Enumerator{}, nil
	}
	return nil, fmt.Errorf("unknown solver backend %q", name)
}

// Request is one optimization: a schema, a pool and the solve budget.
type Request struct {
	// ID names the run in logs and in the Result. A new UUID is used when empty.
	ID        string
	Schema    Schema
	Pool      *Pool
	Locked    []string
	Excluded  []string
	TimeLimit time.Duration
	NodeLimit int
	// AllowFallback returns the best lineup found so far when the budget runs
	// out, instead of failing with TimedOut.
	AllowFallback bool
	Progress      func(Progress)
}

// Result is a solved and slotted lineup.
type Result struct {
	OptimizationID string      `json:"optimization_id"`
	Solution       *Solution   `json:"solution"`
	Assignment     *Assignment `json:"assignment"`
	// Fallback is set when the lineup is an unproven incumbent.
	Fallback bool `json:"fallback"`
}

// Engine runs Build, Invoke and Assign in sequence. It holds no per-request
// state and may be shared between goroutines.
type Engine struct {
	solver Solver
}

func NewEngine(solver Solver) *Engine {
	return &Engine{solver: solver}
}

// Backend returns the name of the engine's solver.
func (e *Engine) Backend() string {
	return e.solver.Name()
}

// Optimize builds a fresh model for req, solves it and assigns slots.
func (e *Engine) Optimize(ctx context.Context, req Request) (*Result, error) {
	optimizationID := req.ID
	if optimizationID == "" {
		optimizationID = uuid.New().String()
	}
	log := logger.WithOptimizationContext(optimizationID, req.Schema.Sport, req.Schema.Platform)

	if req.Pool == nil {
		return nil, fmt.Errorf("%w: no pool", ErrInvalidPool)
	}
	log.WithFields(logrus.Fields{
		"schema":     req.Schema.ID,
		"pool_size":  req.Pool.Len(),
		"salary_cap": req.Schema.SalaryCap,
		"backend":    e.solver.Name(),
		"locked":     len(req.Locked),
		"excluded":   len(req.Excluded),
	}).Info("Starting optimization")

	model, err := Build(req.Schema, req.Pool, WithLocked(req.Locked...), WithExcluded(req.Excluded...))
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) && schemaErr.Unsatisfiable {
			log.WithError(err).Warn("Pool cannot satisfy schema")
			return nil, &SolveFailure{Kind: FailureInfeasible, Reason: schemaErr.Reason, Cause: err}
		}
		log.WithError(err).Error("Failed to build model")
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"variables":   model.NumVars(),
		"constraints": len(model.Constraints),
	}).Debug("Model built")

	sol, err := Invoke(ctx, e.solver, model, SolveOptions{
		TimeLimit: req.TimeLimit,
		NodeLimit: req.NodeLimit,
		Progress:  req.Progress,
	})
	fallback := false
	if err != nil {
		var failure *SolveFailure
		if !errors.As(err, &failure) {
			log.WithError(err).Error("Solver failed")
			return nil, err
		}
		if failure.Kind != FailureTimedOut || !req.AllowFallback || failure.Best == nil {
			log.WithFields(logrus.Fields{
				"kind":  failure.Kind.String(),
				"nodes": failure.Nodes,
			}).WithError(err).Warn("No optimal lineup")
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"nodes":  failure.Nodes,
			"points": failure.Best.TotalPoints,
		}).Warn("Budget exhausted, returning best lineup found")
		sol = failure.Best
		fallback = true
	}

	assignment, err := Assign(sol, req.Schema)
	if err != nil {
		log.WithError(err).Error("Failed to assign slots")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"total_points": sol.TotalPoints,
		"total_salary": sol.TotalSalary,
		"nodes":        sol.Nodes,
		"elapsed_ms":   sol.Elapsed.Milliseconds(),
		"fallback":     fallback,
	}).Info("Optimization completed")

	return &Result{
		OptimizationID: optimizationID,
		Solution:       sol,
		Assignment:     assignment,
		Fallback:       fallback,
	}, nil
}
