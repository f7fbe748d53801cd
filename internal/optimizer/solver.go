package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Status is the raw outcome reported by a solver backend.
type Status int

const (
	StatusOptimal Status = iota + 1
	StatusInfeasible
	// StatusAborted means the search stopped on its time, node or context
	// budget before proving anything.
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusAborted:
		return "aborted"
	}
	return "unknown"
}

// Progress is reported periodically while a backend searches.
type Progress struct {
	Nodes     int           `json:"nodes"`
	Incumbent float64       `json:"incumbent"`
	HasBest   bool          `json:"has_best"`
	Elapsed   time.Duration `json:"elapsed"`
}

// SolveOptions bound a single solve.
type SolveOptions struct {
	TimeLimit time.Duration
	NodeLimit int
	Progress  func(Progress)
}

// SolveResult is what a backend returns. X holds 0/1 values when an incumbent
// exists, even for aborted searches.
type SolveResult struct {
	Status    Status
	X         []int
	Objective float64
	Nodes     int
	Elapsed   time.Duration
	Reason    string
}

// Solver is a swappable MILP backend.
type Solver interface {
	Name() string
	Solve(ctx context.Context, m *Model, opts SolveOptions) (*SolveResult, error)
}

// Solution is the selected player set for one solve. It is never modified
// after construction.
type Solution struct {
	Players     []Player      `json:"players"`
	TotalPoints float64       `json:"total_points"`
	TotalSalary int           `json:"total_salary"`
	Optimal     bool          `json:"optimal"`
	Backend     string        `json:"backend"`
	Nodes       int           `json:"nodes"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Contains reports whether the player is part of the solution.
func (s *Solution) Contains(id string) bool {
	for _, p := range s.Players {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Invoke runs the solver and turns its outcome into either an optimal Solution
// or a SolveFailure. Nothing short of a proven optimum is returned as a
// Solution; an aborted search's incumbent travels in SolveFailure.Best.
func Invoke(ctx context.Context, solver Solver, m *Model, opts SolveOptions) (*Solution, error) {
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}

	res, err := solver.Solve(ctx, m, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &SolveFailure{Kind: FailureTimedOut, Reason: err.Error(), Cause: err}
		}
		return nil, fmt.Errorf("%s solver: %w", solver.Name(), err)
	}

	switch res.Status {
	case StatusOptimal:
		sol, err := newSolution(m, res, solver.Name(), true)
		if err != nil {
			return nil, err
		}
		return sol, nil

	case StatusInfeasible:
		reason := res.Reason
		if reason == "" {
			reason = "no selection satisfies every roster, quota and salary constraint"
		}
		return nil, &SolveFailure{
			Kind:    FailureInfeasible,
			Reason:  reason,
			Nodes:   res.Nodes,
			Elapsed: res.Elapsed,
		}

	case StatusAborted:
		failure := &SolveFailure{
			Kind:    FailureTimedOut,
			Reason:  res.Reason,
			Nodes:   res.Nodes,
			Elapsed: res.Elapsed,
		}
		if res.X != nil {
			if best, err := newSolution(m, res, solver.Name(), false); err == nil {
				failure.Best = best
			}
		}
		return nil, failure
	}

	return nil, fmt.Errorf("%s solver returned unknown status %d", solver.Name(), res.Status)
}

func newSolution(m *Model, res *SolveResult, backend string, optimal bool) (*Solution, error) {
	if len(res.X) != m.NumVars() {
		return nil, fmt.Errorf("%s solver returned %d values for %d variables", backend, len(res.X), m.NumVars())
	}
	if !m.Feasible(res.X) {
		return nil, fmt.Errorf("%s solver returned a point that violates the model", backend)
	}

	sol := &Solution{
		Optimal: optimal,
		Backend: backend,
		Nodes:   res.Nodes,
		Elapsed: res.Elapsed,
	}
	for i, v := range res.X {
		if v != 1 {
			continue
		}
		p := m.Player(i)
		sol.Players = append(sol.Players, p)
		sol.TotalPoints += p.ProjectedPoints
		sol.TotalSalary += p.Salary
	}
	sort.Slice(sol.Players, func(i, j int) bool {
		return sol.Players[i].ID < sol.Players[j].ID
	})
	return sol, nil
}
