package optimizer

import (
	"context"
	"fmt"
)

// DefaultEnumerationLimit caps the free variables Enumerator accepts after
// presolve.
const DefaultEnumerationLimit = 48

// Enumerator is an exhaustive backend for small pools. It walks every 0/1
// assignment that survives propagation, bounded only by the objective.
type Enumerator struct {
	MaxFree int
}

func (e *Enumerator) Name() string {
	return "enumerate"
}

func (e *Enumerator) Solve(ctx context.Context, m *Model, opts SolveOptions) (*SolveResult, error) {
	s := newSearch(m, opts)
	root, err := presolve(ctx, m)
	if err != nil {
		return s.result(StatusAborted, err.Error()), nil
	}

	limit := e.MaxFree
	if limit <= 0 {
		limit = DefaultEnumerationLimit
	}
	open := 0
	for _, v := range root {
		if v == free {
			open++
		}
	}
	if open > limit {
		return nil, fmt.Errorf("enumeration over %d free variables exceeds limit %d", open, limit)
	}

	stack := [][]int8{root}
	for len(stack) > 0 {
		if stop, reason := s.exhausted(ctx); stop {
			return s.result(StatusAborted, reason), nil
		}

		fixed := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.visit()

		if !s.propagate(fixed) {
			continue
		}
		if s.prunable(s.optimisticBound(fixed)) {
			continue
		}
		i := s.bestFree(fixed)
		if i < 0 {
			s.offer(toIntegral(fixed))
			continue
		}
		stack = append(stack, withFixed(fixed, i, 0), withFixed(fixed, i, 1))
	}
	return s.finish(), nil
}
