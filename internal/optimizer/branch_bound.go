package optimizer

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
)

const integralTol = 1e-6

// BranchAndBound is a depth-first branch-and-bound MILP backend. Each node is
// bounded by its LP relaxation, solved by dual simplex from the parent's
// optimal tableau. When the simplex gives up the node falls back to a
// constraint-free bound, which is weaker but never wrong.
type BranchAndBound struct {
	Logger *logrus.Entry
}

// NewBranchAndBound returns a backend logging through logger (may be nil).
func NewBranchAndBound(logger *logrus.Entry) *BranchAndBound {
	return &BranchAndBound{Logger: logger}
}

func (b *BranchAndBound) Name() string {
	return "branch-and-bound"
}

// bbNode is an open subproblem. parent is the solved relaxation of the node
// it was split from and is shared, read-only, by both children.
type bbNode struct {
	fixed  []int8
	parent *relaxation
}

func (b *BranchAndBound) Solve(ctx context.Context, m *Model, opts SolveOptions) (*SolveResult, error) {
	s := newSearch(m, opts)
	root, err := presolve(ctx, m)
	if err != nil {
		return s.result(StatusAborted, err.Error()), nil
	}
	if s.propagate(root) {
		s.seed(ctx, root)
	}

	fallbacks := 0
	stack := []bbNode{{fixed: root}}
	for len(stack) > 0 {
		if stop, reason := s.exhausted(ctx); stop {
			return s.result(StatusAborted, reason), nil
		}

		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.visit()

		fixed := nd.fixed
		if !s.propagate(fixed) {
			continue
		}
		if firstFree(fixed) < 0 {
			s.offer(toIntegral(fixed))
			continue
		}

		var lp *relaxation
		if nd.parent != nil {
			lp = nd.parent.clone()
		} else {
			lp = newRelaxation(m)
		}
		lp.fix(fixed)

		var bound float64
		switch lp.solve(ctx) {
		case relaxAborted:
			reason := "context done"
			if err := ctx.Err(); err != nil {
				reason = err.Error()
			}
			return s.result(StatusAborted, reason), nil
		case relaxInfeasible:
			continue
		case relaxFailed:
			fallbacks++
			bound = s.optimisticBound(fixed)
			lp = nil
		default:
			bound = lp.objective()
		}
		if s.prunable(bound) {
			continue
		}

		branch, prefer := -1, int8(1)
		if lp != nil {
			x := lp.point()
			if point, ok := rounded(x, fixed); ok && s.offer(point) {
				continue
			}
			s.fixByReducedCost(lp, bound, fixed)
			branch = mostFractional(x, fixed)
			if branch >= 0 && x[branch] < 0.5 {
				prefer = 0
			}
		}
		if branch < 0 {
			branch = s.bestFree(fixed)
		}
		if branch < 0 {
			// Reduced-cost fixing settled every variable.
			stack = append(stack, bbNode{fixed: fixed, parent: lp})
			continue
		}

		// The preferred side is pushed last so it is explored first.
		stack = append(stack,
			bbNode{fixed: withFixed(fixed, branch, 1-prefer), parent: lp},
			bbNode{fixed: withFixed(fixed, branch, prefer), parent: lp},
		)
	}

	if b.Logger != nil && fallbacks > 0 {
		b.Logger.WithFields(logrus.Fields{
			"nodes":     s.nodes,
			"fallbacks": fallbacks,
		}).Debug("LP relaxation fell back to optimistic bound")
	}
	return s.finish(), nil
}

// fixByReducedCost fixes nonbasic variables whose move to the other bound
// would drop the node's relaxation to the incumbent or below.
func (s *search) fixByReducedCost(lp *relaxation, bound float64, fixed []int8) {
	if !s.hasBest {
		return
	}
	for j := 0; j < lp.vars; j++ {
		if fixed[j] != free || lp.row[j] >= 0 {
			continue
		}
		d := lp.reduced[j]
		if lp.upper[j] {
			if s.prunable(bound - d) {
				fixed[j] = 1
			}
		} else if s.prunable(bound + d) {
			fixed[j] = 0
		}
	}
}

// rounded returns the integer point of an LP solution that is already
// integral on every free variable.
func rounded(x []float64, fixed []int8) ([]int, bool) {
	point := make([]int, len(x))
	for i, v := range x {
		r := math.Round(v)
		if fixed[i] == free && math.Abs(v-r) > integralTol {
			return nil, false
		}
		if r >= 1 {
			point[i] = 1
		}
	}
	return point, true
}

func mostFractional(x []float64, fixed []int8) int {
	pick, dist := -1, math.Inf(1)
	for i, v := range x {
		if fixed[i] != free {
			continue
		}
		frac := v - math.Floor(v)
		if frac < integralTol || frac > 1-integralTol {
			continue
		}
		if d := math.Abs(frac - 0.5); d < dist {
			pick, dist = i, d
		}
	}
	return pick
}
