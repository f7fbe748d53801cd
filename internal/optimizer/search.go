package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

const free int8 = -1

// progressEvery is how many nodes pass between progress callbacks.
const progressEvery = 256

// search holds state shared by the tree-search backends: the incumbent, node
// accounting and budget checks.
type search struct {
	m     *Model
	opts  SolveOptions
	start time.Time

	nodes   int
	best    []int
	bestObj float64
	hasBest bool
}

func newSearch(m *Model, opts SolveOptions) *search {
	return &search{m: m, opts: opts, start: time.Now()}
}

// exhausted reports whether the search must stop, and why.
func (s *search) exhausted(ctx context.Context) (bool, string) {
	if err := ctx.Err(); err != nil {
		return true, err.Error()
	}
	if s.opts.NodeLimit > 0 && s.nodes >= s.opts.NodeLimit {
		return true, fmt.Sprintf("node limit %d reached", s.opts.NodeLimit)
	}
	return false, ""
}

func (s *search) visit() {
	s.nodes++
	if s.nodes%progressEvery == 0 {
		s.report()
	}
}

func (s *search) report() {
	if s.opts.Progress == nil {
		return
	}
	s.opts.Progress(Progress{
		Nodes:     s.nodes,
		Incumbent: s.bestObj,
		HasBest:   s.hasBest,
		Elapsed:   time.Since(s.start),
	})
}

// offer records x as the incumbent when it is feasible and strictly better.
// It reports whether x was feasible.
func (s *search) offer(x []int) bool {
	if !s.m.Feasible(x) {
		return false
	}
	obj := s.m.ObjectiveValue(x)
	if !s.hasBest || obj > s.bestObj+feasibilityTol {
		s.best = append([]int(nil), x...)
		s.bestObj = obj
		s.hasBest = true
		s.report()
	}
	return true
}

// prunable reports whether a node whose relaxation is worth bound cannot beat
// the incumbent.
func (s *search) prunable(bound float64) bool {
	if !s.hasBest {
		return false
	}
	return bound <= s.bestObj+feasibilityTol*math.Max(1, math.Abs(s.bestObj))
}

// result closes the search and sends a final progress update.
func (s *search) result(status Status, reason string) *SolveResult {
	s.report()
	res := &SolveResult{
		Status:  status,
		Nodes:   s.nodes,
		Elapsed: time.Since(s.start),
		Reason:  reason,
	}
	if s.hasBest {
		res.X = s.best
		res.Objective = s.bestObj
	}
	return res
}

// finish reports optimal when an incumbent exists after a complete search.
func (s *search) finish() *SolveResult {
	if s.hasBest {
		return s.result(StatusOptimal, "")
	}
	return s.result(StatusInfeasible, "search exhausted without a feasible lineup")
}

func (s *search) fixedObjective(fixed []int8) float64 {
	total := 0.0
	for i, v := range fixed {
		if v == 1 {
			total += s.m.Objective[i]
		}
	}
	return total
}

// optimisticBound relaxes every constraint except one 0/1 capacity row at a
// time, taking the tightest result.
func (s *search) optimisticBound(fixed []int8) float64 {
	base := s.fixedObjective(fixed)
	loose := 0.0
	for i, v := range fixed {
		if v == free && s.m.Objective[i] > 0 {
			loose += s.m.Objective[i]
		}
	}
	bound := base + loose

	for _, c := range s.m.Constraints {
		if c.Sense == GreaterEqual || !isZeroOne(c.Coefs) {
			continue
		}
		room := int(math.Floor(c.RHS + feasibilityTol))
		var inRow []float64
		outside := 0.0
		for i, v := range fixed {
			switch {
			case v == 1 && c.Coefs[i] == 1:
				room--
			case v == free && s.m.Objective[i] > 0:
				if c.Coefs[i] == 1 {
					inRow = append(inRow, s.m.Objective[i])
				} else {
					outside += s.m.Objective[i]
				}
			}
		}
		if room < 0 {
			room = 0
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(inRow)))
		if len(inRow) > room {
			inRow = inRow[:room]
		}
		candidate := base + outside
		for _, v := range inRow {
			candidate += v
		}
		if candidate < bound {
			bound = candidate
		}
	}
	return bound
}

// propagate tightens fixed in place using activity ranges and reports false
// when some row can no longer be satisfied.
func (s *search) propagate(fixed []int8) bool {
	for changed := true; changed; {
		changed = false
		for _, c := range s.m.Constraints {
			lo, hi := 0.0, 0.0
			for i, a := range c.Coefs {
				switch fixed[i] {
				case 1:
					lo += a
					hi += a
				case free:
					if a < 0 {
						lo += a
					} else {
						hi += a
					}
				}
			}

			upper := c.Sense == LessEqual || c.Sense == Equal
			lower := c.Sense == GreaterEqual || c.Sense == Equal
			if upper && lo > c.RHS+feasibilityTol {
				return false
			}
			if lower && hi < c.RHS-feasibilityTol {
				return false
			}

			for i, a := range c.Coefs {
				if fixed[i] != free || a == 0 {
					continue
				}
				if upper {
					if a > 0 && lo+a > c.RHS+feasibilityTol {
						fixed[i] = 0
						changed = true
						continue
					}
					if a < 0 && lo-a > c.RHS+feasibilityTol {
						fixed[i] = 1
						changed = true
						continue
					}
				}
				if lower {
					if a > 0 && hi-a < c.RHS-feasibilityTol {
						fixed[i] = 1
						changed = true
						continue
					}
					if a < 0 && hi+a < c.RHS-feasibilityTol {
						fixed[i] = 0
						changed = true
					}
				}
			}
			if changed {
				break
			}
		}
	}
	return true
}

func firstFree(fixed []int8) int {
	for i, v := range fixed {
		if v == free {
			return i
		}
	}
	return -1
}

// bestFree picks the free variable with the highest objective coefficient.
func (s *search) bestFree(fixed []int8) int {
	pick := -1
	for i, v := range fixed {
		if v != free {
			continue
		}
		if pick < 0 || s.m.Objective[i] > s.m.Objective[pick] {
			pick = i
		}
	}
	return pick
}

func toIntegral(fixed []int8) []int {
	x := make([]int, len(fixed))
	for i, v := range fixed {
		if v == 1 {
			x[i] = 1
		}
	}
	return x
}

func withFixed(fixed []int8, i int, v int8) []int8 {
	child := append([]int8(nil), fixed...)
	child[i] = v
	return child
}
