package optimizer

import (
	"context"
	"math"
)

// presolve returns the root fixing for a model. A variable is fixed to zero
// when enough other variables dominate it: each dominator is at least as good
// in the objective and no worse in every row, so swapping it in never breaks
// feasibility. If a 0/1 row with capacity k (<= or ==) contains the variable
// and at least k of its dominators, some dominator is always free to swap in,
// and an optimum without the variable exists.
//
// The pairwise scan is quadratic in the pool, so it stops early with ctx.
func presolve(ctx context.Context, m *Model) ([]int8, error) {
	n := m.NumVars()
	fixed := make([]int8, n)
	for i := range fixed {
		fixed[i] = free
	}

	var cardinality []int
	for r, c := range m.Constraints {
		if c.Sense == GreaterEqual || !isZeroOne(c.Coefs) {
			continue
		}
		cardinality = append(cardinality, r)
	}
	if len(cardinality) == 0 {
		return fixed, ctx.Err()
	}

	for j := 0; j < n; j++ {
		if j%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var dominators []int
		for i := 0; i < n; i++ {
			if i != j && dominates(m, i, j) {
				dominators = append(dominators, i)
			}
		}
		if len(dominators) == 0 {
			continue
		}

		for _, r := range cardinality {
			c := m.Constraints[r]
			if c.Coefs[j] != 1 {
				continue
			}
			capacity := int(math.Floor(c.RHS + feasibilityTol))
			inRow := 0
			for _, i := range dominators {
				if c.Coefs[i] == 1 {
					inRow++
				}
			}
			if inRow >= capacity {
				fixed[j] = 0
				break
			}
		}
	}
	return fixed, nil
}

// dominates reports whether variable i can always replace variable j. Ties are
// broken by index so that two identical columns never dominate each other.
func dominates(m *Model, i, j int) bool {
	if m.Objective[i] < m.Objective[j] {
		return false
	}
	strict := m.Objective[i] > m.Objective[j]
	for _, c := range m.Constraints {
		ai, aj := c.Coefs[i], c.Coefs[j]
		switch c.Sense {
		case LessEqual:
			if ai > aj {
				return false
			}
			if ai < aj {
				strict = true
			}
		case GreaterEqual:
			if ai < aj {
				return false
			}
			if ai > aj {
				strict = true
			}
		case Equal:
			if ai != aj {
				return false
			}
		}
	}
	return strict || i < j
}

func isZeroOne(coefs []float64) bool {
	for _, a := range coefs {
		if a != 0 && a != 1 {
			return false
		}
	}
	return true
}
