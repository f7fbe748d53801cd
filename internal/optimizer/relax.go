package optimizer

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	primalTol = 1e-9
	pivotTol  = 1e-9

	// cancelEvery is how many pivots pass between context checks.
	cancelEvery = 16
)

type relaxOutcome int

const (
	relaxSolved relaxOutcome = iota
	relaxInfeasible
	relaxFailed
	relaxAborted
)

// relaxation is the LP relaxation of a model in bounded tableau form. Row r
// reads A_r·x + s_r = b_r with one slack per row, and every column carries its
// own bounds, so fixing a variable moves bounds instead of adding rows.
//
// The tableau is kept dual feasible and solved with the dual simplex method.
// A child node starts from a copy of its parent's optimal tableau and usually
// needs only a few pivots.
type relaxation struct {
	rows, vars int

	// tab is B⁻¹[A | I], rows × (vars+rows).
	tab   *mat.Dense
	basis []int
	// row maps a basic column to its row and holds -1 for nonbasic columns.
	row   []int
	value []float64
	lo    []float64
	hi    []float64
	// upper marks nonbasic columns resting on their upper bound.
	upper   []bool
	reduced []float64
	cost    []float64
}

// newRelaxation builds the relaxation with every variable in [0, 1]. Columns
// with a positive objective start at 1 and the rest at 0, which makes the
// all-slack basis dual feasible.
func newRelaxation(m *Model) *relaxation {
	rows, vars := len(m.Constraints), m.NumVars()
	cols := vars + rows
	lp := &relaxation{
		rows:    rows,
		vars:    vars,
		tab:     mat.NewDense(rows, cols, nil),
		basis:   make([]int, rows),
		row:     make([]int, cols),
		value:   make([]float64, cols),
		lo:      make([]float64, cols),
		hi:      make([]float64, cols),
		upper:   make([]bool, cols),
		reduced: make([]float64, cols),
		cost:    append([]float64(nil), m.Objective...),
	}
	for j := 0; j < vars; j++ {
		lp.row[j] = -1
		lp.hi[j] = 1
		lp.reduced[j] = m.Objective[j]
		if m.Objective[j] > 0 {
			lp.value[j] = 1
			lp.upper[j] = true
		}
	}

	for r, c := range m.Constraints {
		scale := floats.Norm(c.Coefs, math.Inf(1))
		if scale == 0 {
			scale = 1
		}
		dst := lp.tab.RawRowView(r)
		floats.ScaleTo(dst[:vars], 1/scale, c.Coefs)

		slack := vars + r
		dst[slack] = 1
		lp.basis[r] = slack
		lp.row[slack] = r
		lp.value[slack] = c.RHS/scale - floats.Dot(dst[:vars], lp.value[:vars])
		switch c.Sense {
		case LessEqual:
			lp.hi[slack] = math.Inf(1)
		case GreaterEqual:
			lp.lo[slack] = math.Inf(-1)
		}
	}
	return lp
}

func (lp *relaxation) clone() *relaxation {
	c := *lp
	c.tab = mat.DenseCopyOf(lp.tab)
	c.basis = append([]int(nil), lp.basis...)
	c.row = append([]int(nil), lp.row...)
	c.value = append([]float64(nil), lp.value...)
	c.lo = append([]float64(nil), lp.lo...)
	c.hi = append([]float64(nil), lp.hi...)
	c.upper = append([]bool(nil), lp.upper...)
	c.reduced = append([]float64(nil), lp.reduced...)
	return &c
}

// fix narrows the bounds of every variable fixed in the node. Nonbasic
// columns move to their new value at once; basic ones are left to solve.
func (lp *relaxation) fix(fixed []int8) {
	for j, v := range fixed {
		if v == free {
			continue
		}
		t := float64(v)
		if lp.lo[j] == t && lp.hi[j] == t {
			continue
		}
		lp.lo[j], lp.hi[j] = t, t
		if lp.row[j] < 0 {
			lp.shift(j, t-lp.value[j])
		}
	}
}

// shift moves nonbasic column j by delta and updates the basic values.
func (lp *relaxation) shift(j int, delta float64) {
	if delta == 0 {
		return
	}
	for r, b := range lp.basis {
		lp.value[b] -= lp.tab.At(r, j) * delta
	}
	lp.value[j] += delta
}

// solve runs the dual simplex method until the basis is primal feasible.
func (lp *relaxation) solve(ctx context.Context) relaxOutcome {
	limit := 20 * (lp.rows + lp.vars)
	for iter := 0; ; iter++ {
		if iter%cancelEvery == 0 && ctx.Err() != nil {
			return relaxAborted
		}
		if iter >= limit {
			return relaxFailed
		}

		r, target := lp.leaving()
		if r < 0 {
			return relaxSolved
		}
		q := lp.entering(r, lp.value[lp.basis[r]] < target)
		if q < 0 {
			return relaxInfeasible
		}
		lp.pivot(r, q, target)
	}
}

// leaving picks the basic column farthest outside its bounds and the bound it
// leaves at. It returns -1 when every basic column is within bounds.
func (lp *relaxation) leaving() (int, float64) {
	pick, target, worst := -1, 0.0, primalTol
	for r, b := range lp.basis {
		v := lp.value[b]
		if gap := lp.lo[b] - v; gap > worst {
			pick, target, worst = r, lp.lo[b], gap
		} else if gap := v - lp.hi[b]; gap > worst {
			pick, target, worst = r, lp.hi[b], gap
		}
	}
	return pick, target
}

// entering is the dual ratio test on row r. rising says the leaving column
// has to increase to reach its bound. Among columns that can move it the
// right way, the one with the smallest |d_j / a_rj| keeps every reduced cost
// on the correct side; ties go to the larger pivot.
func (lp *relaxation) entering(r int, rising bool) int {
	pick, best, bestMag := -1, math.Inf(1), 0.0
	for j, a := range lp.tab.RawRowView(r) {
		if lp.row[j] >= 0 || lp.lo[j] == lp.hi[j] {
			continue
		}
		mag := math.Abs(a)
		if mag < pivotTol {
			continue
		}
		// At the lower bound a column can only rise, at the upper only fall.
		if (a > 0) != (rising == lp.upper[j]) {
			continue
		}
		ratio := math.Abs(lp.reduced[j]) / mag
		if ratio < best-1e-12 || (ratio <= best+1e-12 && mag > bestMag) {
			pick, best, bestMag = j, ratio, mag
		}
	}
	return pick
}

func (lp *relaxation) pivot(r, q int, target float64) {
	leaving := lp.basis[r]
	a := lp.tab.At(r, q)

	delta := (lp.value[leaving] - target) / a
	for i, b := range lp.basis {
		lp.value[b] -= lp.tab.At(i, q) * delta
	}
	lp.value[q] += delta
	lp.value[leaving] = target

	pr := lp.tab.RawRowView(r)
	floats.Scale(1/a, pr)
	pr[q] = 1
	for i := 0; i < lp.rows; i++ {
		if i == r {
			continue
		}
		ri := lp.tab.RawRowView(i)
		if f := ri[q]; f != 0 {
			floats.AddScaled(ri, -f, pr)
			ri[q] = 0
		}
	}
	if d := lp.reduced[q]; d != 0 {
		floats.AddScaled(lp.reduced, -d, pr)
	}
	lp.reduced[q] = 0

	lp.basis[r] = q
	lp.row[q] = r
	lp.row[leaving] = -1
	lp.upper[leaving] = target == lp.hi[leaving]
}

func (lp *relaxation) objective() float64 {
	return floats.Dot(lp.cost, lp.value[:lp.vars])
}

// point returns the values of the structural columns.
func (lp *relaxation) point() []float64 {
	return append([]float64(nil), lp.value[:lp.vars]...)
}
