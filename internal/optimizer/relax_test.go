package optimizer

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// simplexBound solves the relaxation of m under fixed with gonum's primal
// simplex. Fixed columns are folded into the right-hand side and every free
// column gets an explicit upper-bound row.
func simplexBound(m *Model, fixed []int8) (float64, error) {
	var cols []int
	base := 0.0
	for j, v := range fixed {
		switch v {
		case free:
			cols = append(cols, j)
		case 1:
			base += m.Objective[j]
		}
	}

	type row struct {
		coefs []float64
		slack float64
		rhs   float64
	}
	var rows []row
	for _, c := range m.Constraints {
		r := row{coefs: make([]float64, len(cols)), rhs: c.RHS}
		for k, j := range cols {
			r.coefs[k] = c.Coefs[j]
		}
		for j, v := range fixed {
			if v == 1 {
				r.rhs -= c.Coefs[j]
			}
		}
		switch c.Sense {
		case LessEqual:
			r.slack = 1
		case GreaterEqual:
			r.slack = -1
		}
		rows = append(rows, r)
	}
	for k := range cols {
		r := row{coefs: make([]float64, len(cols)), slack: 1, rhs: 1}
		r.coefs[k] = 1
		rows = append(rows, r)
	}

	width := len(cols)
	for _, r := range rows {
		if r.slack != 0 {
			width++
		}
	}
	a := mat.NewDense(len(rows), width, nil)
	b := make([]float64, len(rows))
	obj := make([]float64, width)
	for k, j := range cols {
		obj[k] = -m.Objective[j]
	}
	s := len(cols)
	for i, r := range rows {
		for k, v := range r.coefs {
			a.Set(i, k, v)
		}
		if r.slack != 0 {
			a.Set(i, s, r.slack)
			s++
		}
		b[i] = r.rhs
	}
	opt, _, err := lp.Simplex(obj, a, b, 1e-10, nil)
	return base - opt, err
}

// randomFixing fixes about a tenth of the variables to zero and ones of them
// to one.
func randomFixing(rng *rand.Rand, n, ones int) []int8 {
	fixed := make([]int8, n)
	for j := range fixed {
		fixed[j] = free
		if rng.Intn(10) == 0 {
			fixed[j] = 0
		}
	}
	for k := 0; k < ones; k++ {
		fixed[rng.Intn(n)] = 1
	}
	return fixed
}

func TestRelaxationMatchesSimplex(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	compared := 0
	for trial := 0; trial < 40; trial++ {
		m, err := Build(flexSchema(17000+500*rng.Intn(12)), randomFlexPool(t, rng, 10+rng.Intn(8)))
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			continue
		}
		require.NoError(t, err)

		fixed := randomFixing(rng, m.NumVars(), rng.Intn(3))
		if firstFree(fixed) < 0 {
			continue
		}
		want, err := simplexBound(m, fixed)
		if err != nil && !errors.Is(err, lp.ErrInfeasible) {
			continue
		}

		relax := newRelaxation(m)
		relax.fix(fixed)
		outcome := relax.solve(context.Background())
		if errors.Is(err, lp.ErrInfeasible) {
			assert.Equal(t, relaxInfeasible, outcome, "trial %d", trial)
			continue
		}
		require.Equal(t, relaxSolved, outcome, "trial %d", trial)
		assert.InDelta(t, want, relax.objective(), 1e-6, "trial %d", trial)
		for _, v := range relax.point() {
			assert.True(t, v > -1e-7 && v < 1+1e-7, "trial %d value %v", trial, v)
		}
		compared++
	}
	assert.Greater(t, compared, 10)
}

func TestRelaxationWarmStart(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m, err := Build(fanduelMLB(t), fanduelMLBSlate(t, rng, 120))
	require.NoError(t, err)

	root := newRelaxation(m)
	require.Equal(t, relaxSolved, root.solve(context.Background()))
	before := root.objective()

	for trial := 0; trial < 20; trial++ {
		fixed := randomFixing(rng, m.NumVars(), 1+rng.Intn(3))

		warm := root.clone()
		warm.fix(fixed)
		fresh := newRelaxation(m)
		fresh.fix(fixed)

		got, want := warm.solve(context.Background()), fresh.solve(context.Background())
		require.Equal(t, want, got, "trial %d", trial)
		if want == relaxSolved {
			assert.InDelta(t, fresh.objective(), warm.objective(), 1e-6, "trial %d", trial)
			assert.LessOrEqual(t, warm.objective(), before+1e-6, "trial %d", trial)
		}
	}
	assert.Equal(t, before, root.objective(), "clones must not touch the parent")
}

func TestRelaxationStopsOnCancel(t *testing.T) {
	m, err := Build(fanduelMLB(t), fanduelMLBSlate(t, rand.New(rand.NewSource(3)), 60))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, relaxAborted, newRelaxation(m).solve(ctx))
}

func TestFixByReducedCost(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, err := Build(fanduelMLB(t), fanduelMLBSlate(t, rng, 150))
	require.NoError(t, err)

	s := newSearch(m, SolveOptions{})
	root, err := presolve(context.Background(), m)
	require.NoError(t, err)
	require.True(t, s.propagate(root))
	s.seed(context.Background(), root)
	require.True(t, s.hasBest)

	relax := newRelaxation(m)
	relax.fix(root)
	require.Equal(t, relaxSolved, relax.solve(context.Background()))

	fixed := append([]int8(nil), root...)
	s.fixByReducedCost(relax, relax.objective(), fixed)

	sol, err := Invoke(context.Background(), NewBranchAndBound(nil), m, SolveOptions{})
	require.NoError(t, err)
	for i, p := range m.players {
		if fixed[i] == free || root[i] != free {
			continue
		}
		want := int8(0)
		if sol.Contains(p.ID) {
			want = 1
		}
		// Fixings may cut ties but never the strictly better side.
		if fixed[i] != want {
			assert.InDelta(t, s.bestObj, sol.TotalPoints, 1e-3, "player %s", p.ID)
		}
	}
}
