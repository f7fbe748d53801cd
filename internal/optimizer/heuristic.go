package optimizer

import (
	"context"
	"sort"
)

// maxSwapRounds caps the improving swaps made on the greedy lineup.
const maxSwapRounds = 200

// seed looks for a first incumbent before the tree search starts: a greedy
// fill by points per salary dollar, then improving one-for-one swaps. Finding
// nothing is fine; the search does not rely on it.
func (s *search) seed(ctx context.Context, fixed []int8) {
	if ctx.Err() != nil {
		return
	}
	g := newGreedy(s.m, fixed)
	if !g.fill() {
		return
	}
	g.improve(ctx)
	s.offer(g.x)
}

// greedy builds a lineup one player at a time while tracking the activity of
// every row.
type greedy struct {
	m     *Model
	fixed []int8
	x     []int
	act   []float64
	count int
}

func newGreedy(m *Model, fixed []int8) *greedy {
	g := &greedy{
		m:     m,
		fixed: fixed,
		x:     make([]int, m.NumVars()),
		act:   make([]float64, len(m.Constraints)),
	}
	for i, v := range fixed {
		if v == 1 {
			g.add(i)
		}
	}
	return g
}

func (g *greedy) add(i int) {
	g.x[i] = 1
	g.count++
	for r, c := range g.m.Constraints {
		g.act[r] += c.Coefs[i]
	}
}

func (g *greedy) remove(i int) {
	g.x[i] = 0
	g.count--
	for r, c := range g.m.Constraints {
		g.act[r] -= c.Coefs[i]
	}
}

// fits reports whether adding i leaves every upper-bounded row satisfied.
func (g *greedy) fits(i int) bool {
	for r, c := range g.m.Constraints {
		a := c.Coefs[i]
		if a > 0 && c.Sense != GreaterEqual && g.act[r]+a > c.RHS+feasibilityTol {
			return false
		}
	}
	return true
}

// requirement reports whether row r asks for a minimum beyond the roster size.
func (g *greedy) requirement(r int) bool {
	c := g.m.Constraints[r]
	return c.Sense != LessEqual && c.Name != rosterSizeRow
}

// deficit is how far the requirement rows still fall short.
func (g *greedy) deficit() float64 {
	total := 0.0
	for r, c := range g.m.Constraints {
		if g.requirement(r) && g.act[r] < c.RHS {
			total += c.RHS - g.act[r]
		}
	}
	return total
}

// helps reports whether i counts toward a requirement that is still short.
func (g *greedy) helps(i int) bool {
	for r, c := range g.m.Constraints {
		if g.requirement(r) && c.Coefs[i] > 0 && g.act[r] < c.RHS-feasibilityTol {
			return true
		}
	}
	return false
}

// fill completes the roster in order of points per salary dollar. It keeps
// enough cap back for the cheapest possible remaining picks, and once the
// open requirements need every remaining slot it only takes players that
// meet one of them.
func (g *greedy) fill() bool {
	m := g.m
	need := m.Schema().RosterSize()
	salaryCap := m.Schema().SalaryCap

	var order, salaries []int
	spent := 0
	for i := range g.x {
		switch {
		case g.x[i] == 1:
			spent += m.Player(i).Salary
		case g.fixed[i] == free:
			order = append(order, i)
			salaries = append(salaries, m.Player(i).Salary)
		}
	}
	sort.Ints(salaries)
	// floor[k] is the least that k more players can cost.
	floor := make([]int, len(salaries)+1)
	for k, v := range salaries {
		floor[k+1] = floor[k] + v
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		vi := m.Objective[i] / float64(m.Player(i).Salary)
		vj := m.Objective[j] / float64(m.Player(j).Salary)
		if vi != vj {
			return vi > vj
		}
		return m.Objective[i] > m.Objective[j]
	})

	for g.count < need {
		left := need - g.count - 1
		if left >= len(floor) {
			return false
		}
		short := g.deficit() > float64(left)+feasibilityTol

		pick := -1
		for _, i := range order {
			if g.x[i] == 1 || !g.fits(i) {
				continue
			}
			if spent+m.Player(i).Salary+floor[left] > salaryCap {
				continue
			}
			if short && !g.helps(i) {
				continue
			}
			pick = i
			break
		}
		if pick < 0 {
			return false
		}
		g.add(pick)
		spent += m.Player(pick).Salary
	}
	return m.Feasible(g.x)
}

// improve applies the best feasible one-for-one swap until none gains.
func (g *greedy) improve(ctx context.Context) {
	m := g.m
	for round := 0; round < maxSwapRounds; round++ {
		if ctx.Err() != nil {
			return
		}
		out, in, gain := -1, -1, feasibilityTol
		for i, v := range g.x {
			if v != 1 || g.fixed[i] == 1 {
				continue
			}
			for j, w := range g.x {
				if w == 1 || g.fixed[j] != free {
					continue
				}
				if d := m.Objective[j] - m.Objective[i]; d > gain && g.swappable(i, j) {
					out, in, gain = i, j, d
				}
			}
		}
		if out < 0 {
			return
		}
		g.remove(out)
		g.add(in)
	}
}

func (g *greedy) swappable(out, in int) bool {
	for r, c := range g.m.Constraints {
		a, b := c.Coefs[out], c.Coefs[in]
		if a != b && !c.Satisfied(g.act[r]-a+b) {
			return false
		}
	}
	return true
}
