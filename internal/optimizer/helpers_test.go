package optimizer

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func pl(id string, salary int, points float64, cats ...PositionCategory) Player {
	return Player{ID: id, Name: id, Salary: salary, ProjectedPoints: points, Categories: cats}
}

func mustPool(t *testing.T, players ...Player) *Pool {
	t.Helper()
	pool, err := NewPool(players)
	require.NoError(t, err)
	return pool
}

// pitcherOutfieldSchema has one pitcher slot and three outfield slots.
func pitcherOutfieldSchema(salaryCap int) Schema {
	return Schema{
		ID:        "test_p_of",
		Sport:     "mlb",
		Platform:  "test",
		SalaryCap: salaryCap,
		Slots: []SlotSpec{
			{Name: "P", Eligible: []PositionCategory{"P"}, Priority: 1},
			{Name: "OF1", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 2},
			{Name: "OF2", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 3},
			{Name: "OF3", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 4},
		},
		Quotas: []Quota{exactly("P", 1), exactly("OF", 3)},
	}
}

func pitcherOutfieldPlayers() []Player {
	return []Player{
		pl("P-1", 8000, 20, "P"),
		pl("P-2", 7000, 18, "P"),
		pl("OF-1", 5000, 12, "OF"),
		pl("OF-2", 5000, 11, "OF"),
		pl("OF-3", 5000, 10, "OF"),
		pl("OF-4", 3000, 6, "OF"),
		pl("OF-5", 3000, 5, "OF"),
	}
}

// nineSlotSchema mirrors a FanDuel MLB roster with exactly three outfielders.
func nineSlotSchema() Schema {
	return Schema{
		ID:        "test_mlb9",
		Sport:     "mlb",
		Platform:  "test",
		SalaryCap: 35000,
		Slots: []SlotSpec{
			{Name: "P", Eligible: []PositionCategory{"P"}, Priority: 1},
			{Name: "C1B", Eligible: []PositionCategory{"C1B"}, Priority: 2},
			{Name: "2B", Eligible: []PositionCategory{"2B"}, Priority: 3},
			{Name: "3B", Eligible: []PositionCategory{"3B"}, Priority: 4},
			{Name: "SS", Eligible: []PositionCategory{"SS"}, Priority: 5},
			{Name: "OF1", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 6},
			{Name: "OF2", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 7},
			{Name: "OF3", Label: "OF", Eligible: []PositionCategory{"OF"}, Priority: 8},
			{Name: "UTIL", Eligible: []PositionCategory{"C1B", "2B", "3B", "SS"}, Priority: 9},
		},
		Quotas: []Quota{
			exactly("P", 1),
			exactly("OF", 3),
			atLeast("C1B", 1),
			atLeast("2B", 1),
			atLeast("3B", 1),
			atLeast("SS", 1),
		},
	}
}

func nineSlotPlayers() []Player {
	players := []Player{
		pl("P-1", 8000, 20, "P"),
		pl("P-2", 7000, 18, "P"),
	}
	ofSalary := []int{4200, 3900, 3600, 3400, 3100, 2900, 2700, 2500, 2300, 2200}
	ofPoints := []float64{13.5, 12.8, 11.0, 10.9, 9.4, 8.8, 8.1, 7.0, 6.2, 5.5}
	for i := range ofSalary {
		players = append(players, pl(fmt.Sprintf("OF-%02d", i+1), ofSalary[i], ofPoints[i], "OF"))
	}
	players = append(players,
		pl("C1B-1", 3500, 10.2, "C1B"),
		pl("C1B-2", 2600, 7.1, "C1B"),
		pl("2B-1", 3300, 9.6, "2B"),
		pl("2B-2", 2400, 6.4, "2B"),
		pl("3B-1", 3700, 10.8, "3B"),
		pl("3B-2", 2500, 6.9, "3B", "SS"),
		pl("SS-1", 3200, 9.1, "SS"),
		pl("SS-2", 2300, 5.8, "SS"),
	)
	return players
}

// flexSchema is a small roster with overlapping flex slots.
func flexSchema(salaryCap int) Schema {
	return Schema{
		ID:        "test_flex",
		Sport:     "nba",
		Platform:  "test",
		SalaryCap: salaryCap,
		Slots: []SlotSpec{
			{Name: "PG", Eligible: []PositionCategory{"PG"}, Priority: 1},
			{Name: "SG", Eligible: []PositionCategory{"SG"}, Priority: 2},
			{Name: "F", Eligible: []PositionCategory{"SF", "PF"}, Priority: 3},
			{Name: "G", Eligible: []PositionCategory{"PG", "SG"}, Priority: 4},
			{Name: "UTIL", Eligible: []PositionCategory{"PG", "SG", "SF", "PF"}, Priority: 5},
		},
		Quotas: []Quota{atLeast("PG", 1), atLeast("SG", 1)},
	}
}

// randomFlexPool draws n players over the flexSchema categories.
func randomFlexPool(t *testing.T, rng *rand.Rand, n int) *Pool {
	t.Helper()
	options := [][]PositionCategory{
		{"PG"}, {"SG"}, {"SF"}, {"PF"}, {"PG", "SG"}, {"SF", "PF"}, {"SG", "SF"},
	}
	teams := []string{"AAA", "BBB", "CCC"}
	players := make([]Player, n)
	for i := range players {
		cats := options[rng.Intn(len(options))]
		players[i] = Player{
			ID:              fmt.Sprintf("r%02d", i),
			Team:            teams[rng.Intn(len(teams))],
			Salary:          3000 + 100*rng.Intn(60),
			ProjectedPoints: float64(rng.Intn(400)) / 10,
			Categories:      append([]PositionCategory(nil), cats...),
		}
	}
	return mustPool(t, players...)
}

// bruteForce checks every roster-sized subset against the model.
func bruteForce(m *Model) (float64, []int, bool) {
	n := m.NumVars()
	k := m.Schema().RosterSize()
	x := make([]int, n)
	var best []int
	bestObj := 0.0

	var walk func(start, left int)
	walk = func(start, left int) {
		if left == 0 {
			if m.Feasible(x) {
				obj := m.ObjectiveValue(x)
				if best == nil || obj > bestObj+feasibilityTol {
					best = append([]int(nil), x...)
					bestObj = obj
				}
			}
			return
		}
		for i := start; i <= n-left; i++ {
			x[i] = 1
			walk(i+1, left-1)
			x[i] = 0
		}
	}
	walk(0, k)
	return bestObj, best, best != nil
}

// fanduelMLBSlate draws n single-position players spread over 20 teams, with
// projections that track salary plus noise.
func fanduelMLBSlate(t *testing.T, rng *rand.Rand, n int) *Pool {
	t.Helper()
	positions := []PositionCategory{"P", "P", "C1B", "2B", "3B", "SS", "OF", "OF", "OF", "OF"}
	players := make([]Player, n)
	for i := range players {
		pos := positions[i%len(positions)]
		salary := 2000 + 100*rng.Intn(26)
		perK := 2.7
		if pos == "P" {
			salary = 6000 + 100*rng.Intn(56)
			perK = 3.8
		}
		points := float64(salary)/1000*perK + rng.NormFloat64()*3
		if points < 0 {
			points = 0
		}
		players[i] = Player{
			ID:              fmt.Sprintf("mlb%03d", i),
			Team:            fmt.Sprintf("T%02d", i%20),
			Salary:          salary,
			ProjectedPoints: points,
			Categories:      []PositionCategory{pos},
		}
	}
	return mustPool(t, players...)
}

func fanduelMLB(t *testing.T) Schema {
	t.Helper()
	s, ok := LookupSchema("fanduel_mlb")
	require.True(t, ok)
	return s
}
