package optimizer

import (
	"fmt"
	"sort"
)

// SlotFill is one filled roster slot.
type SlotFill struct {
	Slot   string `json:"slot"`
	Label  string `json:"label"`
	Player Player `json:"player"`
}

// Assignment maps every slot of a schema to one selected player. Fills are
// kept in the schema's declared slot order.
type Assignment struct {
	Schema      string     `json:"schema"`
	Fills       []SlotFill `json:"fills"`
	TotalSalary int        `json:"total_salary"`
	TotalPoints float64    `json:"total_points"`
}

// Player returns the player in the named slot.
func (a *Assignment) Player(slot string) (Player, bool) {
	for _, f := range a.Fills {
		if f.Slot == slot {
			return f.Player, true
		}
	}
	return Player{}, false
}

// PlayerIDs returns the filled player IDs in declared slot order.
func (a *Assignment) PlayerIDs() []string {
	ids := make([]string, len(a.Fills))
	for i, f := range a.Fills {
		ids[i] = f.Player.ID
	}
	return ids
}

// Assign places the players of sol onto the schema's slots.
//
// Slots are visited single-category slots first, then repeated
// single-category slots (OF1, OF2, OF3), then flex slots, each group by
// priority and declaration. A slot tries its candidates starting with the
// players that fit the fewest slots, ties broken by ascending ID. When a slot
// finds no free candidate, earlier placements are shifted along an augmenting
// path, so a complete assignment is found whenever one exists. The result
// depends only on sol and schema.
func Assign(sol *Solution, schema Schema) (*Assignment, error) {
	if sol == nil {
		return nil, &AssignmentError{Schema: schema.ID, Reason: "no solution"}
	}
	players := sol.Players
	slots := schema.Slots

	if len(players) != len(slots) {
		return nil, &AssignmentError{
			Schema: schema.ID,
			Reason: fmt.Sprintf("%d players selected for %d slots", len(players), len(slots)),
		}
	}

	fits := make([]int, len(players))
	for p, pl := range players {
		for _, slot := range slots {
			if pl.CanFill(slot) {
				fits[p]++
			}
		}
	}

	candidates := make([][]int, len(slots))
	for s, slot := range slots {
		for p, pl := range players {
			if pl.CanFill(slot) {
				candidates[s] = append(candidates[s], p)
			}
		}
		sort.SliceStable(candidates[s], func(i, j int) bool {
			a, b := candidates[s][i], candidates[s][j]
			if fits[a] != fits[b] {
				return fits[a] < fits[b]
			}
			return players[a].ID < players[b].ID
		})
	}

	m := &matcher{
		candidates: candidates,
		slotOf:     make([]int, len(players)),
		playerOf:   make([]int, len(slots)),
	}
	for i := range m.slotOf {
		m.slotOf[i] = -1
	}
	for i := range m.playerOf {
		m.playerOf[i] = -1
	}
	for _, s := range schema.orderedSlots() {
		m.seen = make([]bool, len(players))
		m.augment(s)
	}

	var unfilled, unassigned []string
	for s, p := range m.playerOf {
		if p < 0 {
			unfilled = append(unfilled, slots[s].Name)
		}
	}
	for p, s := range m.slotOf {
		if s < 0 {
			unassigned = append(unassigned, players[p].ID)
		}
	}
	if len(unfilled) > 0 || len(unassigned) > 0 {
		return nil, &AssignmentError{
			Schema:            schema.ID,
			UnfilledSlots:     unfilled,
			UnassignedPlayers: unassigned,
			Reason:            "selected players cannot cover every slot",
		}
	}

	a := &Assignment{Schema: schema.ID, Fills: make([]SlotFill, len(slots))}
	for s, slot := range slots {
		pl := players[m.playerOf[s]]
		a.Fills[s] = SlotFill{Slot: slot.Name, Label: slot.DisplayLabel(), Player: pl}
		a.TotalSalary += pl.Salary
		a.TotalPoints += pl.ProjectedPoints
	}
	return a, nil
}

type matcher struct {
	candidates [][]int
	slotOf     []int
	playerOf   []int
	seen       []bool
}

// augment fills slot s with its first free candidate, and only when none is
// free moves previously placed players along an augmenting path.
func (m *matcher) augment(s int) bool {
	for _, p := range m.candidates[s] {
		if !m.seen[p] && m.slotOf[p] < 0 {
			m.seen[p] = true
			m.place(p, s)
			return true
		}
	}
	for _, p := range m.candidates[s] {
		if m.seen[p] {
			continue
		}
		m.seen[p] = true
		if m.augment(m.slotOf[p]) {
			m.place(p, s)
			return true
		}
	}
	return false
}

func (m *matcher) place(p, s int) {
	m.slotOf[p] = s
	m.playerOf[s] = p
}
