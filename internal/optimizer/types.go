package optimizer

import (
	"fmt"
	"math"
	"sort"
)

// PositionCategory is an atomic position label such as "P", "C1B" or "OF".
type PositionCategory string

// Player is a candidate for selection. Players are treated as immutable once
// they are part of a Pool.
type Player struct {
	ID              string             `json:"id"`
	Name            string             `json:"name,omitempty"`
	Team            string             `json:"team,omitempty"`
	Salary          int                `json:"salary"`
	ProjectedPoints float64            `json:"projected_points"`
	Categories      []PositionCategory `json:"categories"`
}

// EligibleFor reports whether the player belongs to category c.
func (p Player) EligibleFor(c PositionCategory) bool {
	for _, pc := range p.Categories {
		if pc == c {
			return true
		}
	}
	return false
}

// CanFill reports whether the player may occupy slot s.
func (p Player) CanFill(s SlotSpec) bool {
	for _, c := range s.Eligible {
		if p.EligibleFor(c) {
			return true
		}
	}
	return false
}

// Pool is the normalized candidate set. Players are held sorted by ID so every
// consumer iterates them in the same order.
type Pool struct {
	players []Player
	index   map[string]int
}

// NewPool validates players and returns an immutable pool.
func NewPool(players []Player) (*Pool, error) {
	if len(players) == 0 {
		return nil, fmt.Errorf("%w: no players", ErrInvalidPool)
	}

	sorted := make([]Player, len(players))
	for i, p := range players {
		if err := validatePlayer(p); err != nil {
			return nil, err
		}
		cats := make([]PositionCategory, len(p.Categories))
		copy(cats, p.Categories)
		p.Categories = cats
		sorted[i] = p
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})

	index := make(map[string]int, len(sorted))
	for i, p := range sorted {
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate player id %q", ErrInvalidPool, p.ID)
		}
		index[p.ID] = i
	}

	return &Pool{players: sorted, index: index}, nil
}

func validatePlayer(p Player) error {
	if p.ID == "" {
		return fmt.Errorf("%w: player with empty id", ErrInvalidPool)
	}
	if p.Salary <= 0 {
		return fmt.Errorf("%w: player %s has non-positive salary %d", ErrInvalidPool, p.ID, p.Salary)
	}
	if p.ProjectedPoints < 0 || math.IsNaN(p.ProjectedPoints) || math.IsInf(p.ProjectedPoints, 0) {
		return fmt.Errorf("%w: player %s has invalid projection %v", ErrInvalidPool, p.ID, p.ProjectedPoints)
	}
	if len(p.Categories) == 0 {
		return fmt.Errorf("%w: player %s has no position", ErrInvalidPool, p.ID)
	}
	for _, c := range p.Categories {
		if c == "" {
			return fmt.Errorf("%w: player %s has an empty position", ErrInvalidPool, p.ID)
		}
	}
	return nil
}

// Len returns the number of players in the pool.
func (p *Pool) Len() int {
	return len(p.players)
}

// Players returns a copy of the players in ID order.
func (p *Pool) Players() []Player {
	out := make([]Player, len(p.players))
	copy(out, p.players)
	return out
}

// At returns the i-th player in ID order.
func (p *Pool) At(i int) Player {
	return p.players[i]
}

// Get looks a player up by ID.
func (p *Pool) Get(id string) (Player, bool) {
	i, ok := p.index[id]
	if !ok {
		return Player{}, false
	}
	return p.players[i], true
}

func (p *Pool) indexOf(id string) (int, bool) {
	i, ok := p.index[id]
	return i, ok
}

// CountEligible returns how many players belong to category c.
func (p *Pool) CountEligible(c PositionCategory) int {
	n := 0
	for _, pl := range p.players {
		if pl.EligibleFor(c) {
			n++
		}
	}
	return n
}
