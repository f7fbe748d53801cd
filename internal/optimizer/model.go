package optimizer

import (
	"fmt"
	"math/bits"
	"sort"
	"strconv"
	"strings"
)

// Sense is the relation between a constraint's activity and its right-hand side.
type Sense int

const (
	LessEqual Sense = iota + 1
	GreaterEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "=="
	}
	return "?"
}

// feasibilityTol absorbs float noise when checking integer solutions.
const feasibilityTol = 1e-6

// maxCoverageGroups bounds the subset enumeration behind slot coverage rows.
const maxCoverageGroups = 12

const rosterSizeRow = "roster_size"

// Constraint is a dense linear row over the model's binary variables.
type Constraint struct {
	Name  string    `json:"name"`
	Coefs []float64 `json:"coefs"`
	Sense Sense     `json:"sense"`
	RHS   float64   `json:"rhs"`
}

// Satisfied reports whether activity meets the row.
func (c Constraint) Satisfied(activity float64) bool {
	switch c.Sense {
	case LessEqual:
		return activity <= c.RHS+feasibilityTol
	case GreaterEqual:
		return activity >= c.RHS-feasibilityTol
	case Equal:
		return activity >= c.RHS-feasibilityTol && activity <= c.RHS+feasibilityTol
	}
	return false
}

// Variable is a binary selection variable; 1 means the player is in the lineup.
type Variable struct {
	Name     string `json:"name"`
	PlayerID string `json:"player_id"`
}

// Model is a 0/1 integer program: maximize Objective·x subject to Constraints.
// It is built fresh for each request and never shared.
type Model struct {
	Name        string       `json:"name"`
	Vars        []Variable   `json:"vars"`
	Objective   []float64    `json:"objective"`
	Constraints []Constraint `json:"constraints"`

	schema  Schema
	players []Player
}

// NumVars returns the number of decision variables.
func (m *Model) NumVars() int {
	return len(m.Vars)
}

// Player returns the player behind variable i.
func (m *Model) Player(i int) Player {
	return m.players[i]
}

// Schema returns the schema the model was built from.
func (m *Model) Schema() Schema {
	return m.schema
}

// ObjectiveValue evaluates the objective at x.
func (m *Model) ObjectiveValue(x []int) float64 {
	total := 0.0
	for i, v := range x {
		if v == 1 {
			total += m.Objective[i]
		}
	}
	return total
}

// Feasible checks every constraint at the integer point x.
func (m *Model) Feasible(x []int) bool {
	if len(x) != len(m.Vars) {
		return false
	}
	for _, c := range m.Constraints {
		activity := 0.0
		for i, v := range x {
			if v == 1 {
				activity += c.Coefs[i]
			}
		}
		if !c.Satisfied(activity) {
			return false
		}
	}
	return true
}

type buildConfig struct {
	locked   []string
	excluded []string
}

// BuildOption adjusts model construction.
type BuildOption func(*buildConfig)

// WithLocked forces the given players into the lineup.
func WithLocked(ids ...string) BuildOption {
	return func(c *buildConfig) {
		c.locked = append(c.locked, ids...)
	}
}

// WithExcluded keeps the given players out of the lineup.
func WithExcluded(ids ...string) BuildOption {
	return func(c *buildConfig) {
		c.excluded = append(c.excluded, ids...)
	}
}

// Build formulates roster selection for schema over pool. All rows are derived
// from the schema's tables, so a new contest format needs only a new Schema.
func Build(schema Schema, pool *Pool, opts ...BuildOption) (*Model, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if pool == nil || pool.Len() == 0 {
		return nil, fmt.Errorf("%w: empty pool", ErrInvalidPool)
	}

	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	players := pool.Players()
	n := len(players)

	if n < schema.RosterSize() {
		return nil, &SchemaError{
			Schema:        schema.ID,
			Reason:        fmt.Sprintf("pool has %d players but roster needs %d", n, schema.RosterSize()),
			Unsatisfiable: true,
		}
	}
	for _, q := range schema.Quotas {
		if q.Kind == QuotaMaximum || q.Count == 0 {
			continue
		}
		if pool.CountEligible(q.Category) == 0 {
			return nil, &SchemaError{
				Schema:        schema.ID,
				Reason:        fmt.Sprintf("quota needs %d %s but pool has no eligible players", q.Count, q.Category),
				Unsatisfiable: true,
			}
		}
	}

	m := &Model{
		Name:      schema.ID,
		Vars:      make([]Variable, n),
		Objective: make([]float64, n),
		schema:    schema,
		players:   players,
	}
	for i, p := range players {
		m.Vars[i] = Variable{Name: "include_" + p.ID, PlayerID: p.ID}
		m.Objective[i] = p.ProjectedPoints
	}

	roster := make([]float64, n)
	salary := make([]float64, n)
	for i, p := range players {
		roster[i] = 1
		salary[i] = float64(p.Salary)
	}
	m.Constraints = append(m.Constraints,
		Constraint{Name: rosterSizeRow, Coefs: roster, Sense: Equal, RHS: float64(schema.RosterSize())},
		Constraint{Name: "salary_cap", Coefs: salary, Sense: LessEqual, RHS: float64(schema.SalaryCap)},
	)

	for _, q := range schema.Quotas {
		coefs := make([]float64, n)
		for i, p := range players {
			if p.EligibleFor(q.Category) {
				coefs[i] = 1
			}
		}
		m.Constraints = append(m.Constraints, Constraint{
			Name:  fmt.Sprintf("quota:%s:%s", q.Category, q.Kind),
			Coefs: coefs,
			Sense: quotaSense(q.Kind),
			RHS:   float64(q.Count),
		})
	}

	if schema.MaxPlayersPerTeam > 0 {
		m.Constraints = append(m.Constraints, teamConstraints(players, schema.MaxPlayersPerTeam)...)
	}

	m.Constraints = append(m.Constraints, coverageConstraints(schema, players)...)

	fixed, err := fixingConstraints(pool, n, cfg)
	if err != nil {
		return nil, err
	}
	m.Constraints = append(m.Constraints, fixed...)

	return m, nil
}

func quotaSense(k QuotaKind) Sense {
	switch k {
	case QuotaExact:
		return Equal
	case QuotaMaximum:
		return LessEqual
	}
	return GreaterEqual
}

func teamConstraints(players []Player, limit int) []Constraint {
	byTeam := make(map[string][]int)
	for i, p := range players {
		if p.Team != "" {
			byTeam[p.Team] = append(byTeam[p.Team], i)
		}
	}
	teams := make([]string, 0, len(byTeam))
	for team, idx := range byTeam {
		if len(idx) > limit {
			teams = append(teams, team)
		}
	}
	sort.Strings(teams)

	rows := make([]Constraint, 0, len(teams))
	for _, team := range teams {
		coefs := make([]float64, len(players))
		for _, i := range byTeam[team] {
			coefs[i] = 1
		}
		rows = append(rows, Constraint{Name: "team:" + team, Coefs: coefs, Sense: LessEqual, RHS: float64(limit)})
	}
	return rows
}

// coverageConstraints guarantee the selected players can be matched onto the
// slots. Slots with identical eligibility form a group; for every union T of
// groups, at most |T| selected players may be placeable only inside T.
func coverageConstraints(schema Schema, players []Player) []Constraint {
	groups := schema.slotGroups()
	if len(groups) > maxCoverageGroups {
		return nil
	}

	masks := make([]uint32, len(players))
	for i, p := range players {
		for g, group := range groups {
			if p.CanFill(SlotSpec{Eligible: group.eligible}) {
				masks[i] |= 1 << uint(g)
			}
		}
	}

	full := uint32(1)<<uint(len(groups)) - 1
	seen := make(map[string]bool)
	var rows []Constraint
	for t := uint32(0); t < full; t++ {
		capacity := 0
		for g := range groups {
			if t&(1<<uint(g)) != 0 {
				capacity += groups[g].size
			}
		}

		var members []int
		for i, mask := range masks {
			if mask&^t == 0 {
				members = append(members, i)
			}
		}
		if len(members) <= capacity {
			continue
		}

		key := memberKey(members)
		if seen[key] {
			continue
		}
		seen[key] = true

		coefs := make([]float64, len(players))
		for _, i := range members {
			coefs[i] = 1
		}
		rows = append(rows, Constraint{
			Name:  "coverage:" + groupNames(groups, t),
			Coefs: coefs,
			Sense: LessEqual,
			RHS:   float64(capacity),
		})
	}
	return rows
}

func memberKey(members []int) string {
	var b strings.Builder
	for _, i := range members {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
	}
	return b.String()
}

func groupNames(groups []slotGroup, t uint32) string {
	if t == 0 {
		return "none"
	}
	names := make([]string, 0, bits.OnesCount32(t))
	for g, group := range groups {
		if t&(1<<uint(g)) != 0 {
			names = append(names, eligibilityKey(group.eligible))
		}
	}
	return strings.Join(names, "+")
}

func fixingConstraints(pool *Pool, n int, cfg buildConfig) ([]Constraint, error) {
	locked := make(map[string]bool, len(cfg.locked))
	var rows []Constraint
	for _, id := range cfg.locked {
		i, ok := pool.indexOf(id)
		if !ok {
			return nil, fmt.Errorf("locked %q: %w", id, ErrUnknownPlayer)
		}
		if locked[id] {
			continue
		}
		locked[id] = true
		coefs := make([]float64, n)
		coefs[i] = 1
		rows = append(rows, Constraint{Name: "lock:" + id, Coefs: coefs, Sense: Equal, RHS: 1})
	}

	excluded := make(map[string]bool, len(cfg.excluded))
	for _, id := range cfg.excluded {
		i, ok := pool.indexOf(id)
		if !ok {
			return nil, fmt.Errorf("excluded %q: %w", id, ErrUnknownPlayer)
		}
		if locked[id] {
			return nil, fmt.Errorf("%q: %w", id, ErrLockConflict)
		}
		if excluded[id] {
			continue
		}
		excluded[id] = true
		coefs := make([]float64, n)
		coefs[i] = 1
		rows = append(rows, Constraint{Name: "exclude:" + id, Coefs: coefs, Sense: Equal, RHS: 0})
	}
	return rows, nil
}
