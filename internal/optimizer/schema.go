package optimizer

import (
	"fmt"
	"sort"
	"strings"
)

// SlotSpec is one named roster slot.
type SlotSpec struct {
	// Name is unique within a schema (OF1, OF2, ...).
	Name string `json:"name"`
	// Label is the header used by the platform's upload file. Defaults to Name.
	Label    string             `json:"label,omitempty"`
	Eligible []PositionCategory `json:"eligible"`
	// Priority orders slots that share eligibility (1 = first).
	Priority int `json:"priority"`
}

// DisplayLabel returns Label, falling back to Name.
func (s SlotSpec) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// Accepts reports whether category c may fill the slot.
func (s SlotSpec) Accepts(c PositionCategory) bool {
	for _, e := range s.Eligible {
		if e == c {
			return true
		}
	}
	return false
}

type QuotaKind int

const (
	QuotaExact QuotaKind = iota + 1
	QuotaMinimum
	QuotaMaximum
)

func (k QuotaKind) String() string {
	switch k {
	case QuotaExact:
		return "exact"
	case QuotaMinimum:
		return "minimum"
	case QuotaMaximum:
		return "maximum"
	}
	return "unknown"
}

func (k QuotaKind) MarshalText() ([]byte, error) {
	if k < QuotaExact || k > QuotaMaximum {
		return nil, fmt.Errorf("invalid quota kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts "exact", "minimum" and "maximum" (also "min"/"max").
func (k *QuotaKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "exact", "eq":
		*k = QuotaExact
	case "minimum", "min":
		*k = QuotaMinimum
	case "maximum", "max":
		*k = QuotaMaximum
	default:
		return fmt.Errorf("invalid quota kind %q", text)
	}
	return nil
}

// Quota is a cardinality requirement over the players of one category.
type Quota struct {
	Category PositionCategory `json:"category"`
	Kind     QuotaKind        `json:"kind"`
	Count    int              `json:"count"`
}

// Schema describes a contest's roster structure. Each sport and platform is a
// Schema value; the engine has no per-sport code.
type Schema struct {
	ID                string                      `json:"id"`
	Name              string                      `json:"name"`
	Sport             string                      `json:"sport"`
	Platform          string                      `json:"platform"`
	Slots             []SlotSpec                  `json:"slots"`
	Quotas            []Quota                     `json:"quotas"`
	SalaryCap         int                         `json:"salary_cap"`
	MaxPlayersPerTeam int                         `json:"max_players_per_team,omitempty"`
	Aliases           map[string]PositionCategory `json:"aliases,omitempty"`
}

// RosterSize is the number of declared slots.
func (s Schema) RosterSize() int {
	return len(s.Slots)
}

// WithSalaryCap returns a copy of the schema using a different cap.
func (s Schema) WithSalaryCap(salaryCap int) Schema {
	s.SalaryCap = salaryCap
	return s
}

// Categorize turns a raw source position ("PG/SG", "1B", "SP") into
// categories, applying the schema's aliases. A label that is itself an alias
// ("D/ST") is not split. Alias keys match case-insensitively. Duplicates are
// dropped and the first-seen order is kept.
func (s Schema) Categorize(raw string) []PositionCategory {
	whole := strings.ToUpper(strings.TrimSpace(raw))
	if c, ok := s.alias(whole); ok {
		return []PositionCategory{c}
	}

	var out []PositionCategory
	seen := make(map[PositionCategory]bool)
	for _, part := range strings.Split(whole, "/") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c := PositionCategory(part)
		if alias, ok := s.alias(part); ok {
			c = alias
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

func (s Schema) alias(label string) (PositionCategory, bool) {
	if label == "" {
		return "", false
	}
	if c, ok := s.Aliases[label]; ok {
		return c, true
	}
	for key, c := range s.Aliases {
		if strings.EqualFold(strings.TrimSpace(key), label) {
			return c, true
		}
	}
	return "", false
}

// Validate checks that the schema is internally consistent. It does not look
// at any player pool.
func (s Schema) Validate() error {
	if len(s.Slots) == 0 {
		return schemaErrorf(s.ID, "no slots declared")
	}
	if s.SalaryCap <= 0 {
		return schemaErrorf(s.ID, "salary cap must be positive, got %d", s.SalaryCap)
	}
	if s.MaxPlayersPerTeam < 0 {
		return schemaErrorf(s.ID, "max players per team must not be negative")
	}

	names := make(map[string]bool, len(s.Slots))
	for _, slot := range s.Slots {
		if slot.Name == "" {
			return schemaErrorf(s.ID, "slot with empty name")
		}
		if names[slot.Name] {
			return schemaErrorf(s.ID, "duplicate slot %s", slot.Name)
		}
		names[slot.Name] = true
		if len(slot.Eligible) == 0 {
			return schemaErrorf(s.ID, "slot %s has no eligible categories", slot.Name)
		}
	}

	exactTotal := 0
	for _, q := range s.Quotas {
		if q.Count < 0 {
			return schemaErrorf(s.ID, "quota on %s has negative count %d", q.Category, q.Count)
		}
		switch q.Kind {
		case QuotaExact:
			exactTotal += q.Count
		case QuotaMinimum, QuotaMaximum:
		default:
			return schemaErrorf(s.ID, "quota on %s has unknown kind %d", q.Category, q.Kind)
		}

		accepting := 0
		for _, slot := range s.Slots {
			if slot.Accepts(q.Category) {
				accepting++
			}
		}
		if accepting == 0 {
			return schemaErrorf(s.ID, "quota on %s but no slot accepts it", q.Category)
		}
		if q.Kind != QuotaMaximum && q.Count > accepting {
			return schemaErrorf(s.ID, "quota requires %d %s but only %d slots accept it", q.Count, q.Category, accepting)
		}
	}
	if exactTotal > s.RosterSize() {
		return schemaErrorf(s.ID, "exact quotas need %d players but roster has %d slots", exactTotal, s.RosterSize())
	}
	return nil
}

type slotPhase int

const (
	phaseExact slotPhase = iota
	phaseRepeated
	phaseFlex
)

// orderedSlots returns slot indexes in fill order: single-category slots that
// occur once, then repeated single-category slots, then flex slots. Within a
// phase slots are ordered by priority and then by declaration.
func (s Schema) orderedSlots() []int {
	counts := make(map[string]int)
	for _, slot := range s.Slots {
		counts[eligibilityKey(slot.Eligible)]++
	}
	phase := func(slot SlotSpec) slotPhase {
		if len(slot.Eligible) > 1 {
			return phaseFlex
		}
		if counts[eligibilityKey(slot.Eligible)] > 1 {
			return phaseRepeated
		}
		return phaseExact
	}

	order := make([]int, len(s.Slots))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := s.Slots[order[a]], s.Slots[order[b]]
		if pa, pb := phase(sa), phase(sb); pa != pb {
			return pa < pb
		}
		return sa.Priority < sb.Priority
	})
	return order
}

// slotGroup is a set of slots with identical eligibility.
type slotGroup struct {
	eligible []PositionCategory
	size     int
}

func (s Schema) slotGroups() []slotGroup {
	var groups []slotGroup
	index := make(map[string]int)
	for _, slot := range s.Slots {
		key := eligibilityKey(slot.Eligible)
		if i, ok := index[key]; ok {
			groups[i].size++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, slotGroup{eligible: slot.Eligible, size: 1})
	}
	return groups
}

func eligibilityKey(cats []PositionCategory) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
