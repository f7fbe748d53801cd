package optimizer

import (
	"fmt"
	"sort"
)

func slot(name, label string, priority int, eligible ...PositionCategory) SlotSpec {
	return SlotSpec{Name: name, Label: label, Eligible: eligible, Priority: priority}
}

func exactly(c PositionCategory, n int) Quota { return Quota{Category: c, Kind: QuotaExact, Count: n} }
func atLeast(c PositionCategory, n int) Quota { return Quota{Category: c, Kind: QuotaMinimum, Count: n} }

var builtinSchemas = map[string]Schema{
	"fanduel_mlb": {
		ID: "fanduel_mlb", Name: "FanDuel MLB", Sport: "mlb", Platform: "fanduel",
		SalaryCap:         35000,
		MaxPlayersPerTeam: 4,
		Slots: []SlotSpec{
			slot("P", "P", 1, "P"),
			slot("C/1B", "C/1B", 2, "C1B"),
			slot("2B", "2B", 3, "2B"),
			slot("3B", "3B", 4, "3B"),
			slot("SS", "SS", 5, "SS"),
			slot("OF1", "OF", 6, "OF"),
			slot("OF2", "OF", 7, "OF"),
			slot("OF3", "OF", 8, "OF"),
			slot("UTIL", "UTIL", 9, "C1B", "2B", "3B", "SS", "OF"),
		},
		Quotas: []Quota{
			exactly("P", 1),
			atLeast("C1B", 1),
			atLeast("2B", 1),
			atLeast("3B", 1),
			atLeast("SS", 1),
			atLeast("OF", 3),
		},
		Aliases: map[string]PositionCategory{
			"C": "C1B", "1B": "C1B",
			"SP": "P", "RP": "P",
			"LF": "OF", "CF": "OF", "RF": "OF",
		},
	},
	"draftkings_mlb": {
		ID: "draftkings_mlb", Name: "DraftKings MLB", Sport: "mlb", Platform: "draftkings",
		SalaryCap: 50000,
		Slots: []SlotSpec{
			slot("P1", "P", 1, "P"),
			slot("P2", "P", 2, "P"),
			slot("C", "C", 3, "C"),
			slot("1B", "1B", 4, "1B"),
			slot("2B", "2B", 5, "2B"),
			slot("3B", "3B", 6, "3B"),
			slot("SS", "SS", 7, "SS"),
			slot("OF1", "OF", 8, "OF"),
			slot("OF2", "OF", 9, "OF"),
			slot("OF3", "OF", 10, "OF"),
		},
		Quotas: []Quota{
			exactly("P", 2),
			atLeast("C", 1),
			atLeast("1B", 1),
			atLeast("2B", 1),
			atLeast("3B", 1),
			atLeast("SS", 1),
			atLeast("OF", 3),
		},
		Aliases: map[string]PositionCategory{
			"SP": "P", "RP": "P",
			"LF": "OF", "CF": "OF", "RF": "OF",
		},
	},
	"draftkings_nfl": {
		ID: "draftkings_nfl", Name: "DraftKings NFL", Sport: "nfl", Platform: "draftkings",
		SalaryCap: 50000,
		Slots: []SlotSpec{
			slot("QB", "QB", 1, "QB"),
			slot("RB1", "RB", 2, "RB"),
			slot("RB2", "RB", 3, "RB"),
			slot("WR1", "WR", 4, "WR"),
			slot("WR2", "WR", 5, "WR"),
			slot("WR3", "WR", 6, "WR"),
			slot("TE", "TE", 7, "TE"),
			slot("FLEX", "FLEX", 8, "RB", "WR", "TE"),
			slot("DST", "DST", 9, "DST"),
		},
		Quotas: []Quota{
			exactly("QB", 1),
			atLeast("RB", 2),
			atLeast("WR", 3),
			atLeast("TE", 1),
			exactly("DST", 1),
		},
		Aliases: map[string]PositionCategory{"D/ST": "DST", "DEF": "DST", "D": "DST"},
	},
	"fanduel_nfl": {
		ID: "fanduel_nfl", Name: "FanDuel NFL", Sport: "nfl", Platform: "fanduel",
		SalaryCap:         60000,
		MaxPlayersPerTeam: 4,
		Slots: []SlotSpec{
			slot("QB", "QB", 1, "QB"),
			slot("RB1", "RB", 2, "RB"),
			slot("RB2", "RB", 3, "RB"),
			slot("WR1", "WR", 4, "WR"),
			slot("WR2", "WR", 5, "WR"),
			slot("WR3", "WR", 6, "WR"),
			slot("TE", "TE", 7, "TE"),
			slot("FLEX", "FLEX", 8, "RB", "WR", "TE"),
			slot("DEF", "DEF", 9, "D"),
		},
		Quotas: []Quota{
			exactly("QB", 1),
			atLeast("RB", 2),
			atLeast("WR", 3),
			atLeast("TE", 1),
			exactly("D", 1),
		},
		Aliases: map[string]PositionCategory{"D/ST": "D", "DST": "D", "DEF": "D"},
	},
	"draftkings_nba": {
		ID: "draftkings_nba", Name: "DraftKings NBA", Sport: "nba", Platform: "draftkings",
		SalaryCap: 50000,
		Slots: []SlotSpec{
			slot("PG", "PG", 1, "PG"),
			slot("SG", "SG", 2, "SG"),
			slot("SF", "SF", 3, "SF"),
			slot("PF", "PF", 4, "PF"),
			slot("C", "C", 5, "C"),
			slot("G", "G", 6, "PG", "SG"),
			slot("F", "F", 7, "SF", "PF"),
			slot("UTIL", "UTIL", 8, "PG", "SG", "SF", "PF", "C"),
		},
		Quotas: []Quota{
			atLeast("PG", 1),
			atLeast("SG", 1),
			atLeast("SF", 1),
			atLeast("PF", 1),
			atLeast("C", 1),
		},
	},
	"fanduel_nba": {
		ID: "fanduel_nba", Name: "FanDuel NBA", Sport: "nba", Platform: "fanduel",
		SalaryCap:         60000,
		MaxPlayersPerTeam: 4,
		Slots: []SlotSpec{
			slot("PG1", "PG", 1, "PG"),
			slot("PG2", "PG", 2, "PG"),
			slot("SG1", "SG", 3, "SG"),
			slot("SG2", "SG", 4, "SG"),
			slot("SF1", "SF", 5, "SF"),
			slot("SF2", "SF", 6, "SF"),
			slot("PF1", "PF", 7, "PF"),
			slot("PF2", "PF", 8, "PF"),
			slot("C", "C", 9, "C"),
		},
		Quotas: []Quota{
			atLeast("PG", 2),
			atLeast("SG", 2),
			atLeast("SF", 2),
			atLeast("PF", 2),
			atLeast("C", 1),
		},
	},
	"draftkings_nhl": {
		ID: "draftkings_nhl", Name: "DraftKings NHL", Sport: "nhl", Platform: "draftkings",
		SalaryCap: 50000,
		Slots: []SlotSpec{
			slot("C1", "C", 1, "C"),
			slot("C2", "C", 2, "C"),
			slot("W1", "W", 3, "W"),
			slot("W2", "W", 4, "W"),
			slot("W3", "W", 5, "W"),
			slot("D1", "D", 6, "D"),
			slot("D2", "D", 7, "D"),
			slot("G", "G", 8, "G"),
			slot("UTIL", "UTIL", 9, "C", "W", "D"),
		},
		Quotas: []Quota{
			atLeast("C", 2),
			atLeast("W", 3),
			atLeast("D", 2),
			exactly("G", 1),
		},
		Aliases: map[string]PositionCategory{"LW": "W", "RW": "W"},
	},
	"draftkings_golf": golfSchema("draftkings_golf", "DraftKings Golf", "draftkings", 50000),
	"fanduel_golf":    golfSchema("fanduel_golf", "FanDuel Golf", "fanduel", 60000),
}

func golfSchema(id, name, platform string, salaryCap int) Schema {
	slots := make([]SlotSpec, 6)
	for i := range slots {
		slots[i] = slot(fmt.Sprintf("G%d", i+1), "G", i+1, "G")
	}
	return Schema{
		ID: id, Name: name, Sport: "golf", Platform: platform,
		SalaryCap: salaryCap,
		Slots:     slots,
		Quotas:    []Quota{exactly("G", 6)},
	}
}

// LookupSchema returns a copy of a built-in schema.
func LookupSchema(id string) (Schema, bool) {
	s, ok := builtinSchemas[id]
	if !ok {
		return Schema{}, false
	}
	return cloneSchema(s), true
}

// Schemas lists the built-in schemas sorted by ID.
func Schemas() []Schema {
	out := make([]Schema, 0, len(builtinSchemas))
	for _, s := range builtinSchemas {
		out = append(out, cloneSchema(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneSchema(s Schema) Schema {
	slots := make([]SlotSpec, len(s.Slots))
	for i, sl := range s.Slots {
		sl.Eligible = append([]PositionCategory(nil), sl.Eligible...)
		slots[i] = sl
	}
	s.Slots = slots
	s.Quotas = append([]Quota(nil), s.Quotas...)
	if s.Aliases != nil {
		aliases := make(map[string]PositionCategory, len(s.Aliases))
		for k, v := range s.Aliases {
			aliases[k] = v
		}
		s.Aliases = aliases
	}
	return s
}
