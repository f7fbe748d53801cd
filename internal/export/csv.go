package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

// ColumnMap names the CSV headers that hold each player field. Every entry
// lists accepted headers in preference order; matching ignores case and
// surrounding whitespace.
type ColumnMap struct {
	ID       []string
	Name     []string
	Team     []string
	Position []string
	Salary   []string
	Points   []string
}

// DefaultColumns covers the FanDuel and DraftKings salary downloads.
func DefaultColumns() ColumnMap {
	return ColumnMap{
		ID:       []string{"Id", "ID"},
		Name:     []string{"Name", "Nickname"},
		Team:     []string{"Team", "TeamAbbrev"},
		Position: []string{"Position"},
		Salary:   []string{"Salary"},
		Points:   []string{"FPPG", "AvgPointsPerGame", "Projection"},
	}
}

// ReadPool reads a player CSV into a pool for schema. Position labels go
// through schema.Categorize so platform aliases apply.
func ReadPool(r io.Reader, schema optimizer.Schema, cols ColumnMap) (*optimizer.Pool, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty csv", optimizer.ErrInvalidPool)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	idx := headerIndex(header)
	idCol, err := required(idx, "id", cols.ID)
	if err != nil {
		return nil, err
	}
	posCol, err := required(idx, "position", cols.Position)
	if err != nil {
		return nil, err
	}
	salaryCol, err := required(idx, "salary", cols.Salary)
	if err != nil {
		return nil, err
	}
	pointsCol, err := required(idx, "points", cols.Points)
	if err != nil {
		return nil, err
	}
	nameCol := lookup(idx, cols.Name)
	teamCol := lookup(idx, cols.Team)

	var players []optimizer.Player
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		salary, err := parseSalary(field(record, salaryCol))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", optimizer.ErrInvalidPool, line, err)
		}
		points, err := strconv.ParseFloat(strings.TrimSpace(field(record, pointsCol)), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad projection %q", optimizer.ErrInvalidPool, line, field(record, pointsCol))
		}

		players = append(players, optimizer.Player{
			ID:              strings.TrimSpace(field(record, idCol)),
			Name:            strings.TrimSpace(field(record, nameCol)),
			Team:            strings.TrimSpace(field(record, teamCol)),
			Salary:          salary,
			ProjectedPoints: points,
			Categories:      schema.Categorize(field(record, posCol)),
		})
	}

	return optimizer.NewPool(players)
}

// WriteTemplate writes the platform upload file: one header row of slot
// labels in declared order and one row of player IDs per lineup.
func WriteTemplate(w io.Writer, schema optimizer.Schema, assignments ...*optimizer.Assignment) error {
	writer := csv.NewWriter(w)

	header := make([]string, len(schema.Slots))
	for i, s := range schema.Slots {
		header[i] = s.DisplayLabel()
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for n, a := range assignments {
		if a == nil {
			return fmt.Errorf("lineup %d is nil", n)
		}
		row := make([]string, len(schema.Slots))
		for i, s := range schema.Slots {
			p, ok := a.Player(s.Name)
			if !ok {
				return fmt.Errorf("lineup %d has no player in slot %s", n, s.Name)
			}
			row[i] = p.ID
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write lineup: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func lookup(idx map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := idx[strings.ToLower(strings.TrimSpace(n))]; ok {
			return i
		}
	}
	return -1
}

func required(idx map[string]int, field string, names []string) (int, error) {
	i := lookup(idx, names)
	if i < 0 {
		return -1, fmt.Errorf("%w: no %s column (tried %s)", optimizer.ErrInvalidPool, field, strings.Join(names, ", "))
	}
	return i, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// parseSalary accepts "5000", "$5,000" and "5000.0".
func parseSalary(raw string) (int, error) {
	s := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("bad salary %q", raw)
	}
	return int(f), nil
}
