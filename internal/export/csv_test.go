package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/dfs-lineup/internal/optimizer"
)

const fanDuelMLB = `Id,Position,First Name,Nickname,Last Name,FPPG,Played,Salary,Game,Team,Opponent
P-A,P,Ace,Ace,Arm,40.5,10,"$12,000",NYY@BOS,NYY,BOS
P-B,P,Bob,Bob,Arm,15,10,5000,NYY@BOS,BOS,NYY
C-1,C,Cal,Cal,Catch,10,10,4000,NYY@BOS,NYY,BOS
B-1,1B,Ben,Ben,First,9,10,3500,NYY@BOS,BOS,NYY
2B-1,2B,Ted,Ted,Second,8,10,3000,LAD@SF,LAD,SF
3B-1,3B,Tim,Tim,Third,8,10,3000,LAD@SF,SF,LAD
SS-1,SS,Sam,Sam,Short,8,10,3000,LAD@SF,LAD,SF
OF-1,LF,Lou,Lou,Left,10,10,3000,CHC@STL,CHC,STL
OF-2,CF,Cy,Cy,Center,9,10,3000,CHC@STL,STL,CHC
OF-3,RF,Ray,Ray,Right,8,10,3000,CHC@STL,CHC,STL

`

func fanDuelSchema(t *testing.T) optimizer.Schema {
	t.Helper()
	schema, ok := optimizer.LookupSchema("fanduel_mlb")
	require.True(t, ok)
	return schema
}

func TestReadPool(t *testing.T) {
	schema := fanDuelSchema(t)

	pool, err := ReadPool(strings.NewReader(fanDuelMLB), schema, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, 10, pool.Len())

	ace, ok := pool.Get("P-A")
	require.True(t, ok)
	assert.Equal(t, 12000, ace.Salary)
	assert.Equal(t, 40.5, ace.ProjectedPoints)
	assert.Equal(t, "Ace", ace.Name)
	assert.Equal(t, "NYY", ace.Team)
	assert.Equal(t, []optimizer.PositionCategory{"P"}, ace.Categories)

	catcher, _ := pool.Get("C-1")
	assert.Equal(t, []optimizer.PositionCategory{"C1B"}, catcher.Categories)
	first, _ := pool.Get("B-1")
	assert.Equal(t, []optimizer.PositionCategory{"C1B"}, first.Categories)
	center, _ := pool.Get("OF-2")
	assert.Equal(t, []optimizer.PositionCategory{"OF"}, center.Categories)
}

func TestReadPoolDraftKingsColumns(t *testing.T) {
	schema, ok := optimizer.LookupSchema("draftkings_nba")
	require.True(t, ok)

	data := "Position,Name + ID,Name,ID,Roster Position,Salary,Game Info,TeamAbbrev,AvgPointsPerGame\n" +
		"PG/SG,Guard (1),Guard,1,PG/SG/G/UTIL,7000,LAL@BOS,LAL,40.1\n" +
		"C,Big (2),Big,2,C/UTIL,6000,LAL@BOS,BOS,35\n"

	pool, err := ReadPool(strings.NewReader(data), schema, DefaultColumns())
	require.NoError(t, err)
	guard, ok := pool.Get("1")
	require.True(t, ok)
	assert.Equal(t, []optimizer.PositionCategory{"PG", "SG"}, guard.Categories)
	assert.Equal(t, "LAL", guard.Team)
	assert.Equal(t, 40.1, guard.ProjectedPoints)
}

func TestReadPoolErrors(t *testing.T) {
	schema := fanDuelSchema(t)

	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "empty", data: "", want: "empty csv"},
		{name: "no salary column", data: "Id,Position,FPPG\nA,P,1\n", want: "no salary column"},
		{name: "bad salary", data: "Id,Position,FPPG,Salary\nA,P,1,lots\n", want: "line 2"},
		{name: "fractional salary", data: "Id,Position,FPPG,Salary\nA,P,1,100.5\n", want: "bad salary"},
		{name: "bad projection", data: "Id,Position,FPPG,Salary\nA,P,n/a,100\n", want: "bad projection"},
		{name: "duplicate id", data: "Id,Position,FPPG,Salary\nA,P,1,100\nA,OF,2,100\n", want: "duplicate player id"},
		{name: "missing position", data: "Id,Position,FPPG,Salary\nA,,1,100\n", want: "no position"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPool(strings.NewReader(tt.data), schema, DefaultColumns())
			require.Error(t, err)
			assert.ErrorIs(t, err, optimizer.ErrInvalidPool)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWriteTemplate(t *testing.T) {
	schema := fanDuelSchema(t)

	assignment := &optimizer.Assignment{Schema: schema.ID}
	for i, s := range schema.Slots {
		assignment.Fills = append(assignment.Fills, optimizer.SlotFill{
			Slot:   s.Name,
			Label:  s.DisplayLabel(),
			Player: optimizer.Player{ID: string(rune('a' + i))},
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, schema, assignment, assignment))
	assert.Equal(t,
		"P,C/1B,2B,3B,SS,OF,OF,OF,UTIL\n"+
			"a,b,c,d,e,f,g,h,i\n"+
			"a,b,c,d,e,f,g,h,i\n",
		buf.String())

	short := &optimizer.Assignment{Schema: schema.ID, Fills: assignment.Fills[:3]}
	err := WriteTemplate(&bytes.Buffer{}, schema, short)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no player in slot 3B")
}

func TestReadOptimizeWrite(t *testing.T) {
	schema := fanDuelSchema(t)
	pool, err := ReadPool(strings.NewReader(fanDuelMLB), schema, DefaultColumns())
	require.NoError(t, err)

	engine := optimizer.NewEngine(&optimizer.Enumerator{})
	res, err := engine.Optimize(context.Background(), optimizer.Request{Schema: schema, Pool: pool})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf, schema, res.Assignment))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"P", "C/1B", "2B", "3B", "SS", "OF", "OF", "OF", "UTIL"}, rows[0])

	// The ace does not fit under the cap next to eight hitters.
	lineup := rows[1]
	assert.Equal(t, "P-B", lineup[0])
	assert.Equal(t, "2B-1", lineup[2])
	assert.Equal(t, "3B-1", lineup[3])
	assert.Equal(t, "SS-1", lineup[4])
	assert.ElementsMatch(t, []string{"OF-1", "OF-2", "OF-3"}, lineup[5:8])
	assert.ElementsMatch(t, []string{"B-1", "C-1"}, []string{lineup[1], lineup[8]})
}
