package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineOptimize(t *testing.T) {
	engine := NewEngine(NewBranchAndBound(nil))
	assert.Equal(t, BackendBranchAndBound, engine.Backend())

	res, err := engine.Optimize(context.Background(), Request{
		Schema: pitcherOutfieldSchema(22000),
		Pool:   mustPool(t, pitcherOutfieldPlayers()...),
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.OptimizationID)
	assert.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.True(t, res.Solution.Optimal)
	assert.InDelta(t, 51, res.Solution.TotalPoints, 1e-9)
	assert.Equal(t, []string{"P-2", "OF-1", "OF-2", "OF-3"}, res.Assignment.PlayerIDs())
	assert.Equal(t, res.Solution.TotalSalary, res.Assignment.TotalSalary)
}

func TestEngineLockedPlayers(t *testing.T) {
	engine := NewEngine(&Enumerator{})
	res, err := engine.Optimize(context.Background(), Request{
		Schema:   pitcherOutfieldSchema(35000),
		Pool:     mustPool(t, pitcherOutfieldPlayers()...),
		Locked:   []string{"OF-5"},
		Excluded: []string{"OF-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"P-1", "OF-2", "OF-3", "OF-5"}, res.Assignment.PlayerIDs())

	_, err = engine.Optimize(context.Background(), Request{
		Schema: pitcherOutfieldSchema(35000),
		Pool:   mustPool(t, pitcherOutfieldPlayers()...),
		Locked: []string{"nobody"},
	})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestEngineInfeasible(t *testing.T) {
	engine := NewEngine(NewBranchAndBound(nil))

	t.Run("cap below cheapest roster", func(t *testing.T) {
		res, err := engine.Optimize(context.Background(), Request{
			Schema: pitcherOutfieldSchema(10000),
			Pool:   mustPool(t, pitcherOutfieldPlayers()...),
		})
		assert.Nil(t, res)
		assert.ErrorIs(t, err, ErrInfeasible)
		assert.NotErrorIs(t, err, ErrTimedOut)
	})

	t.Run("no pitchers in pool", func(t *testing.T) {
		var outfielders []Player
		for _, p := range pitcherOutfieldPlayers() {
			if p.EligibleFor("OF") {
				outfielders = append(outfielders, p)
			}
		}
		_, err := engine.Optimize(context.Background(), Request{
			Schema: pitcherOutfieldSchema(35000),
			Pool:   mustPool(t, outfielders...),
		})
		assert.ErrorIs(t, err, ErrInfeasible)

		var schemaErr *SchemaError
		require.True(t, errors.As(err, &schemaErr))
		assert.True(t, schemaErr.Unsatisfiable)
	})
}

func TestEngineSchemaDefect(t *testing.T) {
	engine := NewEngine(NewBranchAndBound(nil))
	schema := pitcherOutfieldSchema(35000)
	schema.Slots[1].Name = "P"

	_, err := engine.Optimize(context.Background(), Request{
		Schema: schema,
		Pool:   mustPool(t, pitcherOutfieldPlayers()...),
	})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.NotErrorIs(t, err, ErrInfeasible)

	_, err = engine.Optimize(context.Background(), Request{Schema: pitcherOutfieldSchema(35000)})
	assert.ErrorIs(t, err, ErrInvalidPool)
}

func TestEngineFallback(t *testing.T) {
	engine := NewEngine(&abortingSolver{inner: &Enumerator{}})
	req := Request{
		Schema: pitcherOutfieldSchema(35000),
		Pool:   mustPool(t, pitcherOutfieldPlayers()...),
	}

	_, err := engine.Optimize(context.Background(), req)
	assert.ErrorIs(t, err, ErrTimedOut)

	req.AllowFallback = true
	res, err := engine.Optimize(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.False(t, res.Solution.Optimal)
	assert.Len(t, res.Assignment.Fills, 4)
}

func TestEngineTimedOutWithoutIncumbent(t *testing.T) {
	engine := NewEngine(&Enumerator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Optimize(ctx, Request{
		Schema:        pitcherOutfieldSchema(35000),
		Pool:          mustPool(t, pitcherOutfieldPlayers()...),
		AllowFallback: true,
	})
	assert.ErrorIs(t, err, ErrTimedOut)

	var failure *SolveFailure
	require.True(t, errors.As(err, &failure))
	assert.Nil(t, failure.Best)
}
