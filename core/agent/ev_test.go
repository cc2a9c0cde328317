package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
)

func evBounds(h int, lo, hi, rate float64) market.AgentBounds {
	return market.AgentBounds{Min: vec(h, lo), Max: vec(h, hi), RateLimit: vec(h, rate)}
}

func solveEV(t *testing.T, a *EVFleetAgent, fq []float64) model.LocalResponse {
	t.Helper()
	h := a.Horizon()
	resp, err := a.Solve(context.Background(), vec(h, 0), vec(h, 0), fq)
	require.NoError(t, err)
	require.Len(t, resp.X, h)
	return resp
}

func TestEVFleetAgent_FollowsPriceSign(t *testing.T) {
	h := 24
	a, err := NewEVFleetAgent(1, evBounds(h, 0, 1000, 10), WithInitialEnergy(500))
	require.NoError(t, err)

	fq := make([]float64, h)
	for i := range fq {
		if i < 12 {
			fq[i] = 1
		} else {
			fq[i] = -1
		}
	}
	resp := solveEV(t, a, fq)
	assert.Equal(t, 1, resp.AgentID)
	for i, x := range resp.X {
		if i < 12 {
			assert.InDelta(t, 10, x, 1e-6, "slot %d", i)
		} else {
			assert.InDelta(t, -10, x, 1e-6, "slot %d", i)
		}
	}
	assert.InDelta(t, -240, resp.Cost, 1e-6)
}

func TestEVFleetAgent_EnergyWindowBinds(t *testing.T) {
	h := 24
	a, err := NewEVFleetAgent(0, evBounds(h, 0, 50, 10), WithInitialEnergy(0))
	require.NoError(t, err)

	fq := make([]float64, h)
	for i := range fq {
		if i < 6 {
			fq[i] = -1
		} else {
			fq[i] = 2
		}
	}
	resp := solveEV(t, a, fq)

	var early, late float64
	e := 0.0
	for i, x := range resp.X {
		if i < 6 {
			early += x
		} else {
			late += x
		}
		e -= x
		assert.GreaterOrEqual(t, e, -1e-6, "energy below floor at slot %d", i)
		assert.LessOrEqual(t, e, 50+1e-6, "energy above ceiling at slot %d", i)
	}
	assert.InDelta(t, -50, early, 1e-6)
	assert.InDelta(t, 50, late, 1e-6)
	assert.InDelta(t, -150, resp.Cost, 1e-6)
}

func TestEVFleetAgent_NoV2GNeverInjects(t *testing.T) {
	h := 24
	a, err := NewEVFleetAgent(0, evBounds(h, 0, 100, 10),
		WithInitialEnergy(50), WithDischargeLimit(vec(h, 0)))
	require.NoError(t, err)

	resp := solveEV(t, a, vec(h, 5))
	for i, x := range resp.X {
		assert.InDelta(t, 0, x, 1e-6, "slot %d", i)
	}
}

func TestEVFleetAgent_PVPassesThrough(t *testing.T) {
	h := 24
	pv := make([]float64, h)
	for i := range pv {
		pv[i] = float64(i % 7)
	}
	a, err := NewEVFleetAgent(0, evBounds(h, 0, 0, 0), WithInitialEnergy(0), WithPV(pv))
	require.NoError(t, err)

	resp := solveEV(t, a, vec(h, 3))
	for i := range pv {
		assert.InDelta(t, pv[i], resp.X[i], 1e-9)
	}
}

func TestEVFleetAgent_Deterministic(t *testing.T) {
	h := 24
	a, err := NewEVFleetAgent(0, evBounds(h, 10, 80, 7), WithInitialEnergy(40), WithThroughputCost(0.1))
	require.NoError(t, err)
	fq := make([]float64, h)
	for i := range fq {
		fq[i] = float64((i*5)%11) - 5
	}
	r1 := solveEV(t, a, fq)
	r2 := solveEV(t, a, fq)
	assert.Equal(t, r1, r2)
}

func TestEVFleetAgent_Infeasible(t *testing.T) {
	h := 24
	b := evBounds(h, 0, 100, 10)
	b.Min[3] = 120
	a, err := NewEVFleetAgent(0, b, WithInitialEnergy(0))
	require.NoError(t, err)
	_, err = a.Solve(context.Background(), vec(h, 0), vec(h, 0), vec(h, 0))
	assert.ErrorIs(t, err, model.ErrInfeasibleLocalProblem)

	// reaching 100 in the first slot is impossible at 10 per slot
	a, err = NewEVFleetAgent(0, evBounds(h, 100, 200, 10), WithInitialEnergy(0))
	require.NoError(t, err)
	_, err = a.Solve(context.Background(), vec(h, 0), vec(h, 0), vec(h, 0))
	assert.ErrorIs(t, err, model.ErrInfeasibleLocalProblem)
}

func TestEVFleetAgent_SolverFailure(t *testing.T) {
	orig := lpSolve
	defer func() { lpSolve = orig }()
	lpSolve = func(c []float64, A mat.Matrix, b []float64) (float64, []float64, error) {
		return 0, nil, errors.New("boom")
	}

	h := 24
	a, err := NewEVFleetAgent(0, evBounds(h, 0, 100, 10))
	require.NoError(t, err)
	_, err = a.Solve(context.Background(), vec(h, 0), vec(h, 0), vec(h, 0))
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrInfeasibleLocalProblem)
	assert.Contains(t, err.Error(), "boom")
}

func TestEVFleetAgent_DimensionMismatch(t *testing.T) {
	h := 24
	a, err := NewEVFleetAgent(0, evBounds(h, 0, 100, 10))
	require.NoError(t, err)
	_, err = a.Solve(context.Background(), vec(h, 0), vec(h, 0), vec(h-1, 0))
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)

	var de *model.DimensionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, h-1, de.Got)
	assert.Equal(t, h, de.Want)

	_, err = NewEVFleetAgent(0, evBounds(h, 0, 100, 10), WithPV(vec(h+1, 0)))
	assert.ErrorIs(t, err, model.ErrDimensionMismatch)
}

func TestNewEVFleetAgent_Validation(t *testing.T) {
	_, err := NewEVFleetAgent(0, market.AgentBounds{})
	assert.Error(t, err)
	_, err = NewEVFleetAgent(0, evBounds(4, 0, 1, 1), WithThroughputCost(-1))
	assert.Error(t, err)
}
