package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caribou/core/coordinator"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/model"
)

func result() coordinator.Result {
	d := model.NewDualState(2)
	d.Mu[0], d.Nu[1] = 0.5, 1.5
	return coordinator.Result{
		RunID:      "r",
		Duals:      d,
		Converged:  true,
		Iterations: 3,
		Residual:   0.001,
		Responses: []model.LocalResponse{
			{AgentID: 0, X: []float64{1, 2}, Cost: 3},
			{AgentID: 1, X: []float64{-1, 4}, Cost: 1},
		},
	}
}

func readCSV(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()
	rows, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteScheduleCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteScheduleCSV(&buf, result()))
	rows := readCSV(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"slot", "mu", "nu", "agent_0", "agent_1", "aggregate"}, rows[0])
	assert.Equal(t, []string{"0", "0.5", "0", "1", "-1", "0"}, rows[1])
	assert.Equal(t, []string{"1", "0", "1.5", "2", "4", "6"}, rows[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, result()))
	var s Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &s))
	assert.Equal(t, "r", s.RunID)
	assert.True(t, s.Converged)
	assert.Equal(t, 4.0, s.TotalCost)
	assert.Equal(t, []float64{0, 6}, s.Aggregate)
	assert.Len(t, s.Schedules, 2)
}

func TestWriteForecastCSV(t *testing.T) {
	f := forecast.PriceForecast{Prices: mat.NewDense(2, 2, []float64{1, 2, 3, 4})}
	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, f))
	rows := readCSV(t, &buf)
	assert.Equal(t, [][]string{{"slot", "day_0", "day_1"}, {"0", "1", "2"}, {"1", "3", "4"}}, rows)
}

func TestWriteHistoryCSV(t *testing.T) {
	history := []model.IterationRecord{{
		Iteration: 0,
		GradMu:    []float64{3, 4},
		GradNu:    []float64{0, 0},
		StepSize:  0.1,
		Residual:  5,
		Responses: []model.LocalResponse{{Cost: 2}, {Cost: 0.5}},
	}}
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, history))
	rows := readCSV(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"0", "5", "0.1", "5", "0", "2.5"}, rows[1])
}
