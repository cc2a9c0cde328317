package coordinator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/events"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/core/trace"
	"github.com/kilianp07/caribou/internal/eventbus"
)

type recordingSink struct {
	mu       sync.Mutex
	samples  []metrics.IterationSample
	runs     []metrics.RunSummary
	solves   []metrics.AgentSolve
	balances map[string][]metrics.EnergyBalance
}

func (s *recordingSink) RecordIteration(v metrics.IterationSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, v)
	return nil
}

func (s *recordingSink) RecordRun(v metrics.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, v)
	return nil
}

func (s *recordingSink) RecordAgentSolves(v []metrics.AgentSolve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solves = append(s.solves, v...)
	return nil
}

func (s *recordingSink) RecordEnergy(runID string, b []metrics.EnergyBalance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.balances == nil {
		s.balances = map[string][]metrics.EnergyBalance{}
	}
	s.balances[runID] = b
	return nil
}

func TestRun_ReportsToSinkTraceAndBus(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)

	store, err := trace.NewJSONLStore(filepath.Join(t.TempDir(), "trace.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sink := &recordingSink{}
	bus := eventbus.NewBuffered[events.Event](32)
	sub := bus.Subscribe()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	c, err := New(testProvider(1, 1, 0, identity(h)), forecast.MeanForecaster{}, testConfig(0.1),
		WithMetricsSink(sink),
		WithTraceStore(store),
		WithEventBus(bus),
		WithRunIDs(func() string { return "run-1" }),
		WithClock(func() time.Time { return t0 }),
	)
	require.NoError(t, err)
	c.Register([]agent.LocalAgent{quadratic(t, 0, 1, 0, -1, 1), quadratic(t, 1, 1, 0, -1, 1)})

	res, err := c.Run(context.Background(), 3, 0)
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	bus.Close()

	var got []events.Event
	for e := range sub {
		got = append(got, e)
	}
	require.Len(t, got, 5)
	start, ok := got[0].(events.RunEvent)
	require.True(t, ok)
	assert.Equal(t, events.OutcomeStarted, start.Outcome)
	assert.Equal(t, 2, start.Agents)
	for k := 1; k <= 3; k++ {
		it, ok := got[k].(events.IterationEvent)
		require.True(t, ok)
		assert.Equal(t, k-1, it.Iteration)
		assert.Equal(t, "run-1", it.Run())
	}
	end, ok := got[4].(events.RunEvent)
	require.True(t, ok)
	assert.Equal(t, events.OutcomeExhausted, end.Outcome)
	assert.Equal(t, 3, end.Iterations)
	assert.NoError(t, end.Err)

	require.Len(t, sink.samples, 3)
	assert.Equal(t, 2, sink.samples[0].Agents)
	assert.Equal(t, t0, sink.samples[0].Time)
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "exhausted", sink.runs[0].Outcome)
	assert.Equal(t, 3, sink.runs[0].Iterations)
	assert.Len(t, sink.solves, 6)
	assert.Len(t, sink.balances["run-1"], 2)

	recs, err := store.Query(context.Background(), trace.Query{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 2, recs[2].Iteration)
	assert.Equal(t, res.History[2].Residual, recs[2].Residual)

	assert.Equal(t, 3.0, testutil.ToFloat64(iterationsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues("exhausted")))
	assert.Equal(t, res.Residual, testutil.ToFloat64(residualGauge))
	assert.Equal(t, 1, testutil.CollectAndCount(agentSolveLatency))
}

func TestRun_AbortedOutcome(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })

	sink := &recordingSink{}
	c, err := New(testProvider(0, 0, 0, nil), forecast.MeanForecaster{}, testConfig(0.1), WithMetricsSink(sink))
	require.NoError(t, err)
	c.Register([]agent.LocalAgent{quadratic(t, 0, 1, 0, 1, -1)})

	_, err = c.Run(context.Background(), 3, 0)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues("aborted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(iterationsTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(agentSolveLatency))
	require.Len(t, sink.runs, 1)
	assert.Equal(t, "aborted", sink.runs[0].Outcome)
	assert.Len(t, sink.solves, 1)
	assert.True(t, sink.solves[0].Failed)
	assert.Empty(t, sink.balances)
}
