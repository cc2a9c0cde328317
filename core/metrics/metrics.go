package metrics

import "time"

// IterationSample summarises one dual update.
type IterationSample struct {
	RunID      string
	Iteration  int
	Residual   float64
	GradMuNorm float64
	GradNuNorm float64
	StepSize   float64
	TotalCost  float64
	// MaxNu is the largest capacity price, zero while no capacity limit
	// binds.
	MaxNu  float64
	Agents int
	Time   time.Time
}

// MetricsSink records iteration samples for observability purposes.
type MetricsSink interface {
	RecordIteration(s IterationSample) error
}

// RunSummary describes a finished run.
type RunSummary struct {
	RunID      string
	Outcome    string
	Converged  bool
	Iterations int
	Residual   float64
	Agents     int
	Duration   time.Duration
	Time       time.Time
}

// RunRecorder records run summaries.
type RunRecorder interface {
	RecordRun(s RunSummary) error
}

// AgentSolve is the latency of one local solve.
type AgentSolve struct {
	RunID     string
	AgentID   int
	Iteration int
	Latency   time.Duration
	Failed    bool
}

// AgentSolveRecorder records per-agent solve latencies.
type AgentSolveRecorder interface {
	RecordAgentSolves(solves []AgentSolve) error
}

// EnergyRecorder records the energy balances of a final schedule.
type EnergyRecorder interface {
	RecordEnergy(runID string, balances []EnergyBalance) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordIteration(IterationSample) error      { return nil }
func (NopSink) RecordRun(RunSummary) error                 { return nil }
func (NopSink) RecordAgentSolves([]AgentSolve) error       { return nil }
func (NopSink) RecordEnergy(string, []EnergyBalance) error { return nil }
