package events

import "time"

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeConverged Outcome = "converged"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeAborted   Outcome = "aborted"
)

// RunEvent is published when a run starts and when it returns.
type RunEvent struct {
	RunID      string
	Outcome    Outcome
	Iterations int
	Residual   float64
	Agents     int
	Duration   time.Duration
	Err        error
}

func (e RunEvent) Run() string { return e.RunID }
