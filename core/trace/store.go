// Package trace keeps a diagnostic audit trail of coordinator iterations.
// Each record summarises one dual update of a run; the stores never hold
// agent trajectories.
package trace

import (
	"context"
	"time"

	"github.com/kilianp07/caribou/core/model"
)

// Record captures one coordinator iteration.
type Record struct {
	RunID      string    `json:"run_id"`
	Timestamp  time.Time `json:"timestamp"`
	Iteration  int       `json:"iteration"`
	Residual   float64   `json:"residual"`
	StepSize   float64   `json:"step_size"`
	GradMuNorm float64   `json:"grad_mu_norm"`
	GradNuNorm float64   `json:"grad_nu_norm"`
	TotalCost  float64   `json:"total_cost"`
	Agents     int       `json:"agents"`
	Mu         []float64 `json:"mu"`
	Nu         []float64 `json:"nu"`
}

// FromIteration converts an iteration record. The duals are copied.
func FromIteration(runID string, rec model.IterationRecord, ts time.Time) Record {
	return Record{
		RunID:      runID,
		Timestamp:  ts,
		Iteration:  rec.Iteration,
		Residual:   rec.Residual,
		StepSize:   rec.StepSize,
		GradMuNorm: norm2(rec.GradMu),
		GradNuNorm: norm2(rec.GradNu),
		TotalCost:  rec.TotalCost(),
		Agents:     len(rec.Responses),
		Mu:         model.CloneVec(rec.Duals.Mu),
		Nu:         model.CloneVec(rec.Duals.Nu),
	}
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	RunID string
	Start time.Time
	End   time.Time
}

// Match reports whether r passes the filters.
func (q Query) Match(r Record) bool {
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
