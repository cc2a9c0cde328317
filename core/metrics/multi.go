package metrics

import (
	"errors"
	"io"
)

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIteration forwards the sample to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordIteration(s IterationSample) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordIteration(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards run summaries to sinks that support them.
func (m *MultiSink) RecordRun(s RunSummary) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(RunRecorder); ok {
			if err := rec.RecordRun(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAgentSolves forwards solve latencies.
func (m *MultiSink) RecordAgentSolves(solves []AgentSolve) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(AgentSolveRecorder); ok {
			if err := rec.RecordAgentSolves(solves); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordEnergy forwards energy balances.
func (m *MultiSink) RecordEnergy(runID string, balances []EnergyBalance) error {
	for _, sink := range m.Sinks {
		if rec, ok := sink.(EnergyRecorder); ok {
			if err := rec.RecordEnergy(runID, balances); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes every sink that holds resources.
func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.Sinks {
		if c, ok := sink.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
