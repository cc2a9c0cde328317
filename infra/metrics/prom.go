package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/caribou/core/metrics"
)

// PromSink exposes coordinator progress as Prometheus metrics.
type PromSink struct {
	residual   prometheus.Gauge
	gradients  *prometheus.GaugeVec
	stepSize   prometheus.Gauge
	totalCost  prometheus.Gauge
	maxNu      prometheus.Gauge
	runs       *prometheus.CounterVec
	iterations prometheus.Histogram
	solves     *prometheus.HistogramVec
	energy     *prometheus.GaugeVec
}

// NewPromSink registers the sink metrics on the default Prometheus
// registerer. The HTTP endpoint is started separately with Serve or
// ServeMetrics.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// that are already registered are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.residual, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "caribou_residual",
		Help: "Stopping residual of the latest dual update",
	})); err != nil {
		return nil, err
	}
	if s.gradients, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caribou_subgradient_norm",
		Help: "Euclidean norm of the latest subgradient by constraint",
	}, []string{"constraint"})); err != nil {
		return nil, err
	}
	if s.stepSize, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "caribou_step_size",
		Help: "Step size used by the latest dual update",
	})); err != nil {
		return nil, err
	}
	if s.totalCost, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "caribou_total_cost",
		Help: "Sum of the local optimal costs in the latest iteration",
	})); err != nil {
		return nil, err
	}
	if s.maxNu, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "caribou_capacity_price_max",
		Help: "Largest capacity price after the latest update",
	})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caribou_runs_total",
		Help: "Finished coordinator runs by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.iterations, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "caribou_run_iterations",
		Help:    "Iterations completed per run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.solves, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caribou_agent_solve_seconds",
		Help:    "Local solve latency by agent",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent", "failed"})); err != nil {
		return nil, err
	}
	if s.energy, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "caribou_agent_energy",
		Help: "Energy exchanged by agent over the final schedule",
	}, []string{"agent", "direction"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg or returns the collector registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordIteration updates the per-iteration gauges.
func (s *PromSink) RecordIteration(v coremetrics.IterationSample) error {
	s.residual.Set(v.Residual)
	s.gradients.WithLabelValues("equality").Set(v.GradMuNorm)
	s.gradients.WithLabelValues("capacity").Set(v.GradNuNorm)
	s.stepSize.Set(v.StepSize)
	s.totalCost.Set(v.TotalCost)
	s.maxNu.Set(v.MaxNu)
	return nil
}

// RecordRun counts the run and observes its iteration count.
func (s *PromSink) RecordRun(v coremetrics.RunSummary) error {
	s.runs.WithLabelValues(v.Outcome).Inc()
	s.iterations.Observe(float64(v.Iterations))
	return nil
}

// RecordAgentSolves observes one latency sample per solve.
func (s *PromSink) RecordAgentSolves(solves []coremetrics.AgentSolve) error {
	for _, r := range solves {
		s.solves.WithLabelValues(strconv.Itoa(r.AgentID), strconv.FormatBool(r.Failed)).Observe(r.Latency.Seconds())
	}
	return nil
}

// RecordEnergy sets the injected and consumed energy per agent, summed
// over all days.
func (s *PromSink) RecordEnergy(_ string, balances []coremetrics.EnergyBalance) error {
	injected := map[int]float64{}
	consumed := map[int]float64{}
	for _, b := range balances {
		injected[b.AgentID] += b.Injected
		consumed[b.AgentID] += b.Consumed
	}
	for id, v := range injected {
		agent := strconv.Itoa(id)
		s.energy.WithLabelValues(agent, "injected").Set(v)
		s.energy.WithLabelValues(agent, "consumed").Set(consumed[id])
	}
	return nil
}
