package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	iterationsTotal   prometheus.Counter
	runsTotal         *prometheus.CounterVec
	residualGauge     prometheus.Gauge
	agentSolveLatency *prometheus.HistogramVec
)

// newCollectors creates new metric collectors.
func newCollectors() (prometheus.Counter, *prometheus.CounterVec, prometheus.Gauge, *prometheus.HistogramVec) {
	it := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_iterations_total",
		Help: "Number of completed dual updates",
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_runs_total",
		Help: "Number of coordinator runs by outcome",
	}, []string{"outcome"})
	res := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_residual",
		Help: "Subgradient residual of the latest iteration",
	})
	lat := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "coordinator_agent_solve_seconds",
		Help:    "Latency of local subproblem solves",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"result"})
	return it, runs, res, lat
}

func init() {
	iterationsTotal, runsTotal, residualGauge, agentSolveLatency = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers coordinator metrics on the provided
// registry. If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(iterationsTotal, runsTotal, residualGauge, agentSolveLatency)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	iterationsTotal, runsTotal, residualGauge, agentSolveLatency = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
