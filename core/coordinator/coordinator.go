package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/events"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/logger"
	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/core/model"
	"github.com/kilianp07/caribou/core/monitoring"
	"github.com/kilianp07/caribou/core/trace"
	"github.com/kilianp07/caribou/internal/eventbus"
)

// Coordinator owns the dual state and drives the agents.
type Coordinator struct {
	provider   market.Provider
	forecaster forecast.Forecaster
	cfg        Config

	log   logger.Logger
	sink  metrics.MetricsSink
	store trace.Store
	bus   eventbus.Publisher[events.Event]
	newID func() string
	now   func() time.Time

	runMu      sync.Mutex
	mu         sync.Mutex
	agents     []agent.LocalAgent
	registered bool
	duals      model.DualState
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger; iterations are logged at debug level.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetricsSink records iteration samples, and run summaries, solve
// latencies and energy balances when the sink supports them.
func WithMetricsSink(s metrics.MetricsSink) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.sink = s
		}
	}
}

// WithTraceStore appends one trace record per iteration.
func WithTraceStore(s trace.Store) Option {
	return func(c *Coordinator) {
		if s != nil {
			c.store = s
		}
	}
}

// WithEventBus publishes IterationEvent and RunEvent values.
func WithEventBus(p eventbus.Publisher[events.Event]) Option {
	return func(c *Coordinator) { c.bus = p }
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(f func() string) Option {
	return func(c *Coordinator) {
		if f != nil {
			c.newID = f
		}
	}
}

// WithClock replaces time.Now for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Coordinator with zero-initialised duals.
func New(provider market.Provider, forecaster forecast.Forecaster, cfg Config, opts ...Option) (*Coordinator, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: market provider is required", model.ErrConfiguration)
	}
	if forecaster == nil {
		return nil, fmt.Errorf("%w: forecaster is required", model.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		provider:   provider,
		forecaster: forecaster,
		cfg:        cfg,
		log:        logger.NopLogger{},
		sink:       metrics.NopSink{},
		store:      trace.NopStore{},
		newID:      uuid.NewString,
		now:        time.Now,
		duals:      model.NewDualState(cfg.Horizon()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register replaces the agent roster. The dual state is left untouched.
func (c *Coordinator) Register(agents []agent.LocalAgent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = append([]agent.LocalAgent(nil), agents...)
	c.registered = true
}

// Duals returns a snapshot of the current dual state.
func (c *Coordinator) Duals() model.DualState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duals.Clone()
}

// Reset sets the duals back to zero.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duals = model.NewDualState(c.cfg.Horizon())
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	// Duals are the prices after the last completed update.
	Duals model.DualState
	// Responses are the agent answers of the last completed iteration.
	Responses  []model.LocalResponse
	Converged  bool
	Iterations int
	Residual   float64
	History    []model.IterationRecord
	// Last points at the final entry of History, nil when no iteration
	// completed.
	Last *model.IterationRecord
}

// Run performs at most maxIterations dual updates starting from the
// current dual state and stops early once the residual is within
// tolerance. With maxIterations = 0 no agent is called: the residual of
// the initial all-zero schedule is evaluated and the duals are returned
// unchanged.
//
// On cancellation, on a non-finite dual update and on agent failure the
// returned Result describes the last completed iteration together with a
// non-nil error.
func (c *Coordinator) Run(ctx context.Context, maxIterations int, tolerance float64) (Result, error) {
	if maxIterations < 0 {
		return Result{}, fmt.Errorf("%w: max iterations must not be negative, got %d", model.ErrConfiguration, maxIterations)
	}
	if !(tolerance >= 0) || math.IsInf(tolerance, 0) {
		return Result{}, fmt.Errorf("%w: tolerance must be a non-negative finite number, got %g", model.ErrConfiguration, tolerance)
	}

	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.mu.Lock()
	agents := append([]agent.LocalAgent(nil), c.agents...)
	registered := c.registered
	duals := c.duals.Clone()
	c.mu.Unlock()
	if !registered {
		return Result{}, fmt.Errorf("%w: no agents registered", model.ErrConfiguration)
	}
	if len(agents) == 0 {
		return Result{}, fmt.Errorf("%w: agent roster is empty", model.ErrConfiguration)
	}

	r := &run{
		c:       c,
		id:      c.newID(),
		started: c.now(),
		agents:  agents,
		res:     Result{Duals: duals},
	}
	r.res.RunID = r.id
	c.publish(events.RunEvent{RunID: r.id, Outcome: events.OutcomeStarted, Agents: len(agents)})
	c.log.Infof("run %s: %d agents, horizon %d, %s step, at most %d iterations", r.id, len(agents), c.cfg.Horizon(), c.cfg.Step, maxIterations)

	err := r.execute(ctx, maxIterations, tolerance)
	r.finish(err)
	return r.res, err
}

// run carries the state of one Run call.
type run struct {
	c       *Coordinator
	id      string
	started time.Time
	agents  []agent.LocalAgent
	res     Result
}

func (r *run) execute(ctx context.Context, maxIterations int, tolerance float64) error {
	c := r.c
	p, err := c.load(ctx)
	if err != nil {
		return err
	}

	var price []float64
	draw := func() error {
		f, err := c.forecaster.Forecast(p.hist, p.cov, c.cfg.HorizonDays)
		if err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
		price = f.Trajectory()
		if err := model.CheckLen("forecast", price, p.h); err != nil {
			return err
		}
		return nil
	}
	if c.cfg.Redraw == forecast.RedrawPerRun {
		if err := draw(); err != nil {
			return err
		}
	}

	if maxIterations == 0 {
		zero := make([]model.LocalResponse, len(r.agents))
		for i, a := range r.agents {
			zero[i] = model.LocalResponse{AgentID: a.ID(), X: make([]float64, p.h)}
		}
		gMu, gNu := p.subgradients(make([]float64, p.h))
		r.res.Responses = zero
		r.res.Residual = residual(c.cfg.Residual, gMu, gNu)
		r.res.Converged = r.res.Residual <= tolerance
		return nil
	}

	duals := r.res.Duals
	for k := 0; k < maxIterations; k++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("iteration %d: %w", k, err)
		}
		if c.cfg.Redraw == forecast.RedrawPerIteration {
			if err := draw(); err != nil {
				return err
			}
		}
		fq := p.signal(price, duals)
		if !model.AllFinite(fq) {
			return fmt.Errorf("iteration %d: %w: non-finite price signal", k, model.ErrNumerical)
		}

		responses, err := c.dispatch(ctx, r.id, k, r.agents, duals, fq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("iteration %d: %w", k, ctxErr)
			}
			return fmt.Errorf("iteration %d: %w", k, err)
		}
		sum, err := p.aggregate(responses)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", k, err)
		}
		gMu, gNu := p.subgradients(sum)
		eta := c.cfg.Step.At(k)
		next := update(duals, gMu, gNu, eta, c.cfg.StableCoupling)
		if !next.Finite() {
			return fmt.Errorf("iteration %d: %w: dual update produced non-finite values", k, model.ErrNumerical)
		}

		rec := model.IterationRecord{
			Iteration: k,
			Duals:     duals,
			Responses: responses,
			GradMu:    gMu,
			GradNu:    gNu,
			StepSize:  eta,
			Residual:  residual(c.cfg.Residual, gMu, gNu),
		}
		duals = next
		r.complete(ctx, rec, duals)
		if rec.Residual <= tolerance {
			r.res.Converged = true
			return nil
		}
	}
	return nil
}

// complete commits a finished iteration to the result and the coordinator.
func (r *run) complete(ctx context.Context, rec model.IterationRecord, duals model.DualState) {
	c := r.c
	r.res.History = append(r.res.History, rec)
	r.res.Last = &r.res.History[len(r.res.History)-1]
	r.res.Duals = duals
	r.res.Responses = rec.Responses
	r.res.Iterations = rec.Iteration + 1
	r.res.Residual = rec.Residual

	c.mu.Lock()
	c.duals = duals.Clone()
	c.mu.Unlock()

	iterationsTotal.Inc()
	residualGauge.Set(rec.Residual)

	ts := c.now()
	sample := metrics.IterationSample{
		RunID:      r.id,
		Iteration:  rec.Iteration,
		Residual:   rec.Residual,
		GradMuNorm: norm2(rec.GradMu),
		GradNuNorm: norm2(rec.GradNu),
		StepSize:   rec.StepSize,
		TotalCost:  rec.TotalCost(),
		MaxNu:      maxOf(duals.Nu),
		Agents:     len(rec.Responses),
		Time:       ts,
	}
	if err := c.sink.RecordIteration(sample); err != nil {
		c.log.Warnf("run %s: record iteration %d: %v", r.id, rec.Iteration, err)
	}
	if err := c.store.Append(ctx, trace.FromIteration(r.id, rec, ts)); err != nil {
		c.log.Warnf("run %s: trace iteration %d: %v", r.id, rec.Iteration, err)
	}
	c.publish(events.IterationEvent{
		RunID:     r.id,
		Iteration: rec.Iteration,
		Residual:  rec.Residual,
		StepSize:  rec.StepSize,
		TotalCost: sample.TotalCost,
	})
	c.log.Debugw("iteration", map[string]any{
		"run_id":     r.id,
		"iteration":  rec.Iteration,
		"residual":   rec.Residual,
		"step_size":  rec.StepSize,
		"total_cost": sample.TotalCost,
		"max_nu":     sample.MaxNu,
	})
}

// finish reports the outcome of the run.
func (r *run) finish(err error) {
	c := r.c
	outcome := events.OutcomeExhausted
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = events.OutcomeCancelled
	case err != nil:
		outcome = events.OutcomeAborted
	case r.res.Converged:
		outcome = events.OutcomeConverged
	}
	dur := c.now().Sub(r.started)
	runsTotal.WithLabelValues(string(outcome)).Inc()

	if rec, ok := c.sink.(metrics.RunRecorder); ok {
		sum := metrics.RunSummary{
			RunID:      r.id,
			Outcome:    string(outcome),
			Converged:  r.res.Converged,
			Iterations: r.res.Iterations,
			Residual:   r.res.Residual,
			Agents:     len(r.agents),
			Duration:   dur,
			Time:       c.now(),
		}
		if rerr := rec.RecordRun(sum); rerr != nil {
			c.log.Warnf("run %s: record run: %v", r.id, rerr)
		}
	}
	if rec, ok := c.sink.(metrics.EnergyRecorder); ok && err == nil && len(r.res.Responses) > 0 {
		if rerr := rec.RecordEnergy(r.id, metrics.Balances(r.res.Responses)); rerr != nil {
			c.log.Warnf("run %s: record energy: %v", r.id, rerr)
		}
	}
	c.publish(events.RunEvent{
		RunID:      r.id,
		Outcome:    outcome,
		Iterations: r.res.Iterations,
		Residual:   r.res.Residual,
		Agents:     len(r.agents),
		Duration:   dur,
		Err:        err,
	})

	switch outcome {
	case events.OutcomeAborted:
		monitoring.CaptureException(err, map[string]string{"run_id": r.id, "component": "coordinator"})
		c.log.Errorf("run %s aborted after %d iterations: %v", r.id, r.res.Iterations, err)
	case events.OutcomeCancelled:
		c.log.Warnf("run %s cancelled after %d iterations: %v", r.id, r.res.Iterations, err)
	default:
		c.log.Infof("run %s %s after %d iterations, residual %g", r.id, outcome, r.res.Iterations, r.res.Residual)
	}
}

func (c *Coordinator) publish(e events.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func maxOf(v []float64) float64 {
	var m float64
	for i, x := range v {
		if i == 0 || x > m {
			m = x
		}
	}
	return m
}
