package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	apitrace "github.com/kilianp07/caribou/api/trace"
	"github.com/kilianp07/caribou/app/plugins"
	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/coordinator"
	"github.com/kilianp07/caribou/core/events"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/core/market"
	coremetrics "github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/core/model"
	coremon "github.com/kilianp07/caribou/core/monitoring"
	"github.com/kilianp07/caribou/core/trace"
	"github.com/kilianp07/caribou/infra/logger"
	"github.com/kilianp07/caribou/infra/metrics"
	"github.com/kilianp07/caribou/infra/monitoring"
	"github.com/kilianp07/caribou/internal/eventbus"
)

// Service wires a coordinator to its market, roster and observers.
type Service struct {
	Coordinator *coordinator.Coordinator
	Provider    market.Provider
	Agents      []agent.LocalAgent

	cfg   *config.Config
	bus   *eventbus.Bus[events.Event]
	sink  coremetrics.MetricsSink
	store trace.Store
	log   *logger.ZerologLogger
}

// New creates a Service from the configuration.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg, err := logger.NewWithOptions("coordinator", logger.Options{Level: cfg.Log.Level, Console: cfg.Log.Console})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	provider, err := NewProvider(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("market: %w", err)
	}
	agents, err := BuildRoster(ctx, provider, cfg.Market, cfg.Roster)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	fc, err := forecast.New(cfg.Forecast.Strategy, cfg.Forecast.Seed)
	if err != nil {
		return nil, err
	}
	cc, err := cfg.Coordinator()
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := trace.Open(cfg.Trace)
	if err != nil {
		closeQuietly(sink)
		return nil, fmt.Errorf("trace store: %w", err)
	}
	bus := eventbus.New[events.Event]()

	c, err := coordinator.New(provider, fc, cc,
		coordinator.WithLogger(logg),
		coordinator.WithMetricsSink(sink),
		coordinator.WithTraceStore(store),
		coordinator.WithEventBus(bus),
	)
	if err != nil {
		closeQuietly(sink)
		closeQuietly(store)
		return nil, err
	}
	c.Register(agents)
	logg.Infof("%s market, %d agents, %s forecast, redraw %s", cfg.Market.Source, len(agents), cfg.Forecast.Strategy, cc.Redraw)

	return &Service{
		Coordinator: c,
		Provider:    provider,
		Agents:      agents,
		cfg:         cfg,
		bus:         bus,
		sink:        sink,
		store:       store,
		log:         logg,
	}, nil
}

// NewProvider builds the market source named by cfg.Source.
func NewProvider(cfg config.MarketConfig) (market.Provider, error) {
	f, ok := plugins.Markets[cfg.Source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown market source %s", model.ErrConfiguration, cfg.Source)
	}
	return f(cfg)
}

// BuildRoster resolves the roster file and creates the agents in entry
// order, assigning identities from zero.
func BuildRoster(ctx context.Context, p market.Provider, mc config.MarketConfig, rc config.RosterConfig) ([]agent.LocalAgent, error) {
	rc, err := rc.Resolve()
	if err != nil {
		return nil, err
	}
	b := agent.NewRosterBuilder(p, mc.StartDay, mc.HorizonDays)
	if rc.PVSeed != 0 {
		b.WithPVSource(rand.NewPCG(rc.PVSeed, rc.PVSeed+1))
	}
	for i, e := range rc.Agents {
		f, ok := plugins.Agents[e.Type]
		if !ok {
			return nil, fmt.Errorf("%w: unknown agent type %s", model.ErrConfiguration, e.Type)
		}
		if err := f(ctx, b, e); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Type, err)
		}
	}
	agents := b.Agents()
	if len(agents) == 0 {
		return nil, fmt.Errorf("%w: roster is empty", model.ErrConfiguration)
	}
	return agents, nil
}

// Run performs one coordinator run while logging progress from the event
// bus and, when a port is configured, serving Prometheus metrics.
func (s *Service) Run(ctx context.Context) (coordinator.Result, error) {
	collectCtx, stopCollector := context.WithCancel(ctx)
	done := metrics.StartEventCollector(collectCtx, s.bus, s.log, 10)
	defer func() {
		stopCollector()
		<-done
	}()

	if s.cfg.Metrics.PrometheusPort != "" {
		serveCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()
		go func() {
			if err := s.Serve(serveCtx); err != nil {
				s.log.Errorf("http server: %v", err)
			}
		}()
	}

	return s.Coordinator.Run(ctx, s.cfg.Optimization.MaxIterations, s.cfg.Optimization.Tolerance)
}

// Serve exposes /metrics, /api/trace and /api/duals until ctx is
// cancelled. It returns immediately when no port is configured.
func (s *Service) Serve(ctx context.Context) error {
	port := s.cfg.Metrics.PrometheusPort
	if port == "" {
		return nil
	}
	mux := apitrace.NewMux(s.store, s.Coordinator, promhttp.Handler(), s.cfg.Metrics.APIToken)
	return metrics.Serve(ctx, metrics.PromAddr(port), mux)
}

// Close releases the sinks and the trace store and flushes monitoring.
func (s *Service) Close() error {
	s.bus.Close()
	var errs []error
	if c, ok := s.sink.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, s.store.Close())
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func closeQuietly(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
