package agent

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
)

// RosterBuilder constructs agents and assigns their identities. Identities
// start at zero and increase by one per agent; they index the per-agent
// bound arrays of the market provider. The counter belongs to the builder,
// so independent rosters never share identity state.
type RosterBuilder struct {
	provider    market.Provider
	startDay    int
	horizonDays int
	pvSrc       rand.Source
	next        int
	agents      []LocalAgent
}

// NewRosterBuilder returns a builder for agents planning horizonDays days
// from startDay.
func NewRosterBuilder(p market.Provider, startDay, horizonDays int) *RosterBuilder {
	return &RosterBuilder{provider: p, startDay: startDay, horizonDays: horizonDays}
}

// WithPVSource enables randomised PV profiles drawn from src. Without a
// source PV profiles are used as provided.
func (b *RosterBuilder) WithPVSource(src rand.Source) *RosterBuilder {
	b.pvSrc = src
	return b
}

// Horizon returns H for the builder's planning window.
func (b *RosterBuilder) Horizon() int { return model.Horizon(b.horizonDays) }

// EVSpec configures an EV fleet whose bounds come from the provider.
type EVSpec struct {
	InitialEnergy  *float64 `json:"initial_energy" yaml:"initial_energy"`
	ThroughputCost float64  `json:"throughput_cost" yaml:"throughput_cost"`
	NoV2G          bool     `json:"no_v2g" yaml:"no_v2g"`
	PV             bool     `json:"pv" yaml:"pv"`
}

// GeneratorSpec configures a QuadraticAgent producing between zero and
// the provider rate limit.
type GeneratorSpec struct {
	Quadratic float64 `json:"quadratic" yaml:"quadratic"`
	Linear    float64 `json:"linear" yaml:"linear"`
}

// AddEVFleet loads the bounds of the next identity and adds an
// EVFleetAgent.
func (b *RosterBuilder) AddEVFleet(ctx context.Context, spec EVSpec) (*EVFleetAgent, error) {
	id := b.next
	bounds, err := b.loadBounds(ctx, id)
	if err != nil {
		return nil, err
	}
	opts := []EVOption{WithThroughputCost(spec.ThroughputCost)}
	if spec.InitialEnergy != nil {
		opts = append(opts, WithInitialEnergy(*spec.InitialEnergy))
	}
	if spec.NoV2G {
		opts = append(opts, WithDischargeLimit(make([]float64, b.Horizon())))
	}
	if spec.PV {
		pv, err := b.loadPV(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithPV(pv))
	}
	a, err := NewEVFleetAgent(id, bounds, opts...)
	if err != nil {
		return nil, err
	}
	b.commit(a)
	return a, nil
}

// AddVehicleFleet adds an EVFleetAgent whose bounds are aggregated from
// individual vehicles instead of the provider.
func (b *RosterBuilder) AddVehicleFleet(vehicles []model.Vehicle, throughputCost float64) (*EVFleetAgent, error) {
	prof, err := ProfileFromVehicles(vehicles, b.Horizon())
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", b.next, err)
	}
	a, err := NewEVFleetAgent(b.next, prof.Bounds,
		WithDischargeLimit(prof.DischargeLimit),
		WithInitialEnergy(prof.InitialEnergy),
		WithThroughputCost(throughputCost),
	)
	if err != nil {
		return nil, err
	}
	b.commit(a)
	return a, nil
}

// AddGenerator adds a QuadraticAgent bounded by [0, RateLimit] of the next
// identity.
func (b *RosterBuilder) AddGenerator(ctx context.Context, spec GeneratorSpec) (*QuadraticAgent, error) {
	id := b.next
	bounds, err := b.loadBounds(ctx, id)
	if err != nil {
		return nil, err
	}
	h := b.Horizon()
	a, err := NewQuadraticAgent(id, constant(h, spec.Quadratic), constant(h, spec.Linear), make([]float64, h), bounds.RateLimit)
	if err != nil {
		return nil, err
	}
	b.commit(a)
	return a, nil
}

// Agents returns the roster built so far in identity order.
func (b *RosterBuilder) Agents() []LocalAgent {
	return append([]LocalAgent(nil), b.agents...)
}

func (b *RosterBuilder) commit(a LocalAgent) {
	b.agents = append(b.agents, a)
	b.next++
}

func (b *RosterBuilder) loadBounds(ctx context.Context, id int) (market.AgentBounds, error) {
	if b.provider == nil {
		return market.AgentBounds{}, fmt.Errorf("%w: roster builder has no market provider", model.ErrConfiguration)
	}
	bounds, err := b.provider.LoadAgentBounds(ctx, id)
	if err != nil {
		return market.AgentBounds{}, fmt.Errorf("agent %d bounds: %w", id, err)
	}
	if err := bounds.Validate(b.Horizon()); err != nil {
		return market.AgentBounds{}, fmt.Errorf("agent %d bounds: %w", id, err)
	}
	return bounds, nil
}

func (b *RosterBuilder) loadPV(ctx context.Context) ([]float64, error) {
	pp, ok := b.provider.(market.PVProvider)
	if !ok {
		return nil, fmt.Errorf("%w: market provider has no PV data", model.ErrConfiguration)
	}
	pv, err := pp.LoadPVGeneration(ctx, b.startDay, b.horizonDays)
	if err != nil {
		return nil, fmt.Errorf("pv generation: %w", err)
	}
	if b.pvSrc != nil {
		pv = PerturbPV(pv, b.pvSrc)
	}
	return pv, nil
}
