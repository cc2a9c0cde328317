package plugins

import (
	"context"

	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/infra/market/csvdata"
	"github.com/kilianp07/caribou/infra/market/synthetic"
)

func init() {
	RegisterMarket("csv", func(cfg config.MarketConfig) (market.Provider, error) {
		return csvdata.New(cfg.Dir, cfg.CSVOptions())
	})
	RegisterMarket("synthetic", func(cfg config.MarketConfig) (market.Provider, error) {
		return synthetic.New(cfg.Synthetic)
	})

	RegisterAgent("ev", func(ctx context.Context, b *agent.RosterBuilder, e config.AgentConfig) error {
		for i := 0; i < e.Count; i++ {
			if _, err := b.AddEVFleet(ctx, e.EV); err != nil {
				return err
			}
		}
		return nil
	})
	RegisterAgent("generator", func(ctx context.Context, b *agent.RosterBuilder, e config.AgentConfig) error {
		for i := 0; i < e.Count; i++ {
			if _, err := b.AddGenerator(ctx, e.Generator); err != nil {
				return err
			}
		}
		return nil
	})
	RegisterAgent("vehicles", func(_ context.Context, b *agent.RosterBuilder, e config.AgentConfig) error {
		for i := 0; i < e.Count; i++ {
			if _, err := b.AddVehicleFleet(e.Vehicles, e.ThroughputCost); err != nil {
				return err
			}
		}
		return nil
	})
}
