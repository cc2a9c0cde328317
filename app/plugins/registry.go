// Package plugins maps configuration type names onto market sources and
// agent kinds.
package plugins

import (
	"context"

	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/market"
)

// MarketFactory builds a market provider from the market section.
type MarketFactory func(cfg config.MarketConfig) (market.Provider, error)

// AgentFactory adds the agents of one roster entry to the builder.
type AgentFactory func(ctx context.Context, b *agent.RosterBuilder, entry config.AgentConfig) error

var (
	Markets = map[string]MarketFactory{}
	Agents  = map[string]AgentFactory{}
)

func RegisterMarket(name string, f MarketFactory) { Markets[name] = f }
func RegisterAgent(name string, f AgentFactory)   { Agents[name] = f }
