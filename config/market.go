package config

import (
	"fmt"

	"github.com/kilianp07/caribou/infra/market/csvdata"
	"github.com/kilianp07/caribou/infra/market/synthetic"
)

// MarketConfig selects where prices and bounds come from.
type MarketConfig struct {
	// Source is "csv" or "synthetic".
	Source      string `json:"source"`
	Dir         string `json:"dir"`
	StartDay    int    `json:"start_day"`
	HorizonDays int    `json:"horizon_days"`

	PriceColumn *int    `json:"price_column"`
	PVColumn    *int    `json:"pv_column"`
	PriceScale  float64 `json:"price_scale"`
	PVScale     float64 `json:"pv_scale"`

	Synthetic synthetic.Config `json:"synthetic"`
}

// SetDefaults applies fallback values for optional fields.
func (c *MarketConfig) SetDefaults() {
	if c.Source == "" {
		c.Source = "synthetic"
	}
	if c.HorizonDays == 0 {
		c.HorizonDays = 1
	}
	def := csvdata.DefaultOptions()
	if c.PriceScale == 0 {
		c.PriceScale = def.PriceScale
	}
	if c.PVScale == 0 {
		c.PVScale = def.PVScale
	}
	if c.Synthetic.HorizonDays == 0 {
		c.Synthetic.HorizonDays = c.HorizonDays
	}
	if c.Synthetic.Days == 0 {
		c.Synthetic.Days = max(7, c.StartDay+c.HorizonDays)
	}
	c.Synthetic.SetDefaults()
}

// Validate checks the configuration ranges.
func (c MarketConfig) Validate() error {
	if c.StartDay < 0 {
		return fmt.Errorf("start_day must not be negative")
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive")
	}
	switch c.Source {
	case "csv":
		if c.Dir == "" {
			return fmt.Errorf("dir is required for the csv source")
		}
		if c.PriceScale == 0 || c.PVScale == 0 {
			return fmt.Errorf("price_scale and pv_scale must not be zero")
		}
	case "synthetic":
		if c.Synthetic.HorizonDays != c.HorizonDays {
			return fmt.Errorf("synthetic horizon_days %d differs from horizon_days %d", c.Synthetic.HorizonDays, c.HorizonDays)
		}
		if c.StartDay+c.HorizonDays > c.Synthetic.Days {
			return fmt.Errorf("window ends after the %d synthetic days", c.Synthetic.Days)
		}
		return c.Synthetic.Validate()
	default:
		return fmt.Errorf("unknown market source %s", c.Source)
	}
	return nil
}

// CSVOptions returns the column layout for the csv source.
func (c MarketConfig) CSVOptions() csvdata.Options {
	o := csvdata.DefaultOptions()
	if c.PriceColumn != nil {
		o.PriceColumn = *c.PriceColumn
	}
	if c.PVColumn != nil {
		o.PVColumn = *c.PVColumn
	}
	o.PriceScale = c.PriceScale
	o.PVScale = c.PVScale
	return o
}
