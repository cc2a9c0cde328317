package model

import "fmt"

// Vehicle describes one electric vehicle pooled by a fleet agent. Energy
// quantities are in kWh and power in kW.
type Vehicle struct {
	ID         string  `json:"id" yaml:"id"`
	BatteryKWh float64 `json:"battery_kwh" yaml:"battery_kwh"`
	SoC        float64 `json:"soc" yaml:"soc"`         // initial state of charge in [0,1]
	MinSoC     float64 `json:"min_soc" yaml:"min_soc"` // floor that must hold at every slot
	MaxSoC     float64 `json:"max_soc" yaml:"max_soc"` // ceiling, 0 means 1
	MaxPower   float64 `json:"max_power" yaml:"max_power"`
	IsV2G      bool    `json:"is_v2g" yaml:"is_v2g"` // may discharge to the grid

	// DegradationFactor estimates the fraction of capacity lost to ageing.
	// 0 means no degradation, 1 means completely unusable.
	DegradationFactor float64 `json:"degradation_factor" yaml:"degradation_factor"`
}

// Validate checks that the vehicle configuration is sound.
func (v Vehicle) Validate() error {
	if v.BatteryKWh <= 0 {
		return fmt.Errorf("vehicle %s: battery capacity must be positive", v.ID)
	}
	if v.MaxPower < 0 {
		return fmt.Errorf("vehicle %s: max power must not be negative", v.ID)
	}
	if v.SoC < 0 || v.SoC > 1 || v.MinSoC < 0 || v.MinSoC > 1 {
		return fmt.Errorf("vehicle %s: state of charge outside [0,1]", v.ID)
	}
	if v.MaxSoC != 0 && v.MaxSoC < v.MinSoC {
		return fmt.Errorf("vehicle %s: max_soc below min_soc", v.ID)
	}
	return nil
}

// UsableCapacity returns the battery capacity left after degradation.
func (v Vehicle) UsableCapacity() float64 {
	degr := v.DegradationFactor
	if degr < 0 {
		degr = 0
	}
	if degr > 1 {
		degr = 1
	}
	return v.BatteryKWh * (1 - degr)
}

// EnergyWindow returns the minimum and maximum stored energy allowed for
// the vehicle, in kWh.
func (v Vehicle) EnergyWindow() (float64, float64) {
	ceil := v.MaxSoC
	if ceil == 0 {
		ceil = 1
	}
	c := v.UsableCapacity()
	return v.MinSoC * c, ceil * c
}

// InitialEnergy returns the stored energy at the start of the horizon.
func (v Vehicle) InitialEnergy() float64 { return v.SoC * v.UsableCapacity() }

// DischargeLimit returns the power the vehicle may inject; zero when the
// vehicle is not V2G capable.
func (v Vehicle) DischargeLimit() float64 {
	if !v.IsV2G {
		return 0
	}
	return v.MaxPower
}
