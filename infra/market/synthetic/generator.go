// Package synthetic generates reproducible market data sets for demos and
// tests when no recorded data directory is available.
package synthetic

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/prometheus/client_golang/prometheus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/kilianp07/caribou/core/market"
	"github.com/kilianp07/caribou/core/model"
	"github.com/kilianp07/caribou/infra/logger"
)

// Config shapes the generated data set. Zero fields take the defaults of
// SetDefaults.
type Config struct {
	Seed uint64 `json:"seed"`
	// Days of price and PV history.
	Days int `json:"days"`
	// HorizonDays sets the length of the generated bounds.
	HorizonDays int `json:"horizon_days"`
	Agents      int `json:"agents"`

	BasePrice      float64 `json:"base_price"`
	PriceAmplitude float64 `json:"price_amplitude"`
	PriceNoise     float64 `json:"price_noise"`
	// Correlation between the noise of hours i and j is Correlation^|i−j|.
	Correlation float64 `json:"correlation"`
	PVPeak      float64 `json:"pv_peak"`

	FleetEnergy float64 `json:"fleet_energy"`
	FleetRate   float64 `json:"fleet_rate"`
	// Coupling is "identity" or "zero".
	Coupling      string  `json:"coupling"`
	TargetShare   float64 `json:"target_share"`
	CapacityShare float64 `json:"capacity_share"`
}

// SetDefaults applies fallback values for optional fields.
func (c *Config) SetDefaults() {
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Days <= 0 {
		c.Days = 7
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 1
	}
	if c.Agents <= 0 {
		c.Agents = 3
	}
	if c.BasePrice == 0 {
		c.BasePrice = 0.08
	}
	if c.PriceAmplitude == 0 {
		c.PriceAmplitude = 0.03
	}
	if c.PriceNoise == 0 {
		c.PriceNoise = 0.01
	}
	if c.Correlation == 0 {
		c.Correlation = 0.7
	}
	if c.PVPeak == 0 {
		c.PVPeak = 5
	}
	if c.FleetEnergy == 0 {
		c.FleetEnergy = 200
	}
	if c.FleetRate == 0 {
		c.FleetRate = 22
	}
	if c.Coupling == "" {
		c.Coupling = "identity"
	}
	if c.TargetShare == 0 {
		c.TargetShare = 0.3
	}
	if c.CapacityShare == 0 {
		c.CapacityShare = 0.8
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Days <= 0 || c.HorizonDays <= 0 || c.Agents <= 0 {
		return fmt.Errorf("%w: days, horizon_days and agents must be positive", model.ErrConfiguration)
	}
	if c.Correlation <= -1 || c.Correlation >= 1 {
		return fmt.Errorf("%w: correlation must lie in (-1, 1)", model.ErrConfiguration)
	}
	if c.PriceNoise < 0 || c.PVPeak < 0 || c.FleetEnergy <= 0 || c.FleetRate <= 0 {
		return fmt.Errorf("%w: noise, pv_peak, fleet_energy and fleet_rate out of range", model.ErrConfiguration)
	}
	if c.Coupling != "identity" && c.Coupling != "zero" {
		return fmt.Errorf("%w: unknown coupling %q", model.ErrConfiguration, c.Coupling)
	}
	if c.TargetShare < 0 || c.CapacityShare <= 0 {
		return fmt.Errorf("%w: target_share and capacity_share out of range", model.ErrConfiguration)
	}
	return nil
}

var (
	datasetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "caribou_synthetic_datasets_total",
		Help: "Synthetic market data sets generated",
	})
	slotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "caribou_synthetic_price_slots_total",
		Help: "Hourly price slots generated",
	})
	meanPrice = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "caribou_synthetic_price_mean",
		Help: "Mean price of the latest synthetic data set",
	})
)

func init() {
	prometheus.MustRegister(datasetsTotal, slotsTotal, meanPrice)
}

// Generator draws data sets from a seeded PCG source. Generators built
// from the same configuration produce identical data.
type Generator struct {
	cfg  Config
	rand *rand.Rand
	src  rand.Source
	log  logger.Logger
}

// NewGenerator validates cfg after applying defaults.
func NewGenerator(cfg Config) (*Generator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d)
	return &Generator{cfg: cfg, src: src, rand: rand.New(src), log: logger.New("synthetic-market")}, nil
}

// New generates one data set from cfg.
func New(cfg Config) (*market.StaticProvider, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

// Config returns the effective configuration.
func (g *Generator) Config() Config { return g.cfg }

// Generate draws the next data set.
func (g *Generator) Generate() (*market.StaticProvider, error) {
	cov := g.covariance()
	price, err := g.prices(cov)
	if err != nil {
		return nil, err
	}
	h := model.Horizon(g.cfg.HorizonDays)
	agents := make([]market.AgentBounds, g.cfg.Agents)
	totalRate := 0.0
	for i := range agents {
		agents[i] = g.agentBounds(h)
		totalRate += agents[i].RateLimit[0]
	}
	target := make([]float64, h)
	capacity := make([]float64, h)
	for t := 0; t < h; t++ {
		target[t] = -g.cfg.TargetShare * totalRate
		capacity[t] = g.cfg.CapacityShare * totalRate
	}
	coupling := mat.NewDense(h, h, nil)
	if g.cfg.Coupling == "identity" {
		for t := 0; t < h; t++ {
			coupling.Set(t, t, 1)
		}
	}

	var sum float64
	for _, p := range price {
		sum += p
	}
	datasetsTotal.Inc()
	slotsTotal.Add(float64(len(price)))
	meanPrice.Set(sum / float64(len(price)))
	g.log.Infof("generated %d days of prices and %d agents (mean price %.4f)", g.cfg.Days, g.cfg.Agents, sum/float64(len(price)))

	return &market.StaticProvider{
		Price:      price,
		PV:         g.pv(),
		Covariance: cov,
		Coupling:   coupling,
		Aggregate:  market.AggregateBounds{Min: target, Max: capacity},
		Agents:     agents,
	}, nil
}

// covariance returns noise²·ρ^|i−j| over the hours of a day.
func (g *Generator) covariance() *mat.SymDense {
	n := model.SlotsPerDay
	s2 := g.cfg.PriceNoise * g.cfg.PriceNoise
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, s2*math.Pow(g.cfg.Correlation, float64(j-i)))
		}
	}
	return cov
}

// prices adds correlated daily noise L·z to a sinusoidal daily profile
// peaking in the evening.
func (g *Generator) prices(cov *mat.SymDense) ([]float64, error) {
	n := model.SlotsPerDay
	out := make([]float64, model.Horizon(g.cfg.Days))
	var l mat.TriDense
	if g.cfg.PriceNoise > 0 {
		var chol mat.Cholesky
		if ok := chol.Factorize(cov); !ok {
			return nil, fmt.Errorf("%w: synthetic covariance is not positive definite", model.ErrNumerical)
		}
		chol.LTo(&l)
	}
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: g.src}
	z := mat.NewVecDense(n, nil)
	var noise mat.VecDense
	for d := 0; d < g.cfg.Days; d++ {
		if g.cfg.PriceNoise > 0 {
			for i := 0; i < n; i++ {
				z.SetVec(i, norm.Rand())
			}
			noise.MulVec(&l, z)
		}
		for i := 0; i < n; i++ {
			v := g.cfg.BasePrice + g.cfg.PriceAmplitude*math.Sin(2*math.Pi*float64(i-13)/float64(n))
			if g.cfg.PriceNoise > 0 {
				v += noise.AtVec(i)
			}
			out[d*n+i] = v
		}
	}
	return out, nil
}

// pv returns a half-sine daylight profile scaled by a daily clear-sky
// factor.
func (g *Generator) pv() []float64 {
	n := model.SlotsPerDay
	out := make([]float64, model.Horizon(g.cfg.Days))
	sky := distuv.Uniform{Min: 0.4, Max: 1, Src: g.src}
	for d := 0; d < g.cfg.Days; d++ {
		f := sky.Rand()
		for i := 6; i <= 18; i++ {
			out[d*n+i] = g.cfg.PVPeak * f * math.Sin(math.Pi*float64(i-6)/12)
		}
	}
	return out
}

// agentBounds draws a fleet whose minimum energy ramps from 20% to 80% of
// its capacity no faster than half its charge rate, so the window is
// always reachable from Min[0].
func (g *Generator) agentBounds(h int) market.AgentBounds {
	scale := 0.5 + g.rand.Float64()
	energy := g.cfg.FleetEnergy * scale
	rate := g.cfg.FleetRate * scale
	b := market.AgentBounds{
		Min:       make([]float64, h),
		Max:       make([]float64, h),
		RateLimit: make([]float64, h),
	}
	for t := 0; t < h; t++ {
		b.Min[t] = math.Min(0.8*energy, 0.2*energy+0.5*rate*float64(t))
		b.Max[t] = energy
		b.RateLimit[t] = rate
	}
	return b
}
