package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes coordinator progress to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
	now      func() time.Time
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
		now:      time.Now,
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

// RecordIteration writes one coordinator_iteration point.
func (s *InfluxSink) RecordIteration(v coremetrics.IterationSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("coordinator_iteration").
		AddTag("run_id", v.RunID).
		AddTag("component", "coordinator").
		AddField("iteration", v.Iteration).
		AddField("residual", v.Residual).
		AddField("grad_mu_norm", v.GradMuNorm).
		AddField("grad_nu_norm", v.GradNuNorm).
		AddField("step_size", v.StepSize).
		AddField("total_cost", round3(v.TotalCost)).
		AddField("max_nu", v.MaxNu).
		AddField("agents", v.Agents).
		SetTime(v.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes one coordinator_run point.
func (s *InfluxSink) RecordRun(v coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("coordinator_run").
		AddTag("run_id", v.RunID).
		AddTag("outcome", v.Outcome).
		AddTag("component", "coordinator").
		AddField("converged", v.Converged).
		AddField("iterations", v.Iterations).
		AddField("residual", v.Residual).
		AddField("agents", v.Agents).
		AddField("duration_ms", round3(v.Duration.Seconds()*1000)).
		SetTime(v.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAgentSolves writes one agent_solve point per solve.
func (s *InfluxSink) RecordAgentSolves(solves []coremetrics.AgentSolve) error {
	if len(solves) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := s.now()
	points := make([]*write.Point, 0, len(solves))
	for _, r := range solves {
		points = append(points, write.NewPointWithMeasurement("agent_solve").
			AddTag("run_id", r.RunID).
			AddTag("agent_id", strconv.Itoa(r.AgentID)).
			AddTag("failed", strconv.FormatBool(r.Failed)).
			AddField("iteration", r.Iteration).
			AddField("latency_ms", round3(r.Latency.Seconds()*1000)).
			SetTime(ts))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordEnergy writes one agent_energy point per agent and day.
func (s *InfluxSink) RecordEnergy(runID string, balances []coremetrics.EnergyBalance) error {
	if len(balances) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ts := s.now()
	for _, b := range balances {
		p := write.NewPointWithMeasurement("agent_energy").
			AddTag("run_id", runID).
			AddTag("agent_id", strconv.Itoa(b.AgentID)).
			AddTag("day", strconv.Itoa(b.Day)).
			AddField("injected", round3(b.Injected)).
			AddField("consumed", round3(b.Consumed)).
			AddField("net", round3(b.Net())).
			AddField("ratio", round3(b.Ratio())).
			SetTime(ts)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
