package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/caribou/core/agent"
	"github.com/kilianp07/caribou/core/metrics"
	"github.com/kilianp07/caribou/core/model"
	"github.com/kilianp07/caribou/core/monitoring"
)

// dispatch broadcasts the prices to every agent concurrently and returns
// the responses in roster order. The first failure cancels the remaining
// solves. Each agent receives its own copy of the price vectors.
func (c *Coordinator) dispatch(ctx context.Context, runID string, k int, agents []agent.LocalAgent, duals model.DualState, fq []float64) ([]model.LocalResponse, error) {
	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Workers > 0 {
		g.SetLimit(c.cfg.Workers)
	}
	out := make([]model.LocalResponse, len(agents))
	solves := make([]metrics.AgentSolve, len(agents))
	for i, a := range agents {
		g.Go(func() (err error) {
			id := a.ID()
			defer func() {
				tags := map[string]string{"run_id": runID, "agent": strconv.Itoa(id)}
				if perr := monitoring.RecoverPanic(recover(), tags); perr != nil {
					err = fmt.Errorf("agent %d: %w", id, perr)
				}
			}()
			start := time.Now()
			resp, err := a.Solve(gctx, model.CloneVec(duals.Mu), model.CloneVec(duals.Nu), model.CloneVec(fq))
			lat := time.Since(start)
			solves[i] = metrics.AgentSolve{RunID: runID, AgentID: id, Iteration: k, Latency: lat, Failed: err != nil}
			if err != nil {
				agentSolveLatency.WithLabelValues("error").Observe(lat.Seconds())
				return fmt.Errorf("agent %d: %w", id, err)
			}
			agentSolveLatency.WithLabelValues("ok").Observe(lat.Seconds())
			resp.AgentID = id
			out[i] = resp
			return nil
		})
	}
	err := g.Wait()
	if rec, ok := c.sink.(metrics.AgentSolveRecorder); ok {
		if rerr := rec.RecordAgentSolves(solves); rerr != nil {
			c.log.Warnf("run %s: record agent solves: %v", runID, rerr)
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
