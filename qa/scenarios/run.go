package scenarios

import (
	"context"
	"math"
	"testing"

	"github.com/kilianp07/caribou/app"
	"github.com/kilianp07/caribou/core/coordinator"
)

// RunScenario builds the service of sc, runs the coordinator once and
// compares the outcome with sc.Expected.
func RunScenario(t *testing.T, sc *Scenario) coordinator.Result {
	t.Helper()
	cfg, err := sc.Config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	ctx := context.Background()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	}()

	res, err := svc.Coordinator.Run(ctx, sc.MaxIterations, sc.Tolerance)
	if err != nil {
		t.Fatalf("scenario %s: run: %v", sc.Name, err)
	}
	if res.Iterations != sc.Expected.Iterations {
		t.Errorf("scenario %s expected %d iterations, got %d", sc.Name, sc.Expected.Iterations, res.Iterations)
	}
	if len(res.Responses) != sc.Expected.Responses {
		t.Errorf("scenario %s expected %d responses, got %d", sc.Name, sc.Expected.Responses, len(res.Responses))
	}
	if res.Converged != sc.Expected.Converged {
		t.Errorf("scenario %s expected converged=%v, got %v", sc.Name, sc.Expected.Converged, res.Converged)
	}
	for i, v := range res.Duals.Nu {
		if v < 0 || math.IsNaN(v) {
			t.Errorf("scenario %s: nu[%d] = %g", sc.Name, i, v)
		}
	}
	for _, rec := range res.History {
		if math.IsNaN(rec.Residual) || math.IsInf(rec.Residual, 0) {
			t.Errorf("scenario %s: iteration %d residual %g", sc.Name, rec.Iteration, rec.Residual)
		}
	}
	return res
}
