package metrics

import (
	"context"

	"github.com/kilianp07/caribou/core/events"
	"github.com/kilianp07/caribou/infra/logger"
	"github.com/kilianp07/caribou/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and logs run progress:
// every n-th iteration and each run outcome. It stops when the context is
// canceled or the bus is closed, and closes the returned channel.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], log logger.Logger, every int) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || log == nil {
		close(done)
		return done
	}
	if every <= 0 {
		every = 1
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				switch e := ev.(type) {
				case events.IterationEvent:
					if e.Iteration%every == 0 {
						log.Infof("run %s iteration %d: residual %.6g, step %.3g, cost %.3f", e.RunID, e.Iteration, e.Residual, e.StepSize, e.TotalCost)
					}
				case events.RunEvent:
					switch {
					case e.Outcome == events.OutcomeStarted:
						log.Infof("run %s started with %d agents", e.RunID, e.Agents)
					case e.Err != nil:
						log.Warnf("run %s %s after %d iterations: %v", e.RunID, e.Outcome, e.Iterations, e.Err)
					default:
						log.Infof("run %s %s after %d iterations in %s, residual %.6g", e.RunID, e.Outcome, e.Iterations, e.Duration, e.Residual)
					}
				}
			}
		}
	}()
	return done
}
