package metrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/caribou/core/events"
	"github.com/kilianp07/caribou/internal/eventbus"
)

type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *captureLogger) Debugf(format string, args ...any) {}
func (l *captureLogger) Debugw(string, map[string]any)     {}
func (l *captureLogger) Infof(format string, args ...any)  { l.add(format, args...) }
func (l *captureLogger) Warnf(format string, args ...any)  { l.add(format, args...) }
func (l *captureLogger) Errorf(format string, args ...any) { l.add(format, args...) }

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.NewBuffered[events.Event](16)
	log := &captureLogger{}
	done := StartEventCollector(context.Background(), bus, log, 2)

	bus.Publish(events.RunEvent{RunID: "r", Outcome: events.OutcomeStarted, Agents: 2})
	for k := 0; k < 4; k++ {
		bus.Publish(events.IterationEvent{RunID: "r", Iteration: k})
	}
	bus.Publish(events.RunEvent{RunID: "r", Outcome: events.OutcomeAborted, Iterations: 4, Err: errors.New("boom")})
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	log.mu.Lock()
	defer log.mu.Unlock()
	if len(log.lines) != 4 {
		t.Fatalf("expected 4 lines got %d: %v", len(log.lines), log.lines)
	}
	if !strings.Contains(log.lines[0], "started with 2 agents") {
		t.Errorf("unexpected first line %q", log.lines[0])
	}
	if !strings.Contains(log.lines[1], "iteration 0") || !strings.Contains(log.lines[2], "iteration 2") {
		t.Errorf("unexpected iteration lines %v", log.lines[1:3])
	}
	if !strings.Contains(log.lines[3], "aborted after 4 iterations: boom") {
		t.Errorf("unexpected last line %q", log.lines[3])
	}
}

func TestStartEventCollector_StopsOnCancel(t *testing.T) {
	bus := eventbus.New[events.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, &captureLogger{}, 1)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}

	closed := StartEventCollector(context.Background(), nil, &captureLogger{}, 1)
	<-closed
}
