package monitoring

import (
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremon "github.com/kilianp07/caribou/core/monitoring"
)

func TestNewSentryMonitor_EmptyDSN(t *testing.T) {
	m, err := NewSentryMonitor(Config{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitor_Tags(t *testing.T) {
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	m, err := newSentryMonitor(Config{DSN: "https://public@example.com/1", Environment: "test"},
		func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			return nil
		})
	require.NoError(t, err)

	m.CaptureException(errors.New("agent failed"), map[string]string{"agent": "2"})
	m.CaptureException(nil, nil)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].Tags["agent"])
	assert.Equal(t, "test", events[0].Environment)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{TracesSampleRate: 0.5}.Validate())
	assert.Error(t, Config{TracesSampleRate: 2}.Validate())
}
