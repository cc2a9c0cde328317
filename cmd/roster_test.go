package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/caribou/core/agent"
)

func TestRosterCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`market:
  source: synthetic
  synthetic:
    agents: 2
roster:
  agents:
    - type: ev
    - type: generator
      generator:
        quadratic: 0.01
log:
  level: warn
`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"roster", "-c", path})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgPath = ""
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "KIND", "HORIZON"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"0", "ev", "24"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "quadratic", "24"}, strings.Fields(lines[2]))
}

type bareAgent struct{ agent.LocalAgent }

func TestHorizon(t *testing.T) {
	q, err := agent.NewQuadraticAgent(0, []float64{1, 1}, []float64{0, 0}, []float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, "2", horizon(q))
	assert.Equal(t, "-", horizon(bareAgent{}))
}
