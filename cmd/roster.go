package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caribou/app"
	"github.com/kilianp07/caribou/core/agent"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List the agents built from the configuration",
	RunE:  runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}

func runRoster(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := app.NewProvider(cfg.Market)
	if err != nil {
		return err
	}
	agents, err := app.BuildRoster(cmd.Context(), p, cfg.Market, cfg.Roster)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tHORIZON")
	for _, a := range agents {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.ID(), kind(a), horizon(a))
	}
	return tw.Flush()
}

func kind(a agent.LocalAgent) string {
	switch a.(type) {
	case *agent.EVFleetAgent:
		return "ev"
	case *agent.QuadraticAgent:
		return "quadratic"
	default:
		return fmt.Sprintf("%T", a)
	}
}

// horizon prints the slot count of agents that expose one.
func horizon(a agent.LocalAgent) string {
	if h, ok := a.(interface{ Horizon() int }); ok {
		return strconv.Itoa(h.Horizon())
	}
	return "-"
}
