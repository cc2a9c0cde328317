package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caribou/infra/market/csvdata"
	"github.com/kilianp07/caribou/infra/market/synthetic"
)

var (
	marketDir string
	marketCfg synthetic.Config
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Market data commands",
}

var marketExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a synthetic market as a CSV data directory",
	RunE:  runMarketExport,
}

func init() {
	f := marketExportCmd.Flags()
	f.StringVarP(&marketDir, "dir", "d", "market", "output directory")
	f.Uint64Var(&marketCfg.Seed, "seed", 42, "random seed")
	f.IntVar(&marketCfg.Days, "days", 7, "days of price history")
	f.IntVar(&marketCfg.HorizonDays, "horizon-days", 1, "length of the generated bounds in days")
	f.IntVar(&marketCfg.Agents, "agents", 3, "number of agents")
	f.StringVar(&marketCfg.Coupling, "coupling", "identity", "coupling matrix: identity or zero")
	marketCmd.AddCommand(marketExportCmd)
	rootCmd.AddCommand(marketCmd)
}

func runMarketExport(cmd *cobra.Command, args []string) error {
	p, err := synthetic.New(marketCfg)
	if err != nil {
		return err
	}
	if err := csvdata.Export(cmd.Context(), marketDir, p, marketCfg.Days, len(p.Agents), csvdata.DefaultOptions()); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d days and %d agents to %s\n", marketCfg.Days, len(p.Agents), marketDir)
	return nil
}
