package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caribou/app"
	"github.com/kilianp07/caribou/core/forecast"
	"github.com/kilianp07/caribou/pkg/export"
)

var forecastOut string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print one price forecast draw as CSV",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVarP(&forecastOut, "out", "o", "", "write the forecast to a file instead of stdout")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p, err := app.NewProvider(cfg.Market)
	if err != nil {
		return err
	}
	hist, err := p.LoadAggregatePriceSeries(ctx, cfg.Market.StartDay, cfg.Market.HorizonDays)
	if err != nil {
		return fmt.Errorf("price series: %w", err)
	}
	cov, err := p.LoadPriceCovariance(ctx)
	if err != nil {
		return fmt.Errorf("covariance: %w", err)
	}
	fc, err := forecast.New(cfg.Forecast.Strategy, cfg.Forecast.Seed)
	if err != nil {
		return err
	}
	f, err := fc.Forecast(hist, cov, cfg.Market.HorizonDays)
	if err != nil {
		return err
	}
	return writeTo(cmd.OutOrStdout(), forecastOut, func(w io.Writer) error {
		return export.WriteForecastCSV(w, f)
	})
}
