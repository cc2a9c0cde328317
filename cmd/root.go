package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/caribou/app"
	"github.com/kilianp07/caribou/config"
	"github.com/kilianp07/caribou/infra/logger"
	"github.com/kilianp07/caribou/pkg/export"
)

var (
	cfgPath     string
	outFormat   string
	outPath     string
	historyPath string
	serve       bool
)

var rootCmd = &cobra.Command{
	Use:   "caribou",
	Short: "Dual decomposition coordinator for EV fleet charging",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (defaults to a synthetic market)")
	rootCmd.Flags().StringVarP(&outFormat, "format", "f", "json", "result format: json or csv")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the result to a file instead of stdout")
	rootCmd.Flags().StringVar(&historyPath, "history", "", "write the iteration history as CSV")
	rootCmd.Flags().BoolVar(&serve, "serve", false, "keep serving metrics after the run until interrupted")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if outFormat != "json" && outFormat != "csv" {
		return fmt.Errorf("unknown format %s", outFormat)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	res, runErr := svc.Run(ctx)
	if res.RunID != "" {
		if err := writeTo(cmd.OutOrStdout(), outPath, func(w io.Writer) error {
			if outFormat == "csv" {
				return export.WriteScheduleCSV(w, res)
			}
			return export.WriteJSON(w, res)
		}); err != nil {
			return errors.Join(runErr, err)
		}
		if historyPath != "" {
			if err := writeTo(nil, historyPath, func(w io.Writer) error {
				return export.WriteHistoryCSV(w, res.History)
			}); err != nil {
				return errors.Join(runErr, err)
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	if serve {
		return svc.Serve(ctx)
	}
	return nil
}

// writeTo calls write with the file at path, or with def when path is
// empty.
func writeTo(def io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(def)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
