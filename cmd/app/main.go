package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"Conflux/internal/di"
	"Conflux/internal/domain/repository"
	"Conflux/pkg/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "conflux",
		Short: "Confluence trading decision pipeline",
		Long:  "Streams candles, evaluates a detector ensemble, aggregates votes into decisions and paper-trades them.",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	root.AddCommand(runCmd(), backtestCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the live pipeline against the exchange stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				log.Fatalf("config load failed: %v", err)
			}

			app, err := di.InitializeApp(cfg)
			if err != nil {
				log.Fatalf("app initialization failed: %v", err)
			}
			return app.Run()
		},
	}
}

func backtestCmd() *cobra.Command {
	var (
		candles int
		tf      string
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical candles through the identical pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				log.Fatalf("config load failed: %v", err)
			}
			if tf == "" {
				tf = cfg.Stream.Timeframe
			}

			bt, _, err := di.NewBacktest(cfg)
			if err != nil {
				log.Fatalf("backtest initialization failed: %v", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := bt.Run(ctx, repository.NormalizeTimeframe(tf), candles)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().IntVarP(&candles, "candles", "n", 1000, "number of historical candles to replay")
	cmd.Flags().StringVarP(&tf, "timeframe", "t", "", "timeframe override (1m 5m 15m 1h 4h)")
	return cmd
}
