package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tandem/config"
	"tandem/telemetry"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "tandem",
	Short:         "Two-bot team coordination: relay server and headless arena",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.toml or .yaml)")

	rootCmd.AddCommand(relayCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(tokenCmd)
}

// setup は設定を読み込み、プロセス全体のロガーを差し替えます。
func setup(ctx context.Context, service string) (config.Config, telemetry.ShutdownFunc, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, shutdown, err := telemetry.Setup(ctx, service, cfg.LogLevel(), os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, shutdown, nil
}

func flush(ctx context.Context, shutdown telemetry.ShutdownFunc) {
	if err := shutdown(context.WithoutCancel(ctx)); err != nil {
		slog.ErrorContext(ctx, "telemetry shutdown failed", "err", err)
	}
}
