package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"umcn/internal/config"
	"umcn/internal/demo"
	"umcn/internal/logging"
	"umcn/internal/metrics"
	"umcn/internal/shell"
	"umcn/pkg/mcn"
)

var (
	flagDebug  bool
	flagPretty bool
)

var rootCmd = &cobra.Command{
	Use:   "umcn-demo",
	Short: "uMCN topic bus demo: example publishers plus the mcn console",
	Long: `umcn-demo advertises the example topics (heartbeat, sysstat), starts
their publisher tasks and the frequency estimator, serves Prometheus metrics,
and drops into an interactive console offering the mcn command family:

  mcn list
  mcn echo <topic> [-n N] [-p PERIOD_MS]
  mcn suspend <topic>
  mcn resume <topic>`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging (overrides LOG_LEVEL)")
	rootCmd.Flags().BoolVar(&flagPretty, "pretty", false, "force pretty log output (overrides LOG_FORMAT)")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if flagDebug {
		cfg.LogLevel = "debug"
	}
	if flagPretty {
		cfg.LogFormat = "pretty"
	}

	logger := logging.InitGlobal(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	cfg.LogConfig(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcn.Init()
	defer mcn.Shutdown()

	if err := demo.Setup(); err != nil {
		return fmt.Errorf("setup demo topics: %w", err)
	}
	if err := demo.Run(ctx, logger, cfg.HeartbeatInterval, cfg.SysstatInterval); err != nil {
		return fmt.Errorf("start demo tasks: %w", err)
	}

	metricsServer := metrics.Serve(cfg.MetricsAddr, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}()

	logger.Info().Msg("console ready, type 'help' for commands")
	console := shell.New(os.Stdin, os.Stdout, cfg.EchoPeriod, cfg.EchoCount)
	if err := console.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("console: %w", err)
	}
	logger.Info().Msg("shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
