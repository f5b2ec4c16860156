package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sajjad-MoBe/kvdiff/internal/compare"
	"github.com/sajjad-MoBe/kvdiff/internal/config"
	"github.com/sajjad-MoBe/kvdiff/internal/connector"
	"github.com/sajjad-MoBe/kvdiff/internal/harness"
	"github.com/sajjad-MoBe/kvdiff/internal/server"
	"github.com/sajjad-MoBe/kvdiff/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compare two revisions and report divergences",
	// Defers inside runComparison must fire before the process exits.
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runComparison(cmd, args))
	},
}

func init() {
	flags := runCmd.Flags()
	flags.String("endpoint", "127.0.0.1:6379", "Backing store address")
	flags.String("base", "", "Base revision: executable path or builtin:<name>")
	flags.String("new", "", "New revision: executable path or builtin:<name>")
	flags.String("base-namespace", "kvdiff_base", "Key-space prefix for the base side")
	flags.String("new-namespace", "kvdiff_new", "Key-space prefix for the new side")
	flags.Duration("timeout", 5*time.Second, "Per-operation timeout")
	flags.Bool("capture-state", true, "Compare full key-space state after every operation")
	flags.String("jaeger", "", "Jaeger collector endpoint for tracing")
	flags.String("listen", "", "Address for the debug HTTP server (disabled when empty)")
	flags.Bool("no-color", false, "Disable colored report output")
}

func runComparison(cmd *cobra.Command, args []string) int {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return harness.ExitSetup
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	var tracer *telemetry.Tracer
	if cfg.JaegerEndpoint != "" {
		tracer, err = telemetry.NewTracer("kvdiff", cfg.JaegerEndpoint)
		if err != nil {
			logger.Error().Err(err).Msg("tracer setup failed")
			return harness.ExitSetup
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = tracer.Shutdown(shutdownCtx)
		}()
	}

	var debugServer *server.Server
	if cfg.ListenAddr != "" {
		debugServer = server.New(cfg.ListenAddr, logger)
		go func() {
			if err := debugServer.Start(); err != nil {
				logger.Error().Err(err).Msg("debug server error")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = debugServer.Shutdown(shutdownCtx)
		}()
	}

	report, code, err := harness.Run(ctx, harness.Config{
		Store: connector.Config{
			Endpoint: cfg.Endpoint,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		Base:             harness.Revision{Path: cfg.Base.Path, Namespace: cfg.Base.Namespace},
		New:              harness.Revision{Path: cfg.New.Path, Namespace: cfg.New.Namespace},
		OperationTimeout: cfg.OperationTimeout,
		CaptureState:     cfg.CaptureState,
		Metrics:          metrics,
		Tracer:           tracer,
		Logger:           logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("no report produced")
		return code
	}

	if debugServer != nil {
		debugServer.SetReport(report)
	}
	compare.Render(os.Stdout, report, !cfg.NoColor)
	return code
}
