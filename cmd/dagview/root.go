package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tjfontaine/dagview/internal/pkg/config"
	"github.com/tjfontaine/dagview/internal/telemetry"
	"github.com/tjfontaine/dagview/pkg/dagview"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "dagview",
		Short:        "Live viewer for causal event graphs",
		Long:         "dagview renders the causal DAG of an event log and keeps it up to date as events are appended.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if it exists
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.yaml")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		serveCmd(load),
		watchCmd(load),
		appendCmd(load),
		snapshotCmd(load),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// initTracing installs the tracer when telemetry is enabled. The returned
// function is always safe to call.
func initTracing(cfg *config.Config, w io.Writer, logger *slog.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}
	shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, w, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize tracer: %w", err)
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}, nil
}

// openViewer creates a viewer that is only used for reads and appends.
func openViewer(load configLoader, logger *slog.Logger) (*dagview.Viewer, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	return dagview.New(
		dagview.WithConfig(cfg),
		dagview.WithLogger(logger),
	)
}
