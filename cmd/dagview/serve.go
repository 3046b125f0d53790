package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/dagview/pkg/dagview"
)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the live graph viewer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			logger := newLogger(os.Stdout, slog.LevelInfo)
			slog.SetDefault(logger)

			stopTracing, err := initTracing(cfg, os.Stdout, logger)
			if err != nil {
				return err
			}
			defer stopTracing()

			v, err := dagview.New(
				dagview.WithConfig(cfg),
				dagview.WithLogger(logger),
			)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := v.Start(ctx); err != nil {
				v.Close()
				return err
			}

			logger.Info("viewer ready",
				slog.String("url", localURL(v)),
				slog.String("database", cfg.Storage.SQLite.Path))

			errc := make(chan error, 1)
			go func() { errc <- v.Wait() }()

			// Wait for shutdown signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			var runErr error
			select {
			case <-sigChan:
				logger.Info("shutdown signal received, stopping viewer")
			case runErr = <-errc:
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := v.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.String("error", err.Error()))
				if runErr == nil {
					runErr = err
				}
			}
			return runErr
		},
	}
}

// localURL is the viewer's address as seen from this machine.
func localURL(v *dagview.Viewer) string {
	_, port, err := net.SplitHostPort(v.Addr().String())
	if err != nil {
		return v.Addr().String()
	}
	return "http://localhost:" + port
}
