package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/dagview/pkg/dagview"
)

func watchCmd(load configLoader) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Draw the live graph in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("width") {
				cfg.Terminal.Width = width
			}
			if cmd.Flags().Changed("height") {
				cfg.Terminal.Height = height
			}

			// Frames own stdout; only warnings reach stderr.
			logger := newLogger(os.Stderr, slog.LevelWarn)
			slog.SetDefault(logger)

			stopTracing, err := initTracing(cfg, io.Discard, logger)
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
			defer v.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := v.Watch(ctx, cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "terminal width in cells (default from config)")
	cmd.Flags().IntVar(&height, "height", 0, "terminal height in cells (default from config)")
	return cmd
}

