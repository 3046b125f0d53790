package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

func snapshotCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current graph as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openViewer(load, newLogger(io.Discard, slog.LevelError))
			if err != nil {
				return err
			}
			defer v.Close()

			snap, err := v.Snapshot(cmd.Context())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		},
	}
}
