package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tjfontaine/dagview/pkg/dagview"
)

func appendCmd(load configLoader) *cobra.Command {
	var (
		id     int64
		parent int64
		itemID string
		typ    string
		value  string
	)

	cmd := &cobra.Command{
		Use:   "append",
		Short: "Append an event to the log",
		Long: "Append an event to the log. Without --parent the event hangs off the root.\n" +
			"Without --value the value is null.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := openViewer(load, newLogger(io.Discard, slog.LevelError))
			if err != nil {
				return err
			}
			defer v.Close()

			ev := &dagview.NewEvent{
				ID:     id,
				Parent: dagview.Root(),
				ItemID: itemID,
				Type:   dagview.EventType(typ),
			}
			if cmd.Flags().Changed("parent") {
				ev.Parent = dagview.Parent(parent)
			}
			if cmd.Flags().Changed("value") {
				ev.Value = value
			}

			assigned, err := v.Append(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), assigned)
			return nil
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "event id (assigned when 0)")
	cmd.Flags().Int64Var(&parent, "parent", 0, "parent event id")
	cmd.Flags().StringVar(&itemID, "item", "", "item id")
	cmd.Flags().StringVar(&typ, "type", "", "event type (create, update, delete, ...)")
	cmd.Flags().StringVar(&value, "value", "", "event value")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
