package main

import (
	"context"
	"fmt"
	"strconv"

	"fitfinder/ingest/internal/container"

	"github.com/spf13/cobra"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show the status and progress of a scrape task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return cmdCtx.withContainer(ctx, func(ctx context.Context, app *container.Container) error {
				current, err := app.Service.Poll(ctx, taskID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), current)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTask(current))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the task as JSON")
	return cmd
}
