package main

import (
	"context"
	"fmt"

	"fitfinder/ingest/internal/container"

	"github.com/spf13/cobra"
)

func newSubmitCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <catalog-url>",
		Short: "Queue a catalog listing for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return cmdCtx.withContainer(ctx, func(ctx context.Context, app *container.Container) error {
				created, err := app.Service.Submit(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTask(created))
				return nil
			})
		},
	}
}
