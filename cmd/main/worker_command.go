package main

import (
	"context"

	"fitfinder/ingest/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWorkerCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume scrape tasks until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			log.Info("Starting catalog ingest worker...")
			return cmdCtx.withContainer(ctx, func(ctx context.Context, app *container.Container) error {
				if err := app.Run(ctx); err != nil {
					return err
				}
				log.Info("Worker finished successfully")
				return nil
			})
		},
	}
}
