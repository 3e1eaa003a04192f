package main

import (
	"fitfinder/ingest/internal/repository"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the task and catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.config()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			db, err := repository.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.Migrate(ctx, db); err != nil {
				return err
			}
			log.Info("✅ Schema is up to date")
			return nil
		},
	}
}
