package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"fitfinder/ingest/internal/config"
	"fitfinder/ingest/internal/container"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type commandContext struct {
	configPath string
	cfg        *config.Config
}

func (c *commandContext) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c.cfg = cfg
	return cfg, nil
}

// withContainer builds the dependency container for the life of fn.
func (c *commandContext) withContainer(ctx context.Context, fn func(ctx context.Context, app *container.Container) error) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	app, err := container.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	defer app.Close()
	return fn(ctx, app)
}

func newRootCommand() *cobra.Command {
	cmdCtx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "ingest",
		Short:         "Catalog ingestion worker and task tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.config()
			if err != nil {
				return err
			}
			return configureLogging(cfg.Log)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cmdCtx.configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newWorkerCommand(cmdCtx))
	rootCmd.AddCommand(newSubmitCommand(cmdCtx))
	rootCmd.AddCommand(newStatusCommand(cmdCtx))
	rootCmd.AddCommand(newMigrateCommand(cmdCtx))

	return rootCmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func configureLogging(cfg config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return nil
}
