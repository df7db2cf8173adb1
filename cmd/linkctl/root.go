package main

import (
	"context"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/app"
	"github.com/raaihank/link-sentinel/internal/config"
	"github.com/raaihank/link-sentinel/internal/logger"
)

type rootOpts struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}

	cmd := &cobra.Command{
		Use:           "linkctl",
		Short:         "Audit and rewrite URLs across the site content store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newAuditCmd(opts),
		newReplaceCmd(opts),
		newImportCmd(opts),
		newRulesCmd(opts),
		newExportCmd(opts),
		newMigrateCmd(opts),
	)
	return cmd
}

// run loads config, opens the stores and calls fn with them
func (o *rootOpts) run(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: o.logLevel, Format: "console"})
	if err != nil {
		return errors.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	a, err := app.Open(cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
