package main

import (
	"context"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/app"
	"github.com/raaihank/link-sentinel/internal/export"
	"github.com/raaihank/link-sentinel/internal/source"
)

func newExportCmd(opts *rootOpts) *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the rule list or an audit report",
	}
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "json", "output format (csv, json, parquet)")
	cmd.PersistentFlags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Export the pending rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeExport(cmd, opts, format, out, func(ctx context.Context, a *app.App, w io.Writer, f export.Format) error {
				return a.Service.ExportRules(ctx, w, f)
			})
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report URL",
		Short: "Export the audit report of URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeExport(cmd, opts, format, out, func(ctx context.Context, a *app.App, w io.Writer, f export.Format) error {
				return a.Service.ExportReport(ctx, w, args[0], f)
			})
		},
	}

	cmd.AddCommand(rulesCmd, reportCmd)
	return cmd
}

func writeExport(cmd *cobra.Command, opts *rootOpts, format, out string, fn func(context.Context, *app.App, io.Writer, export.Format) error) error {
	f, err := export.ParseFormat(format)
	if err != nil {
		return err
	}

	return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
		if out == "" {
			return fn(ctx, a, cmd.OutOrStdout(), f)
		}

		file, err := os.Create(out)
		if err != nil {
			return errors.Errorf("creating %s: %w", out, err)
		}
		if err := fn(ctx, a, file, f); err != nil {
			file.Close()
			return err
		}
		if err := file.Close(); err != nil {
			return errors.Errorf("closing %s: %w", out, err)
		}
		pterm.Success.Printfln("Wrote %s", out)
		return nil
	})
}

func newMigrateCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the content store tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := source.Migrate(ctx, a.DB); err != nil {
					return err
				}
				pterm.Success.Println("Content store schema is up to date")
				return nil
			})
		},
	}
}
