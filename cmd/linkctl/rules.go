package main

import (
	"context"
	"os"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/raaihank/link-sentinel/internal/app"
	"github.com/raaihank/link-sentinel/internal/importer"
	"github.com/raaihank/link-sentinel/internal/rules"
)

func newImportCmd(opts *rootOpts) *cobra.Command {
	var (
		preview bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import replacement rules from a CSV or JSON file",
		Long: `Import reads (old URL, new URL) pairs from FILE, keeps the pairs whose
old URL still occurs on the site and appends them to the pending rule list.
With --preview nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Errorf("reading %s: %w", args[0], err)
			}
			if format == "" {
				detected, err := importer.DetectFormat(args[0])
				if err != nil {
					return err
				}
				format = string(detected)
			}

			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if preview {
					batch, err := a.Service.PreviewImport(ctx, string(content), format)
					if err != nil {
						return err
					}
					if err := pterm.DefaultTable.WithHasHeader().WithData(ruleTable(batch.Accepted)).Render(); err != nil {
						return err
					}
					pterm.Info.Printfln("%d of %d rules would be imported, %d have no instances on the site",
						len(batch.Accepted), batch.TotalImported, batch.FilteredOut)
					return nil
				}

				result, err := a.Service.ImportURLs(ctx, string(content), format)
				if err != nil {
					return err
				}
				pterm.Success.Println(result.Message)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "show what would be imported without saving")
	cmd.Flags().StringVarP(&format, "format", "f", "", "file format (csv or json), detected from the extension by default")
	return cmd
}

func newRulesCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the pending replacement rules",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the pending rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				set, err := a.Service.ListRules(ctx)
				if err != nil {
					return err
				}
				if set.Len() == 0 {
					pterm.Info.Println("No pending rules")
					return nil
				}
				if err := pterm.DefaultTable.WithHasHeader().WithData(ruleTable(set.Rules)).Render(); err != nil {
					return err
				}
				pterm.Info.Printfln("%d rules (version %d)", set.Len(), set.Version)
				return nil
			})
		},
	}

	var (
		description   string
		caseSensitive bool
	)
	add := &cobra.Command{
		Use:   "add FROM TO",
		Short: "Add a rule by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				set, err := a.Service.AddRule(ctx, rules.Rule{
					FromURL:       args[0],
					ToURL:         args[1],
					Description:   description,
					CaseSensitive: caseSensitive,
				})
				if err != nil {
					return err
				}
				pterm.Success.Printfln("Rule added. Total replacements: %d", set.Len())
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "note shown next to the rule")
	add.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match the old URL case-sensitively")

	del := &cobra.Command{
		Use:     "delete FROM TO",
		Aliases: []string{"rm"},
		Short:   "Remove the first rule with exactly this URL pair",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				set, err := a.Service.DeleteRule(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				pterm.Success.Printfln("Rule removed. Total replacements: %d", set.Len())
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func ruleTable(list []rules.Rule) pterm.TableData {
	data := pterm.TableData{{"From", "To", "Description", "Case sensitive"}}
	for _, r := range list {
		data = append(data, []string{r.FromURL, r.ToURL, r.Description, strconv.FormatBool(r.CaseSensitive)})
	}
	return data
}
