package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/raaihank/link-sentinel/internal/app"
	"github.com/raaihank/link-sentinel/internal/report"
	"github.com/raaihank/link-sentinel/internal/source"
)

func newAuditCmd(opts *rootOpts) *cobra.Command {
	var (
		page          int
		perPage       int
		caseSensitive bool
	)

	cmd := &cobra.Command{
		Use:   "audit URL",
		Short: "List every record that contains URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Service.FindInstances(ctx, args[0], caseSensitive)
				if err != nil {
					return err
				}

				if result.TotalFound == 0 {
					pterm.Info.Printfln("No instances of %s found", result.SearchURL)
					return nil
				}

				view := report.Paginate(result.Locations, page, perPage)
				pterm.Success.Printfln("Found %d instances of %s in %d records", result.TotalFound, result.SearchURL, len(result.Locations))
				if err := pterm.DefaultTable.WithHasHeader().WithData(locationTable(view.Items)).Render(); err != nil {
					return err
				}
				if len(view.Items) > 0 {
					pterm.Info.Printfln("Showing %d to %d of %d", view.StartIndex+1, view.EndIndex, view.TotalItems)
				}
				if view.ShowControls {
					pterm.Info.Printfln("Pages: %s", formatWindow(view.Window, view.CurrentPage))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "page of results to show")
	cmd.Flags().IntVar(&perPage, "per-page", report.DefaultPageSize, "results per page")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match the URL case-sensitively")
	return cmd
}

func newReplaceCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "replace FROM TO",
		Short: "Rewrite FROM to TO everywhere and retire the matching rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(ctx context.Context, a *app.App) error {
				result, err := a.Service.ReplaceInstances(ctx, args[0], args[1])
				if err != nil {
					return err
				}

				if result.TotalReplacements == 0 {
					pterm.Warning.Printfln("No records contained %s", result.FromURL)
					return nil
				}

				data := pterm.TableData{{"Source", "Records"}}
				names := make([]string, 0, len(result.BySource))
				for name := range result.BySource {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					data = append(data, []string{name, strconv.FormatInt(result.BySource[name], 10)})
				}
				if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
					return err
				}

				pterm.Success.Printfln("Replaced %s with %s in %d records", result.FromURL, result.ToURL, result.TotalReplacements)
				if result.RuleRetired {
					pterm.Info.Println("Matching rule removed from the pending list")
				}
				return nil
			})
		},
	}
}

func locationTable(items []source.Location) pterm.TableData {
	data := pterm.TableData{{"Type", "ID", "Title", "Field", "Count", "URL"}}
	for _, loc := range items {
		field := loc.PostType
		if loc.MetaKey != "" {
			field = loc.MetaKey
		}
		data = append(data, []string{
			string(loc.Type),
			loc.RecordID,
			loc.Title,
			field,
			strconv.Itoa(loc.Count),
			loc.ViewURL,
		})
	}
	return data
}

// formatWindow renders a page window like "« 1 … 4 [5] 6 … 9 »"
func formatWindow(w report.PageWindow, current int) string {
	parts := make([]string, 0, len(w.Pages)+2)
	if w.HasPrev {
		parts = append(parts, "«")
	}
	for _, p := range w.Pages {
		switch p {
		case report.Ellipsis:
			parts = append(parts, "…")
		case current:
			parts = append(parts, fmt.Sprintf("[%d]", p))
		default:
			parts = append(parts, strconv.Itoa(p))
		}
	}
	if w.HasNext {
		parts = append(parts, "»")
	}
	return strings.Join(parts, " ")
}
