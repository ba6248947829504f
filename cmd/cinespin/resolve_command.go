package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cinespin/internal/services"
	"cinespin/internal/vibe"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var region string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <text...>",
		Short: "Pick one title for a mood or description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger(cfg, "cli-resolve")
			cache, err := ctx.openCache(logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			resolver, err := ctx.newResolver(catalog, cache, logger)
			if err != nil {
				return err
			}

			runCtx := services.WithRequestID(cmd.Context(), uuid.NewString())
			result, err := resolver.Resolve(runCtx, vibe.Request{
				Text:   strings.Join(args, " "),
				Region: region,
			})
			if err != nil {
				if fatal, ok := vibe.AsFatal(err); ok {
					return fmt.Errorf("resolve failed (%s): %w", fatal.Code, fatal.Err)
				}
				return err
			}

			if asJSON {
				return writeJSON(cmd, result.Response())
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "ISO 3166-1 region to check availability in (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

func printResult(out io.Writer, result vibe.Result) {
	item := result.Item
	title := item.Title
	if year := releaseYear(item.ReleaseDate); year != "" {
		title = fmt.Sprintf("%s (%s)", title, year)
	}
	rows := [][]string{
		{"Title", title},
		{"Kind", item.MediaKind},
		{"Strategy", result.Strategy},
		{"Source", result.Source},
		{"Checked", strconv.Itoa(result.CandidatesChecked)},
		{"Reason", result.Reason},
	}
	if result.Availability != nil {
		rows = append(rows,
			[]string{"Region", result.Availability.Region},
			[]string{"Streaming", providerNames(result.Availability.Flatrate)},
		)
		if len(result.Availability.Rent) > 0 {
			rows = append(rows, []string{"Rent", providerNames(result.Availability.Rent)})
		}
		if result.Availability.Link != "" {
			rows = append(rows, []string{"Link", result.Availability.Link})
		}
	}
	if item.PosterURL != "" {
		rows = append(rows, []string{"Poster", item.PosterURL})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, nil))
}

func providerNames(providers []vibe.Provider) string {
	if len(providers) == 0 {
		return "-"
	}
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func releaseYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
