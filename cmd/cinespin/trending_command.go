package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cinespin/internal/config"
	"cinespin/internal/vibe"
)

func newTrendingCommand(ctx *commandContext) *cobra.Command {
	var region string
	var window string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "List the trending titles the fallback picks from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if window == "" {
				window = cfg.Resolver.TrendingWindow
			}
			if window != "day" && window != "week" {
				return fmt.Errorf("--window must be day or week (got %q)", window)
			}
			if limit <= 0 {
				limit = cfg.Resolver.FallbackTopN
			}
			if region != "" {
				if region, err = config.NormalizeRegion(region); err != nil {
					return err
				}
			}

			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger(cfg, "cli-trending")
			fallback := vibe.NewFallback(catalog, cfg.Resolver.TrendingMedia, window, limit, cfg.TMDB.ImageBaseURL, nil, logger)
			items, err := fallback.Top(cmd.Context())
			if err != nil {
				return fmt.Errorf("load trending titles: %w", err)
			}

			// Availability is only looked up when a region is requested.
			availability := make(map[int64]string, len(items))
			if region != "" {
				validator := vibe.NewValidator(catalog, cfg.Resolver.BatchSize, cfg.TMDB.SearchMode, cfg.TMDB.ImageBaseURL, logger)
				for _, item := range items {
					record, err := validator.Availability(cmd.Context(), item, region)
					if err != nil {
						availability[item.ID] = "unknown"
						continue
					}
					availability[item.ID] = yesNo(record.Available())
				}
			}

			if asJSON {
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			headers := []string{"Rank", "Title", "Kind", "Released", "Rating"}
			aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight}
			if region != "" {
				headers = append(headers, "Available ("+region+")")
				aligns = append(aligns, alignLeft)
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				row := []string{
					strconv.Itoa(item.PopularityRank),
					item.Title,
					item.MediaKind,
					releaseYear(item.ReleaseDate),
					strconv.FormatFloat(item.VoteAverage, 'f', 1, 64),
				}
				if region != "" {
					row = append(row, availability[item.ID])
				}
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(out, headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().StringVarP(&region, "region", "r", "", "Also check streaming availability in this region")
	cmd.Flags().StringVar(&window, "window", "", "Trending window: day or week (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of titles to list (default fallback_top_n)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the titles as JSON")
	return cmd
}
