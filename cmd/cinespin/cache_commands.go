package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/vibecache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the proposal cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))

	return cacheCmd
}

func withCache(ctx *commandContext, cmd *cobra.Command, fn func(vibecache.Admin) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Backend == config.CacheBackendMemory {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache backend is memory; entries only live inside a running server (set cache.backend = \"sqlite\" to persist)")
	}
	store, err := ctx.openCache(ctx.cliLogger(cfg, "cli-cache"))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached proposals, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(store vibecache.Admin) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Cached proposals: none")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for i, entry := range entries {
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						entry.Key,
						strconv.Itoa(len(entry.Candidates)),
						formatStamp(entry.CachedAt),
						formatStamp(entry.ExpiresAt),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"#", "Key", "Titles", "Cached", "Expires"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number|key>",
		Short: "Remove one cached proposal by list number or key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(store vibecache.Admin) error {
				key, err := resolveCacheKey(cmd, store, args[0])
				if err != nil {
					return err
				}
				if err := store.Remove(cmd.Context(), key); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", key)
				return nil
			})
		},
	}
}

// resolveCacheKey maps a 1-based number from `cache list` to its key; any
// other argument is taken as the key itself.
func resolveCacheKey(cmd *cobra.Command, store vibecache.Admin, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("cache entry number or key is required")
	}
	number, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	if number < 1 {
		return "", fmt.Errorf("invalid cache entry number: %d", number)
	}
	entries, err := store.List(cmd.Context())
	if err != nil {
		return "", err
	}
	if number > len(entries) {
		return "", fmt.Errorf("cache entry %d out of range (only %d entries exist)", number, len(entries))
	}
	return entries[number-1].Key, nil
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(ctx, cmd, func(store vibecache.Admin) error {
				count, err := store.Len(cmd.Context())
				if err != nil {
					return err
				}
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached proposals\n", count)
				return nil
			})
		},
	}
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend and usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withCache(ctx, cmd, func(store vibecache.Admin) error {
				expired, err := store.Sweep(cmd.Context())
				if err != nil {
					logging.WarnWithContext(ctx.cliLogger(cfg, "cli-cache"), "cache sweep failed", "vibecache_sweep_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "expired entries are included in the count"),
					)
				}
				count, err := store.Len(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:  %s\n", store.Backend())
				if cfg.Cache.Path != "" {
					fmt.Fprintf(out, "Path:     %s\n", cfg.Cache.Path)
				}
				fmt.Fprintf(out, "Entries:  %d / %d\n", count, cfg.Cache.MaxEntries)
				fmt.Fprintf(out, "TTL:      %s\n", formatTTL(cfg.CacheTTL()))
				if expired > 0 {
					fmt.Fprintf(out, "Expired:  %d swept\n", expired)
				}
				return nil
			})
		},
	}
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatTTL(ttl time.Duration) string {
	if ttl <= 0 {
		return "none"
	}
	return ttl.String()
}
