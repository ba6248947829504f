package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cinespin/internal/daemon"
	"cinespin/internal/httpapi"
	"cinespin/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			cache, err := ctx.openCache(logging.ComponentLevel(logger, cfg, "vibecache"))
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

			api := httpapi.New(cfg, httpapi.Deps{
				Resolver:           resolver,
				Trending:           catalog,
				Cache:              cache,
				ProposerConfigured: cfg.LLMConfigured(),
				Logger:             logging.ComponentLevel(logger, cfg, "httpapi"),
			})
			d, err := daemon.New(cfg, api, cache, logging.ComponentLevel(logger, cfg, "daemon"))
			if err != nil {
				return err
			}

			if !cfg.LLMConfigured() {
				logging.WarnWithContext(logger, "language model not configured", "llm_unconfigured",
					logging.String(logging.FieldImpact, "every request is answered from trending titles"),
					logging.String(logging.FieldErrorHint, "set OPENROUTER_API_KEY or llm.api_key"),
				)
			}
			if ctx.configPath != "" {
				logger.Info("configuration loaded", logging.String("path", ctx.configPath))
			}
			return d.Run(cmd.Context())
		},
	}
}
