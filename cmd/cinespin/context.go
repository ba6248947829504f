package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cinespin/internal/catalog/tmdb"
	"cinespin/internal/config"
	"cinespin/internal/logging"
	"cinespin/internal/services/llm"
	"cinespin/internal/vibe"
	"cinespin/internal/vibecache"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	catalogOnce sync.Once
	catalogVal  *tmdb.Client
	catalogErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// cliLogger logs to stderr only so command output stays parseable. Commands
// that run the service use the configured logger instead.
func (c *commandContext) cliLogger(cfg *config.Config, component string) *slog.Logger {
	level := "warn"
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console"})
	if err != nil {
		return logging.NewNop()
	}
	return logging.ForComponent(logger, cfg, component)
}

// catalog builds the TMDB client once per command so every consumer shares
// its rate limiter and circuit breaker.
func (c *commandContext) catalog() (*tmdb.Client, error) {
	c.catalogOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.catalogErr = err
			return
		}
		client, err := tmdb.NewFromConfig(cfg.TMDB)
		if err != nil {
			c.catalogErr = fmt.Errorf("init tmdb client: %w", err)
			return
		}
		c.catalogVal = client
	})
	return c.catalogVal, c.catalogErr
}

// completer returns nil when no LLM key is configured so the resolver runs
// without a proposer.
func (c *commandContext) completer(cfg *config.Config) vibe.Completer {
	if !cfg.LLMConfigured() {
		return nil
	}
	return llm.NewClient(llm.ConfigFrom(cfg.LLM), llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts))
}

func (c *commandContext) openCache(logger *slog.Logger) (vibecache.Admin, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := vibecache.Open(cfg.Cache, logger)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return store, nil
}

func (c *commandContext) newResolver(catalog vibe.Catalog, cache vibecache.Store, logger *slog.Logger) (*vibe.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return vibe.New(cfg, vibe.Dependencies{
		Cache:     cache,
		Completer: c.completer(cfg),
		Catalog:   catalog,
		Logger:    logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
