package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cinespin/internal/services/llm"
)

type healthCheck struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Latency   string `json:"latency,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the catalog and language model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			probeCtx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			checks := make([]healthCheck, 0, 2)

			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			checks = append(checks, probe("tmdb", func() error {
				resp, err := catalog.Trending(probeCtx, "movie", cfg.Resolver.TrendingWindow)
				if err != nil {
					return err
				}
				if len(resp.Results) == 0 {
					return errors.New("trending list is empty")
				}
				return nil
			}))

			if cfg.LLMConfigured() {
				client := llm.NewClient(llm.ConfigFrom(cfg.LLM), llm.WithRetryMaxAttempts(1))
				checks = append(checks, probe("llm", func() error {
					return client.HealthCheck(probeCtx)
				}))
			} else {
				checks = append(checks, healthCheck{
					Component: "llm",
					Status:    "unconfigured",
					Detail:    "requests fall back to trending titles",
				})
			}

			failed := 0
			for _, check := range checks {
				if check.Status == "error" {
					failed++
				}
			}

			if asJSON {
				if err := writeJSON(cmd, checks); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				rows := make([][]string, 0, len(checks))
				for _, check := range checks {
					rows = append(rows, []string{check.Component, check.Status, check.Latency, check.Detail})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Component", "Status", "Latency", "Detail"}, rows, nil))
			}
			if failed > 0 {
				return fmt.Errorf("%d health check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "Overall probe timeout")
	return cmd
}

func probe(component string, fn func() error) healthCheck {
	start := time.Now()
	err := fn()
	check := healthCheck{
		Component: component,
		Status:    "ok",
		Latency:   time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		check.Status = "error"
		check.Detail = err.Error()
	}
	return check
}
