package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skylarklabs/reportloom/internal/config"
)

// buildStatusCmd reports the resolved configuration this process would run
// with, without constructing live provider/cache connections — useful for
// sanity-checking a config file before a generate run.
func buildStatusCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "llm provider:        %s (model=%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
			fmt.Fprintf(out, "rate limit:          %d/min, %d retries, backoff %.1fs..%.1fs\n",
				cfg.RateLimit.MaxRequestsPerMinute, cfg.RateLimit.MaxRetries,
				cfg.RateLimit.InitialBackoff, cfg.RateLimit.MaxBackoff)
			fmt.Fprintf(out, "loop:                max_iterations=%d temperature=%.2f summary_max_chars=%d\n",
				cfg.Loop.MaxIterations, cfg.Loop.Temperature, cfg.Loop.SummaryMaxChars)
			fmt.Fprintf(out, "cache:               backend=%s dsn=%s retention_days=%d\n",
				cfg.Cache.Backend, cfg.Cache.DSN, cfg.Cache.RetentionDays)
			fmt.Fprintf(out, "jira:                %s\n", cfg.Jira.BaseURL)
			fmt.Fprintf(out, "logging:             level=%s format=%s\n", cfg.Logging.Level, cfg.Logging.Format)
			return nil
		},
	}
	return cmd
}
