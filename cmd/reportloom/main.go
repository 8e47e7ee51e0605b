// Package main provides the CLI entry point for reportloom, the
// LLM-driven issue-report generation core.
//
// Usage:
//
//	reportloom generate --config reportloom.yaml --prompt-id 7 \
//	    --request "Summarize October's issues" --period 2025-10 --user u-42
//
//	reportloom template --config reportloom.yaml --file report.html
//
//	reportloom migrate --config reportloom.yaml
//
//	reportloom janitor --config reportloom.yaml [--once]
//
// Build information is injected via version-ldflags vars, buildRootCmd is
// split out from main for testability, and a slog.JSONHandler default
// logger is wired up before cobra's Execute runs. Trimmed to the handful of
// subcommands this core's scope actually needs — no channel, plugin,
// skill, or gateway commands, since those components don't exist here.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the root command and its subcommands, separated
// from main for testability.
func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "reportloom",
		Short: "reportloom - LLM-driven issue report generation agent",
		Long: `reportloom consults a Jira-shaped issue tracker through an agentic,
function-calling loop and emits a finished HTML report fragment.

It is not a chat gateway or a workflow engine: one "generate" invocation is
one bounded session against one LLM endpoint.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "reportloom.yaml", "path to config file")

	rootCmd.AddCommand(
		buildGenerateCmd(&configPath),
		buildTemplateCmd(&configPath),
		buildMigrateCmd(&configPath),
		buildStatusCmd(&configPath),
		buildToolsCmd(&configPath),
		buildJanitorCmd(&configPath),
	)

	return rootCmd
}
