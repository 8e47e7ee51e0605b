package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skylarklabs/reportloom/internal/cache"
)

// buildJanitorCmd runs the Execution Cache's retention janitor as a
// long-lived companion process, pruning prompt_executions rows older than
// cfg.Cache.RetentionDays on cfg.Cache.RetentionCron's schedule until
// interrupted. generate/template/migrate/status/tools are all one-shot
// invocations; the janitor is the one component in this core meant to
// outlive a single command, so it gets its own subcommand rather than
// running inline inside another one.
func buildJanitorCmd(configPath *string) *cobra.Command {
	var runOnce bool

	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Run the Execution Cache's retention janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.cfg.Cache.RetentionDays <= 0 {
				fmt.Fprintln(out, "cache.retention_days is unset or non-positive; nothing to prune")
				return nil
			}

			if runOnce {
				cutoff := time.Now().UTC().AddDate(0, 0, -a.cfg.Cache.RetentionDays)
				n, err := a.store.PruneOlderThan(cmd.Context(), cutoff)
				if err != nil {
					return fmt.Errorf("prune: %w", err)
				}
				fmt.Fprintf(out, "pruned %d execution(s) older than %s\n", n, cutoff.Format(time.RFC3339))
				return nil
			}

			j, err := cache.NewJanitor(a.store, a.cfg.Cache.RetentionCron, a.cfg.Cache.RetentionDays, a.logger.Slog())
			if err != nil {
				return fmt.Errorf("build janitor: %w", err)
			}
			if j == nil {
				fmt.Fprintln(out, "cache.retention_days is unset or non-positive; nothing to prune")
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "janitor started: retention=%d days schedule=%q\n", a.cfg.Cache.RetentionDays, a.cfg.Cache.RetentionCron)
			j.Start(ctx)
			<-ctx.Done()
			j.Stop()
			fmt.Fprintln(out, "janitor stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runOnce, "once", false, "prune a single time and exit instead of running on the cron schedule")
	return cmd
}
