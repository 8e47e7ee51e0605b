package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/skylarklabs/reportloom/internal/cache"
	"github.com/skylarklabs/reportloom/internal/config"
)

// buildMigrateCmd applies the Execution Cache's schema to the configured
// backend. SQLite applies its schema on open (cache.NewSQLiteStore), so
// this is only load-bearing for Postgres, whose store constructor assumes
// an already-migrated schema. A single idempotent apply, since this core
// has no versioned migration chain to step through.
func buildMigrateCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Execution Cache schema to the configured storage backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch cfg.Cache.Backend {
			case "postgres":
				return migratePostgres(cmd.Context(), cfg.Cache.DSN, out)
			case "sqlite", "":
				// NewSQLiteStore applies cache.SQLiteSchema on open.
				_, closeFn, err := cache.NewSQLiteStore(cfg.Cache.DSN)
				if err != nil {
					return err
				}
				defer closeFn()
				fmt.Fprintln(out, "sqlite schema is current")
				return nil
			default:
				return fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
			}
		},
	}
	return cmd
}

func migratePostgres(ctx context.Context, dsn string, out io.Writer) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, cache.PostgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	fmt.Fprintln(out, "postgres schema applied")
	return nil
}
