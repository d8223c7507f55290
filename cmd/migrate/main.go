package main

// Manage the embedded schema:
//   go run ./cmd/migrate            # same as "up"
//   go run ./cmd/migrate status
//   go run ./cmd/migrate down

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"careerpilot-backend/internal/shared/config"
	"careerpilot-backend/internal/shared/storage/db"
	"careerpilot-backend/internal/shared/telemetry"
)

// connect is replaced in tests.
var connect = func(ctx context.Context, url string) (*sql.DB, error) {
	return db.Connect(ctx, url, db.OptionsFromEnv(db.DefaultMigrateOptions()))
}

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	up := func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), cfg, func(ctx context.Context, pool *sql.DB) error {
			if err := db.RunMigrations(ctx, pool); err != nil {
				return err
			}
			v, err := db.MigrationVersion(ctx, pool)
			if err != nil {
				return err
			}
			telemetry.Info("migrate.done", map[string]any{"version": v})
			return nil
		})
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          up,
	}
	root.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", Args: cobra.NoArgs, RunE: up},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), cfg, func(ctx context.Context, pool *sql.DB) error {
					if err := db.RollbackMigration(ctx, pool); err != nil {
						return err
					}
					telemetry.Info("migrate.rolled_back", nil)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print applied and embedded schema versions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), cfg, func(ctx context.Context, pool *sql.DB) error {
					applied, err := db.MigrationVersion(ctx, pool)
					if err != nil {
						return err
					}
					latest, err := db.LatestMigration()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "applied=%d latest=%d pending=%t\n", applied, latest, applied < latest)
					return nil
				})
			},
		},
	)
	return root
}

func withDB(ctx context.Context, cfg config.Config, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}
