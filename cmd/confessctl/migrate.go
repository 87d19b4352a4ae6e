package main

import (
	"context"
	"fmt"
	"strconv"

	"secretheart/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back schema migrations.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply the schema using the configured DB_SCHEMA_MODE.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
					if err := database.ApplySchema(ctx, db, cfg); err != nil {
						return fmt.Errorf("apply schema: %w", err)
					}
					cmd.Println("schema applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down [version]",
			Short: "Roll back one SQL migration, the latest when no version is given.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
					if len(args) == 0 {
						version, err := database.RollbackLatest(ctx, db, cfg.ConfessionsTable)
						if err != nil {
							return fmt.Errorf("rollback failed: %w", err)
						}
						cmd.Printf("rolled back migration %d\n", version)
						return nil
					}
					version, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid version %q: %w", args[0], err)
					}
					if err := database.RollbackMigration(ctx, db, cfg.ConfessionsTable, version); err != nil {
						return fmt.Errorf("rollback failed: %w", err)
					}
					cmd.Printf("rolled back migration %d\n", version)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the schema policy and pending migrations.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
					status, err := database.GetSchemaStatus(ctx, db, cfg)
					if err != nil {
						return fmt.Errorf("schema status failed: %w", err)
					}
					cmd.Printf("mode=%s env=%s driver=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
						status.Mode, status.Environment, status.Driver,
						status.WillRunSQL, status.WillRunAutoMigrate,
						len(status.AppliedVersions), len(status.PendingMigrations))
					for _, m := range status.PendingMigrations {
						cmd.Printf("pending: %s\n", m.String())
					}
					return nil
				})
			},
		},
	)
	return cmd
}

func withDB(ctx context.Context, fn func(context.Context, *gorm.DB) error) error {
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = database.Close(db) }()
	return fn(ctx, db)
}
