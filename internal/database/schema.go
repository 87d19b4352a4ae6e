package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"secretheart/internal/config"
	"secretheart/internal/middleware"
	"secretheart/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and what has been applied.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Driver             string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

// schemaPolicy decides between embedded SQL migrations and AutoMigrate. The
// SQL scripts are Postgres-only, so SQLite always gets AutoMigrate.
func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	isSQLite := cfg.DBDriver == config.DriverSQLite

	switch mode {
	case SchemaModeSQL:
		if isSQLite {
			return false, false, fmt.Errorf("DB_SCHEMA_MODE=sql requires a Postgres driver, got %q", cfg.DBDriver)
		}
		return true, false, nil
	case SchemaModeAuto:
		if cfg.IsProduction() && !isSQLite {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto against Postgres in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return !isSQLite, isSQLite, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// Table scopes db to table as a quoted identifier. gorm's Table(name) takes a
// name containing a space as raw SQL, so "secret heart" would read as table
// "secret" aliased "heart".
func Table(db *gorm.DB, table string) *gorm.DB {
	tx := db.Table("?", clause.Table{Name: table})
	tx.Statement.Table = table
	return tx
}

// AutoMigrate creates or updates the confessions table from ConfessionRow.
func AutoMigrate(db *gorm.DB, table string) error {
	return Table(db, table).AutoMigrate(&models.ConfessionRow{})
}

// ApplySchema brings the configured table up to date.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		if err := RunMigrations(ctx, db, cfg.ConfessionsTable); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate",
			slog.String("mode", normalizedSchemaMode(cfg)),
			slog.String("table", cfg.ConfessionsTable),
		)
		if err := AutoMigrate(db.WithContext(ctx), cfg.ConfessionsTable); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return nil
}

// GetSchemaStatus reports the schema policy and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		Driver:             cfg.DBDriver,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	appliedSet := make(map[int]bool, len(applied))
	for _, version := range applied {
		appliedSet[version] = true
	}
	for _, m := range GetMigrations() {
		if !appliedSet[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
