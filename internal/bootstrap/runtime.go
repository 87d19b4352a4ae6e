// Package bootstrap opens the backend store and Redis for the server and CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"secretheart/internal/cache"
	"secretheart/internal/config"
	"secretheart/internal/database"
	"secretheart/internal/middleware"
	"secretheart/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs database.ApplySchema after connecting.
	ApplySchema bool
	// SkipRedis leaves Redis unconnected (one-shot CLI commands).
	SkipRedis bool
}

// Runtime holds the connections shared by the process.
type Runtime struct {
	Config *config.Config
	// DB is nil for DB_DRIVER=memory.
	DB *gorm.DB
	// Pool is set only for DB_DRIVER=pgx.
	Pool  *pgxpool.Pool
	Redis *redis.Client
	Repo  repository.ConfessionRepository
}

// InitRuntime connects to the configured backend store and Redis. Redis is
// optional: when it is unreachable the runtime continues without it.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg}

	switch cfg.DBDriver {
	case config.DriverMemory:
		middleware.Logger.Warn("Using in-memory confession store; data is lost on restart")
		rt.Repo = repository.NewMemoryConfessionRepository()

	default:
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		rt.DB = db

		if opts.ApplySchema {
			if err := database.ApplySchema(ctx, db, cfg); err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("apply schema: %w", err)
			}
		}

		if cfg.DBDriver == config.DriverPgx {
			pool, err := database.ConnectPool(ctx, cfg)
			if err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("pgx pool: %w", err)
			}
			rt.Pool = pool
			rt.Repo = repository.NewPgxConfessionRepository(pool, cfg.ConfessionsTable)
		} else {
			rt.Repo = repository.NewConfessionRepository(db, cfg.ConfessionsTable)
		}
	}

	if !opts.SkipRedis {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("Redis unavailable, continuing without cache and pub/sub",
				slog.String("error", err.Error()),
			)
		}
		rt.Redis = rdb
	}

	return rt, nil
}

// Close releases every connection the runtime opened.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.Pool != nil {
		r.Pool.Close()
	}
	if r.DB != nil {
		if err := database.Close(r.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
