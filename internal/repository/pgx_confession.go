package repository

import (
	"context"
	"errors"
	"fmt"

	"secretheart/internal/models"
	"secretheart/internal/observability"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const confessionColumns = `id, confession, "like", created_at`

// pgxConfessionRepository implements ConfessionRepository on a native pgx pool.
type pgxConfessionRepository struct {
	pool  *pgxpool.Pool
	table string
}

// NewPgxConfessionRepository creates a pgx-backed repository over table.
func NewPgxConfessionRepository(pool *pgxpool.Pool, table string) ConfessionRepository {
	return &pgxConfessionRepository{pool: pool, table: pgx.Identifier{table}.Sanitize()}
}

func (r *pgxConfessionRepository) list(ctx context.Context, orderBy string) ([]models.ConfessionRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s%s`, confessionColumns, r.table, orderBy)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[models.ConfessionRow])
}

func (r *pgxConfessionRepository) ListNewestFirst(ctx context.Context) ([]models.ConfessionRow, error) {
	defer observability.TrackQuery("list_newest_first", "pgx")()
	return r.list(ctx, " ORDER BY id DESC")
}

func (r *pgxConfessionRepository) ListUnordered(ctx context.Context) ([]models.ConfessionRow, error) {
	defer observability.TrackQuery("list_unordered", "pgx")()
	return r.list(ctx, "")
}

func (r *pgxConfessionRepository) one(ctx context.Context, query string, args ...any) (*models.ConfessionRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.ConfessionRow])
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *pgxConfessionRepository) GetByID(ctx context.Context, id uint) (*models.ConfessionRow, error) {
	defer observability.TrackQuery("get_by_id", "pgx")()

	row, err := r.one(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, confessionColumns, r.table), int64(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return row, err
}

func (r *pgxConfessionRepository) Create(ctx context.Context, row *models.ConfessionRow) error {
	defer observability.TrackQuery("create", "pgx")()

	query := fmt.Sprintf(
		`INSERT INTO %s (confession, "like", created_at) VALUES ($1, COALESCE($2, 0), COALESCE($3, NOW())) RETURNING %s`,
		r.table, confessionColumns,
	)
	created, err := r.one(ctx, query, row.Confession, row.Like, row.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoRowReturned
	}
	if err != nil {
		return err
	}
	*row = *created
	return nil
}

func (r *pgxConfessionRepository) IncrementLikes(ctx context.Context, id uint) (*models.ConfessionRow, error) {
	defer observability.TrackQuery("increment_likes", "pgx")()

	query := fmt.Sprintf(
		`UPDATE %s SET "like" = COALESCE("like", 0) + 1 WHERE id = $1 RETURNING %s`,
		r.table, confessionColumns,
	)
	row, err := r.one(ctx, query, int64(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return row, err
}

func (r *pgxConfessionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
