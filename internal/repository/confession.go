// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"time"

	"secretheart/internal/database"
	"secretheart/internal/models"
	"secretheart/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when no confession has the requested ID.
	ErrNotFound = errors.New("confession not found")
	// ErrNoRowReturned is returned when an insert succeeds but yields no row.
	ErrNoRowReturned = errors.New("No data returned after insert")
)

// ConfessionRepository defines the interface for confession data operations.
// Implementations work on backend rows; mapping to the client shape happens
// in the service layer.
type ConfessionRepository interface {
	// ListNewestFirst returns every row ordered by id descending.
	ListNewestFirst(ctx context.Context) ([]models.ConfessionRow, error)
	// ListUnordered returns every row in backend order.
	ListUnordered(ctx context.Context) ([]models.ConfessionRow, error)
	GetByID(ctx context.Context, id uint) (*models.ConfessionRow, error)
	// Create inserts row and fills in the backend-assigned columns.
	Create(ctx context.Context, row *models.ConfessionRow) error
	// IncrementLikes adds one to the like count in a single statement and
	// returns the updated row.
	IncrementLikes(ctx context.Context, id uint) (*models.ConfessionRow, error)
	Ping(ctx context.Context) error
}

// confessionRepository implements ConfessionRepository on gorm.
type confessionRepository struct {
	db    *gorm.DB
	table string
}

// NewConfessionRepository creates a gorm-backed repository over table.
func NewConfessionRepository(db *gorm.DB, table string) ConfessionRepository {
	return &confessionRepository{db: db, table: table}
}

func (r *confessionRepository) scoped(ctx context.Context) *gorm.DB {
	return database.Table(r.db.WithContext(ctx), r.table)
}

func (r *confessionRepository) ListNewestFirst(ctx context.Context) ([]models.ConfessionRow, error) {
	defer observability.TrackQuery("list_newest_first", "gorm")()

	var rows []models.ConfessionRow
	if err := r.scoped(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *confessionRepository) ListUnordered(ctx context.Context) ([]models.ConfessionRow, error) {
	defer observability.TrackQuery("list_unordered", "gorm")()

	var rows []models.ConfessionRow
	if err := r.scoped(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *confessionRepository) GetByID(ctx context.Context, id uint) (*models.ConfessionRow, error) {
	defer observability.TrackQuery("get_by_id", "gorm")()

	var row models.ConfessionRow
	if err := r.scoped(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *confessionRepository) Create(ctx context.Context, row *models.ConfessionRow) error {
	defer observability.TrackQuery("create", "gorm")()

	if row.CreatedAt == nil {
		now := time.Now().UTC()
		row.CreatedAt = &now
	}
	if err := r.scoped(ctx).Create(row).Error; err != nil {
		return err
	}
	if row.ID == 0 {
		return ErrNoRowReturned
	}
	return nil
}

func (r *confessionRepository) IncrementLikes(ctx context.Context, id uint) (*models.ConfessionRow, error) {
	defer observability.TrackQuery("increment_likes", "gorm")()

	var row models.ConfessionRow
	res := r.scoped(ctx).
		Model(&row).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn("like", gorm.Expr("COALESCE(?, 0) + 1", clause.Column{Name: "like"}))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *confessionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
