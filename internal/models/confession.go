// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Confession is the record shape exchanged with clients.
type Confession struct {
	ID        uint   `json:"id"`
	Message   string `json:"message"`
	Likes     int    `json:"likes"`
	CreatedAt string `json:"created_at"`
}

// ConfessionRow is a row of the backend confessions table. Its column names
// predate the client API, hence the translation in ToConfession.
//
// Like and CreatedAt are nullable: rows written by older tooling may lack them.
type ConfessionRow struct {
	ID         uint       `gorm:"primaryKey;column:id" json:"id" db:"id"`
	Confession string     `gorm:"column:confession;type:text;not null" json:"confession" db:"confession"`
	Like       *int       `gorm:"column:like;default:0" json:"like" db:"like"`
	CreatedAt  *time.Time `gorm:"column:created_at" json:"created_at" db:"created_at"`
}

// TableName returns the default table for ConfessionRow. Repositories use the
// configured table explicitly, so this only matters for ad-hoc gorm use.
func (ConfessionRow) TableName() string {
	return "secret heart"
}

// now is swapped in tests.
var now = time.Now

// ToConfession maps a backend row to the client record, filling defaults for
// likes and created_at so every field is populated.
func ToConfession(row ConfessionRow) Confession {
	likes := 0
	if row.Like != nil && *row.Like > 0 {
		likes = *row.Like
	}

	created := now().UTC()
	if row.CreatedAt != nil && !row.CreatedAt.IsZero() {
		created = row.CreatedAt.UTC()
	}

	return Confession{
		ID:        row.ID,
		Message:   row.Confession,
		Likes:     likes,
		CreatedAt: created.Format(time.RFC3339Nano),
	}
}

// ToConfessions maps a slice of rows, preserving order.
func ToConfessions(rows []ConfessionRow) []Confession {
	out := make([]Confession, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToConfession(row))
	}
	return out
}

// FromConfession maps a client record back to a backend row. An unparsable
// created_at is left nil so the backend assigns one.
func FromConfession(c Confession) ConfessionRow {
	likes := c.Likes
	row := ConfessionRow{
		ID:         c.ID,
		Confession: c.Message,
		Like:       &likes,
	}
	if ts, err := time.Parse(time.RFC3339Nano, c.CreatedAt); err == nil {
		row.CreatedAt = &ts
	}
	return row
}
