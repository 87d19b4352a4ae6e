package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"secretheart/internal/models"
)

// Op names a MemoryConfessionRepository operation for failure injection.
type Op string

const (
	OpListNewestFirst Op = "list_newest_first"
	OpListUnordered   Op = "list_unordered"
	OpGetByID         Op = "get_by_id"
	OpCreate          Op = "create"
	OpIncrementLikes  Op = "increment_likes"
	OpPing            Op = "ping"
)

// MemoryConfessionRepository keeps rows in process memory. It backs
// DB_DRIVER=memory and the tests, where SetFailure simulates backend errors.
type MemoryConfessionRepository struct {
	mu       sync.Mutex
	rows     []models.ConfessionRow
	nextID   uint
	failures map[Op]error
	now      func() time.Time
}

// NewMemoryConfessionRepository returns an empty repository, optionally
// pre-populated with rows. Seeded rows keep their IDs.
func NewMemoryConfessionRepository(seed ...models.ConfessionRow) *MemoryConfessionRepository {
	m := &MemoryConfessionRepository{
		failures: make(map[Op]error),
		now:      time.Now,
	}
	for _, row := range seed {
		m.rows = append(m.rows, cloneRow(row))
		if row.ID > m.nextID {
			m.nextID = row.ID
		}
	}
	return m
}

// SetFailure makes op return err until cleared with a nil err.
func (m *MemoryConfessionRepository) SetFailure(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Len returns the number of stored rows.
func (m *MemoryConfessionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func cloneRow(row models.ConfessionRow) models.ConfessionRow {
	out := row
	if row.Like != nil {
		v := *row.Like
		out.Like = &v
	}
	if row.CreatedAt != nil {
		v := *row.CreatedAt
		out.CreatedAt = &v
	}
	return out
}

func (m *MemoryConfessionRepository) snapshot(newestFirst bool) []models.ConfessionRow {
	out := make([]models.ConfessionRow, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, cloneRow(row))
	}
	if newestFirst {
		slices.SortFunc(out, func(a, b models.ConfessionRow) int {
			return cmp.Compare(b.ID, a.ID)
		})
	}
	return out
}

func (m *MemoryConfessionRepository) ListNewestFirst(_ context.Context) ([]models.ConfessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpListNewestFirst]; err != nil {
		return nil, err
	}
	return m.snapshot(true), nil
}

func (m *MemoryConfessionRepository) ListUnordered(_ context.Context) ([]models.ConfessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpListUnordered]; err != nil {
		return nil, err
	}
	return m.snapshot(false), nil
}

func (m *MemoryConfessionRepository) indexOf(id uint) int {
	for i := range m.rows {
		if m.rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *MemoryConfessionRepository) GetByID(_ context.Context, id uint) (*models.ConfessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpGetByID]; err != nil {
		return nil, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	row := cloneRow(m.rows[i])
	return &row, nil
}

func (m *MemoryConfessionRepository) Create(_ context.Context, row *models.ConfessionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCreate]; err != nil {
		return err
	}

	m.nextID++
	row.ID = m.nextID
	if row.Like == nil {
		zero := 0
		row.Like = &zero
	}
	if row.CreatedAt == nil {
		now := m.now().UTC()
		row.CreatedAt = &now
	}
	m.rows = append(m.rows, cloneRow(*row))
	return nil
}

func (m *MemoryConfessionRepository) IncrementLikes(_ context.Context, id uint) (*models.ConfessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpIncrementLikes]; err != nil {
		return nil, err
	}
	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}

	likes := 1
	if m.rows[i].Like != nil {
		likes = *m.rows[i].Like + 1
	}
	m.rows[i].Like = &likes

	row := cloneRow(m.rows[i])
	return &row, nil
}

func (m *MemoryConfessionRepository) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[OpPing]
}
