package seed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"secretheart/internal/models"
	"secretheart/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Bounds(t *testing.T) {
	f := NewFactory(repository.NewMemoryConfessionRepository(), Options{MaxDays: 2, MaxLikes: 5, Seed: 42})
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return fixed }

	for i := 0; i < 50; i++ {
		row := f.Build()
		assert.NotEmpty(t, strings.TrimSpace(row.Confession))
		require.NotNil(t, row.Like)
		assert.GreaterOrEqual(t, *row.Like, 0)
		assert.LessOrEqual(t, *row.Like, 5)
		require.NotNil(t, row.CreatedAt)
		assert.False(t, row.CreatedAt.After(fixed))
		assert.False(t, row.CreatedAt.Before(fixed.Add(-48*time.Hour)))
	}
}

func TestBuild_DeterministicWithSeed(t *testing.T) {
	a := NewFactory(nil, Options{Seed: 7, MaxLikes: 10})
	b := NewFactory(nil, Options{Seed: 7, MaxLikes: 10})

	for i := 0; i < 5; i++ {
		ra, rb := a.Build(), b.Build()
		assert.Equal(t, ra.Confession, rb.Confession)
		assert.Equal(t, *ra.Like, *rb.Like)
	}
}

func TestBuild_Overrides(t *testing.T) {
	f := NewFactory(nil, Options{Seed: 1})
	row := f.Build(func(r *models.ConfessionRow) { r.Confession = "fixed" })
	assert.Equal(t, "fixed", row.Confession)
	assert.Equal(t, 0, *row.Like, "MaxLikes 0 means no likes")
}

func TestConfessions_Persists(t *testing.T) {
	repo := repository.NewMemoryConfessionRepository()
	f := NewFactory(repo, Options{Seed: 3, MaxLikes: 20})

	rows, err := f.Confessions(context.Background(), 12)
	require.NoError(t, err)
	assert.Len(t, rows, 12)
	assert.Equal(t, 12, repo.Len())
	for i, row := range rows {
		assert.Equal(t, uint(i+1), row.ID)
	}
}

func TestConfessions_StopsOnError(t *testing.T) {
	repo := repository.NewMemoryConfessionRepository()
	repo.SetFailure(repository.OpCreate, errors.New("read-only"))
	f := NewFactory(repo, Options{Seed: 3})

	rows, err := f.Confessions(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed confession 1/3")
	assert.Empty(t, rows)
}
