// Package seed creates demo confessions for development and testing.
package seed

import (
	"context"
	"fmt"
	"time"

	"secretheart/internal/models"
	"secretheart/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// Options tune the generated data.
type Options struct {
	// MaxDays spreads created_at over the last N days.
	MaxDays int
	// MaxLikes caps the random starting like count.
	MaxLikes int
	// Seed makes output deterministic when non-zero.
	Seed int64
}

// Factory builds confessions and persists them through a repository.
type Factory struct {
	repo  repository.ConfessionRepository
	opts  Options
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewFactory creates a Factory writing to repo.
func NewFactory(repo repository.ConfessionRepository, opts Options) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	if opts.MaxLikes < 0 {
		opts.MaxLikes = 0
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		repo:  repo,
		opts:  opts,
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

var templates = []func(f *gofakeit.Faker) string{
	func(f *gofakeit.Faker) string {
		return fmt.Sprintf("I still haven't told anyone that I quit %s.", f.Hobby())
	},
	func(f *gofakeit.Faker) string {
		return fmt.Sprintf("Every night I talk to my %s about my day.", f.Animal())
	},
	func(f *gofakeit.Faker) string {
		return fmt.Sprintf("I pretend to like %s so my friends keep inviting me.", f.Hobby())
	},
	func(f *gofakeit.Faker) string {
		return fmt.Sprintf("I have a secret crush on someone who works at %s.", f.Company())
	},
	func(f *gofakeit.Faker) string {
		return fmt.Sprintf("I once ate a whole %s and blamed the dog.", f.Dessert())
	},
	func(f *gofakeit.Faker) string {
		return f.HipsterSentence(12)
	},
}

// Build returns an unsaved confession row with a random message, like count
// and timestamp. Overrides run last.
func (f *Factory) Build(overrides ...func(*models.ConfessionRow)) *models.ConfessionRow {
	message := templates[f.faker.IntRange(0, len(templates)-1)](f.faker)

	likes := 0
	if f.opts.MaxLikes > 0 {
		likes = f.faker.IntRange(0, f.opts.MaxLikes)
	}

	back := time.Duration(f.faker.IntRange(0, f.opts.MaxDays*24*60)) * time.Minute
	createdAt := f.now().Add(-back).UTC()

	row := &models.ConfessionRow{
		Confession: message,
		Like:       &likes,
		CreatedAt:  &createdAt,
	}
	for _, override := range overrides {
		override(row)
	}
	return row
}

// Confessions persists n generated confessions and returns them with their
// backend-assigned IDs.
func (f *Factory) Confessions(ctx context.Context, n int) ([]models.ConfessionRow, error) {
	out := make([]models.ConfessionRow, 0, n)
	for i := 0; i < n; i++ {
		row := f.Build()
		if err := f.repo.Create(ctx, row); err != nil {
			return out, fmt.Errorf("seed confession %d/%d: %w", i+1, n, err)
		}
		out = append(out, *row)
	}
	return out, nil
}
