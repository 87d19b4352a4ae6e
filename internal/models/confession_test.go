package models

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestToConfession(t *testing.T) {
	fixed := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	restore := now
	now = func() time.Time { return fixed }
	defer func() { now = restore }()

	created := time.Date(2025, 12, 24, 18, 0, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name     string
		row      ConfessionRow
		expected Confession
	}{
		{
			name:     "All columns present",
			row:      ConfessionRow{ID: 7, Confession: "I still sleep with a nightlight", Like: intPtr(3), CreatedAt: &created},
			expected: Confession{ID: 7, Message: "I still sleep with a nightlight", Likes: 3, CreatedAt: "2025-12-24T17:00:00Z"},
		},
		{
			name:     "Missing like and created_at",
			row:      ConfessionRow{ID: 8, Confession: "hello"},
			expected: Confession{ID: 8, Message: "hello", Likes: 0, CreatedAt: "2026-02-14T09:30:00Z"},
		},
		{
			name:     "Negative like is clamped",
			row:      ConfessionRow{ID: 9, Confession: "odd row", Like: intPtr(-2), CreatedAt: &time.Time{}},
			expected: Confession{ID: 9, Message: "odd row", Likes: 0, CreatedAt: "2026-02-14T09:30:00Z"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToConfession(tt.row))
		})
	}
}

func TestToConfessions_PreservesOrder(t *testing.T) {
	rows := []ConfessionRow{{ID: 3, Confession: "c"}, {ID: 1, Confession: "a"}, {ID: 2, Confession: "b"}}

	got := ToConfessions(rows)

	require.Len(t, got, 3)
	assert.Equal(t, []uint{3, 1, 2}, []uint{got[0].ID, got[1].ID, got[2].ID})
}

func TestToConfessions_EmptyIsNotNil(t *testing.T) {
	got := ToConfessions(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFromConfession(t *testing.T) {
	c := Confession{ID: 4, Message: "round trip", Likes: 12, CreatedAt: "2026-01-02T03:04:05Z"}

	row := FromConfession(c)

	assert.Equal(t, uint(4), row.ID)
	assert.Equal(t, "round trip", row.Confession)
	require.NotNil(t, row.Like)
	assert.Equal(t, 12, *row.Like)
	require.NotNil(t, row.CreatedAt)
	assert.Equal(t, c, ToConfession(row))
}

func TestFromConfession_BadTimestamp(t *testing.T) {
	row := FromConfession(Confession{ID: 1, Message: "m", CreatedAt: "yesterday"})
	assert.Nil(t, row.CreatedAt)
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/app", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError,
			NewInternalError("Failed to fetch confessions", errors.New("connection refused")))
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusBadRequest, errors.New("bad"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/app", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Failed to fetch confessions","code":"INTERNAL_ERROR","details":"connection refused"}`, string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/plain", nil))
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"bad"}`, string(body))
}

func TestIsCode(t *testing.T) {
	err := NewNotFoundError("Confession", 3)
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeValidation))
	assert.False(t, IsCode(errors.New("x"), CodeNotFound))
	assert.Equal(t, "Confession with ID 3 not found", err.Error())
}
