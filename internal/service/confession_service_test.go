package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"secretheart/internal/cache"
	"secretheart/internal/featureflags"
	"secretheart/internal/models"
	"secretheart/internal/notifications"
	"secretheart/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func intPtr(v int) *int { return &v }

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func seededRepo() *repository.MemoryConfessionRepository {
	return repository.NewMemoryConfessionRepository(
		models.ConfessionRow{ID: 1, Confession: "a", Like: intPtr(0), CreatedAt: ts("2024-01-01T00:00:00Z")},
		models.ConfessionRow{ID: 2, Confession: "b", Like: intPtr(3), CreatedAt: ts("2024-01-02T00:00:00Z")},
		models.ConfessionRow{ID: 3, Confession: "c", Like: nil, CreatedAt: ts("2024-01-03T00:00:00Z")},
	)
}

func newCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.New(rdb), mr
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func ids(list []models.Confession) []uint {
	out := make([]uint, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestListConfessions_NewestFirst(t *testing.T) {
	svc := NewConfessionService(seededRepo(), nil, nil, nil, 0)

	list, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 2, 1}, ids(list))
	assert.Equal(t, 0, list[0].Likes, "NULL like maps to 0")
	assert.Equal(t, 3, list[1].Likes)
}

func TestListConfessions_Empty(t *testing.T) {
	svc := NewConfessionService(repository.NewMemoryConfessionRepository(), nil, nil, nil, 0)

	list, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListConfessions_FallsBackToUnordered(t *testing.T) {
	repo := seededRepo()
	repo.SetFailure(repository.OpListNewestFirst, errors.New("column missing"))
	svc := NewConfessionService(repo, nil, nil, nil, 0)

	list, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2, 3}, ids(list))
}

func TestListConfessions_BothQueriesFail(t *testing.T) {
	repo := seededRepo()
	repo.SetFailure(repository.OpListNewestFirst, errors.New("ordered boom"))
	repo.SetFailure(repository.OpListUnordered, errors.New("unordered boom"))
	svc := NewConfessionService(repo, nil, nil, nil, 0)

	_, err := svc.ListConfessions(context.Background())
	appErr := assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, MsgFetchFailed, appErr.Message)
	assert.EqualError(t, appErr.Err, "unordered boom")
}

func TestListConfessions_CachedWhenFlagOn(t *testing.T) {
	repo := seededRepo()
	c, mr := newCache(t)
	svc := NewConfessionService(repo, c, nil, featureflags.NewManager("list_cache=on"), time.Minute)
	ctx := context.Background()

	first, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.ConfessionsListKey))

	// Served from cache even when the backend is down.
	repo.SetFailure(repository.OpListNewestFirst, errors.New("down"))
	repo.SetFailure(repository.OpListUnordered, errors.New("down"))
	second, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListConfessions_FallbackNotCached(t *testing.T) {
	repo := seededRepo()
	repo.SetFailure(repository.OpListNewestFirst, errors.New("ordered boom"))
	c, mr := newCache(t)
	svc := NewConfessionService(repo, c, nil, featureflags.NewManager("list_cache=on"), time.Minute)

	_, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ConfessionsListKey))
}

// slowListRepo runs onList while the ordered query is in flight.
type slowListRepo struct {
	*repository.MemoryConfessionRepository
	onList func()
}

func (r *slowListRepo) ListNewestFirst(ctx context.Context) ([]models.ConfessionRow, error) {
	rows, err := r.MemoryConfessionRepository.ListNewestFirst(ctx)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return rows, err
}

func TestListConfessions_FillRacingCreateIsNotCached(t *testing.T) {
	repo := &slowListRepo{MemoryConfessionRepository: seededRepo()}
	c, mr := newCache(t)
	svc := NewConfessionService(repo, c, nil, featureflags.NewManager("list_cache=on"), time.Minute)
	ctx := context.Background()

	repo.onList = func() {
		_, err := svc.CreateConfession(ctx, CreateConfessionInput{Message: "mid-flight"})
		require.NoError(t, err)
	}
	stale, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ConfessionsListKey))

	fresh, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, len(stale)+1)
	assert.Equal(t, "mid-flight", fresh[0].Message)
	assert.True(t, mr.Exists(cache.ConfessionsListKey))
}

func TestListConfessions_FlagOffSkipsCache(t *testing.T) {
	c, mr := newCache(t)
	svc := NewConfessionService(seededRepo(), c, nil, featureflags.NewManager("list_cache=off"), time.Minute)

	_, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ConfessionsListKey))
}

func TestCreateConfession(t *testing.T) {
	repo := repository.NewMemoryConfessionRepository()
	pub := &recordingPublisher{}
	svc := NewConfessionService(repo, nil, pub, nil, 0)

	got, err := svc.CreateConfession(context.Background(), CreateConfessionInput{Message: "I ate the last cookie"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.ID)
	assert.Equal(t, "I ate the last cookie", got.Message)
	assert.Equal(t, 0, got.Likes)
	assert.NotEmpty(t, got.CreatedAt)
	assert.Equal(t, []notifications.EventType{notifications.EventConfessionCreated}, pub.types())

	list, err := svc.ListConfessions(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, *got, list[0])
}

func TestCreateConfession_Validation(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantMsg string
	}{
		{name: "empty", message: "", wantMsg: MsgMessageRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repository.NewMemoryConfessionRepository()
			svc := NewConfessionService(repo, nil, nil, nil, 0)

			_, err := svc.CreateConfession(context.Background(), CreateConfessionInput{Message: tt.message})
			appErr := assertAppError(t, err, models.CodeValidation)
			assert.Equal(t, tt.wantMsg, appErr.Message)
			assert.Equal(t, 0, repo.Len(), "no backend call on invalid input")
		})
	}
}

func TestCreateConfession_AnyNonEmptyMessageRoundTrips(t *testing.T) {
	for _, msg := range []string{"   ", "  \n\t ", strings.Repeat("é", 2001), " padded "} {
		repo := repository.NewMemoryConfessionRepository()
		svc := NewConfessionService(repo, nil, nil, nil, 0)

		got, err := svc.CreateConfession(context.Background(), CreateConfessionInput{Message: msg})
		require.NoError(t, err)
		assert.Equal(t, msg, got.Message)
		assert.Equal(t, 0, got.Likes)
		assert.Equal(t, 1, repo.Len())
	}
}

func TestCreateConfession_BackendFailure(t *testing.T) {
	repo := repository.NewMemoryConfessionRepository()
	repo.SetFailure(repository.OpCreate, errors.New("insert refused"))
	pub := &recordingPublisher{}
	svc := NewConfessionService(repo, nil, pub, nil, 0)

	_, err := svc.CreateConfession(context.Background(), CreateConfessionInput{Message: "x"})
	appErr := assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, MsgSaveFailed, appErr.Message)
	assert.Empty(t, pub.types())
}

func TestCreateConfession_InvalidatesCache(t *testing.T) {
	c, mr := newCache(t)
	svc := NewConfessionService(seededRepo(), c, nil, featureflags.NewManager("list_cache=on"), time.Minute)
	ctx := context.Background()

	_, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.ConfessionsListKey))

	created, err := svc.CreateConfession(ctx, CreateConfessionInput{Message: "new"})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.ConfessionsListKey))

	list, err := svc.ListConfessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestCreateConfession_PublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc := NewConfessionService(repository.NewMemoryConfessionRepository(), nil, pub, nil, 0)

	_, err := svc.CreateConfession(context.Background(), CreateConfessionInput{Message: "x"})
	assert.NoError(t, err)
}

func TestLikeConfession(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewConfessionService(seededRepo(), nil, pub, nil, 0)
	ctx := context.Background()

	got, err := svc.LikeConfession(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Likes)
	assert.Equal(t, "b", got.Message)

	got, err = svc.LikeConfession(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Likes, "NULL like counts as 0")

	assert.Equal(t, []notifications.EventType{
		notifications.EventConfessionLiked,
		notifications.EventConfessionLiked,
	}, pub.types())
}

func TestLikeConfession_NotFound(t *testing.T) {
	svc := NewConfessionService(seededRepo(), nil, nil, nil, 0)

	_, err := svc.LikeConfession(context.Background(), 99)
	appErr := assertAppError(t, err, models.CodeNotFound)
	assert.Equal(t, "Confession with ID 99 not found", appErr.Message)
}

func TestLikeConfession_BackendFailure(t *testing.T) {
	repo := seededRepo()
	repo.SetFailure(repository.OpIncrementLikes, errors.New("deadlock"))
	svc := NewConfessionService(repo, nil, nil, nil, 0)

	_, err := svc.LikeConfession(context.Background(), 1)
	appErr := assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, MsgLikeFailed, appErr.Message)
}

func TestLikeConfession_ConcurrentLikesAreExact(t *testing.T) {
	repo := seededRepo()
	svc := NewConfessionService(repo, nil, nil, nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.LikeConfession(context.Background(), 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetConfession(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Likes)
}

func TestGetConfession(t *testing.T) {
	repo := seededRepo()
	svc := NewConfessionService(repo, nil, nil, nil, 0)
	ctx := context.Background()

	got, err := svc.GetConfession(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.Confession{ID: 2, Message: "b", Likes: 3, CreatedAt: "2024-01-02T00:00:00Z"}, *got)

	_, err = svc.GetConfession(ctx, 42)
	assertAppError(t, err, models.CodeNotFound)

	repo.SetFailure(repository.OpGetByID, errors.New("io"))
	_, err = svc.GetConfession(ctx, 2)
	appErr := assertAppError(t, err, models.CodeInternal)
	assert.Equal(t, MsgFetchOneFailed, appErr.Message)
}

func TestPing(t *testing.T) {
	repo := seededRepo()
	svc := NewConfessionService(repo, nil, nil, nil, 0)
	assert.NoError(t, svc.Ping(context.Background()))

	repo.SetFailure(repository.OpPing, errors.New("gone"))
	assert.Error(t, svc.Ping(context.Background()))
}
