package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"secretheart/internal/models"
	"secretheart/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiStub is a stub for API.
type apiStub struct {
	mu       sync.Mutex
	listFn   func(context.Context) ([]models.Confession, error)
	createFn func(context.Context, string) (*models.Confession, error)
	likeFn   func(context.Context, uint) (*models.Confession, error)
	lists    int
	creates  []string
}

func (s *apiStub) ListConfessions(ctx context.Context) ([]models.Confession, error) {
	s.mu.Lock()
	s.lists++
	s.mu.Unlock()
	return s.listFn(ctx)
}

func (s *apiStub) GetConfession(_ context.Context, id uint) (*models.Confession, error) {
	return nil, errors.New("not used")
}

func (s *apiStub) CreateConfession(ctx context.Context, message string) (*models.Confession, error) {
	s.mu.Lock()
	s.creates = append(s.creates, message)
	s.mu.Unlock()
	return s.createFn(ctx, message)
}

func (s *apiStub) LikeConfession(ctx context.Context, id uint) (*models.Confession, error) {
	return s.likeFn(ctx, id)
}

func (s *apiStub) listCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists
}

func sample() []models.Confession {
	return []models.Confession{
		{ID: 2, Message: "two", Likes: 5, CreatedAt: "2024-01-02T00:00:00Z"},
		{ID: 1, Message: "one", Likes: 0, CreatedAt: "2024-01-01T00:00:00Z"},
	}
}

func newStub() *apiStub {
	return &apiStub{
		listFn: func(context.Context) ([]models.Confession, error) { return sample(), nil },
		createFn: func(_ context.Context, msg string) (*models.Confession, error) {
			return &models.Confession{ID: 3, Message: msg}, nil
		},
		likeFn: func(_ context.Context, id uint) (*models.Confession, error) {
			return &models.Confession{ID: id}, nil
		},
	}
}

func TestTransition_Table(t *testing.T) {
	c := models.Confession{ID: 9, Message: "m"}
	tests := []struct {
		name      string
		from      View
		event     Event
		want      View
		wantFetch bool
	}{
		{"landing start", LandingView{}, Start{}, FormView{}, false},
		{"landing browse", LandingView{}, Browse{}, FeedView{}, true},
		{"form back", FormView{}, Back{}, LandingView{}, false},
		{"form submitted", FormView{}, SubmitSucceeded{}, FeedView{}, true},
		{"feed back", FeedView{}, Back{}, LandingView{}, false},
		{"feed add", FeedView{}, Add{}, FormView{}, false},
		{"feed select", FeedView{}, Select{Confession: c}, DetailView{Confession: c}, false},
		{"feed refresh", FeedView{}, Refresh{}, FeedView{}, true},
		{"detail back", DetailView{Confession: c}, Back{}, FeedView{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fetch, err := Transition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFetch, fetch)
		})
	}
}

func TestTransition_Invalid(t *testing.T) {
	tests := []struct {
		from  View
		event Event
	}{
		{LandingView{}, Back{}},
		{LandingView{}, Refresh{}},
		{FormView{}, Browse{}},
		{FormView{}, Select{}},
		{FeedView{}, Start{}},
		{FeedView{}, SubmitSucceeded{}},
		{DetailView{}, Refresh{}},
		{DetailView{}, Add{}},
	}

	for _, tt := range tests {
		got, fetch, err := Transition(tt.from, tt.event)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, tt.from, got)
		assert.False(t, fetch)
	}
}

func TestApp_InvalidDispatchLeavesState(t *testing.T) {
	api := newStub()
	app := NewApp(api)

	err := app.Dispatch(context.Background(), Refresh{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, LandingView{}, app.Snapshot().View)
	assert.Equal(t, 0, api.listCalls())
}

func TestApp_BrowseLoadsFeed(t *testing.T) {
	api := newStub()
	app := NewApp(api)

	require.NoError(t, app.Dispatch(context.Background(), Browse{}))
	s := app.Snapshot()
	assert.Equal(t, FeedView{}, s.View)
	assert.False(t, s.Loading)
	assert.Equal(t, sample(), s.Confessions)
	assert.Equal(t, 1, api.listCalls())
}

func TestApp_LoadingFlagDuringFetch(t *testing.T) {
	api := newStub()
	started := make(chan struct{})
	release := make(chan struct{})
	api.listFn = func(context.Context) ([]models.Confession, error) {
		close(started)
		<-release
		return sample(), nil
	}
	app := NewApp(api)

	done := make(chan error)
	go func() { done <- app.Dispatch(context.Background(), Browse{}) }()

	<-started
	s := app.Snapshot()
	assert.True(t, s.Loading)
	assert.Equal(t, FeedView{}, s.View)
	assert.Contains(t, Render(s), "Loading confessions...")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, app.Snapshot().Loading)
}

func TestApp_FetchFailureKeepsListAndClearsLoading(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, Browse{}))

	api.listFn = func(context.Context) ([]models.Confession, error) { return nil, errors.New("offline") }
	require.NoError(t, app.Dispatch(ctx, Refresh{}))

	s := app.Snapshot()
	assert.False(t, s.Loading)
	assert.Equal(t, sample(), s.Confessions)
}

func TestApp_EveryFeedEntryReloads(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()

	require.NoError(t, app.Dispatch(ctx, Browse{}))
	require.NoError(t, app.Dispatch(ctx, Select{Confession: sample()[0]}))
	require.NoError(t, app.Dispatch(ctx, Back{}))
	require.NoError(t, app.Dispatch(ctx, Refresh{}))
	assert.Equal(t, 3, api.listCalls())
}

func TestApp_Submit(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()

	assert.ErrorIs(t, app.Submit(ctx, "too early"), ErrInvalidTransition)

	require.NoError(t, app.Dispatch(ctx, Start{}))
	assert.ErrorIs(t, app.Submit(ctx, ""), ErrEmptyMessage)
	assert.Empty(t, api.creates)

	require.NoError(t, app.Submit(ctx, "hello"))
	assert.Equal(t, []string{"hello"}, api.creates)
	assert.Equal(t, FeedView{}, app.Snapshot().View)
	assert.Equal(t, 1, api.listCalls())

	// Whitespace is a message like any other.
	require.NoError(t, app.Dispatch(ctx, Add{}))
	require.NoError(t, app.Submit(ctx, "   "))
	assert.Equal(t, []string{"hello", "   "}, api.creates)
	assert.Equal(t, 2, api.listCalls())
}

func TestApp_SubmitFailureStaysInForm(t *testing.T) {
	api := newStub()
	api.createFn = func(context.Context, string) (*models.Confession, error) {
		return nil, &APIError{Status: 500, Message: "Failed to save confession"}
	}
	app := NewApp(api)
	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, Start{}))

	err := app.Submit(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, FormView{}, app.Snapshot().View)
	assert.Equal(t, 0, api.listCalls())
}

func TestApp_LikeFromDetailUpdatesListAndDetail(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()

	require.NoError(t, app.Dispatch(ctx, Browse{}))
	require.NoError(t, app.Dispatch(ctx, Select{Confession: sample()[0]}))
	require.NoError(t, app.Like(ctx, 2))

	s := app.Snapshot()
	detail, ok := s.View.(DetailView)
	require.True(t, ok)
	assert.Equal(t, 6, detail.Confession.Likes)
	assert.Equal(t, 6, s.Confessions[0].Likes)
	assert.Equal(t, 0, s.Confessions[1].Likes)
}

func TestApp_LikeOtherIDLeavesDetail(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()

	require.NoError(t, app.Dispatch(ctx, Browse{}))
	require.NoError(t, app.Dispatch(ctx, Select{Confession: sample()[0]}))
	require.NoError(t, app.Like(ctx, 1))

	s := app.Snapshot()
	assert.Equal(t, 5, s.View.(DetailView).Confession.Likes)
	assert.Equal(t, 1, s.Confessions[1].Likes)
}

func TestApp_LikeFailureLeavesState(t *testing.T) {
	api := newStub()
	api.likeFn = func(context.Context, uint) (*models.Confession, error) {
		return nil, &APIError{Status: 404, Message: "Confession with ID 2 not found"}
	}
	app := NewApp(api)
	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, Browse{}))
	before := app.Snapshot()

	err := app.Like(ctx, 2)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, before, app.Snapshot())
}

func TestApp_LikeOutsideFeedOrDetail(t *testing.T) {
	app := NewApp(newStub())
	assert.ErrorIs(t, app.Like(context.Background(), 1), ErrInvalidTransition)
}

func TestApp_StaleResponseStillApplies(t *testing.T) {
	api := newStub()
	release := make(chan struct{})
	started := make(chan struct{})
	api.listFn = func(context.Context) ([]models.Confession, error) {
		close(started)
		<-release
		return sample(), nil
	}
	app := NewApp(api)
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- app.Dispatch(ctx, Browse{}) }()
	<-started

	// Leave the feed while the fetch is in flight.
	require.NoError(t, app.Dispatch(ctx, Back{}))
	close(release)
	require.NoError(t, <-done)

	s := app.Snapshot()
	assert.Equal(t, LandingView{}, s.View)
	assert.Equal(t, sample(), s.Confessions, "late list response replaces the list")
}

func TestApp_ApplyFeedEvent(t *testing.T) {
	app := NewApp(newStub())
	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, Browse{}))
	require.NoError(t, app.Dispatch(ctx, Select{Confession: sample()[1]}))

	created := models.Confession{ID: 3, Message: "three"}
	app.ApplyFeedEvent(notifications.NewEvent(notifications.EventConfessionCreated, created))
	app.ApplyFeedEvent(notifications.NewEvent(notifications.EventConfessionCreated, created))
	app.ApplyFeedEvent(notifications.NewEvent(notifications.EventConfessionLiked, models.Confession{ID: 1, Likes: 4}))
	app.ApplyFeedEvent(notifications.NewEvent(notifications.EventConfessionLiked, models.Confession{ID: 2, Likes: 1}))

	s := app.Snapshot()
	require.Len(t, s.Confessions, 3)
	assert.Equal(t, uint(3), s.Confessions[0].ID)
	assert.Equal(t, 5, s.Confessions[1].Likes, "like counts never move backwards")
	assert.Equal(t, 4, s.Confessions[2].Likes)
	assert.Equal(t, 4, s.View.(DetailView).Confession.Likes)
}

func TestApp_DroppedFramesAskForReload(t *testing.T) {
	api := newStub()
	app := NewApp(api)
	ctx := context.Background()
	require.NoError(t, app.Dispatch(ctx, Browse{}))
	require.NoError(t, app.Dispatch(ctx, Select{Confession: sample()[0]}))
	require.Equal(t, 1, api.listCalls())

	assert.False(t, app.ApplyFeedEvent(notifications.NewEvent(notifications.EventConfessionLiked, models.Confession{ID: 2, Likes: 6})))
	require.True(t, app.ApplyFeedEvent(notifications.Event{Type: notifications.EventMessagesDropped}))

	app.Reload(ctx)
	s := app.Snapshot()
	assert.Equal(t, 2, api.listCalls())
	assert.False(t, s.Loading)
	assert.IsType(t, DetailView{}, s.View, "reload keeps the current view")
	assert.Len(t, s.Confessions, 2)
}

func TestRender(t *testing.T) {
	long := strings.Repeat("x", 200)
	tests := []struct {
		name  string
		state State
		want  []string
	}{
		{"landing", State{View: LandingView{}}, []string{"Secret Heart", "[b] browse"}},
		{"form", State{View: FormView{}}, []string{"New confession"}},
		{"empty feed", State{View: FeedView{}, Confessions: []models.Confession{}}, []string{"No confessions yet"}},
		{"feed", State{View: FeedView{}, Confessions: sample()}, []string{"#2", "♥ 5", "two", "#1"}},
		{"truncated", State{View: FeedView{}, Confessions: []models.Confession{{ID: 1, Message: long}}}, []string{"…"}},
		{"detail", State{View: DetailView{Confession: models.Confession{ID: 4, Message: "full text", Likes: 2, CreatedAt: "bad"}}}, []string{"Confession #4", "full text", "♥ 2   bad"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Render(tt.state)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}
