package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"secretheart/internal/middleware"
	"secretheart/internal/models"
	"secretheart/internal/notifications"
)

var (
	// ErrInvalidTransition is returned for an event the current view does not accept.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrEmptyMessage is returned by Submit for an empty message.
	ErrEmptyMessage = errors.New("confession text is required")
)

// View is the active screen. Exactly one is active at a time.
type View interface {
	Name() string
}

type LandingView struct{}

type FormView struct{}

type FeedView struct{}

// DetailView shows a single confession selected from the feed.
type DetailView struct {
	Confession models.Confession
}

func (LandingView) Name() string { return "landing" }
func (FormView) Name() string    { return "form" }
func (FeedView) Name() string    { return "feed" }
func (DetailView) Name() string  { return "detail" }

// Event is a user action fed to App.Dispatch.
type Event interface {
	event()
}

type (
	// Start opens the form from the landing page.
	Start struct{}
	// Browse opens the feed from the landing page.
	Browse struct{}
	// Back returns to the previous screen.
	Back struct{}
	// SubmitSucceeded moves from the form to the feed after a successful post.
	SubmitSucceeded struct{}
	// Add opens the form from the feed.
	Add struct{}
	// Select opens a confession from the feed.
	Select struct{ Confession models.Confession }
	// Refresh reloads the feed.
	Refresh struct{}
)

func (Start) event()           {}
func (Browse) event()          {}
func (Back) event()            {}
func (SubmitSucceeded) event() {}
func (Add) event()             {}
func (Select) event()          {}
func (Refresh) event()         {}

// Transition computes the next view for ev. fetch reports whether the feed
// list must be reloaded, which is true whenever the next view is the feed.
func Transition(current View, ev Event) (next View, fetch bool, err error) {
	switch current.(type) {
	case LandingView:
		switch ev.(type) {
		case Start:
			return FormView{}, false, nil
		case Browse:
			return FeedView{}, true, nil
		}
	case FormView:
		switch ev.(type) {
		case Back:
			return LandingView{}, false, nil
		case SubmitSucceeded:
			return FeedView{}, true, nil
		}
	case FeedView:
		switch e := ev.(type) {
		case Back:
			return LandingView{}, false, nil
		case Add:
			return FormView{}, false, nil
		case Select:
			return DetailView{Confession: e.Confession}, false, nil
		case Refresh:
			return FeedView{}, true, nil
		}
	case DetailView:
		if _, ok := ev.(Back); ok {
			return FeedView{}, true, nil
		}
	}
	return current, false, fmt.Errorf("%w: %T in %s", ErrInvalidTransition, ev, current.Name())
}

// State is a point-in-time copy of the App's state.
type State struct {
	View        View
	Confessions []models.Confession
	Loading     bool
}

// App holds the client state and drives API calls. Network calls run
// outside the lock, so a slow list response may land after a later
// transition and still replace the list.
type App struct {
	api API

	mu          sync.Mutex
	view        View
	confessions []models.Confession
	loading     bool
}

// NewApp starts on the landing view.
func NewApp(api API) *App {
	return &App{
		api:         api,
		view:        LandingView{},
		confessions: []models.Confession{},
	}
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	list := make([]models.Confession, len(a.confessions))
	copy(list, a.confessions)
	return State{View: a.view, Confessions: list, Loading: a.loading}
}

// Dispatch applies ev. A transition into the feed reloads the list before
// returning; fetch failures are logged and leave the previous list.
func (a *App) Dispatch(ctx context.Context, ev Event) error {
	a.mu.Lock()
	next, fetch, err := Transition(a.view, ev)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	a.view = next
	if fetch {
		a.loading = true
	}
	a.mu.Unlock()

	if fetch {
		a.reload(ctx)
	}
	return nil
}

// Reload replaces the list with a fresh fetch without changing the view.
func (a *App) Reload(ctx context.Context) {
	a.mu.Lock()
	a.loading = true
	a.mu.Unlock()
	a.reload(ctx)
}

func (a *App) reload(ctx context.Context) {
	list, err := a.api.ListConfessions(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = false
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to fetch confessions", slog.String("error", err.Error()))
		return
	}
	a.confessions = list
}

// Submit posts message from the form view and moves to the feed on success.
// On failure the app stays in the form.
func (a *App) Submit(ctx context.Context, message string) error {
	a.mu.Lock()
	_, inForm := a.view.(FormView)
	a.mu.Unlock()
	if !inForm {
		return fmt.Errorf("%w: submit outside form", ErrInvalidTransition)
	}
	if message == "" {
		return ErrEmptyMessage
	}

	if _, err := a.api.CreateConfession(ctx, message); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to post confession", slog.String("error", err.Error()))
		return err
	}
	return a.Dispatch(ctx, SubmitSucceeded{})
}

// Like likes id from the feed or detail view. Only after the server
// confirms are the local copies incremented, in the list and in the
// detail slot when the IDs match.
func (a *App) Like(ctx context.Context, id uint) error {
	a.mu.Lock()
	switch a.view.(type) {
	case FeedView, DetailView:
	default:
		name := a.view.Name()
		a.mu.Unlock()
		return fmt.Errorf("%w: like in %s", ErrInvalidTransition, name)
	}
	a.mu.Unlock()

	if _, err := a.api.LikeConfession(ctx, id); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to like confession",
			slog.Uint64("id", uint64(id)),
			slog.String("error", err.Error()),
		)
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.confessions {
		if a.confessions[i].ID == id {
			a.confessions[i].Likes++
		}
	}
	if d, ok := a.view.(DetailView); ok && d.Confession.ID == id {
		d.Confession.Likes++
		a.view = d
	}
	return nil
}

// ApplyFeedEvent merges a live feed event into the local state. New
// confessions are prepended; like counts only move forward. It reports
// whether events were lost and the list needs a Reload.
func (a *App) ApplyFeedEvent(ev notifications.Event) (stale bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case notifications.EventMessagesDropped:
		return true
	case notifications.EventConfessionCreated:
		for _, c := range a.confessions {
			if c.ID == ev.Confession.ID {
				return false
			}
		}
		a.confessions = append([]models.Confession{ev.Confession}, a.confessions...)
	case notifications.EventConfessionLiked:
		for i := range a.confessions {
			if a.confessions[i].ID == ev.Confession.ID && ev.Confession.Likes > a.confessions[i].Likes {
				a.confessions[i].Likes = ev.Confession.Likes
			}
		}
		if d, ok := a.view.(DetailView); ok && d.Confession.ID == ev.Confession.ID && ev.Confession.Likes > d.Confession.Likes {
			d.Confession.Likes = ev.Confession.Likes
			a.view = d
		}
	}
	return false
}
