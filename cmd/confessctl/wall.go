package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"secretheart/internal/client"
	"secretheart/internal/middleware"
	"secretheart/internal/notifications"

	"github.com/spf13/cobra"
)

var errUnknownCommand = errors.New("unknown command")

func newWallCmd() *cobra.Command {
	var live bool

	cmd := &cobra.Command{
		Use:   "wall",
		Short: "Browse, post and like confessions interactively.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := newWall(client.NewApp(api), cmd.OutOrStdout())
			if live {
				go func() {
					onEvent := func(ev notifications.Event) { w.onFeedEvent(ctx, ev) }
					if err := api.Watch(ctx, onEvent); err != nil {
						middleware.Logger.Warn("live feed stopped", slog.String("error", err.Error()))
					}
				}()
			}
			return w.run(ctx, cmd.InOrStdin())
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "merge new confessions and likes as they happen")
	return cmd
}

// wall is a line-oriented driver for client.App.
type wall struct {
	app *client.App

	mu  sync.Mutex
	out io.Writer
}

func newWall(app *client.App, out io.Writer) *wall {
	return &wall{app: app, out: out}
}

func (w *wall) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = fmt.Fprintf(w.out, format, args...)
}

func (w *wall) render() {
	w.printf("\n%s> ", client.Render(w.app.Snapshot()))
}

func (w *wall) onFeedEvent(ctx context.Context, ev notifications.Event) {
	if w.app.ApplyFeedEvent(ev) {
		w.app.Reload(ctx)
		w.printf("\n* missed live updates, wall reloaded\n")
		return
	}
	switch ev.Type {
	case notifications.EventConfessionCreated:
		w.printf("\n* new confession #%d\n", ev.Confession.ID)
	case notifications.EventConfessionLiked:
		w.printf("\n* #%d now has %d likes\n", ev.Confession.ID, ev.Confession.Likes)
	}
}

func (w *wall) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	w.render()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		quit, err := w.handle(ctx, scanner.Text())
		if err != nil {
			w.printf("error: %v\n", err)
		}
		if quit {
			return nil
		}
		w.render()
	}
	return scanner.Err()
}

// handle applies one input line to the current view. quit is true when the
// user leaves from the landing page.
func (w *wall) handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	state := w.app.Snapshot()

	switch v := state.View.(type) {
	case client.LandingView:
		switch line {
		case "s":
			return false, w.app.Dispatch(ctx, client.Start{})
		case "b":
			return false, w.app.Dispatch(ctx, client.Browse{})
		case "q":
			return true, nil
		}

	case client.FormView:
		if line == "" {
			return false, w.app.Dispatch(ctx, client.Back{})
		}
		return false, w.app.Submit(ctx, line)

	case client.FeedView:
		switch {
		case line == "r":
			return false, w.app.Dispatch(ctx, client.Refresh{})
		case line == "a":
			return false, w.app.Dispatch(ctx, client.Add{})
		case line == "q":
			return false, w.app.Dispatch(ctx, client.Back{})
		case strings.HasPrefix(line, "l "):
			id, err := parseConfessionID(strings.TrimPrefix(line, "l "))
			if err != nil {
				return false, err
			}
			return false, w.app.Like(ctx, id)
		case line != "":
			id, err := parseConfessionID(line)
			if err != nil {
				return false, err
			}
			for _, c := range state.Confessions {
				if c.ID == id {
					return false, w.app.Dispatch(ctx, client.Select{Confession: c})
				}
			}
			return false, fmt.Errorf("confession #%d is not on the wall", id)
		}

	case client.DetailView:
		switch line {
		case "l":
			return false, w.app.Like(ctx, v.Confession.ID)
		case "q":
			return false, w.app.Dispatch(ctx, client.Back{})
		}
	}

	return false, fmt.Errorf("%w %q", errUnknownCommand, line)
}
