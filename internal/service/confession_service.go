// Package service holds the confession use cases behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"secretheart/internal/cache"
	"secretheart/internal/featureflags"
	"secretheart/internal/middleware"
	"secretheart/internal/models"
	"secretheart/internal/notifications"
	"secretheart/internal/observability"
	"secretheart/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Messages returned to clients for backend failures.
const (
	MsgFetchFailed      = "Failed to fetch confessions"
	MsgFetchOneFailed   = "Failed to fetch confession"
	MsgSaveFailed       = "Failed to save confession"
	MsgLikeFailed       = "Failed to like confession"
	MsgMessageRequired  = "Confession text is required"
	confessionsResource = "Confession"
)

// EventPublisher delivers live feed events.
type EventPublisher interface {
	Publish(ctx context.Context, ev notifications.Event) error
}

type ConfessionService struct {
	repo    repository.ConfessionRepository
	cache   *cache.Cache
	events  EventPublisher
	flags   *featureflags.Manager
	listTTL time.Duration
}

// CreateConfessionInput is the body of POST /api/confessions.
type CreateConfessionInput struct {
	Message string `json:"message"`
}

// NewConfessionService wires the service. Every dependency except repo may be nil.
func NewConfessionService(
	repo repository.ConfessionRepository,
	c *cache.Cache,
	events EventPublisher,
	flags *featureflags.Manager,
	listTTL time.Duration,
) *ConfessionService {
	if listTTL <= 0 {
		listTTL = cache.DefaultListTTL
	}
	return &ConfessionService{
		repo:    repo,
		cache:   c,
		events:  events,
		flags:   flags,
		listTTL: listTTL,
	}
}

// ListConfessions returns every confession newest first. If the ordered
// query fails it retries once unordered; that result is returned as-is and
// never cached.
func (s *ConfessionService) ListConfessions(ctx context.Context) (out []models.Confession, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "ListConfessions")
	defer func() { observability.EndSpan(span, err) }()

	if !s.flags.Enabled(featureflags.ListCache, "") {
		out, _, err = s.fetchList(ctx)
		return out, err
	}

	err = s.cache.AsideGuarded(ctx, cache.ConfessionsListKey, cache.ConfessionsListGenKey, &out, s.listTTL, func() (bool, error) {
		list, fellBack, fetchErr := s.fetchList(ctx)
		if fetchErr != nil {
			return false, fetchErr
		}
		out = list
		return !fellBack, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Confession{}
	}
	return out, nil
}

func (s *ConfessionService) fetchList(ctx context.Context) ([]models.Confession, bool, error) {
	rows, err := s.repo.ListNewestFirst(ctx)
	if err == nil {
		return models.ToConfessions(rows), false, nil
	}

	middleware.Logger.WarnContext(ctx, "ordered confession list failed, retrying unordered",
		slog.String("error", err.Error()),
	)
	observability.ListFallbacks.Inc()

	rows, err = s.repo.ListUnordered(ctx)
	if err != nil {
		return nil, true, models.NewInternalError(MsgFetchFailed, err)
	}
	return models.ToConfessions(rows), true, nil
}

// GetConfession returns one confession by id.
func (s *ConfessionService) GetConfession(ctx context.Context, id uint) (out *models.Confession, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "GetConfession", attribute.Int64("confession.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(confessionsResource, id)
		}
		return nil, models.NewInternalError(MsgFetchOneFailed, err)
	}
	c := models.ToConfession(*row)
	return &c, nil
}

// CreateConfession validates and stores a new confession with zero likes.
func (s *ConfessionService) CreateConfession(ctx context.Context, in CreateConfessionInput) (out *models.Confession, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "CreateConfession")
	defer func() { observability.EndSpan(span, err) }()

	if err := validateMessage(in.Message); err != nil {
		return nil, err
	}

	zero := 0
	row := &models.ConfessionRow{Confession: in.Message, Like: &zero}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, models.NewInternalError(MsgSaveFailed, err)
	}
	observability.ConfessionsCreated.Inc()

	c := models.ToConfession(*row)
	s.afterWrite(ctx, notifications.EventConfessionCreated, c)
	return &c, nil
}

// LikeConfession atomically adds one like and returns the updated record.
func (s *ConfessionService) LikeConfession(ctx context.Context, id uint) (out *models.Confession, err error) {
	ctx, span := observability.StartSpan(ctx, "service", "LikeConfession", attribute.Int64("confession.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	row, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError(confessionsResource, id)
		}
		return nil, models.NewInternalError(MsgLikeFailed, err)
	}
	observability.LikesRecorded.Inc()

	c := models.ToConfession(*row)
	s.afterWrite(ctx, notifications.EventConfessionLiked, c)
	return &c, nil
}

// Ping checks the backend store.
func (s *ConfessionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// afterWrite drops the cached feed and announces the change. Both are best effort.
func (s *ConfessionService) afterWrite(ctx context.Context, t notifications.EventType, c models.Confession) {
	s.cache.BumpAndInvalidate(ctx, cache.ConfessionsListGenKey, cache.ConfessionsListKey)

	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, notifications.NewEvent(t, c)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish feed event",
			slog.String("type", string(t)),
			slog.Uint64("confession_id", uint64(c.ID)),
			slog.String("error", err.Error()),
		)
	}
}

// validateMessage only requires a message. Size is bounded by the HTTP body
// limit and whitespace is stored as sent.
func validateMessage(msg string) error {
	if msg == "" {
		return models.NewValidationError(MsgMessageRequired)
	}
	return nil
}
