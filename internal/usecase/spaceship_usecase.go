package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

const tracerName = "github.com/fixora/spaceships/internal/usecase"

// Cache key prefixes, one per read operation
const (
	spaceshipKeyPrefix        = "spaceship:"
	spaceshipsByNameKeyPrefix = "spaceshipsByName:"
)

// SpaceshipService is the catalog API offered to the transport layers
type SpaceshipService interface {
	FindAll(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error)
	FindByID(ctx context.Context, id int64) (*domain.Spaceship, error)
	FindByName(ctx context.Context, name string) ([]domain.Spaceship, error)
	Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error)
	DeleteByID(ctx context.Context, id int64) error
}

// SpaceshipUseCase handles spaceship business logic. Reads go through the
// cache, writes invalidate it and emit a notification.
type SpaceshipUseCase struct {
	repo      ports.SpaceshipRepository
	cache     ports.Cache
	guard     *UniquenessGuard
	notifier  ports.Notifier
	whitelist domain.SortWhitelist
	logger    *logrus.Entry
	tracer    trace.Tracer
}

var _ SpaceshipService = (*SpaceshipUseCase)(nil)

// NewSpaceshipUseCase creates a new spaceship use case
func NewSpaceshipUseCase(
	repo ports.SpaceshipRepository,
	cache ports.Cache,
	notifier ports.Notifier,
	logger logrus.FieldLogger,
) *SpaceshipUseCase {
	return &SpaceshipUseCase{
		repo:      repo,
		cache:     cache,
		guard:     NewUniquenessGuard(repo),
		notifier:  notifier,
		whitelist: domain.DefaultSortWhitelist,
		logger:    logger.WithField("component", "spaceship_usecase"),
		tracer:    otel.Tracer(tracerName),
	}
}

// FindAll returns one page of the catalog. Sort fields outside the whitelist
// are dropped.
func (uc *SpaceshipUseCase) FindAll(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error) {
	req = uc.whitelist.Apply(req)

	ctx, span := uc.tracer.Start(ctx, "SpaceshipUseCase.FindAll", trace.WithAttributes(
		attribute.Int("page", req.Page),
		attribute.Int("size", req.Size),
		attribute.String("sort", req.SortString()),
	))
	defer span.End()

	var page domain.SpaceshipPage
	err := uc.cache.ReadThrough(ctx, req.CacheKey(), &page, func(ctx context.Context) (any, error) {
		return uc.repo.List(ctx, req)
	})
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to list spaceships: %w", err)
	}

	return &page, nil
}

// FindByID retrieves a spaceship by ID
func (uc *SpaceshipUseCase) FindByID(ctx context.Context, id int64) (*domain.Spaceship, error) {
	ctx, span := uc.tracer.Start(ctx, "SpaceshipUseCase.FindByID", trace.WithAttributes(attribute.Int64("id", id)))
	defer span.End()

	var ship domain.Spaceship
	err := uc.cache.ReadThrough(ctx, fmt.Sprintf("%s%d", spaceshipKeyPrefix, id), &ship, func(ctx context.Context) (any, error) {
		return uc.repo.FindByID(ctx, id)
	})
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to get spaceship: %w", err)
	}

	return &ship, nil
}

// FindByName returns the spaceships whose name contains name, ignoring case
func (uc *SpaceshipUseCase) FindByName(ctx context.Context, name string) ([]domain.Spaceship, error) {
	ctx, span := uc.tracer.Start(ctx, "SpaceshipUseCase.FindByName", trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	ships := []domain.Spaceship{}
	err := uc.cache.ReadThrough(ctx, spaceshipsByNameKeyPrefix+name, &ships, func(ctx context.Context) (any, error) {
		return uc.repo.FindByNameContaining(ctx, name)
	})
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to search spaceships: %w", err)
	}

	return ships, nil
}

// Save creates a spaceship (ID 0) or replaces an existing one
func (uc *SpaceshipUseCase) Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	ctx, span := uc.tracer.Start(ctx, "SpaceshipUseCase.Save", trace.WithAttributes(
		attribute.Int64("id", ship.ID),
		attribute.String("name", ship.Name),
	))
	defer span.End()

	if err := ship.Validate(); err != nil {
		recordError(span, err)
		return nil, err
	}

	// an update of an unknown id is reported as missing before any name check
	if !ship.IsNew() {
		if _, err := uc.repo.FindByID(ctx, ship.ID); err != nil {
			recordError(span, err)
			if errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to load spaceship: %w", err)
		}
	}

	if err := uc.guard.Check(ctx, ship); err != nil {
		recordError(span, err)
		return nil, err
	}

	creating := ship.IsNew()

	saved, err := uc.repo.Save(ctx, ship)
	if err != nil {
		recordError(span, err)
		return nil, fmt.Errorf("failed to save spaceship: %w", err)
	}

	uc.invalidate(ctx)

	if creating {
		uc.notify(ctx, domain.CreatedMessage(saved))
	} else {
		uc.notify(ctx, domain.UpdatedMessage(saved))
	}

	uc.logger.WithContext(ctx).WithFields(logrus.Fields{
		"id":      saved.ID,
		"name":    saved.Name,
		"created": creating,
	}).Info("Spaceship saved")

	return saved, nil
}

// DeleteByID removes a spaceship
func (uc *SpaceshipUseCase) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := uc.tracer.Start(ctx, "SpaceshipUseCase.DeleteByID", trace.WithAttributes(attribute.Int64("id", id)))
	defer span.End()

	if err := uc.repo.DeleteByID(ctx, id); err != nil {
		recordError(span, err)
		return fmt.Errorf("failed to delete spaceship: %w", err)
	}

	uc.invalidate(ctx)
	uc.notify(ctx, domain.DeletedMessage(id))

	uc.logger.WithContext(ctx).WithField("id", id).Info("Spaceship deleted")
	return nil
}

// invalidate clears the cache once a write is committed, on a context detached
// from the request.
func (uc *SpaceshipUseCase) invalidate(ctx context.Context) {
	if err := uc.cache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		uc.logger.WithContext(ctx).WithError(err).Warn("Write committed but cache invalidation failed")
	}
}

func (uc *SpaceshipUseCase) notify(ctx context.Context, text string) {
	if uc.notifier == nil {
		return
	}
	uc.notifier.Enqueue(text)
	trace.SpanFromContext(ctx).AddEvent("notification enqueued", trace.WithAttributes(attribute.String("message", text)))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	if kind := domain.KindOf(err); kind != "" {
		span.SetAttributes(attribute.String("error.kind", string(kind)))
		return
	}
	span.SetStatus(codes.Error, err.Error())
}
