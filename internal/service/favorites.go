// Package service implements the marketplace business logic on top of the store contracts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/abgdnv/marketplace/pkg/messaging"
	"github.com/abgdnv/marketplace/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// FavoritesService toggles and reads the favorite set of a user.
type FavoritesService interface {
	// Toggle flips the membership of productID in the user's favorite set and returns the
	// complete set as stored afterwards.
	// Returns ErrUnauthorized for an unknown user, ErrInvalidArgument for a nil product id
	// and ErrProductNotFound if the product does not exist.
	Toggle(ctx context.Context, userID, productID uuid.UUID) (*FavoritesDto, error)
}

// FavoritesDto is the authoritative favorite set. Order carries no meaning.
type FavoritesDto struct {
	Favorites []uuid.UUID `json:"favorites"`
}

// Favorites implements FavoritesService.
type Favorites struct {
	products       store.ProductStore
	favorites      store.FavoriteStore
	publisher      messaging.Publisher
	tracer         trace.Tracer
	toggledCounter metric.Int64Counter
	now            func() time.Time
}

// NewFavoritesService wires the toggle to its stores and the event publisher.
func NewFavoritesService(products store.ProductStore, favorites store.FavoriteStore, publisher messaging.Publisher) *Favorites {
	meter := otel.Meter("marketplace/favorites")
	toggledCounter, err := meter.Int64Counter("favorites_toggled",
		metric.WithDescription("Total number of applied favorite toggles"))
	if err != nil {
		panic(fmt.Sprintf("failed to create favorites_toggled counter: %v", err))
	}
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Favorites{
		products:       products,
		favorites:      favorites,
		publisher:      publisher,
		tracer:         otel.Tracer("marketplace/favorites"),
		toggledCounter: toggledCounter,
		now:            time.Now,
	}
}

func (s *Favorites) Toggle(ctx context.Context, userID, productID uuid.UUID) (*FavoritesDto, error) {
	ctx, span := s.tracer.Start(ctx, "Favorites.Toggle", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("product.id", productID.String()),
	))
	defer span.End()

	if userID == uuid.Nil {
		return nil, marketerrors.ErrUnauthorized
	}
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id is required", marketerrors.ErrInvalidArgument)
	}

	exists, err := s.products.ProductExists(ctx, productID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "product lookup failed")
		return nil, err
	}
	if !exists {
		return nil, marketerrors.ErrProductNotFound
	}

	added, err := s.favorites.ToggleFavorite(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, marketerrors.ErrUserNotFound) {
			return nil, marketerrors.ErrUnauthorized
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "toggle failed")
		return nil, err
	}

	action := events.FavoriteRemoved
	if added {
		action = events.FavoriteAdded
	}
	span.SetAttributes(attribute.String("favorite.action", string(action)))
	s.toggledCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(action))))
	s.publish(ctx, userID, productID, action)

	set, err := s.favorites.Favorites(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "re-read failed")
		return nil, err
	}
	return &FavoritesDto{Favorites: set}, nil
}

// publish emits the toggle event. A broker failure is logged and never fails the toggle.
func (s *Favorites) publish(ctx context.Context, userID, productID uuid.UUID, action events.FavoriteAction) {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.FavoriteToggledEvent{
		Carrier:    carrier,
		UserID:     userID,
		ProductID:  productID,
		Action:     action,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish FavoriteToggledEvent", "error", err, "product_id", productID)
	}
}
