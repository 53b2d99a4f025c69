// Package messaging defines domain events and the publisher abstraction used to emit them.
package messaging

import (
	"context"
)

const (
	// FavoritesStream is the JetStream stream that captures favorites subjects.
	FavoritesStream = "FAVORITES"
	// FavoritesSubjects is the wildcard bound to FavoritesStream.
	FavoritesSubjects = "favorites.>"
	// FavoriteToggledSubject carries one message per applied toggle.
	FavoriteToggledSubject = "favorites.toggled"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
