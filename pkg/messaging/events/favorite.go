// Package events contains the payloads published by the marketplace.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/marketplace/pkg/messaging"
	"github.com/google/uuid"
)

// FavoriteAction tells whether a toggle added or removed the product.
type FavoriteAction string

const (
	FavoriteAdded   FavoriteAction = "added"
	FavoriteRemoved FavoriteAction = "removed"
)

// FavoriteToggledEvent is emitted after a toggle has been applied to the favorite set.
// Carrier holds the propagated trace context.
type FavoriteToggledEvent struct {
	Carrier    map[string]string `json:"carrier,omitempty"`
	UserID     uuid.UUID         `json:"user_id"`
	ProductID  uuid.UUID         `json:"product_id"`
	Action     FavoriteAction    `json:"action"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func (e FavoriteToggledEvent) Subject() string {
	return messaging.FavoriteToggledSubject
}

func (e FavoriteToggledEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
