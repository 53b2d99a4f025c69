// Package store provides the persistence contracts and their PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product is a catalog entry.
type Product struct {
	ID          uuid.UUID
	Title       string
	Price       float64
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter selects one page of the catalog. Search matches titles case-insensitively.
type ProductFilter struct {
	Search string
	Offset int64
	Limit  int32
}

// ProductPatch carries the fields of a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	Title       *string
	Price       *float64
	Description *string
	Image       *string
}

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ProductStore is an interface for catalog storage operations.
type ProductStore interface {
	// FindProductByID returns ErrProductNotFound if no product exists with the given ID.
	FindProductByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// ProductExists reports whether a product with the given ID exists. Never cached.
	ProductExists(ctx context.Context, id uuid.UUID) (bool, error)

	// ListProducts returns one page of products and the total number of matches.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int64, error)

	CreateProduct(ctx context.Context, product Product) (*Product, error)

	// UpdateProduct applies patch and returns the updated product, or ErrProductNotFound.
	UpdateProduct(ctx context.Context, id uuid.UUID, patch ProductPatch) (*Product, error)

	// DeleteProduct returns ErrProductNotFound if nothing was deleted.
	// Favorites that point at the product are left in place.
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// UserStore is an interface for account storage operations.
type UserStore interface {
	// CreateUser returns ErrEmailTaken if the email is already registered.
	CreateUser(ctx context.Context, user User) (*User, error)

	// FindUserByEmail expects an already normalized email. Returns ErrUserNotFound.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// FindUserByID returns ErrUserNotFound if no user exists with the given ID.
	FindUserByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// FavoriteStore holds the authoritative favorite set of every user.
type FavoriteStore interface {
	// ToggleFavorite removes productID if present, otherwise adds it, as one indivisible step.
	// The remove only deletes an existing member and the add is idempotent.
	// Concurrent toggles of the same pair are serialized, so N toggles leave the product
	// favorited exactly when N is odd relative to the starting state.
	// Returns true when the product is a favorite after the call, or ErrUserNotFound.
	ToggleFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error)

	// Favorites returns the whole set in the order the members were added.
	Favorites(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// Store aggregates every storage concern of the marketplace.
type Store interface {
	ProductStore
	UserStore
	FavoriteStore

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}
