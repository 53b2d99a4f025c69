package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/abgdnv/marketplace/pkg/messaging"
	"github.com/abgdnv/marketplace/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFavoriteStore counts the mutations that reach the wrapped store.
type countingFavoriteStore struct {
	store.FavoriteStore
	mu        sync.Mutex
	mutations int
	toggleErr error
}

func (c *countingFavoriteStore) ToggleFavorite(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	c.mu.Lock()
	c.mutations++
	c.mu.Unlock()
	if c.toggleErr != nil {
		return false, c.toggleErr
	}
	return c.FavoriteStore.ToggleFavorite(ctx, userID, productID)
}

// brokenProductStore fails every existence check.
type brokenProductStore struct {
	store.ProductStore
	err error
}

func (b brokenProductStore) ProductExists(context.Context, uuid.UUID) (bool, error) {
	return false, b.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []messaging.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type favoritesFixture struct {
	mem       *store.MemoryStore
	counter   *countingFavoriteStore
	publisher *recordingPublisher
	service   *Favorites
	userID    uuid.UUID
	productA  uuid.UUID
	productB  uuid.UUID
}

func newFavoritesFixture(t *testing.T) *favoritesFixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	require.NoError(t, store.Seed(ctx, mem, store.DemoProducts...))
	user, err := mem.CreateUser(ctx, store.User{Name: "Ann", Email: "ann@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	counter := &countingFavoriteStore{FavoriteStore: mem}
	publisher := &recordingPublisher{}
	return &favoritesFixture{
		mem:       mem,
		counter:   counter,
		publisher: publisher,
		service:   NewFavoritesService(mem, counter, publisher),
		userID:    user.ID,
		productA:  store.DemoProducts[0].ID,
		productB:  store.DemoProducts[1].ID,
	}
}

func Test_FavoritesService_Toggle(t *testing.T) {
	t.Run("Success - add then remove returns the full set", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		ctx := context.Background()
		// when
		first, err := f.service.Toggle(ctx, f.userID, f.productA)
		require.NoError(t, err)
		second, err := f.service.Toggle(ctx, f.userID, f.productB)
		require.NoError(t, err)
		third, err := f.service.Toggle(ctx, f.userID, f.productA)
		require.NoError(t, err)
		// then
		assert.Equal(t, []uuid.UUID{f.productA}, first.Favorites)
		assert.ElementsMatch(t, []uuid.UUID{f.productA, f.productB}, second.Favorites)
		assert.Equal(t, []uuid.UUID{f.productB}, third.Favorites)
		assert.Equal(t, 3, f.counter.mutations)
	})

	t.Run("Success - publishes one event per toggle", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		ctx := context.Background()
		// when
		_, err := f.service.Toggle(ctx, f.userID, f.productA)
		require.NoError(t, err)
		_, err = f.service.Toggle(ctx, f.userID, f.productA)
		require.NoError(t, err)
		// then
		require.Len(t, f.publisher.events, 2)
		added := f.publisher.events[0].(events.FavoriteToggledEvent)
		removed := f.publisher.events[1].(events.FavoriteToggledEvent)
		assert.Equal(t, events.FavoriteAdded, added.Action)
		assert.Equal(t, events.FavoriteRemoved, removed.Action)
		assert.Equal(t, f.userID, added.UserID)
		assert.Equal(t, f.productA, added.ProductID)
		assert.Equal(t, messaging.FavoriteToggledSubject, added.Subject())
	})

	t.Run("Success - publish failure does not fail the toggle", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		f.publisher.err = errors.New("broker down")
		// when
		got, err := f.service.Toggle(context.Background(), f.userID, f.productA)
		// then
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{f.productA}, got.Favorites)
	})

	t.Run("Success - dangling favorites stay in the returned set", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		ctx := context.Background()
		_, err := f.service.Toggle(ctx, f.userID, f.productA)
		require.NoError(t, err)
		require.NoError(t, f.mem.DeleteProduct(ctx, f.productA))
		// when
		got, err := f.service.Toggle(ctx, f.userID, f.productB)
		// then
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{f.productA, f.productB}, got.Favorites)
	})

	testCases := []struct {
		name      string
		prepare   func(f *favoritesFixture) (uuid.UUID, uuid.UUID)
		expectErr error
	}{
		{
			name: "Error - unknown product",
			prepare: func(f *favoritesFixture) (uuid.UUID, uuid.UUID) {
				return f.userID, uuid.New()
			},
			expectErr: marketerrors.ErrProductNotFound,
		},
		{
			name: "Error - nil product id",
			prepare: func(f *favoritesFixture) (uuid.UUID, uuid.UUID) {
				return f.userID, uuid.Nil
			},
			expectErr: marketerrors.ErrInvalidArgument,
		},
		{
			name: "Error - anonymous caller",
			prepare: func(f *favoritesFixture) (uuid.UUID, uuid.UUID) {
				return uuid.Nil, f.productA
			},
			expectErr: marketerrors.ErrUnauthorized,
		},
		{
			name: "Error - credential of a vanished user",
			prepare: func(f *favoritesFixture) (uuid.UUID, uuid.UUID) {
				return uuid.New(), f.productA
			},
			expectErr: marketerrors.ErrUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFavoritesFixture(t)
			userID, productID := tc.prepare(f)
			// when
			got, err := f.service.Toggle(context.Background(), userID, productID)
			// then
			assert.ErrorIs(t, err, tc.expectErr)
			assert.Nil(t, got)
			assert.Empty(t, f.publisher.events)
		})
	}

	t.Run("Error - unknown product performs no mutation", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		// when
		_, err := f.service.Toggle(context.Background(), f.userID, uuid.New())
		// then
		require.ErrorIs(t, err, marketerrors.ErrProductNotFound)
		assert.Zero(t, f.counter.mutations)
	})

	t.Run("Error - store failure is surfaced", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		storeErr := errors.New("connection reset")
		f.counter.toggleErr = storeErr
		// when
		got, err := f.service.Toggle(context.Background(), f.userID, f.productA)
		// then
		assert.ErrorIs(t, err, storeErr)
		assert.Nil(t, got)
		assert.Empty(t, f.publisher.events)
	})

	t.Run("Error - existence check failure is surfaced", func(t *testing.T) {
		// given
		f := newFavoritesFixture(t)
		lookupErr := errors.New("timeout")
		svc := NewFavoritesService(brokenProductStore{ProductStore: f.mem, err: lookupErr}, f.counter, nil)
		// when
		got, err := svc.Toggle(context.Background(), f.userID, f.productA)
		// then
		assert.ErrorIs(t, err, lookupErr)
		assert.Nil(t, got)
		assert.Zero(t, f.counter.mutations)
	})
}

func Test_FavoritesService_Toggle_Concurrent(t *testing.T) {
	for _, n := range []int{1, 2, 9, 24} {
		t.Run(fmt.Sprintf("parity n=%d", n), func(t *testing.T) {
			// given
			f := newFavoritesFixture(t)
			ctx := context.Background()
			var wg sync.WaitGroup
			// when
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.service.Toggle(ctx, f.userID, f.productA)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()
			// then
			got, err := f.mem.Favorites(ctx, f.userID)
			require.NoError(t, err)
			if n%2 == 1 {
				assert.Equal(t, []uuid.UUID{f.productA}, got, "n=%d", n)
			} else {
				assert.Empty(t, got, "n=%d", n)
			}
			assert.Equal(t, n, f.counter.mutations)
		})
	}
}
