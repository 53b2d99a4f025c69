package service

import (
	"context"
	"sync"
	"testing"

	marketerrors "github.com/abgdnv/marketplace/internal/errors"
	"github.com/abgdnv/marketplace/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is an in-process CatalogCache that counts invalidations.
type mapCache struct {
	mu            sync.Mutex
	pages         map[string][]byte
	hits          int
	invalidations int
}

func newMapCache() *mapCache {
	return &mapCache{pages: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.pages[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = value
}

func (c *mapCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	clear(c.pages)
}

func ptr[T any](v T) *T { return &v }

func newCatalogFixture(t *testing.T) (*Catalog, *mapCache) {
	t.Helper()
	mem := store.NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), mem, store.DemoProducts...))
	c := newMapCache()
	return NewCatalogService(mem, c), c
}

func Test_CatalogService_List(t *testing.T) {
	testCases := []struct {
		name          string
		query         ProductQuery
		expectedTotal int64
		expectedLen   int
	}{
		{name: "first page", query: ProductQuery{Page: 1, Limit: 2}, expectedTotal: 5, expectedLen: 2},
		{name: "last partial page", query: ProductQuery{Page: 3, Limit: 2}, expectedTotal: 5, expectedLen: 1},
		{name: "past the end", query: ProductQuery{Page: 4, Limit: 2}, expectedTotal: 5, expectedLen: 0},
		{name: "case-insensitive search", query: ProductQuery{Page: 1, Limit: 5, Search: "KEYBOARD"}, expectedTotal: 1, expectedLen: 1},
		{name: "no match", query: ProductQuery{Page: 1, Limit: 5, Search: "tractor"}, expectedTotal: 0, expectedLen: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc, _ := newCatalogFixture(t)
			// when
			page, err := svc.List(context.Background(), tc.query)
			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expectedTotal, page.Total)
			assert.Len(t, page.Products, tc.expectedLen)
			assert.NotNil(t, page.Products)
		})
	}
}

func Test_CatalogService_List_Cache(t *testing.T) {
	// given
	svc, c := newCatalogFixture(t)
	ctx := context.Background()
	query := ProductQuery{Page: 1, Limit: 10}
	first, err := svc.List(ctx, query)
	require.NoError(t, err)
	// when
	second, err := svc.List(ctx, query)
	require.NoError(t, err)
	// then
	assert.Equal(t, 1, c.hits)
	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, first.Products[0].ID, second.Products[0].ID)

	// when a product is created the cached page is dropped
	_, err = svc.Create(ctx, ProductCreateDto{Title: "Desk Lamp", Price: ptr(25.0), Description: "LED", Image: "lamp.png"})
	require.NoError(t, err)
	third, err := svc.List(ctx, query)
	require.NoError(t, err)
	// then
	assert.Equal(t, 1, c.invalidations)
	assert.Equal(t, int64(6), third.Total)
}

func Test_CatalogService_Mutations(t *testing.T) {
	t.Run("Success - create, update, delete", func(t *testing.T) {
		// given
		svc, c := newCatalogFixture(t)
		ctx := context.Background()
		// when
		created, err := svc.Create(ctx, ProductCreateDto{Title: "Desk Lamp", Price: ptr(25.0), Description: "LED", Image: "lamp.png"})
		require.NoError(t, err)
		id := uuid.MustParse(created.ID)
		updated, err := svc.Update(ctx, id, ProductUpdateDto{Price: ptr(19.5)})
		require.NoError(t, err)
		err = svc.DeleteByID(ctx, id)
		require.NoError(t, err)
		_, findErr := svc.FindByID(ctx, id)
		// then
		assert.Equal(t, "Desk Lamp", updated.Title)
		assert.Equal(t, 19.5, updated.Price)
		assert.ErrorIs(t, findErr, marketerrors.ErrProductNotFound)
		assert.Equal(t, 3, c.invalidations)
	})

	t.Run("Error - unknown product", func(t *testing.T) {
		// given
		svc, c := newCatalogFixture(t)
		ctx := context.Background()
		// when
		_, updateErr := svc.Update(ctx, uuid.New(), ProductUpdateDto{Title: ptr("x")})
		deleteErr := svc.DeleteByID(ctx, uuid.New())
		// then
		assert.ErrorIs(t, updateErr, marketerrors.ErrProductNotFound)
		assert.ErrorIs(t, deleteErr, marketerrors.ErrProductNotFound)
		assert.Zero(t, c.invalidations)
	})
}

func Test_ProductDtos_Normalize(t *testing.T) {
	// given
	create := ProductCreateDto{Title: "  Lamp ", Description: " LED\n", Image: " lamp.png "}
	update := ProductUpdateDto{Title: ptr("  Lamp  ")}
	// when
	create.Normalize()
	update.Normalize()
	// then
	assert.Equal(t, ProductCreateDto{Title: "Lamp", Description: "LED", Image: "lamp.png"}, create)
	assert.Equal(t, "Lamp", *update.Title)
	assert.False(t, update.Empty())
	assert.True(t, (&ProductUpdateDto{}).Empty())
}
