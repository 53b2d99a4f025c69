package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedAPI blocks every toggle until the test releases it with an answer.
type gatedAPI struct {
	mu      sync.Mutex
	calls   int
	started chan string
	answers chan answer
}

type answer struct {
	set []string
	err error
}

func newGatedAPI() *gatedAPI {
	return &gatedAPI{
		started: make(chan string, 8),
		answers: make(chan answer, 8),
	}
}

func (g *gatedAPI) ToggleFavorite(ctx context.Context, _, productID string) ([]string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	g.started <- productID
	select {
	case a := <-g.answers:
		return a.set, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedAPI) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// toggleAsync runs RequestToggle in the background and waits until the request is on the wire.
func toggleAsync(t *testing.T, c *Controller, api *gatedAPI, productID string) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- c.RequestToggle(context.Background(), "token", productID)
	}()
	select {
	case <-api.started:
	case <-time.After(time.Second):
		t.Fatal("toggle request was not issued")
	}
	return done
}

func TestController_OptimisticThenWholesale(t *testing.T) {
	// given
	api := newGatedAPI()
	c := NewController(api)
	c.Replace([]string{"p1"})
	// when
	done := toggleAsync(t, c, api, "p2")
	// then the guess is visible before the server answers
	assert.Equal(t, []string{"p1", "p2"}, c.Favorites())
	assert.True(t, c.IsPending("p2"))

	// when the server reports a different truth
	api.answers <- answer{set: []string{"p2", "p7"}}
	require.NoError(t, <-done)
	// then it replaces the guess entirely
	assert.Equal(t, []string{"p2", "p7"}, c.Favorites())
	assert.False(t, c.IsPending("p2"))
}

func TestController_PendingSuppression(t *testing.T) {
	// given
	api := newGatedAPI()
	c := NewController(api)
	done := toggleAsync(t, c, api, "p1")
	// when
	err := c.RequestToggle(context.Background(), "token", "p1")
	// then
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount())
	assert.Equal(t, []string{"p1"}, c.Favorites())
	assert.True(t, c.IsPending("p1"))

	api.answers <- answer{set: []string{"p1"}}
	require.NoError(t, <-done)
	assert.False(t, c.IsPending("p1"))
	assert.Equal(t, 1, api.callCount())
}

func TestController_Rollback(t *testing.T) {
	testCases := []struct {
		name      string
		initial   []string
		productID string
		err       error
	}{
		{
			name:      "not found while removing",
			initial:   []string{"p1", "p3"},
			productID: "p1",
			err:       &APIError{Status: http.StatusNotFound, Message: "Product not found"},
		},
		{
			name:      "server error while adding",
			initial:   []string{"p3"},
			productID: "p5",
			err:       &APIError{Status: http.StatusInternalServerError, Message: "Failed to toggle favorite"},
		},
		{
			name:      "network failure on empty set",
			initial:   []string{},
			productID: "p5",
			err:       ErrNetwork,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			api := newGatedAPI()
			c := NewController(api)
			c.Replace(tc.initial)
			before := c.Favorites()
			// when
			done := toggleAsync(t, c, api, tc.productID)
			assert.NotEqual(t, before, c.Favorites())
			api.answers <- answer{err: tc.err}
			err := <-done
			// then
			assert.ErrorIs(t, err, tc.err)
			assert.Equal(t, before, c.Favorites())
			assert.False(t, c.IsPending(tc.productID))
		})
	}
}

func TestController_TimeoutRollsBack(t *testing.T) {
	// given
	api := newGatedAPI()
	c := NewController(api)
	c.Replace([]string{"p1"})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	// when
	err := c.RequestToggle(ctx, "token", "p1")
	// then
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"p1"}, c.Favorites())
	assert.False(t, c.IsPending("p1"))
}

func TestController_ResetDiscardsLateAnswer(t *testing.T) {
	// given
	api := newGatedAPI()
	c := NewController(api)
	done := toggleAsync(t, c, api, "p1")
	// when
	c.Reset()
	api.answers <- answer{set: []string{"p1"}}
	require.NoError(t, <-done)
	// then
	assert.Empty(t, c.Favorites())
	assert.False(t, c.IsPending("p1"))
}

func TestController_ResetKeepsNewerPending(t *testing.T) {
	// given a toggle from before the reset and one started after it
	api := newGatedAPI()
	c := NewController(api)
	ctx, cancel := context.WithCancel(context.Background())
	stale := make(chan error, 1)
	go func() { stale <- c.RequestToggle(ctx, "token", "p1") }()
	<-api.started
	c.Reset()
	fresh := toggleAsync(t, c, api, "p1")
	// when the stale request ends first
	cancel()
	require.ErrorIs(t, <-stale, context.Canceled)
	// then the newer request still suppresses taps
	assert.True(t, c.IsPending("p1"))
	assert.Equal(t, []string{"p1"}, c.Favorites())

	api.answers <- answer{set: []string{"p1"}}
	require.NoError(t, <-fresh)
	assert.False(t, c.IsPending("p1"))
}

// panickingAPI fails in the most abrupt way a transport can.
type panickingAPI struct{}

func (panickingAPI) ToggleFavorite(context.Context, string, string) ([]string, error) {
	panic("transport exploded")
}

func TestController_PanicStillSettles(t *testing.T) {
	// given
	c := NewController(panickingAPI{})
	c.Replace([]string{"p1"})
	// when
	assert.PanicsWithValue(t, "transport exploded", func() {
		_ = c.RequestToggle(context.Background(), "token", "p2")
	})
	// then the flip is rolled back and the id can be toggled again
	assert.Equal(t, []string{"p1"}, c.Favorites())
	assert.False(t, c.IsPending("p2"))
}

func TestController_OnChange(t *testing.T) {
	// given
	api := newGatedAPI()
	c := NewController(api)
	var mu sync.Mutex
	var seen [][]string
	c.OnChange(func(favorites []string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, favorites)
	})
	// when
	done := toggleAsync(t, c, api, "p1")
	api.answers <- answer{err: errors.New("boom")}
	<-done
	// then
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"p1"}, {}}, seen)
}

func TestController_ReplaceDeduplicates(t *testing.T) {
	c := NewController(newGatedAPI())
	c.Replace([]string{"p1", "p2", "p1"})
	assert.Equal(t, []string{"p1", "p2"}, c.Favorites())
	assert.True(t, c.IsFavorite("p2"))
	assert.False(t, c.IsFavorite("p3"))
}

func TestVisibleFavorites(t *testing.T) {
	// given
	products := []Product{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	// when
	visible := VisibleFavorites([]string{"p3", "gone", "p1"}, products)
	// then
	assert.Equal(t, []Product{{ID: "p1"}, {ID: "p3"}}, visible)
	assert.Empty(t, VisibleFavorites(nil, products))
}
