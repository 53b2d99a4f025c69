package client

import (
	"context"
	"slices"
	"sync"
)

// FavoritesAPI is the server side of a toggle.
type FavoritesAPI interface {
	ToggleFavorite(ctx context.Context, token, productID string) ([]string, error)
}

// Controller owns the client copy of the favorite set.
// Toggles are applied optimistically and then confirmed or rolled back by the server answer.
// One instance lives per client and is reset on logout.
type Controller struct {
	api FavoritesAPI

	mu        sync.Mutex
	cache     []string
	pending   map[string]struct{}
	epoch     uint64
	listeners []func([]string)
}

func NewController(api FavoritesAPI) *Controller {
	return &Controller{
		api:     api,
		cache:   []string{},
		pending: make(map[string]struct{}),
	}
}

// OnChange registers fn to receive every new visible set. fn runs outside the controller lock.
func (c *Controller) OnChange(fn func(favorites []string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Favorites returns a copy of the visible set.
func (c *Controller) Favorites() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.cache)
}

func (c *Controller) IsFavorite(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Contains(c.cache, productID)
}

// IsPending reports whether a toggle of productID is in flight.
func (c *Controller) IsPending(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[productID]
	return ok
}

// RequestToggle flips productID locally, asks the server and settles the cache on the answer.
// A toggle of an id that is already in flight returns nil without issuing a request.
// On failure the cache is restored to the set seen before the call and the error is returned.
func (c *Controller) RequestToggle(ctx context.Context, token, productID string) error {
	c.mu.Lock()
	if _, busy := c.pending[productID]; busy {
		c.mu.Unlock()
		return nil
	}
	c.pending[productID] = struct{}{}
	previous := slices.Clone(c.cache)
	epoch := c.epoch
	c.cache = flip(c.cache, productID)
	c.unlockAndPublish()

	var (
		set      []string
		err      error
		answered bool
	)
	// Settling runs on every exit, including a panicking API.
	defer func() {
		c.mu.Lock()
		if c.epoch != epoch {
			// Reset or logout happened while the request was in flight.
			c.mu.Unlock()
			return
		}
		delete(c.pending, productID)
		if answered && err == nil {
			c.cache = dedupe(set)
		} else {
			c.cache = previous
		}
		c.unlockAndPublish()
	}()

	set, err = c.api.ToggleFavorite(ctx, token, productID)
	answered = true
	return err
}

// Replace overwrites the cache with the authoritative set, discarding any optimistic state.
func (c *Controller) Replace(favorites []string) {
	c.mu.Lock()
	c.cache = dedupe(favorites)
	c.unlockAndPublish()
}

// Reset empties the cache and forgets in-flight toggles. Answers that arrive later are ignored.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.epoch++
	c.cache = []string{}
	clear(c.pending)
	c.unlockAndPublish()
}

// unlockAndPublish must be called with c.mu held. It releases the lock before notifying.
func (c *Controller) unlockAndPublish() {
	snapshot := slices.Clone(c.cache)
	listeners := slices.Clone(c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(slices.Clone(snapshot))
	}
}

func flip(set []string, id string) []string {
	if i := slices.Index(set, id); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), id)
}

func dedupe(set []string) []string {
	out := make([]string, 0, len(set))
	for _, id := range set {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// VisibleFavorites returns the products that are in the favorite set, in product order.
// Ids that no longer resolve to a product are skipped.
func VisibleFavorites(favorites []string, products []Product) []Product {
	out := make([]Product, 0, len(favorites))
	for _, p := range products {
		if slices.Contains(favorites, p.ID) {
			out = append(out, p)
		}
	}
	return out
}
