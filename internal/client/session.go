package client

import (
	"context"
	"errors"
	"sync"
)

// ErrNotLoggedIn is returned when an authenticated action is attempted without a session.
var ErrNotLoggedIn = errors.New("please login first")

// Session holds the bearer token and keeps the favorites controller in step with it.
type Session struct {
	api       *APIClient
	favorites *Controller

	mu    sync.RWMutex
	token string
	name  string
}

func NewSession(api *APIClient) *Session {
	return &Session{
		api:       api,
		favorites: NewController(api),
	}
}

// Favorites exposes the controller owned by the session.
func (s *Session) Favorites() *Controller {
	return s.favorites
}

func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// Token returns the current bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Login stores the new credential and resynchronizes the favorites from the server.
func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.Resume(ctx)
}

// UseToken adopts a credential obtained earlier, for example one persisted by a previous run.
func (s *Session) UseToken(ctx context.Context, token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return s.Resume(ctx)
}

func (s *Session) Register(ctx context.Context, name, email, password string) (*Registration, error) {
	return s.api.Register(ctx, name, email, password)
}

// Resume refetches the profile and replaces the favorite cache wholesale.
// Without a credential it clears the local state.
func (s *Session) Resume(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		s.clear()
		return nil
	}
	me, err := s.api.Me(ctx, token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.name = me.Name
	s.mu.Unlock()
	s.favorites.Replace(me.Favorites)
	return nil
}

// Logout drops the credential and empties the favorites.
func (s *Session) Logout() {
	s.clear()
}

// ToggleFavorite requests an optimistic toggle. Fails with ErrNotLoggedIn without touching the cache.
func (s *Session) ToggleFavorite(ctx context.Context, productID string) error {
	token := s.Token()
	if token == "" {
		return ErrNotLoggedIn
	}
	return s.favorites.RequestToggle(ctx, token, productID)
}

func (s *Session) Products(ctx context.Context, page, limit int, search string) (*ProductPage, error) {
	return s.api.Products(ctx, page, limit, search)
}

func (s *Session) Product(ctx context.Context, id string) (*Product, error) {
	return s.api.Product(ctx, id)
}

func (s *Session) clear() {
	s.mu.Lock()
	s.token = ""
	s.name = ""
	s.mu.Unlock()
	s.favorites.Reset()
}
